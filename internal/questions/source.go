package questions

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"crisp/internal/metrics"
	"crisp/internal/models"
)

// DefaultMaxAttempts bounds regeneration when the model repeats itself.
const DefaultMaxAttempts = 3

var ErrDuplicateGenerated = errors.New("generator kept returning questions that were already asked")

// Generator produces the text of a new question.
type Generator interface {
	Generate(ctx context.Context, difficulty models.Difficulty, topic string, avoid []string) (string, error)
}

// Source picks the next question for a slot: an unused bank entry when one
// exists, otherwise a freshly generated question.
type Source struct {
	bank        *Bank
	generator   Generator
	topic       string
	maxAttempts int
	logger      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Source)

// WithRand fixes the random source, for deterministic tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Source) { s.rng = rng }
}

func WithMaxAttempts(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSource(bank *Bank, generator Generator, topic string, opts ...Option) *Source {
	s := &Source{
		bank:        bank,
		generator:   generator,
		topic:       topic,
		maxAttempts: DefaultMaxAttempts,
		logger:      zap.NewNop(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns a question of the given difficulty that is not among asked.
func (s *Source) Next(ctx context.Context, difficulty models.Difficulty, asked []models.Question) (models.Question, error) {
	askedIDs := make(map[string]struct{}, len(asked))
	avoid := make([]string, 0, len(asked))
	for _, q := range asked {
		askedIDs[q.ID] = struct{}{}
		avoid = append(avoid, q.Text)
	}

	if eligible := s.bank.Eligible(difficulty, askedIDs); len(eligible) > 0 {
		q := eligible[s.intn(len(eligible))]
		metrics.QuestionsServed.WithLabelValues(string(models.SourceBank)).Inc()
		return q, nil
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		text, err := s.generator.Generate(ctx, difficulty, s.topic, avoid)
		if err != nil {
			return models.Question{}, fmt.Errorf("generate %s question: %w", difficulty, err)
		}
		q := models.NewQuestion(text, difficulty, models.SourceGenerated)
		if _, dup := askedIDs[q.ID]; !dup {
			metrics.QuestionsServed.WithLabelValues(string(models.SourceGenerated)).Inc()
			return q, nil
		}
		s.logger.Warn("generated question repeats an earlier one",
			zap.String("difficulty", string(difficulty)),
			zap.Int("attempt", attempt))
		avoid = append(avoid, text)
	}
	return models.Question{}, ErrDuplicateGenerated
}

func (s *Source) BankSize() int { return s.bank.Len() }

func (s *Source) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
