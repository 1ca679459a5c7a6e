package questions

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"crisp/internal/models"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuestionExists   = errors.New("question already exists")
)

// MemoryBank is an in-process question bank for runs without MongoDB.
type MemoryBank struct {
	mu      sync.RWMutex
	entries map[string]models.BankQuestion
}

func NewMemoryBank(seed ...models.BankQuestion) *MemoryBank {
	b := &MemoryBank{entries: make(map[string]models.BankQuestion)}
	for _, q := range seed {
		_, _ = b.Create(context.Background(), q.Question, q.Difficulty)
	}
	return b
}

func (b *MemoryBank) ListQuestions(_ context.Context, difficulty models.Difficulty) ([]models.BankQuestion, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []models.BankQuestion{}
	for _, q := range b.entries {
		if difficulty == "" || q.Difficulty == difficulty {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (b *MemoryBank) Create(_ context.Context, text string, difficulty models.Difficulty) (*models.BankQuestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("question text required")
	}
	q := models.BankQuestion{
		ID:         models.QuestionID(text),
		Question:   text,
		Difficulty: difficulty,
		CreatedAt:  time.Now().UTC(),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[q.ID]; ok {
		return nil, ErrQuestionExists
	}
	b.entries[q.ID] = q
	return &q, nil
}

func (b *MemoryBank) CreateMany(ctx context.Context, questions []models.Question) (int, error) {
	inserted := 0
	for _, q := range questions {
		if _, err := b.Create(ctx, q.Text, q.Difficulty); err == nil {
			inserted++
		}
	}
	return inserted, nil
}

func (b *MemoryBank) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[id]; !ok {
		return ErrQuestionNotFound
	}
	delete(b.entries, id)
	return nil
}
