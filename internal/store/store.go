package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crisp/internal/models"
)

var (
	ErrNotFound          = errors.New("candidate not found")
	ErrInvalidTransition = errors.New("invalid interview status transition")
	ErrQuestionPending   = errors.New("a question is already waiting for its answer")
	ErrNoOutstanding     = errors.New("no question is waiting for an answer")
	ErrAlreadyCompleted  = errors.New("interview is already completed")
)

// RecordRepository is the durable home of candidate records.
type RecordRepository interface {
	Upsert(ctx context.Context, c models.Candidate) error
	Get(ctx context.Context, id string) (*models.Candidate, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CandidateFilter) ([]models.Candidate, error)
}

// Store is the authoritative in-memory view of candidate records. Reads are
// served from memory; every mutation is handed to the outbox for persistence.
type Store struct {
	mu       sync.RWMutex
	records  map[string]*models.Candidate
	repo     RecordRepository
	outbox   *Outbox
	logger   *zap.Logger
	now      func() time.Time
	watchers []func(models.Candidate)
}

func New(repo RecordRepository, outbox *Outbox, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		records: make(map[string]*models.Candidate),
		repo:    repo,
		outbox:  outbox,
		logger:  logger,
		now:     time.Now,
	}
	if outbox != nil {
		outbox.latest = s.Get
	}
	return s
}

// Watch registers fn to receive a copy of every record after it changes.
func (s *Store) Watch(fn func(models.Candidate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// Create starts a new record in COLLECTING_INFO.
func (s *Store) Create(email string, companyDomain *string) models.Candidate {
	now := s.now()
	c := &models.Candidate{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(strings.TrimSpace(email)),
		Interview:     models.NewInterviewRecord(models.StatusCollectingInfo),
		CompanyDomain: companyDomain,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.records[c.ID] = c
	snapshot := c.Clone()
	s.publishLocked(snapshot)
	watchers := s.watchers
	s.mu.Unlock()

	notify(watchers, snapshot)
	return snapshot
}

// Get returns a copy of a cached record.
func (s *Store) Get(id string) (models.Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.records[id]
	if !ok {
		return models.Candidate{}, false
	}
	return c.Clone(), true
}

// Load returns the cached record or fetches it from the repository.
func (s *Store) Load(ctx context.Context, id string) (models.Candidate, error) {
	if c, ok := s.Get(id); ok {
		return c, nil
	}
	if s.repo == nil {
		return models.Candidate{}, ErrNotFound
	}
	remote, err := s.repo.Get(ctx, id)
	if err != nil {
		return models.Candidate{}, err
	}
	if remote == nil {
		return models.Candidate{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.records[id]; ok {
		// someone else cached it while we were reading
		return c.Clone(), nil
	}
	cached := remote.Clone()
	s.records[id] = &cached
	return cached.Clone(), nil
}

// List merges repository results with newer in-memory versions.
func (s *Store) List(ctx context.Context, filter models.CandidateFilter) ([]models.Candidate, error) {
	byID := make(map[string]models.Candidate)
	if s.repo != nil {
		remote, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list candidates: %w", err)
		}
		for _, c := range remote {
			byID[c.ID] = c
		}
	}

	s.mu.RLock()
	for id, c := range s.records {
		if matches(c, filter) {
			byID[id] = c.Clone()
		} else {
			delete(byID, id)
		}
	}
	s.mu.RUnlock()

	out := make([]models.Candidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func matches(c *models.Candidate, f models.CandidateFilter) bool {
	if f.CompanyDomain != nil && (c.CompanyDomain == nil || *c.CompanyDomain != *f.CompanyDomain) {
		return false
	}
	if f.Status != "" && c.Interview.Status != f.Status {
		return false
	}
	return true
}

// UpdateInfo replaces the onboarding profile.
func (s *Store) UpdateInfo(id string, info models.CandidateInfo) (models.Candidate, error) {
	return s.mutate(id, func(c *models.Candidate) error {
		c.Name = info.Name
		c.Email = info.Email
		c.Phone = info.Phone
		c.ResumeFile = info.ResumeFile
		return nil
	})
}

// SetStatus moves the interview status forward.
func (s *Store) SetStatus(id string, status models.InterviewStatus) (models.Candidate, error) {
	return s.mutate(id, func(c *models.Candidate) error {
		if !c.Interview.Status.CanAdvanceTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Interview.Status, status)
		}
		c.Interview.Status = status
		return nil
	})
}

// StartInterview moves READY_TO_START to IN_PROGRESS and stamps the start time.
func (s *Store) StartInterview(id string) (models.Candidate, error) {
	return s.mutate(id, func(c *models.Candidate) error {
		if c.Interview.Status != models.StatusReadyToStart {
			return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, c.Interview.Status)
		}
		now := s.now()
		c.Interview.Status = models.StatusInProgress
		c.Interview.StartTime = &now
		return nil
	})
}

// AddQuestion appends q and the assistant message that asks it.
func (s *Store) AddQuestion(id string, q models.Question) (models.Candidate, error) {
	return s.mutate(id, func(c *models.Candidate) error {
		if c.Interview.Status != models.StatusInProgress {
			return fmt.Errorf("%w: interview is %s", ErrInvalidTransition, c.Interview.Status)
		}
		if c.Interview.Outstanding() {
			return ErrQuestionPending
		}
		c.Interview.Questions = append(c.Interview.Questions, q)
		c.Interview.ChatHistory = append(c.Interview.ChatHistory, models.ChatMessage{
			Role:    models.RoleAssistant,
			Content: q.Text,
		})
		return nil
	})
}

func (s *Store) AddChatMessage(id string, msg models.ChatMessage) (models.Candidate, error) {
	return s.mutate(id, func(c *models.Candidate) error {
		c.Interview.ChatHistory = append(c.Interview.ChatHistory, msg)
		return nil
	})
}

// AppendChatOnce appends msg unless an identical message is already present.
func (s *Store) AppendChatOnce(id string, msg models.ChatMessage) (models.Candidate, bool, error) {
	appended := false
	c, err := s.mutate(id, func(c *models.Candidate) error {
		for _, m := range c.Interview.ChatHistory {
			if m == msg {
				return errUnchanged
			}
		}
		c.Interview.ChatHistory = append(c.Interview.ChatHistory, msg)
		appended = true
		return nil
	})
	return c, appended, err
}

// RecordAnswer stores the answer to the outstanding question and advances the index.
func (s *Store) RecordAnswer(id string, answer string) (models.Candidate, error) {
	return s.mutate(id, func(c *models.Candidate) error {
		if c.Interview.Status != models.StatusInProgress {
			return fmt.Errorf("%w: interview is %s", ErrInvalidTransition, c.Interview.Status)
		}
		if !c.Interview.Outstanding() {
			return ErrNoOutstanding
		}
		c.Interview.ChatHistory = append(c.Interview.ChatHistory, models.ChatMessage{
			Role:    models.RoleUser,
			Content: answer,
		})
		c.Interview.Answers = append(c.Interview.Answers, answer)
		c.Interview.CurrentQuestionIndex = len(c.Interview.Answers)
		return nil
	})
}

// Complete finishes the interview once; later calls report applied=false.
func (s *Store) Complete(id string, summary string, score int) (models.Candidate, bool, error) {
	applied := false
	c, err := s.mutate(id, func(c *models.Candidate) error {
		if c.Interview.Status == models.StatusCompleted {
			return errUnchanged
		}
		now := s.now()
		c.Interview.Status = models.StatusCompleted
		c.Interview.Summary = &summary
		c.Interview.Score = &score
		c.Interview.EndTime = &now
		applied = true
		return nil
	})
	return c, applied, err
}

// StartOver resets the record to onboarding, keeping email and company.
// A completed interview keeps its result.
func (s *Store) StartOver(id string) (models.Candidate, error) {
	return s.mutate(id, func(c *models.Candidate) error {
		if c.Interview.Status == models.StatusCompleted {
			return ErrAlreadyCompleted
		}
		c.Name = ""
		c.Phone = ""
		c.ResumeFile = nil
		c.Interview = models.NewInterviewRecord(models.StatusCollectingInfo)
		return nil
	})
}

// Delete removes the record everywhere, bypassing the outbox.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()

	if s.outbox != nil {
		s.outbox.Forget(ctx, id)
	}

	if s.repo == nil {
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete candidate %s: %w", id, err)
	}
	return nil
}

// Evict drops a record from memory once it no longer needs to be hot.
func (s *Store) Evict(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

var errUnchanged = errors.New("unchanged")

func (s *Store) mutate(id string, fn func(c *models.Candidate) error) (models.Candidate, error) {
	s.mu.Lock()
	current, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return models.Candidate{}, ErrNotFound
	}

	work := current.Clone()
	if err := fn(&work); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return current.Clone(), nil
		}
		return models.Candidate{}, err
	}
	work.UpdatedAt = s.now()
	s.records[id] = &work

	snapshot := work.Clone()
	s.publishLocked(snapshot)
	watchers := s.watchers
	s.mu.Unlock()

	notify(watchers, snapshot)
	return snapshot, nil
}

// publishLocked enqueues under s.mu so the outbox sees versions in order.
func (s *Store) publishLocked(c models.Candidate) {
	if s.outbox != nil {
		s.outbox.Enqueue(c)
	}
}

func notify(watchers []func(models.Candidate), c models.Candidate) {
	for _, w := range watchers {
		w(c.Clone())
	}
}
