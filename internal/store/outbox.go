package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"crisp/internal/metrics"
	"crisp/internal/models"
)

// FailureLog persists writes that could not reach the repository.
type FailureLog interface {
	Record(ctx context.Context, candidateID string, payload []byte, cause error) error
	Resolve(ctx context.Context, candidateID string) error
	Due(ctx context.Context, maxAttempts, limit int) ([]models.OutboxEntry, error)
}

// Outbox coalesces candidate writes by id and upserts them in the background.
type Outbox struct {
	repo     RecordRepository
	failures FailureLog
	logger   *zap.Logger
	timeout  time.Duration

	// latest reads the freshest in-memory version, set by the Store
	latest func(id string) (models.Candidate, bool)

	mu      sync.Mutex
	pending map[string]models.Candidate
	flushMu sync.Mutex

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewOutbox(repo RecordRepository, failures FailureLog, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{
		repo:     repo,
		failures: failures,
		logger:   logger,
		timeout:  10 * time.Second,
		pending:  make(map[string]models.Candidate),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Start runs the flush worker until ctx is cancelled or Stop is called.
func (o *Outbox) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stop:
				return
			case <-o.wake:
				o.Flush(ctx)
			}
		}
	}()
}

// Stop halts the worker and drains whatever is still pending.
func (o *Outbox) Stop(ctx context.Context) {
	o.once.Do(func() { close(o.stop) })
	o.wg.Wait()
	o.Flush(ctx)
}

// Enqueue replaces any pending version of the same candidate. Never blocks.
func (o *Outbox) Enqueue(c models.Candidate) {
	o.mu.Lock()
	o.pending[c.ID] = c
	n := len(o.pending)
	o.mu.Unlock()

	metrics.OutboxPending.Set(float64(n))
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Forget waits for any in-flight flush, then drops pending and persisted
// writes for id. Used when the candidate is deleted.
func (o *Outbox) Forget(ctx context.Context, id string) {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	o.mu.Lock()
	delete(o.pending, id)
	n := len(o.pending)
	o.mu.Unlock()
	metrics.OutboxPending.Set(float64(n))

	o.resolve(ctx, id)
}

func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Flush writes every pending record and returns how many failed.
func (o *Outbox) Flush(ctx context.Context) int {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	o.mu.Lock()
	batch := o.pending
	o.pending = make(map[string]models.Candidate)
	o.mu.Unlock()
	metrics.OutboxPending.Set(0)

	failed := 0
	for id, c := range batch {
		if err := o.write(ctx, c); err != nil {
			failed++
			o.fail(ctx, id, c, err)
			continue
		}
		o.resolve(ctx, id)
	}
	return failed
}

// Retry re-drives persisted failures, preferring the in-memory version when
// the candidate is still cached.
func (o *Outbox) Retry(ctx context.Context, maxAttempts, limit int) (succeeded, failed int, err error) {
	if o.failures == nil {
		return 0, 0, nil
	}
	entries, err := o.failures.Due(ctx, maxAttempts, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list outbox entries: %w", err)
	}

	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	for _, entry := range entries {
		o.mu.Lock()
		_, newer := o.pending[entry.CandidateID]
		o.mu.Unlock()
		if newer {
			// the next flush supersedes this entry
			continue
		}

		var c models.Candidate
		if cached, ok := o.current(entry.CandidateID); ok {
			c = cached
		} else if err := json.Unmarshal(entry.Payload, &c); err != nil {
			o.logger.Error("corrupt outbox entry",
				zap.String("candidate_id", entry.CandidateID),
				zap.Error(err))
			failed++
			continue
		}

		if err := o.write(ctx, c); err != nil {
			failed++
			o.fail(ctx, entry.CandidateID, c, err)
			continue
		}
		succeeded++
		o.resolve(ctx, entry.CandidateID)
	}
	return succeeded, failed, nil
}

func (o *Outbox) current(id string) (models.Candidate, bool) {
	if o.latest == nil {
		return models.Candidate{}, false
	}
	return o.latest(id)
}

func (o *Outbox) write(ctx context.Context, c models.Candidate) error {
	if o.repo == nil {
		return nil
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()
	return o.repo.Upsert(wctx, c)
}

func (o *Outbox) fail(ctx context.Context, id string, c models.Candidate, cause error) {
	metrics.OutboxFailures.Inc()
	o.logger.Error("failed to persist candidate",
		zap.String("candidate_id", id),
		zap.Error(cause))

	if o.failures == nil {
		return
	}
	payload, err := json.Marshal(c)
	if err != nil {
		o.logger.Error("failed to encode outbox entry", zap.String("candidate_id", id), zap.Error(err))
		return
	}
	if err := o.failures.Record(context.WithoutCancel(ctx), id, payload, cause); err != nil {
		o.logger.Error("failed to record outbox entry", zap.String("candidate_id", id), zap.Error(err))
	}
}

func (o *Outbox) resolve(ctx context.Context, id string) {
	if o.failures == nil {
		return
	}
	if err := o.failures.Resolve(context.WithoutCancel(ctx), id); err != nil {
		o.logger.Warn("failed to clear outbox entry", zap.String("candidate_id", id), zap.Error(err))
	}
}
