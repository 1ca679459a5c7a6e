package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"crisp/internal/metrics"
)

// Retrier re-drives persisted outbox failures.
type Retrier interface {
	Retry(ctx context.Context, maxAttempts, limit int) (succeeded, failed int, err error)
}

type OutboxRetryConfig struct {
	Schedule    string // cron spec, e.g. "@every 30s"
	MaxAttempts int    // entries at or over this are left for an operator
	BatchSize   int
	Enabled     bool
}

// OutboxRetryJob periodically retries candidate writes that failed to reach
// the document store.
type OutboxRetryJob struct {
	outbox Retrier
	config *OutboxRetryConfig
	cron   *cron.Cron
	logger *zap.Logger

	running sync.Mutex
}

func NewOutboxRetryJob(outbox Retrier, config *OutboxRetryConfig, logger *zap.Logger) *OutboxRetryJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxRetryJob{
		outbox: outbox,
		config: config,
		cron:   cron.New(),
		logger: logger,
	}
}

func (j *OutboxRetryJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("outbox retry is disabled, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if err := j.RunOnce(context.Background()); err != nil {
			j.logger.Error("outbox retry failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule outbox retry: %w", err)
	}

	j.cron.Start()
	j.logger.Info("outbox retry started", zap.String("schedule", j.config.Schedule))
	return nil
}

func (j *OutboxRetryJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("outbox retry stopped")
	}
}

// RunOnce retries one batch. Overlapping runs are skipped.
func (j *OutboxRetryJob) RunOnce(ctx context.Context) error {
	if !j.running.TryLock() {
		j.logger.Debug("previous outbox retry still running")
		return nil
	}
	defer j.running.Unlock()

	succeeded, failed, err := j.outbox.Retry(ctx, j.config.MaxAttempts, j.config.BatchSize)
	if err != nil {
		return err
	}
	metrics.OutboxRetries.WithLabelValues("succeeded").Add(float64(succeeded))
	metrics.OutboxRetries.WithLabelValues("failed").Add(float64(failed))
	if succeeded+failed > 0 {
		j.logger.Info("outbox retry finished",
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed))
	}
	return nil
}
