package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper releases controllers of finished interviews.
type Sweeper interface {
	SweepDone() []string
}

// Evicter drops a candidate record from memory.
type Evicter interface {
	Evict(id string)
}

// SessionSweepJob frees memory held for completed interviews. Records are
// reloaded from the document store if anyone asks for them again.
type SessionSweepJob struct {
	sessions Sweeper
	records  Evicter
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

func NewSessionSweepJob(sessions Sweeper, records Evicter, schedule string, logger *zap.Logger) *SessionSweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweepJob{
		sessions: sessions,
		records:  records,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

func (j *SessionSweepJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	j.cron.Start()
	return nil
}

func (j *SessionSweepJob) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce returns how many sessions were released.
func (j *SessionSweepJob) RunOnce() int {
	ids := j.sessions.SweepDone()
	for _, id := range ids {
		j.records.Evict(id)
	}
	if len(ids) > 0 {
		j.logger.Info("released completed sessions", zap.Int("count", len(ids)))
	}
	return len(ids)
}
