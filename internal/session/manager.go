package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"crisp/internal/metrics"
	"crisp/internal/models"
)

// ManagedStore is a RecordStore that can also pull records in from durable storage.
type ManagedStore interface {
	RecordStore
	Load(ctx context.Context, id string) (models.Candidate, error)
}

// Manager keeps one controller per active candidate.
type Manager struct {
	mu          sync.Mutex
	controllers map[string]*Controller
	store       ManagedStore
	deps        Deps
	logger      *zap.Logger
}

func NewManager(st ManagedStore, deps Deps) *Manager {
	deps = deps.withDefaults()
	return &Manager{
		controllers: make(map[string]*Controller),
		store:       st,
		deps:        deps,
		logger:      deps.Logger,
	}
}

// Get returns the candidate's controller, creating it after making sure the
// record is loaded.
func (m *Manager) Get(ctx context.Context, candidateID, token string) (*Controller, error) {
	m.mu.Lock()
	if c, ok := m.controllers[candidateID]; ok {
		m.mu.Unlock()
		return c, nil
	}
	m.mu.Unlock()

	if _, err := m.store.Load(ctx, candidateID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// lost a race with another request for the same candidate
	if c, ok := m.controllers[candidateID]; ok {
		return c, nil
	}
	c := NewController(m.store, candidateID, token, m.deps)
	m.controllers[candidateID] = c
	metrics.ActiveSessions.Set(float64(len(m.controllers)))
	m.logger.Debug("session controller created", zap.String("candidate_id", candidateID))
	return c, nil
}

// Lookup returns an existing controller without creating one.
func (m *Manager) Lookup(candidateID string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[candidateID]
	return c, ok
}

// Remove closes and forgets the candidate's controller.
func (m *Manager) Remove(candidateID string) {
	m.mu.Lock()
	c, ok := m.controllers[candidateID]
	delete(m.controllers, candidateID)
	metrics.ActiveSessions.Set(float64(len(m.controllers)))
	m.mu.Unlock()

	if ok {
		c.Close()
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	controllers := m.controllers
	m.controllers = make(map[string]*Controller)
	metrics.ActiveSessions.Set(0)
	m.mu.Unlock()

	for _, c := range controllers {
		c.Close()
	}
	m.logger.Info("closed session controllers", zap.Int("count", len(controllers)))
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.controllers)
}

// SweepDone drops controllers whose interview has completed and returns
// their candidate ids.
func (m *Manager) SweepDone() []string {
	m.mu.Lock()
	var done []*Controller
	for id, c := range m.controllers {
		if c.Phase() == PhaseDone {
			done = append(done, c)
			delete(m.controllers, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(m.controllers)))
	m.mu.Unlock()

	ids := make([]string, 0, len(done))
	for _, c := range done {
		c.Close()
		ids = append(ids, c.CandidateID())
	}
	return ids
}
