package store

import (
	"context"
	"sync"

	"crisp/internal/models"
)

// MemoryRepository keeps records in process. Used for local runs without
// MongoDB and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]models.Candidate
	upserts int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]models.Candidate)}
}

func (m *MemoryRepository) Upsert(_ context.Context, c models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[c.ID] = c.Clone()
	m.upserts++
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c.Clone()
	return &out, nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *MemoryRepository) List(_ context.Context, filter models.CandidateFilter) ([]models.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Candidate
	for _, c := range m.records {
		if matches(&c, filter) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// Upserts counts successful writes.
func (m *MemoryRepository) Upserts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}
