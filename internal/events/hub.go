package events

import (
	"sync"

	"go.uber.org/zap"

	"crisp/internal/session"
)

// Hub fans session events out to the websocket clients of each candidate.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]map[*Client]struct{}), logger: logger}
}

func (h *Hub) Join(candidateID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[candidateID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[candidateID] = set
	}
	set[c] = struct{}{}
}

// Leave removes c and returns how many clients still follow the candidate.
func (h *Hub) Leave(candidateID string, c *Client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[candidateID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, candidateID)
		return 0
	}
	return len(set)
}

func (h *Hub) ClientCount(candidateID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[candidateID])
}

// Publish implements session.Notifier.
func (h *Hub) Publish(e session.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[e.CandidateID] {
		if !c.Send(e) {
			h.logger.Debug("dropped event for slow client",
				zap.String("candidate_id", e.CandidateID),
				zap.String("type", string(e.Type)))
		}
	}
}
