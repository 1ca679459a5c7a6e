package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"crisp/internal/session"
)

const (
	relayChannel = "crisp:session_events"
	relayBuffer  = 256
)

type relayMessage struct {
	Origin string        `json:"origin"`
	Event  session.Event `json:"event"`
}

// RedisRelay delivers events locally and to hubs of other server instances
// over Redis pub/sub.
type RedisRelay struct {
	rdb      *redis.Client
	local    *Hub
	origin   string
	outbound chan []byte
	logger   *zap.Logger
}

func NewRedisRelay(rdb *redis.Client, local *Hub, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRelay{
		rdb:      rdb,
		local:    local,
		origin:   uuid.NewString(),
		outbound: make(chan []byte, relayBuffer),
		logger:   logger,
	}
}

// Publish implements session.Notifier.
func (r *RedisRelay) Publish(e session.Event) {
	r.local.Publish(e)

	payload, err := json.Marshal(relayMessage{Origin: r.origin, Event: e})
	if err != nil {
		r.logger.Error("failed to encode session event", zap.Error(err))
		return
	}
	// the controller never waits on redis; a full buffer drops the event
	select {
	case r.outbound <- payload:
	default:
		r.logger.Warn("session event relay is backed up, dropping event",
			zap.String("type", string(e.Type)),
			zap.String("candidate_id", e.CandidateID))
	}
}

// send publishes queued events one at a time, in the order they were queued.
func (r *RedisRelay) send(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-r.outbound:
			if err := r.rdb.Publish(ctx, relayChannel, payload).Err(); err != nil {
				r.logger.Warn("failed to relay session event", zap.Error(err))
			}
		}
	}
}

// Run publishes local events and forwards events published by other
// instances until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	go r.send(ctx)

	sub := r.rdb.Subscribe(ctx, relayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		r.logger.Error("failed to subscribe to session events", zap.Error(err))
		return
	}
	r.logger.Info("subscribed to session events", zap.String("channel", relayChannel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(payload string) {
	var m relayMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		r.logger.Warn("ignoring malformed session event", zap.Error(err))
		return
	}
	if m.Origin == r.origin {
		return
	}
	r.local.Publish(m.Event)
}
