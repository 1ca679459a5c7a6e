package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the mirror of which candidate a token is driving.
type ActiveSession struct {
	CandidateID string
	Token       string
}

// LocalState remembers the active candidate for an interview token so a
// returning candidate resumes where they left off.
type LocalState interface {
	Save(ctx context.Context, s ActiveSession) error
	Load(ctx context.Context, token string) (ActiveSession, bool, error)
	Clear(ctx context.Context, token string) error
}

type RedisLocalState struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisLocalState(rdb *redis.Client, ttl time.Duration) *RedisLocalState {
	return &RedisLocalState{rdb: rdb, ttl: ttl, prefix: "crisp:active:"}
}

func (l *RedisLocalState) key(token string) string {
	return l.prefix + token
}

func (l *RedisLocalState) Save(ctx context.Context, s ActiveSession) error {
	if s.Token == "" || s.CandidateID == "" {
		return errors.New("active session needs a token and a candidate id")
	}
	key := l.key(s.Token)
	pipe := l.rdb.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"candidateId": s.CandidateID,
		"token":       s.Token,
	})
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save active session: %w", err)
	}
	return nil
}

func (l *RedisLocalState) Load(ctx context.Context, token string) (ActiveSession, bool, error) {
	data, err := l.rdb.HGetAll(ctx, l.key(token)).Result()
	if err != nil {
		return ActiveSession{}, false, fmt.Errorf("load active session: %w", err)
	}
	if len(data) == 0 || data["candidateId"] == "" {
		return ActiveSession{}, false, nil
	}
	return ActiveSession{CandidateID: data["candidateId"], Token: data["token"]}, true, nil
}

func (l *RedisLocalState) Clear(ctx context.Context, token string) error {
	if err := l.rdb.Del(ctx, l.key(token)).Err(); err != nil {
		return fmt.Errorf("clear active session: %w", err)
	}
	return nil
}
