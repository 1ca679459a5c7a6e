package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis instance and a redis client for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestRedisLocalStateRoundTrip(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	state := NewRedisLocalState(rdb, time.Hour)
	ctx := context.Background()

	_, found, err := state.Load(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, state.Save(ctx, ActiveSession{CandidateID: "cand-1", Token: "tok-1"}))
	got, found, err := state.Load(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ActiveSession{CandidateID: "cand-1", Token: "tok-1"}, got)
	assert.True(t, mr.TTL("crisp:active:tok-1") > 0)

	require.NoError(t, state.Clear(ctx, "tok-1"))
	_, found, err = state.Load(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisLocalStateExpires(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	state := NewRedisLocalState(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, state.Save(ctx, ActiveSession{CandidateID: "cand-1", Token: "tok-1"}))
	mr.FastForward(2 * time.Minute)

	_, found, err := state.Load(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisLocalStateRejectsIncomplete(t *testing.T) {
	_, rdb := setupTestRedis(t)
	state := NewRedisLocalState(rdb, time.Minute)
	assert.Error(t, state.Save(context.Background(), ActiveSession{Token: "tok"}))
}

func TestRedisLocalStateSurfacesConnectionErrors(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	state := NewRedisLocalState(rdb, time.Minute)
	mr.Close()

	_, _, err := state.Load(context.Background(), "tok")
	assert.Error(t, err)
}
