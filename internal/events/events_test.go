package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crisp/internal/session"
)

type capture struct {
	mu     sync.Mutex
	events []session.Event
}

func (c *capture) hook(e session.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *capture) list() []session.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]session.Event{}, c.events...)
}

func hookedClient() (*Client, *capture) {
	c := NewClient(nil)
	rec := &capture{}
	c.SetSendHook(rec.hook)
	return c, rec
}

func TestHubDeliversOnlyToCandidateClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, capA := hookedClient()
	b, capB := hookedClient()
	hub.Join("cand-a", a)
	hub.Join("cand-b", b)

	hub.Publish(session.Event{Type: session.EventTick, CandidateID: "cand-a"})

	assert.Len(t, capA.list(), 1)
	assert.Empty(t, capB.list())

	assert.Equal(t, 0, hub.Leave("cand-a", a))
	assert.Equal(t, 0, hub.ClientCount("cand-a"))
	hub.Publish(session.Event{Type: session.EventTick, CandidateID: "cand-a"})
	assert.Len(t, capA.list(), 1)
}

func TestClientDropsWhenClosedOrFull(t *testing.T) {
	c := NewClient(nil)
	for i := 0; i < sendBuffer; i++ {
		require.True(t, c.Send(session.Event{Type: session.EventTick}))
	}
	assert.False(t, c.Send(session.Event{Type: session.EventTick}))

	c.Close()
	c.Close()
	assert.False(t, c.Send(session.Event{Type: session.EventTick}))
}

func TestClientWritePumpWritesToConn(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan session.Event, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var e session.Event
		if err := conn.ReadJSON(&e); err == nil {
			received <- e
		}
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	client := NewClient(conn)
	done := make(chan error, 1)
	go func() { done <- client.WritePump() }()

	client.Send(session.Event{Type: session.EventQuestion, CandidateID: "c-1"})

	select {
	case e := <-received:
		assert.Equal(t, session.EventQuestion, e.Type)
		assert.Equal(t, "c-1", e.CandidateID)
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame")
	}

	client.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("write pump did not stop")
	}
}

func TestRedisRelayForwardsBetweenInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	newRelay := func() (*RedisRelay, *capture) {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		hub := NewHub(zap.NewNop())
		c, rec := hookedClient()
		hub.Join("cand-1", c)
		return NewRedisRelay(rdb, hub, zap.NewNop()), rec
	}
	first, firstCap := newRelay()
	second, secondCap := newRelay()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go first.Run(ctx)
	go second.Run(ctx)
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(relayChannel)[relayChannel] == 2
	}, time.Second, 10*time.Millisecond)

	first.Publish(session.Event{Type: session.EventAnswer, CandidateID: "cand-1"})

	require.Eventually(t, func() bool { return len(secondCap.list()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, session.EventAnswer, secondCap.list()[0].Type)

	// the publisher delivers locally once and ignores its own echo
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, firstCap.list(), 1)
}

func TestRedisRelayKeepsEventOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	remoteHub := NewHub(zap.NewNop())
	c, rec := hookedClient()
	remoteHub.Join("cand-1", c)
	remote := NewRedisRelay(rdb, remoteHub, zap.NewNop())
	publisher := NewRedisRelay(rdb, NewHub(zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go remote.Run(ctx)
	go publisher.Run(ctx)
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(relayChannel)[relayChannel] == 2
	}, time.Second, 10*time.Millisecond)

	const n = 100
	for i := 0; i < n; i++ {
		publisher.Publish(session.Event{Type: session.EventTick, CandidateID: "cand-1", Data: i})
	}

	require.Eventually(t, func() bool { return len(rec.list()) == n }, 2*time.Second, 10*time.Millisecond)
	for i, e := range rec.list() {
		assert.Equal(t, float64(i), e.Data, "event %d arrived out of order", i)
	}
}

func TestRedisRelayDropsWhenBackedUp(t *testing.T) {
	relay := NewRedisRelay(nil, NewHub(zap.NewNop()), zap.NewNop())
	for i := 0; i < relayBuffer+10; i++ {
		relay.Publish(session.Event{Type: session.EventTick, CandidateID: "cand-1"})
	}
	assert.Len(t, relay.outbound, relayBuffer)
}

func TestRedisRelayIgnoresMalformedPayload(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c, rec := hookedClient()
	hub.Join("cand-1", c)
	relay := NewRedisRelay(nil, hub, zap.NewNop())

	relay.handle("{not json")
	assert.Empty(t, rec.list())
}
