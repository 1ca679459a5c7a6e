package events

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crisp/internal/session"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Client is one websocket connection following a candidate's session.
type Client struct {
	Conn *websocket.Conn

	mu     sync.Mutex
	hook   func(session.Event)
	out    chan session.Event
	closed bool
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{Conn: conn, out: make(chan session.Event, sendBuffer)}
}

// SetSendHook replaces the websocket writer (used in tests).
func (c *Client) SetSendHook(fn func(session.Event)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send queues e without blocking. It reports false when the client is gone
// or too slow to keep up.
func (c *Client) Send(e session.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(e)
		return true
	}
	if c.closed {
		return false
	}
	select {
	case c.out <- e:
		return true
	default:
		return false
	}
}

// WritePump writes queued events until Close is called or a write fails.
func (c *Client) WritePump() error {
	for e := range c.out {
		if c.Conn == nil {
			continue
		}
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.Conn.WriteJSON(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}
