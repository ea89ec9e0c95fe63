// Package push provides the reconnecting event transport. It signals
// that upstream data changed; it never recomputes groups itself. The
// coordinator decides whether an event warrants a re-fetch.
package push

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"github.com/abelbrown/daybook/internal/logging"
)

// Event is one push notification as delivered by the server. Extra is
// left opaque: the core has no event-name parsing logic.
type Event struct {
	Event string          `json:"event"`
	Extra json.RawMessage `json:"extra,omitempty"`
}

// Channel maintains a websocket connection to the push server,
// reconnecting on a fixed interval after disconnect. A single run
// goroutine paced by a rate limiter guarantees at most one pending
// reconnect attempt at any time.
type Channel struct {
	url     string
	events  chan Event
	limiter *rate.Limiter

	wg        sync.WaitGroup
	connected atomic.Bool
}

// NewChannel creates a Channel for the given websocket URL.
// reconnectEvery is the fixed retry interval after a disconnect or a
// failed dial.
func NewChannel(url string, reconnectEvery time.Duration) *Channel {
	return &Channel{
		url:    url,
		events: make(chan Event, 64),
		// Burst 1: the first dial is immediate, every retry waits out
		// the interval.
		limiter: rate.NewLimiter(rate.Every(reconnectEvery), 1),
	}
}

// Events returns the channel push events are delivered on. It is
// never closed; stop consuming after cancelling the context passed to
// Start.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Connected reports whether a websocket connection is currently up.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// Start runs the connect/read/reconnect loop in the background.
// Context cancellation is the only stop mechanism.
func (c *Channel) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return
			}
			c.dialAndRead(ctx)
			if ctx.Err() != nil {
				return
			}
		}
	}()
}

// Wait blocks until the background goroutine exits. Call after
// cancelling the context passed to Start.
func (c *Channel) Wait() {
	c.wg.Wait()
}

// dialAndRead connects once and reads events until the connection
// drops or the context is cancelled.
func (c *Channel) dialAndRead(ctx context.Context) {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		logging.Debug("push dial failed", "url", c.url, "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.connected.Store(true)
	defer c.connected.Store(false)
	logging.Info("push channel connected", "url", c.url)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.Warn("push channel disconnected", "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			logging.Debug("push event unparseable", "error", err)
			continue
		}

		select {
		case c.events <- ev:
		default:
			// Consumer is behind; a dropped notification only delays
			// the next re-fetch until another event arrives.
			logging.Warn("push event dropped, buffer full", "event", ev.Event)
		}
	}
}
