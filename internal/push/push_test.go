package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

// pushServer accepts websocket connections, sends each payload once,
// then closes the connection.
func pushServer(t *testing.T, connects *atomic.Int32, payloads ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		connects.Add(1)
		ctx := r.Context()
		for _, p := range payloads {
			if err := conn.Write(ctx, websocket.MessageText, []byte(p)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "done")
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestChannelDeliversEvents(t *testing.T) {
	var connects atomic.Int32
	srv := pushServer(t, &connects, `{"event":"items:updated","extra":{"ids":["a"]}}`)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel(wsURL(srv), 50*time.Millisecond)
	ch.Start(ctx)

	select {
	case ev := <-ch.Events():
		if ev.Event != "items:updated" {
			t.Errorf("expected items:updated, got %q", ev.Event)
		}
		if len(ev.Extra) == 0 {
			t.Error("expected extra payload preserved")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for push event")
	}

	cancel()
	ch.Wait()
}

func TestChannelReconnectsAfterDisconnect(t *testing.T) {
	var connects atomic.Int32
	srv := pushServer(t, &connects, `{"event":"ping"}`)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel(wsURL(srv), 20*time.Millisecond)
	ch.Start(ctx)

	// The server closes after one event; the channel must come back on
	// its fixed interval.
	deadline := time.After(3 * time.Second)
	seen := 0
	for seen < 2 {
		select {
		case <-ch.Events():
			seen++
		case <-deadline:
			t.Fatalf("expected 2 events across reconnects, got %d (connects=%d)", seen, connects.Load())
		}
	}

	if connects.Load() < 2 {
		t.Errorf("expected at least 2 connections, got %d", connects.Load())
	}

	cancel()
	ch.Wait()
}

func TestChannelStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Unreachable address: the loop spins on the limiter until cancel.
	ch := NewChannel("ws://127.0.0.1:1/push", 10*time.Millisecond)
	ch.Start(ctx)

	cancel()

	done := make(chan struct{})
	go func() {
		ch.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not stop after context cancel")
	}
}

func TestChannelSkipsUnparseableEvents(t *testing.T) {
	var connects atomic.Int32
	srv := pushServer(t, &connects, `not json`, `{"event":"ok"}`)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := NewChannel(wsURL(srv), 50*time.Millisecond)
	ch.Start(ctx)

	select {
	case ev := <-ch.Events():
		if ev.Event != "ok" {
			t.Errorf("expected the parseable event, got %q", ev.Event)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event after skipping junk")
	}

	cancel()
	ch.Wait()
}
