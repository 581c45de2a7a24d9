package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
)

// handshakeTimeout bounds the websocket upgrade, not the session.
const handshakeTimeout = 10 * time.Second

// Channel is the live update channel for one analysis job. It owns the
// websocket connection, decodes inbound frames into typed events, and
// surfaces connection-lifecycle signals alongside them.
//
// Lifecycle: connecting → open → closed. Closure is terminal; the channel
// never reconnects. Whoever dials the channel must call Close exactly once
// when the viewing session ends.
type Channel struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events chan analysis.Event
	done   chan struct{}

	mu     sync.Mutex
	state  analysis.ChannelState
	closed bool
}

// WatchURL derives the streaming address for a job from the HTTP API base:
// the scheme flips to its websocket counterpart (http→ws, https→wss) and the
// job identifier is appended to the /ws/ endpoint.
func WatchURL(baseURL, jobID string) (string, error) {
	wsBase := baseURL
	wsBase = strings.Replace(wsBase, "http://", "ws://", 1)
	wsBase = strings.Replace(wsBase, "https://", "wss://", 1)

	u, err := url.Parse(wsBase)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + jobID

	return u.String(), nil
}

// Watch opens the live update channel for a job.
//
// The channel is in the connecting state until the handshake completes; on
// success the first event delivered is a ConnectivityEvent reporting the
// open state, so no pipeline event can ever precede it. A handshake failure
// means the session never starts and no channel is returned.
func (c *Client) Watch(ctx context.Context, jobID string, logger *slog.Logger) (*Channel, error) {
	if logger == nil {
		logger = slog.Default()
	}

	addr, err := WatchURL(c.baseURL, jobID)
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		logger: logger,
		events: make(chan analysis.Event, 16),
		done:   make(chan struct{}),
		state:  analysis.ChannelConnecting,
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	ch.conn = conn
	ch.mu.Lock()
	ch.state = analysis.ChannelOpen
	ch.mu.Unlock()

	go ch.readLoop()

	return ch, nil
}

// Events returns the stream of decoded events. The first event is always the
// open connectivity signal; the channel is closed after the closed signal is
// delivered or after Close.
func (ch *Channel) Events() <-chan analysis.Event {
	return ch.events
}

// State returns the current lifecycle state.
func (ch *Channel) State() analysis.ChannelState {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

// Close releases the underlying connection. Safe to call from any lifecycle
// state and from any goroutine; only the first call has an effect. After
// Close returns, no further events are delivered: frames the read loop had
// already queued are discarded, not just future ones.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	ch.state = analysis.ChannelClosed
	close(ch.done)
	ch.mu.Unlock()

	err := ch.conn.Close()

	// Discard everything still buffered. The read loop is guaranteed to exit
	// once the connection is gone, so this drain terminates.
	for range ch.events {
	}

	return err
}

// readLoop pumps frames from the connection until closure. All frame-level
// anomalies are handled here: malformed frames and unknown event kinds are
// dropped without touching the session.
func (ch *Channel) readLoop() {
	defer close(ch.events)

	// Handshake completed before the loop started, so the open signal is
	// guaranteed to precede every pipeline event.
	if !ch.deliver(analysis.ConnectivityEvent{State: analysis.ChannelOpen}) {
		return
	}

	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			// Remote close, network failure, or local Close. All collapse to
			// the terminal closed state; no retry.
			if !errors.Is(err, websocket.ErrCloseSent) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ch.logger.Debug("channel read ended", "error", err)
			}

			ch.mu.Lock()
			userClosed := ch.closed
			ch.state = analysis.ChannelClosed
			ch.mu.Unlock()

			if !userClosed {
				_ = ch.conn.Close()
				ch.deliver(analysis.ConnectivityEvent{State: analysis.ChannelClosed})
			}
			return
		}

		ev, err := analysis.DecodeFrame(data)
		if err != nil {
			// Transport noise and forward-compatible event kinds alike:
			// drop the frame, keep the session alive.
			ch.logger.Debug("dropping frame", "error", err)
			continue
		}

		if !ch.deliver(ev) {
			return
		}
	}
}

// deliver forwards an event unless the channel has been closed. Reports
// false once the session is torn down so the read loop can stop.
func (ch *Channel) deliver(ev analysis.Event) bool {
	select {
	case <-ch.done:
		return false
	default:
	}

	select {
	case ch.events <- ev:
		return true
	case <-ch.done:
		return false
	}
}
