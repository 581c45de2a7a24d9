package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
)

func TestWatchURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		jobID   string
		want    string
		wantErr bool
	}{
		{
			name:  "http becomes ws",
			base:  "http://localhost:8000",
			jobID: "abc123",
			want:  "ws://localhost:8000/ws/abc123",
		},
		{
			name:  "https becomes wss",
			base:  "https://truthlens.example.com",
			jobID: "abc123",
			want:  "wss://truthlens.example.com/ws/abc123",
		},
		{
			name:  "trailing slash on base",
			base:  "http://localhost:8000/",
			jobID: "j1",
			want:  "ws://localhost:8000/ws/j1",
		},
		{
			name:    "unparseable base",
			base:    "http://[::1]:namedport",
			jobID:   "j1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WatchURL(tt.base, tt.jobID)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("WatchURL(%q) error = nil, want error", tt.base)
				}
				return
			}
			if err != nil {
				t.Fatalf("WatchURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("WatchURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

// streamServer serves one websocket session that sends the given frames in
// order, then closes cleanly.
func streamServer(t *testing.T, wantPath string, frames []string) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantPath != "" && r.URL.Path != wantPath {
			t.Errorf("websocket path = %q, want %q", r.URL.Path, wantPath)
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}

		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		// Give the peer a moment to read the close frame.
		_ = conn.SetReadDeadline(deadline)
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)

	return srv
}

func collectEvents(t *testing.T, ch *Channel) []analysis.Event {
	t.Helper()

	var events []analysis.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(events))
		}
	}
}

func TestChannel_DeliversEventsInOrder(t *testing.T) {
	frames := []string{
		`{"type":"step_update","step_id":"upload","status":"running"}`,
		`{"type":"step_update","step_id":"upload","status":"done","detail":"Received 12KB"}`,
		`{"type":"result","data":{"verdict":"LIKELY REAL","confidence":92,"ml_score":88,"frequency_score":81,"summary":"ok","reverse_search":[],"agent_reasoning":["step1"]}}`,
	}
	srv := streamServer(t, "/ws/job1", frames)

	c := New(srv.URL)
	ch, err := c.Watch(context.Background(), "job1", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer ch.Close()

	events := collectEvents(t, ch)

	// Open signal always precedes pipeline events; closed signal is last.
	if len(events) < 2 {
		t.Fatalf("got %d events, want at least open+closed", len(events))
	}
	if conn, ok := events[0].(analysis.ConnectivityEvent); !ok || conn.State != analysis.ChannelOpen {
		t.Errorf("first event = %+v, want open connectivity signal", events[0])
	}
	if conn, ok := events[len(events)-1].(analysis.ConnectivityEvent); !ok || conn.State != analysis.ChannelClosed {
		t.Errorf("last event = %+v, want closed connectivity signal", events[len(events)-1])
	}

	store := analysis.NewStore()
	for _, ev := range events {
		store.Apply(ev)
	}

	stages := store.Stages()
	if stages[0].Status != analysis.StatusDone || stages[0].Detail != "Received 12KB" {
		t.Errorf("upload stage = %+v, want done with detail", stages[0])
	}
	for _, st := range stages[1:] {
		if st.Status != analysis.StatusPending {
			t.Errorf("stage %s status = %q, want pending", st.ID, st.Status)
		}
	}
	if !store.IsComplete() {
		t.Error("store not complete after result event")
	}
	if got := store.Result().Verdict; got != analysis.VerdictReal {
		t.Errorf("verdict = %q, want %q", got, analysis.VerdictReal)
	}
}

func TestChannel_DropsNoiseFrames(t *testing.T) {
	frames := []string{
		`not json at all`,
		`{"type":"error","message":"pipeline failure"}`,
		`{"type":"telemetry","data":{}}`,
		`{"type":"step_update","step_id":"ml","status":"running"}`,
	}
	srv := streamServer(t, "", frames)

	c := New(srv.URL)
	ch, err := c.Watch(context.Background(), "job2", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer ch.Close()

	events := collectEvents(t, ch)

	var pipeline []analysis.Event
	for _, ev := range events {
		if _, ok := ev.(analysis.ConnectivityEvent); !ok {
			pipeline = append(pipeline, ev)
		}
	}
	if len(pipeline) != 1 {
		t.Fatalf("got %d pipeline events, want 1 (noise must be dropped): %+v", len(pipeline), pipeline)
	}
	if up, ok := pipeline[0].(analysis.StepUpdateEvent); !ok || up.StepID != "ml" {
		t.Errorf("surviving event = %+v, want ml step update", pipeline[0])
	}
}

func TestChannel_CloseBeforeResultLeavesSessionStalled(t *testing.T) {
	frames := []string{
		`{"type":"step_update","step_id":"upload","status":"done"}`,
		`{"type":"step_update","step_id":"face","status":"running"}`,
	}
	srv := streamServer(t, "", frames)

	c := New(srv.URL)
	ch, err := c.Watch(context.Background(), "job3", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer ch.Close()

	store := analysis.NewStore()
	connected := false
	for _, ev := range collectEvents(t, ch) {
		if conn, ok := ev.(analysis.ConnectivityEvent); ok {
			connected = conn.State == analysis.ChannelOpen
			continue
		}
		store.Apply(ev)
	}

	if connected {
		t.Error("connectivity flag still open after remote close")
	}
	if store.IsComplete() {
		t.Error("IsComplete() = true without a result event")
	}

	// Progress freezes at the last-known values.
	stages := store.Stages()
	if stages[0].Status != analysis.StatusDone {
		t.Errorf("upload status = %q, want done", stages[0].Status)
	}
	if stages[1].Status != analysis.StatusRunning {
		t.Errorf("face status = %q, want running", stages[1].Status)
	}
	if ch.State() != analysis.ChannelClosed {
		t.Errorf("channel state = %q, want closed", ch.State())
	}
}

func TestChannel_CloseStopsDelivery(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Keep sending frames until the client disconnects.
		for {
			select {
			case <-release:
				return
			default:
			}
			if err := conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"type":"step_update","step_id":"ml","status":"running"}`)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() { close(release); srv.Close() })

	c := New(srv.URL)
	ch, err := c.Watch(context.Background(), "job4", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Read only the open signal, then let the unconsumed stream fill the
	// delivery buffer before tearing down mid-stream.
	select {
	case <-ch.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no event before close")
	}
	time.Sleep(50 * time.Millisecond)

	if err := ch.Close(); err != nil && !strings.Contains(err.Error(), "closed") {
		t.Logf("Close() = %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
	if ch.State() != analysis.ChannelClosed {
		t.Errorf("state after Close = %q, want closed", ch.State())
	}

	// Nothing is delivered after Close, buffered frames included. A store fed
	// from the stream must stay untouched.
	store := analysis.NewStore()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				for _, st := range store.Stages() {
					if st.Status != analysis.StatusPending {
						t.Errorf("stage %s advanced to %q after Close", st.ID, st.Status)
					}
				}
				return
			}
			store.Apply(ev)
			t.Errorf("event delivered after Close: %+v", ev)
		case <-deadline:
			t.Fatal("events channel never closed after Close()")
		}
	}
}

func TestChannel_StateLifecycle(t *testing.T) {
	// Before the handshake completes the channel reports connecting.
	pending := &Channel{state: analysis.ChannelConnecting}
	if got := pending.State(); got != analysis.ChannelConnecting {
		t.Errorf("pre-handshake state = %q, want %q", got, analysis.ChannelConnecting)
	}

	srv := streamServer(t, "", nil)

	c := New(srv.URL)
	ch, err := c.Watch(context.Background(), "job5", nil)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if got := ch.State(); got != analysis.ChannelOpen {
		t.Errorf("state after Watch = %q, want %q", got, analysis.ChannelOpen)
	}

	_ = ch.Close()
	if got := ch.State(); got != analysis.ChannelClosed {
		t.Errorf("state after Close = %q, want %q", got, analysis.ChannelClosed)
	}
}
