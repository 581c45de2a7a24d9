package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeWait bounds a single frame write to a viewer.
const writeWait = 10 * time.Second

// Hub tracks the live viewer of each job. A job has at most one viewer:
// sessions are never multiplexed, a later attach replaces the earlier one.
// Publishing to a job with no viewer is a no-op, mirroring the fire-and-
// forget delivery of the pipeline.
type Hub struct {
	mu      sync.Mutex
	viewers map[string]*websocket.Conn
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		viewers: make(map[string]*websocket.Conn),
		logger:  logger,
	}
}

// Attach registers conn as the viewer of a job, displacing any previous
// viewer.
func (h *Hub) Attach(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	prev := h.viewers[jobID]
	h.viewers[jobID] = conn
	h.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

// Detach removes conn as the viewer of a job. A different (newer) viewer is
// left alone.
func (h *Hub) Detach(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.viewers[jobID] == conn {
		delete(h.viewers, jobID)
	}
	h.mu.Unlock()
}

// Publish sends one JSON frame to the job's viewer, if any. A failed write
// drops the viewer; the pipeline keeps running regardless. The write happens
// outside the hub lock so one stalled viewer cannot block other jobs; each
// job has a single publishing pipeline, so writes to a conn never interleave.
func (h *Hub) Publish(jobID string, payload any) {
	h.mu.Lock()
	conn, ok := h.viewers[jobID]
	h.mu.Unlock()
	if !ok {
		return
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(payload); err != nil {
		h.logger.Debug("dropping viewer after failed write", "job_id", jobID, "error", err)

		h.mu.Lock()
		if h.viewers[jobID] == conn {
			delete(h.viewers, jobID)
		}
		h.mu.Unlock()
		_ = conn.Close()
	}
}
