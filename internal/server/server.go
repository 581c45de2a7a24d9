// Package server provides the TruthLens HTTP API: upload submission, the
// per-job live update websocket, and stored result retrieval.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/aromalbiju/truthlens-go/internal/agent"
	"github.com/aromalbiju/truthlens-go/internal/config"
	"github.com/aromalbiju/truthlens-go/internal/metrics"
	"github.com/aromalbiju/truthlens-go/internal/pipeline"
)

// Server wires the job store, viewer hub, and pipeline runner behind the
// HTTP API.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	jobs     *JobStore
	hub      *Hub
	runner   *pipeline.Runner
	metrics  *metrics.Collector
	upgrader websocket.Upgrader

	// baseCtx parents every pipeline run so shutdown cancels them.
	baseCtx    context.Context
	cancelJobs context.CancelFunc
}

// New creates a server with the given verdict agent.
func New(cfg config.Config, verdictAgent *agent.Agent, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	collector := metrics.NewCollector()
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		jobs:       NewJobStore(),
		hub:        hub,
		runner:     pipeline.NewRunner(hub, verdictAgent, collector, logger),
		metrics:    collector,
		baseCtx:    ctx,
		cancelJobs: cancel,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	return s
}

// Runner exposes the pipeline runner for tuning (tests drop the stage pause).
func (s *Server) Runner() *pipeline.Runner {
	return s.runner
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(requestLogger(s.logger))

	r.Get("/", s.handleRoot)
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/ws/{jobID}", s.handleWatch)
	r.Get("/results/{jobID}", s.handleResults)
	r.Get("/stats", s.handleStats)

	return r
}

// Run serves the API until ctx is cancelled, then drains with a short
// shutdown grace period and aborts running pipelines.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("truthlens server listening", "addr", s.cfg.ListenAddr)

	select {
	case err := <-errCh:
		s.cancelJobs()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "TruthLens backend running"})
}

// handleAnalyze accepts a multipart upload, registers a job, and starts the
// pipeline in the background. The response carries only the job identifier;
// all progress flows through the websocket.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable upload"})
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = "upload"
	}

	job := s.jobs.Create(filename)
	s.metrics.JobStarted()
	s.logger.Info("job submitted", "job_id", job.ID, "filename", filename, "bytes", len(data))

	go s.runJob(job.ID, filename, data)

	writeJSON(w, http.StatusOK, map[string]string{"job_id": job.ID})
}

func (s *Server) runJob(jobID, filename string, data []byte) {
	s.jobs.SetRunning(jobID)

	result, err := s.runner.Run(s.baseCtx, jobID, filename, data)
	if err != nil {
		s.jobs.Fail(jobID, err.Error())
		s.metrics.JobFinished(true)
		return
	}

	s.jobs.Complete(jobID, result)
	s.metrics.JobFinished(false)
	s.logger.Info("job completed", "job_id", jobID, "verdict", result.Verdict)
}

// handleWatch upgrades the connection and attaches it as the job's viewer.
// The channel is receive-only for the client; the server reads solely to
// notice disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}

	s.hub.Attach(jobID, conn)
	defer func() {
		s.hub.Detach(jobID, conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, ok := s.jobs.Get(jobID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// checkOrigin applies the configured CORS origins to websocket upgrades as
// well; an empty allowlist admits everyone (CLI clients send no Origin).
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
