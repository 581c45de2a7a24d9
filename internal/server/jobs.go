package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one submitted analysis. Jobs live only in memory; sessions are
// ephemeral and nothing survives a restart.
type Job struct {
	ID          string           `json:"id"`
	Filename    string           `json:"filename"`
	Status      JobStatus        `json:"status"`
	Result      *analysis.Result `json:"result"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// JobStore tracks jobs by identifier.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create registers a new pending job and returns its snapshot.
func (s *JobStore) Create(filename string) Job {
	job := &Job{
		ID:        uuid.New().String(),
		Filename:  filename,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return *job
}

// Get returns a snapshot of a job.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// SetRunning marks a job as in progress.
func (s *JobStore) SetRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = JobStatusRunning
	}
}

// Complete stores the final result for a job.
func (s *JobStore) Complete(id string, result *analysis.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = JobStatusCompleted
		job.Result = result
		job.CompletedAt = &now
	}
}

// Fail marks a job as failed with a diagnostic message.
func (s *JobStore) Fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		now := time.Now()
		job.Status = JobStatusFailed
		job.Error = message
		job.CompletedAt = &now
	}
}
