// Package pipeline runs the staged forensic analysis for one uploaded file,
// publishing live step updates and the final result frame as it goes.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aromalbiju/truthlens-go/internal/agent"
	"github.com/aromalbiju/truthlens-go/internal/analysis"
	"github.com/aromalbiju/truthlens-go/internal/metrics"
)

// Publisher delivers a frame to whoever is watching a job. Sends to a job
// with no attached viewer are a no-op.
type Publisher interface {
	Publish(jobID string, payload any)
}

// Outbound frame shapes. These are the producer side of the wire protocol
// the client's DecodeFrame consumes.
type StepFrame struct {
	Type   string               `json:"type"`
	StepID string               `json:"step_id"`
	Status analysis.StageStatus `json:"status"`
	Detail string               `json:"detail,omitempty"`
}

type ResultFrame struct {
	Type string          `json:"type"`
	Data analysis.Result `json:"data"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// defaultStagePause paces the cheap stages so a viewer can follow along.
const defaultStagePause = 500 * time.Millisecond

// Runner executes the seven-stage pipeline.
type Runner struct {
	pub      Publisher
	agent    *agent.Agent
	searcher ReverseSearcher
	metrics  *metrics.Collector
	logger   *slog.Logger

	stagePause time.Duration
}

// NewRunner creates a pipeline runner. collector may be nil.
func NewRunner(pub Publisher, verdictAgent *agent.Agent, collector *metrics.Collector, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		pub:        pub,
		agent:      verdictAgent,
		searcher:   MockSearcher{},
		metrics:    collector,
		logger:     logger,
		stagePause: defaultStagePause,
	}
}

// SetSearcher swaps the reverse-image-search backend.
func (r *Runner) SetSearcher(s ReverseSearcher) {
	r.searcher = s
}

// SetStagePause overrides the cosmetic stage pacing (tests set it to zero).
func (r *Runner) SetStagePause(d time.Duration) {
	r.stagePause = d
}

// Run executes every stage in catalog order and publishes the result frame.
// The returned result is also handed back for the job store. A cancelled
// context aborts between stages; any abort publishes an error frame, which
// clients treat as an unknown event kind and drop.
func (r *Runner) Run(ctx context.Context, jobID, filename string, data []byte) (*analysis.Result, error) {
	result, err := r.run(ctx, jobID, filename, data)
	if err != nil {
		r.logger.Error("pipeline failed", "job_id", jobID, "error", err)
		r.pub.Publish(jobID, ErrorFrame{Type: "error", Message: err.Error()})
		return nil, err
	}

	r.pub.Publish(jobID, ResultFrame{Type: "result", Data: *result})
	return result, nil
}

func (r *Runner) run(ctx context.Context, jobID, filename string, data []byte) (*analysis.Result, error) {
	if err := r.stage(ctx, jobID, analysis.StageUpload, func(context.Context) (string, error) {
		r.pause(ctx)
		return fmt.Sprintf("Received %dKB", len(data)/1024), nil
	}); err != nil {
		return nil, err
	}

	if err := r.stage(ctx, jobID, analysis.StageFace, func(context.Context) (string, error) {
		r.pause(ctx)
		return "Face region identified", nil
	}); err != nil {
		return nil, err
	}

	var mlScore float64
	if err := r.stage(ctx, jobID, analysis.StageML, func(context.Context) (string, error) {
		mlScore = MLScore(data)
		return fmt.Sprintf("ML score: %.2f%%", mlScore), nil
	}); err != nil {
		return nil, err
	}

	var freqScore float64
	if err := r.stage(ctx, jobID, analysis.StageFrequency, func(context.Context) (string, error) {
		freqScore = FrequencyScore(data)
		return fmt.Sprintf("Frequency anomaly: %.2f%%", freqScore), nil
	}); err != nil {
		return nil, err
	}

	var exif ExifInfo
	if err := r.stage(ctx, jobID, analysis.StageExif, func(context.Context) (string, error) {
		exif = ExtractExif(data)
		if exif.Stripped {
			return "Metadata stripped - suspicious", nil
		}
		return "Metadata intact", nil
	}); err != nil {
		return nil, err
	}

	var sources []analysis.ProvenanceRecord
	if err := r.stage(ctx, jobID, analysis.StageReverse, func(stageCtx context.Context) (string, error) {
		found, err := r.searcher.Search(stageCtx)
		if err != nil {
			// A provider outage is not a pipeline failure; the agent just
			// sees zero corroborating sources.
			r.logger.Warn("reverse search failed", "job_id", jobID, "error", err)
			found = nil
		}
		sources = found
		return fmt.Sprintf("%d sources found", len(sources)), nil
	}); err != nil {
		return nil, err
	}

	var verdict agent.Verdict
	if err := r.stage(ctx, jobID, analysis.StageAgent, func(stageCtx context.Context) (string, error) {
		verdict = r.agent.Synthesize(stageCtx, agent.Signals{
			Filename:       filename,
			MLScore:        mlScore,
			FrequencyScore: freqScore,
			EnsembleScore:  EnsembleScore(mlScore, freqScore),
			ExifStripped:   exif.Stripped,
			Camera:         exif.Camera,
			Software:       exif.Software,
			DateTaken:      exif.DateTaken,
			Sources:        sources,
		})
		return "verdict ready", nil
	}); err != nil {
		return nil, err
	}

	if sources == nil {
		sources = []analysis.ProvenanceRecord{}
	}
	return &analysis.Result{
		Verdict:        verdict.Verdict,
		Confidence:     verdict.Confidence,
		MLScore:        mlScore,
		FrequencyScore: freqScore,
		Summary:        verdict.Summary,
		ReverseSearch:  sources,
		AgentReasoning: verdict.Reasoning,
	}, nil
}

// stage brackets one pipeline phase with running/done frames and timing.
func (r *Runner) stage(ctx context.Context, jobID, stageID string, work func(context.Context) (string, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s: %w", stageID, err)
	}

	r.pub.Publish(jobID, StepFrame{Type: "step_update", StepID: stageID, Status: analysis.StatusRunning})

	start := time.Now()
	detail, err := work(ctx)
	if r.metrics != nil {
		r.metrics.RecordTiming(stageID, time.Since(start))
	}
	if err != nil {
		r.pub.Publish(jobID, StepFrame{Type: "step_update", StepID: stageID, Status: analysis.StatusError, Detail: err.Error()})
		return fmt.Errorf("stage %s: %w", stageID, err)
	}

	r.pub.Publish(jobID, StepFrame{Type: "step_update", StepID: stageID, Status: analysis.StatusDone, Detail: detail})
	return nil
}

func (r *Runner) pause(ctx context.Context) {
	if r.stagePause <= 0 {
		return
	}
	select {
	case <-time.After(r.stagePause):
	case <-ctx.Done():
	}
}
