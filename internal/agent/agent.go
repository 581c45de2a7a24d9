package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
)

// Signals carries every analysis signal the pipeline gathered for one file.
type Signals struct {
	Filename       string
	MLScore        float64
	FrequencyScore float64
	EnsembleScore  float64
	ExifStripped   bool
	Camera         string
	Software       string
	DateTaken      string
	Sources        []analysis.ProvenanceRecord
}

// Verdict is the agent's synthesized judgement.
type Verdict struct {
	Verdict    analysis.Verdict `json:"verdict"`
	Confidence float64          `json:"confidence"`
	Summary    string           `json:"summary"`
	Reasoning  []string         `json:"reasoning"`
}

// generator is the LLM surface the agent needs; *Model satisfies it.
type generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Agent weighs all signals and produces the final verdict. With no model
// configured it always uses the rule-based fallback.
type Agent struct {
	model  generator
	logger *slog.Logger
}

// New creates an agent backed by the given model. model may be nil.
func New(model *Model, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{logger: logger}
	if model != nil {
		a.model = model
	}
	return a
}

// NewRuleBased creates an agent that never calls an LLM.
func NewRuleBased(logger *slog.Logger) *Agent {
	return New(nil, logger)
}

const systemPrompt = `You are TruthLens, a media forensics AI agent specialized in detecting AI-generated and manipulated images.
1. Reason through each signal carefully
2. Note where signals agree or conflict
3. Weigh the evidence holistically
4. Produce a final verdict

Respond only with a valid JSON object in this exact format:
{
  "verdict": "LIKELY AI GENERATED" | "LIKELY REAL" | "INCONCLUSIVE",
  "confidence": <integer 0-100>,
  "summary": "<2-3 sentence human-readable summary>",
  "reasoning": [
    "<step 1>",
    "<step 2>",
    "<step 3>",
    "<step 4 - final verdict rationale>"
  ]
}

Be honest about uncertainty. If signals conflict, say INCONCLUSIVE.
Never overclaim - this is a forensic tool, not an oracle.`

// Synthesize produces the final verdict for the gathered signals. Any LLM or
// parse failure degrades to the rule-based verdict; it never returns an error
// because the pipeline must always end in a result.
func (a *Agent) Synthesize(ctx context.Context, sig Signals) Verdict {
	if a.model == nil {
		return FallbackVerdict(sig.EnsembleScore)
	}

	out, err := a.model.GenerateWithSystem(ctx, systemPrompt, userPrompt(sig))
	if err != nil {
		a.logger.Warn("agent generation failed, using fallback", "error", err)
		return FallbackVerdict(sig.EnsembleScore)
	}

	verdict, err := parseVerdict(out)
	if err != nil {
		a.logger.Warn("agent output unparseable, using fallback", "error", err)
		return FallbackVerdict(sig.EnsembleScore)
	}

	return verdict
}

func userPrompt(sig Signals) string {
	exifSummary := fmt.Sprintf("EXIF intact - camera: %s, software: %s, date: %s",
		orUnknown(sig.Camera), orUnknown(sig.Software), orUnknown(sig.DateTaken))
	if sig.ExifStripped {
		exifSummary = "EXIF metadata is completely stripped - strong manipulation signal"
	}

	searchSummary := "No matching sources found on the web"
	if len(sig.Sources) > 0 {
		searchSummary = fmt.Sprintf("%d web sources found matching this image", len(sig.Sources))
	}

	return fmt.Sprintf(`Analyze the following signals for: %s

SIGNAL 1 - CNN Ensemble Score: %.1f%%
(Trained on visual artifacts - 0%% = real, 100%% = AI-generated)

SIGNAL 2 - Frequency Domain Anomaly: %.1f%%
(DCT/FFT physics-level artifacts - all generators leave traces here)

SIGNAL 3 - Weighted Ensemble Score: %.1f%%

SIGNAL 4 - EXIF Metadata: %s

SIGNAL 5 - Reverse Image Search: %s

Note where signals agree or conflict, then produce your verdict JSON.`,
		sig.Filename, sig.MLScore, sig.FrequencyScore, sig.EnsembleScore,
		exifSummary, searchSummary)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// parseVerdict extracts the verdict JSON from LLM output, tolerating markdown
// code fences around the object.
func parseVerdict(out string) (Verdict, error) {
	content := strings.TrimSpace(out)
	if strings.HasPrefix(content, "```") {
		parts := strings.SplitN(content, "```", 3)
		if len(parts) >= 2 {
			content = parts[1]
		}
		content = strings.TrimPrefix(content, "json")
		content = strings.TrimSpace(content)
	}

	var v Verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return Verdict{}, fmt.Errorf("parse verdict json: %w", err)
	}

	switch v.Verdict {
	case analysis.VerdictReal, analysis.VerdictAIGenerated, analysis.VerdictInconclusive:
	default:
		return Verdict{}, fmt.Errorf("unknown verdict label %q", v.Verdict)
	}

	return v, nil
}

// FallbackVerdict derives a rule-based verdict from the ensemble score:
// above 65 leans AI-generated, below 35 leans real, anything between is
// inconclusive. Confidence grows with distance from the midpoint.
func FallbackVerdict(ensemble float64) Verdict {
	var verdict analysis.Verdict
	switch {
	case ensemble > 65:
		verdict = analysis.VerdictAIGenerated
	case ensemble < 35:
		verdict = analysis.VerdictReal
	default:
		verdict = analysis.VerdictInconclusive
	}

	return Verdict{
		Verdict:    verdict,
		Confidence: math.Round(math.Abs(ensemble-50) * 2),
		Summary: fmt.Sprintf("Ensemble score of %.0f%% suggests %s. LLM agent unavailable (rule-based fallback used).",
			ensemble, strings.ToLower(string(verdict))),
		Reasoning: []string{
			fmt.Sprintf("Ensemble score: %.0f%%", ensemble),
			"Verdict thresholds: >65% = AI-generated, <35% = real, else inconclusive",
			fmt.Sprintf("Final verdict: %s", verdict),
			"Note: LLM agent unavailable, fallback used",
		},
	}
}
