package analysis

// Verdict is the final categorical output of the pipeline.
type Verdict string

const (
	VerdictReal         Verdict = "LIKELY REAL"
	VerdictAIGenerated  Verdict = "LIKELY AI GENERATED"
	VerdictInconclusive Verdict = "INCONCLUSIVE"
)

// ProvenanceRecord is a reverse-image-search hit suggesting a prior
// appearance of the media on the web.
type ProvenanceRecord struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Date      string `json:"date,omitempty"`
}

// Result is the final verdict payload for one analysis job. At most one
// result exists per session; its arrival marks the session complete.
type Result struct {
	Verdict        Verdict            `json:"verdict"`
	Confidence     float64            `json:"confidence"`
	MLScore        float64            `json:"ml_score"`
	FrequencyScore float64            `json:"frequency_score"`
	Summary        string             `json:"summary"`
	ReverseSearch  []ProvenanceRecord `json:"reverse_search"`
	AgentReasoning []string           `json:"agent_reasoning"`
	Heatmap        string             `json:"heatmap,omitempty"`
}
