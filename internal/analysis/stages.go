// Package analysis defines the pipeline stage catalog, the analysis result
// model, and the progress state store that tracks a job across live updates.
package analysis

// StageStatus is the lifecycle state of a single pipeline stage.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusRunning StageStatus = "running"
	StatusDone    StageStatus = "done"
	StatusError   StageStatus = "error"
)

// Valid reports whether s is one of the four known statuses.
func (s StageStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusDone, StatusError:
		return true
	}
	return false
}

// Stage is one discrete phase of the analysis pipeline.
type Stage struct {
	ID     string      `json:"id"`
	Label  string      `json:"label"`
	Status StageStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// Stage identifiers. The set is fixed at process start and never changes
// during a session.
const (
	StageUpload    = "upload"
	StageFace      = "face"
	StageML        = "ml"
	StageFrequency = "frequency"
	StageExif      = "exif"
	StageReverse   = "reverse"
	StageAgent     = "agent"
)

// stageCatalog is the ordered, compiled-in catalog of the seven pipeline
// stages. Declaration order is display order.
var stageCatalog = []Stage{
	{ID: StageUpload, Label: "Processing upload"},
	{ID: StageFace, Label: "Extracting faces"},
	{ID: StageML, Label: "Running CNN ensemble"},
	{ID: StageFrequency, Label: "Frequency domain analysis"},
	{ID: StageExif, Label: "Reading EXIF metadata"},
	{ID: StageReverse, Label: "Reverse image search"},
	{ID: StageAgent, Label: "AI agent synthesizing verdict"},
}

// Catalog returns a copy of the stage catalog with every status pending.
func Catalog() []Stage {
	stages := make([]Stage, len(stageCatalog))
	copy(stages, stageCatalog)
	for i := range stages {
		stages[i].Status = StatusPending
	}
	return stages
}

// StageCount is the number of stages in the catalog.
func StageCount() int {
	return len(stageCatalog)
}
