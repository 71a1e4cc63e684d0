// Package progress tracks per-file processing advancement through a fixed
// sequence of named steps and pushes updates to subscribed consumers.
package progress

import "time"

// Status is the overall state of a file's processing.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Step identifiers, in processing order.
const (
	StepPreparing    = "preparing"
	StepUploading    = "uploading"
	StepTranscribing = "transcribing"
	StepPostprocess  = "postprocessing"
)

// StepDef names a step and its estimated duration. The estimate is used
// only to project a completion time for consumers.
type StepDef struct {
	ID       string
	Label    string
	Estimate time.Duration
}

// DefaultSteps is the standard pipeline sequence.
func DefaultSteps() []StepDef {
	return []StepDef{
		{ID: StepPreparing, Label: "Preparing file", Estimate: 2 * time.Second},
		{ID: StepUploading, Label: "Uploading audio", Estimate: 10 * time.Second},
		{ID: StepTranscribing, Label: "Transcribing speech", Estimate: 60 * time.Second},
		{ID: StepPostprocess, Label: "Enriching segments", Estimate: 45 * time.Second},
	}
}

// StepState is the live state of one step.
type StepState struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Percentage float64 `json:"percentage"`
	Error      string  `json:"error,omitempty"`
}

// Update is one push to a subscriber. Fire-and-forget; no acknowledgement.
type Update struct {
	FileID     string  `json:"fileId"`
	StepID     string  `json:"stepId"`
	Percentage float64 `json:"percentage"`
	Status     Status  `json:"status"`
	Message    string  `json:"message,omitempty"`
}

// Snapshot is the full state of one file's progress.
type Snapshot struct {
	FileID      string      `json:"fileId"`
	Status      Status      `json:"status"`
	Steps       []StepState `json:"steps"`
	CurrentStep string      `json:"currentStep"`
	ETA         time.Time   `json:"eta"`
}
