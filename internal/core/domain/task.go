package domain

// Operation identifies the kind of work a task performs. Used by the error
// classifier to pick user-facing messages.
type Operation string

const (
	OperationTranscribe  Operation = "transcribe"
	OperationPostprocess Operation = "postprocess"
	OperationFetch       Operation = "fetch"
)

// TaskContext tracks attempt state for one unit of work within a file's
// processing lifetime. Created on first attempt, discarded on success or
// final failure. Attempt is monotonically non-decreasing until reset.
type TaskContext struct {
	FileID      string
	Op          Operation
	Attempt     int
	MaxAttempts int
}

// TaskState is the lifecycle of a TaskContext.
type TaskState string

const (
	TaskIdle       TaskState = "idle"
	TaskAttempting TaskState = "attempting"
	TaskFailed     TaskState = "failed"
)
