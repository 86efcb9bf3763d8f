package model

import (
	"time"
)

// RunStatus is the lifecycle status of a workflow run.
type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// StepStatus is the lifecycle status of a single step within a run.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// ErrorKind classifies a step failure for machine consumption.
type ErrorKind string

const (
	ErrKindNone       ErrorKind = ""
	ErrKindState      ErrorKind = "state"
	ErrKindTemplate   ErrorKind = "template"
	ErrKindDispatch   ErrorKind = "dispatch"
	ErrKindExtraction ErrorKind = "extraction"
	ErrKindCheck      ErrorKind = "check"
	ErrKindCancelled  ErrorKind = "cancelled"
)

// StepResult records the outcome of one step within a run.
type StepResult struct {
	StepID     string     `json:"step_id"`
	Status     StepStatus `json:"status"`
	Output     any        `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
	StartedAt  time.Time  `json:"started_at,omitzero"`
	FinishedAt time.Time  `json:"finished_at,omitzero"`
}

// Run is a single execution instance of a workflow.
type Run struct {
	ID          string                 `json:"id"`
	WorkflowID  string                 `json:"workflow_id"`
	Status      RunStatus              `json:"status"`
	UserInputs  map[string]any         `json:"user_inputs,omitempty"`
	StepResults map[string]*StepResult `json:"step_results"`
	StartedAt   time.Time              `json:"started_at,omitzero"`
	FinishedAt  time.Time              `json:"finished_at,omitzero"`
}

// NewRun creates a run in RUNNING state with a PENDING result for
// every step id.
func NewRun(id, workflowID string, userInputs map[string]any, stepIDs []string) *Run {
	results := make(map[string]*StepResult, len(stepIDs))
	for _, sid := range stepIDs {
		results[sid] = &StepResult{StepID: sid, Status: StepPending}
	}
	return &Run{
		ID:          id,
		WorkflowID:  workflowID,
		Status:      RunRunning,
		UserInputs:  userInputs,
		StepResults: results,
		StartedAt:   time.Now().UTC(),
	}
}
