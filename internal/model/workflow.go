package model

import (
	"time"
)

// CheckTarget selects whether a step check runs against the resolved
// inputs or the call output.
type CheckTarget string

const (
	CheckInput  CheckTarget = "input"
	CheckOutput CheckTarget = "output"
)

// StepCheck is a declarative assertion attached to a step. Critical
// check failures fail the step; non-critical ones accumulate as
// warnings on the step result.
type StepCheck struct {
	Target   CheckTarget `json:"target" mapstructure:"target"`
	Field    string      `json:"field" mapstructure:"field"`
	Check    string      `json:"check" mapstructure:"check"`
	Value    string      `json:"value,omitempty" mapstructure:"value"`
	Message  string      `json:"message,omitempty" mapstructure:"message"`
	Critical bool        `json:"critical,omitempty" mapstructure:"critical"`
}

// Step is a node in the workflow graph referencing a tool.
type Step struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	ToolID string `json:"tool_id"`
	// InputMapping maps the tool's input names to reference
	// expressions: $input.<path>, <step_id>.<path>, or a literal.
	InputMapping map[string]string `json:"input_mapping,omitempty"`
	Validations  []StepCheck       `json:"validations,omitempty"`
}

// Edge is a dependency between two steps.
type Edge struct {
	FromStepID string `json:"from_step_id"`
	ToStepID   string `json:"to_step_id"`
}

// Workflow is the static graph description: steps, edges and input
// mappings. Validation produces a normalised copy whose edge set is
// closed under references-imply-edges.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Version   string    `json:"version,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	Steps     []Step    `json:"steps"`
	Edges     []Edge    `json:"edges,omitempty"`
}

// StepByID returns the step with the given id, or nil.
func (w *Workflow) StepByID(id string) *Step {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}
	return nil
}

// StepIDs returns the set of step ids in the workflow.
func (w *Workflow) StepIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(w.Steps))
	for _, s := range w.Steps {
		ids[s.ID] = struct{}{}
	}
	return ids
}

// Clone returns a copy of the workflow with independent step and edge
// slices. Input mappings are copied; template bodies inside tools are
// not part of the workflow and need no copying here.
func (w *Workflow) Clone() *Workflow {
	clone := *w
	clone.Steps = make([]Step, len(w.Steps))
	for i, s := range w.Steps {
		clone.Steps[i] = s
		if s.InputMapping != nil {
			m := make(map[string]string, len(s.InputMapping))
			for k, v := range s.InputMapping {
				m[k] = v
			}
			clone.Steps[i].InputMapping = m
		}
		if s.Validations != nil {
			clone.Steps[i].Validations = append([]StepCheck(nil), s.Validations...)
		}
	}
	clone.Edges = append([]Edge(nil), w.Edges...)
	return &clone
}
