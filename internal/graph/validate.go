package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowgrid-io/flowgrid/internal/model"
	"github.com/flowgrid-io/flowgrid/internal/state"
)

// ValidationError reports a structural problem with a workflow graph.
type ValidationError struct {
	Reason string
	// Cycle holds the step ids forming a cycle, when one was found.
	Cycle []string
}

func (e *ValidationError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Cycle, " -> "))
	}
	return e.Reason
}

// Validate checks the workflow and returns a normalised copy whose
// edge set is closed under references-imply-edges. The caller's
// workflow is not mutated. Passes run in a fixed order and iterate
// steps and neighbours deterministically, so reported errors are
// stable across runs.
func Validate(wf *model.Workflow, tools map[string]*model.ToolDefinition) (*model.Workflow, error) {
	if err := checkStepIDs(wf); err != nil {
		return nil, err
	}

	normalised := wf.Clone()
	normalised.Edges = InferEdges(wf)

	if err := checkEdgeEndpoints(normalised); err != nil {
		return nil, err
	}
	if err := checkAcyclic(normalised); err != nil {
		return nil, err
	}
	if err := checkMappingReachability(normalised); err != nil {
		return nil, err
	}
	if err := checkTools(normalised, tools); err != nil {
		return nil, err
	}
	return normalised, nil
}

func checkStepIDs(wf *model.Workflow) error {
	seen := make(map[string]struct{}, len(wf.Steps))
	for _, step := range wf.Steps {
		if step.ID == "" {
			return &ValidationError{Reason: "step with empty id"}
		}
		if _, dup := seen[step.ID]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate step id: %s", step.ID)}
		}
		seen[step.ID] = struct{}{}
	}
	return nil
}

func checkEdgeEndpoints(wf *model.Workflow) error {
	stepIDs := wf.StepIDs()
	for _, edge := range wf.Edges {
		if _, ok := stepIDs[edge.FromStepID]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("edge references unknown step: %s", edge.FromStepID)}
		}
		if _, ok := stepIDs[edge.ToStepID]; !ok {
			return &ValidationError{Reason: fmt.Sprintf("edge references unknown step: %s", edge.ToStepID)}
		}
	}
	return nil
}

const (
	white = iota
	grey
	black
)

// checkAcyclic runs a three-colour DFS over the outgoing edges. A
// grey-to-grey traversal is a cycle; the grey stack at that point is
// the reported cycle path.
func checkAcyclic(wf *model.Workflow) error {
	adj := sortedAdjacency(wf)

	colour := make(map[string]int, len(wf.Steps))
	var stack []string

	var visit func(id string) *ValidationError
	visit = func(id string) *ValidationError {
		colour[id] = grey
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch colour[next] {
			case grey:
				cycle := cycleFrom(stack, next)
				return &ValidationError{Reason: "cycle detected in workflow", Cycle: cycle}
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[id] = black
		return nil
	}

	for _, step := range wf.Steps {
		if colour[step.ID] == white {
			if err := visit(step.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// cycleFrom trims the DFS stack to the portion starting at the
// revisited node and closes the loop.
func cycleFrom(stack []string, start string) []string {
	for i, id := range stack {
		if id == start {
			cycle := append([]string(nil), stack[i:]...)
			return append(cycle, start)
		}
	}
	return append([]string(nil), start)
}

// checkMappingReachability requires every step reference in an input
// mapping to name a transitive predecessor of the referencing step.
func checkMappingReachability(wf *model.Workflow) error {
	stepIDs := wf.StepIDs()
	preds := transitivePredecessors(wf)

	for _, step := range wf.Steps {
		for _, name := range sortedKeys(step.InputMapping) {
			expr := step.InputMapping[name]
			refID, _, ok := state.IsStepRef(expr)
			if !ok {
				continue
			}
			if _, known := stepIDs[refID]; !known {
				return &ValidationError{Reason: fmt.Sprintf(
					"step %s input %q references unknown step: %s", step.ID, name, refID)}
			}
			if refID == step.ID {
				return &ValidationError{Reason: fmt.Sprintf(
					"step %s input %q references itself", step.ID, name)}
			}
			if _, reachable := preds[step.ID][refID]; !reachable {
				return &ValidationError{Reason: fmt.Sprintf(
					"step %s references step %s which is not a predecessor", step.ID, refID)}
			}
		}
	}
	return nil
}

func checkTools(wf *model.Workflow, tools map[string]*model.ToolDefinition) error {
	for _, step := range wf.Steps {
		if _, ok := tools[step.ToolID]; !ok {
			return &ValidationError{Reason: fmt.Sprintf(
				"step %s references unknown tool: %s", step.ID, step.ToolID)}
		}
	}
	return nil
}

// sortedAdjacency builds the outgoing adjacency lists with neighbours
// in sorted order.
func sortedAdjacency(wf *model.Workflow) map[string][]string {
	adj := make(map[string][]string, len(wf.Steps))
	for _, step := range wf.Steps {
		adj[step.ID] = nil
	}
	for _, edge := range wf.Edges {
		adj[edge.FromStepID] = append(adj[edge.FromStepID], edge.ToStepID)
	}
	for id := range adj {
		sort.Strings(adj[id])
	}
	return adj
}

// transitivePredecessors computes, for every step, the set of steps
// from which it is reachable.
func transitivePredecessors(wf *model.Workflow) map[string]map[string]struct{} {
	incoming := make(map[string][]string, len(wf.Steps))
	for _, edge := range wf.Edges {
		incoming[edge.ToStepID] = append(incoming[edge.ToStepID], edge.FromStepID)
	}

	preds := make(map[string]map[string]struct{}, len(wf.Steps))
	for _, step := range wf.Steps {
		set := make(map[string]struct{})
		var walk func(id string)
		walk = func(id string) {
			for _, from := range incoming[id] {
				if _, seen := set[from]; seen {
					continue
				}
				set[from] = struct{}{}
				walk(from)
			}
		}
		walk(step.ID)
		preds[step.ID] = set
	}
	return preds
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
