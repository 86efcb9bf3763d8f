// Package graph validates workflow graphs and produces deterministic
// execution orders.
package graph

import (
	"sort"

	"github.com/flowgrid-io/flowgrid/internal/model"
	"github.com/flowgrid-io/flowgrid/internal/state"
)

// InferEdges scans step input mappings for step references and merges
// the implied edges with the workflow's declared edges. Explicit edges
// are never removed; inferred edges are appended in sorted order so the
// result is stable. The function is pure; the validator writes the
// result back onto the normalised workflow.
func InferEdges(wf *model.Workflow) []model.Edge {
	stepIDs := wf.StepIDs()

	// Declared edges are a set: repeats collapse here so the
	// normalised workflow carries each edge once.
	existing := make(map[model.Edge]struct{}, len(wf.Edges))
	declared := make([]model.Edge, 0, len(wf.Edges))
	for _, e := range wf.Edges {
		if _, dup := existing[e]; dup {
			continue
		}
		existing[e] = struct{}{}
		declared = append(declared, e)
	}

	inferred := make(map[model.Edge]struct{})
	for _, step := range wf.Steps {
		for _, expr := range step.InputMapping {
			refID, _, ok := state.IsStepRef(expr)
			if !ok || refID == step.ID {
				continue
			}
			if _, known := stepIDs[refID]; !known {
				continue
			}
			edge := model.Edge{FromStepID: refID, ToStepID: step.ID}
			if _, declared := existing[edge]; !declared {
				inferred[edge] = struct{}{}
			}
		}
	}

	added := make([]model.Edge, 0, len(inferred))
	for e := range inferred {
		added = append(added, e)
	}
	sort.Slice(added, func(i, j int) bool {
		if added[i].FromStepID != added[j].FromStepID {
			return added[i].FromStepID < added[j].FromStepID
		}
		return added[i].ToStepID < added[j].ToStepID
	})

	return append(declared, added...)
}
