package graph

import (
	"fmt"
	"sort"

	"github.com/flowgrid-io/flowgrid/internal/model"
)

// TopologicalSort orders the workflow's steps with Kahn's algorithm.
// Ties are broken by lexicographic step id, both in the initial
// frontier and on every insertion, so two equivalent workflows always
// produce identical orderings.
//
// The workflow must already have passed validation; an incomplete
// ordering here means a cycle slipped through and is reported as an
// internal error.
func TopologicalSort(wf *model.Workflow) ([]string, error) {
	inDegree := make(map[string]int, len(wf.Steps))
	adj := sortedAdjacency(wf)
	for _, step := range wf.Steps {
		inDegree[step.ID] = 0
	}
	for _, edge := range wf.Edges {
		inDegree[edge.ToStepID]++
	}

	var frontier []string
	for _, step := range wf.Steps {
		if inDegree[step.ID] == 0 {
			frontier = append(frontier, step.ID)
		}
	}
	sort.Strings(frontier)

	order := make([]string, 0, len(wf.Steps))
	for len(frontier) > 0 {
		node := frontier[0]
		frontier = frontier[1:]
		order = append(order, node)

		for _, next := range adj[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				frontier = insertSorted(frontier, next)
			}
		}
	}

	if len(order) != len(wf.Steps) {
		return nil, fmt.Errorf("internal error: topological sort covered %d of %d steps (cycle not caught by validation)",
			len(order), len(wf.Steps))
	}
	return order, nil
}

func insertSorted(frontier []string, id string) []string {
	i := sort.SearchStrings(frontier, id)
	frontier = append(frontier, "")
	copy(frontier[i+1:], frontier[i:])
	frontier[i] = id
	return frontier
}
