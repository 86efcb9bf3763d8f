// Package state resolves step input mappings against user inputs and
// completed step outputs.
package state

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flowgrid-io/flowgrid/internal/jsonpath"
)

const inputPrefix = "$input."

// stepRefRe matches a step reference expression: an identifier prefix
// followed by a dotted path. Dotted strings with non-identifier
// prefixes (e.g. "1.5") are literals.
var stepRefRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\..+$`)

// ResolutionError reports a reference expression that could not be
// resolved.
type ResolutionError struct {
	Ref    string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %s", e.Ref, e.Reason)
}

// IsStepRef reports whether the expression references a step output,
// returning the step id and the remaining dotted path.
func IsStepRef(expr string) (stepID, path string, ok bool) {
	if strings.HasPrefix(expr, inputPrefix) {
		return "", "", false
	}
	m := stepRefRe.FindStringSubmatch(expr)
	if m == nil {
		return "", "", false
	}
	return m[1], expr[len(m[1])+1:], true
}

// Manager holds the data state of a single run: the user inputs and
// the outputs of completed steps. A Manager is written only by the
// run executor between steps and needs no locking.
type Manager struct {
	userInputs  map[string]any
	stepOutputs map[string]any
}

// New creates a Manager seeded with the run's user inputs.
func New(userInputs map[string]any) *Manager {
	return &Manager{
		userInputs:  userInputs,
		stepOutputs: make(map[string]any),
	}
}

// Record stores the output of a completed step.
func (m *Manager) Record(stepID string, output any) {
	m.stepOutputs[stepID] = output
}

// Output returns the recorded output of a step.
func (m *Manager) Output(stepID string) (any, bool) {
	out, ok := m.stepOutputs[stepID]
	return out, ok
}

// Resolve evaluates every reference expression in the mapping and
// returns the flat name → value result.
func (m *Manager) Resolve(mapping map[string]string) (map[string]any, error) {
	resolved := make(map[string]any, len(mapping))
	for name, expr := range mapping {
		value, err := m.resolveExpr(expr)
		if err != nil {
			return nil, err
		}
		resolved[name] = value
	}
	return resolved, nil
}

func (m *Manager) resolveExpr(expr string) (any, error) {
	if strings.HasPrefix(expr, inputPrefix) {
		path := expr[len(inputPrefix):]
		value, err := jsonpath.Traverse(m.userInputs, path)
		if err != nil {
			return nil, &ResolutionError{Ref: expr, Reason: "missing user input"}
		}
		return value, nil
	}

	if stepID, path, ok := IsStepRef(expr); ok {
		output, recorded := m.stepOutputs[stepID]
		if !recorded {
			return nil, &ResolutionError{Ref: expr, Reason: fmt.Sprintf("no output recorded for step %s", stepID)}
		}
		value, err := jsonpath.Traverse(output, path)
		if err != nil {
			return nil, &ResolutionError{Ref: expr, Reason: err.Error()}
		}
		return value, nil
	}

	// Literal pass-through.
	return expr, nil
}
