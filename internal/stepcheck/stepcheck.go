// Package stepcheck evaluates declarative data checks attached to
// workflow steps, against either the resolved inputs or the call
// output.
package stepcheck

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/flowgrid-io/flowgrid/internal/jsonpath"
	"github.com/flowgrid-io/flowgrid/internal/model"
)

// Error reports critical check failures for one target.
type Error struct {
	Target   model.CheckTarget
	Messages []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Target, strings.Join(e.Messages, "; "))
}

// Result separates critical failures from warnings.
type Result struct {
	Errors   []string
	Warnings []string
}

// Err returns an *Error when critical failures occurred, nil otherwise.
func (r Result) Err(target model.CheckTarget) error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &Error{Target: target, Messages: r.Errors}
}

// Run evaluates the checks whose target matches against data.
func Run(data any, checks []model.StepCheck, target model.CheckTarget) Result {
	var result Result
	for _, check := range checks {
		if check.Target != target {
			continue
		}
		value := fieldValue(data, check.Field)
		msg := runCheck(value, check)
		if msg == "" {
			continue
		}
		if check.Message != "" {
			msg = check.Message
		}
		if check.Critical {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}
	return result
}

// fieldValue traverses the dotted field path; an unreachable path
// yields nil so the null checks can report it.
func fieldValue(data any, field string) any {
	value, err := jsonpath.Traverse(data, field)
	if err != nil {
		return nil
	}
	return value
}

func runCheck(value any, check model.StepCheck) string {
	switch check.Check {
	case "not_null":
		if value == nil {
			return fmt.Sprintf("%q is null", check.Field)
		}
		return ""

	case "not_empty":
		if isEmpty(value) {
			return fmt.Sprintf("%q is empty", check.Field)
		}
		return ""

	case "min_length":
		minLen, err := strconv.Atoi(check.Value)
		if err != nil {
			return fmt.Sprintf("invalid check value %q for min_length", check.Value)
		}
		if value == nil {
			return fmt.Sprintf("%q is null (expected min_length %d)", check.Field, minLen)
		}
		length, ok := lengthOf(value)
		if !ok {
			return fmt.Sprintf("%q has no length (type %T)", check.Field, value)
		}
		if length < minLen {
			return fmt.Sprintf("%q length %d < %d", check.Field, length, minLen)
		}
		return ""

	case "regex":
		if value == nil {
			return fmt.Sprintf("%q is null (expected to match /%s/)", check.Field, check.Value)
		}
		re, err := regexp.Compile(check.Value)
		if err != nil {
			return fmt.Sprintf("invalid regex /%s/: %v", check.Value, err)
		}
		if !re.MatchString(asString(value)) {
			return fmt.Sprintf("%q does not match /%s/", check.Field, check.Value)
		}
		return ""

	case "type":
		if ok, known := isType(value, check.Value); !known {
			return fmt.Sprintf("unknown type check: %q", check.Value)
		} else if !ok {
			return fmt.Sprintf("%q is %T, expected %s", check.Field, value, check.Value)
		}
		return ""

	default:
		return fmt.Sprintf("unknown check: %q", check.Check)
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func lengthOf(value any) (int, bool) {
	switch v := value.(type) {
	case string:
		return len(v), true
	case []any:
		return len(v), true
	case map[string]any:
		return len(v), true
	default:
		return 0, false
	}
}

func asString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// isType matches the JSON-shaped value against a declared type name.
// Numbers decode as float64; "int" additionally requires an integral
// value.
func isType(value any, name string) (matches, known bool) {
	switch name {
	case "str":
		_, ok := value.(string)
		return ok, true
	case "int":
		f, ok := value.(float64)
		return ok && f == math.Trunc(f), true
	case "float":
		_, ok := value.(float64)
		return ok, true
	case "list":
		_, ok := value.([]any)
		return ok, true
	case "dict":
		_, ok := value.(map[string]any)
		return ok, true
	case "bool":
		_, ok := value.(bool)
		return ok, true
	default:
		return false, false
	}
}
