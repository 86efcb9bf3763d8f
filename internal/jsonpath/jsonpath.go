// Package jsonpath navigates dotted paths over decoded JSON values.
package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

// PathError reports a traversal failure at a specific segment.
type PathError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("path %q: segment %q: %s", e.Path, e.Segment, e.Reason)
}

// Traverse follows the dotted path through root. Map segments perform
// key lookup; sequence segments must be non-negative decimal indices.
// An empty path returns root unchanged.
func Traverse(root any, path string) (any, error) {
	if path == "" {
		return root, nil
	}
	return TraverseSegments(root, path, strings.Split(path, "."))
}

// TraverseSegments is Traverse with pre-split segments. The full path
// string is used only for error reporting.
func TraverseSegments(root any, path string, segments []string) (any, error) {
	current := root
	for _, seg := range segments {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, &PathError{Path: path, Segment: seg, Reason: "key not found"}
			}
			current = next
		case []any:
			idx, err := parseIndex(seg)
			if err != nil {
				return nil, &PathError{Path: path, Segment: seg, Reason: "not a valid sequence index"}
			}
			if idx >= len(v) {
				return nil, &PathError{Path: path, Segment: seg, Reason: fmt.Sprintf("index out of range (len %d)", len(v))}
			}
			current = v[idx]
		default:
			return nil, &PathError{Path: path, Segment: seg, Reason: fmt.Sprintf("cannot traverse into %T", current)}
		}
	}
	return current, nil
}

func parseIndex(seg string) (int, error) {
	if seg == "" {
		return 0, fmt.Errorf("empty segment")
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit segment")
		}
	}
	return strconv.Atoi(seg)
}
