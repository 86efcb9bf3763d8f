// Package template renders {{key}} placeholders over JSON-shaped
// values with type-preserving substitution.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// KeyError reports a missing placeholder key in strict mode.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("missing template key: %s", e.Key)
}

// Render substitutes {{key}} placeholders in tmpl with entries from
// values, recursively over maps and sequences.
//
// A string that is exactly one placeholder is replaced with the raw
// value, preserving its type. Placeholders embedded in a longer string
// are stringified (maps and sequences as compact JSON) and
// concatenated. Non-string scalars pass through untouched.
//
// In strict mode a missing key returns a *KeyError; otherwise the
// placeholder text is kept verbatim.
func Render(tmpl any, values map[string]any, strict bool) (any, error) {
	switch v := tmpl.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			rendered, err := Render(item, values, strict)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			rendered, err := Render(item, values, strict)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case string:
		return renderString(v, values, strict)
	default:
		return tmpl, nil
	}
}

func renderString(tmpl string, values map[string]any, strict bool) (any, error) {
	// Whole string is a single placeholder: type-preserving.
	if m := placeholderRe.FindStringSubmatch(tmpl); m != nil && m[0] == tmpl {
		key := m[1]
		if value, ok := values[key]; ok {
			return value, nil
		}
		if strict {
			return nil, &KeyError{Key: key}
		}
		return tmpl, nil
	}

	var missing *KeyError
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		value, ok := values[key]
		if !ok {
			if strict && missing == nil {
				missing = &KeyError{Key: key}
			}
			return match
		}
		return stringify(value)
	})
	if missing != nil {
		return nil, missing
	}
	return out, nil
}

// stringify renders a value for embedding into a larger string.
// Maps and sequences serialise as compact JSON.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Keys returns the set of placeholder names referenced anywhere in
// tmpl.
func Keys(tmpl any) map[string]struct{} {
	keys := make(map[string]struct{})
	collectKeys(tmpl, keys)
	return keys
}

func collectKeys(tmpl any, keys map[string]struct{}) {
	switch v := tmpl.(type) {
	case map[string]any:
		for _, item := range v {
			collectKeys(item, keys)
		}
	case []any:
		for _, item := range v {
			collectKeys(item, keys)
		}
	case string:
		for _, m := range placeholderRe.FindAllStringSubmatch(v, -1) {
			keys[m[1]] = struct{}{}
		}
	}
}
