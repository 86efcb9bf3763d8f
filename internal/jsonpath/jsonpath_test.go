package jsonpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraverse(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{
			"b": []any{
				map[string]any{"c": "found"},
				float64(2),
			},
		},
		"n":    float64(3),
		"null": nil,
	}

	tests := []struct {
		name     string
		path     string
		expected any
	}{
		{name: "EmptyPathReturnsRoot", path: "", expected: root},
		{name: "SingleKey", path: "n", expected: float64(3)},
		{name: "NestedKeyIndexKey", path: "a.b.0.c", expected: "found"},
		{name: "IndexScalar", path: "a.b.1", expected: float64(2)},
		{name: "NullLeaf", path: "null", expected: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Traverse(root, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTraverse_Errors(t *testing.T) {
	root := map[string]any{
		"a":    map[string]any{"b": []any{float64(1)}},
		"text": "scalar",
	}

	tests := []struct {
		name    string
		path    string
		segment string
	}{
		{name: "MissingKey", path: "a.missing", segment: "missing"},
		{name: "IndexOutOfRange", path: "a.b.5", segment: "5"},
		{name: "NonNumericIndex", path: "a.b.x", segment: "x"},
		{name: "NegativeIndex", path: "a.b.-1", segment: "-1"},
		{name: "TraverseIntoScalar", path: "text.deeper", segment: "deeper"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Traverse(root, tt.path)
			var pathErr *PathError
			require.ErrorAs(t, err, &pathErr)
			assert.Equal(t, tt.path, pathErr.Path)
			assert.Equal(t, tt.segment, pathErr.Segment)
		})
	}
}
