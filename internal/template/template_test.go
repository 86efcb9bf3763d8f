package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_TypePreserving(t *testing.T) {
	values := map[string]any{
		"str":   "hello",
		"num":   float64(42),
		"flag":  true,
		"null":  nil,
		"list":  []any{float64(1), float64(2)},
		"obj":   map[string]any{"a": "b"},
		"email": "a@b",
	}

	tests := []struct {
		name     string
		template any
		expected any
	}{
		{name: "ExactString", template: "{{str}}", expected: "hello"},
		{name: "ExactNumber", template: "{{num}}", expected: float64(42)},
		{name: "ExactBool", template: "{{flag}}", expected: true},
		{name: "ExactNull", template: "{{null}}", expected: nil},
		{name: "ExactList", template: "{{list}}", expected: []any{float64(1), float64(2)}},
		{name: "ExactMap", template: "{{obj}}", expected: map[string]any{"a": "b"}},
		{name: "NoPlaceholder", template: "plain", expected: "plain"},
		{name: "ScalarPassthrough", template: float64(7), expected: float64(7)},
		{name: "BoolPassthrough", template: false, expected: false},
		{name: "NilPassthrough", template: nil, expected: nil},
		{
			name:     "EmbeddedString",
			template: "Hello {{str}}!",
			expected: "Hello hello!",
		},
		{
			name:     "EmbeddedNumber",
			template: "n={{num}}",
			expected: "n=42",
		},
		{
			name:     "EmbeddedListSerialisesJSON",
			template: "items: {{list}}",
			expected: "items: [1,2]",
		},
		{
			name:     "EmbeddedMapSerialisesJSON",
			template: "obj: {{obj}}",
			expected: `obj: {"a":"b"}`,
		},
		{
			name:     "EmbeddedNull",
			template: "v={{null}}",
			expected: "v=null",
		},
		{
			name: "NestedMap",
			template: map[string]any{
				"customer": map[string]any{"email": "{{email}}"},
				"items":    "{{list}}",
			},
			expected: map[string]any{
				"customer": map[string]any{"email": "a@b"},
				"items":    []any{float64(1), float64(2)},
			},
		},
		{
			name:     "NestedList",
			template: []any{"{{num}}", "x {{str}}"},
			expected: []any{float64(42), "x hello"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, values, true)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRender_MissingKeys(t *testing.T) {
	values := map[string]any{"known": "v"}

	t.Run("StrictExactMatch", func(t *testing.T) {
		_, err := Render("{{missing}}", values, true)
		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, "missing", keyErr.Key)
	})

	t.Run("StrictEmbedded", func(t *testing.T) {
		_, err := Render("a {{missing}} b", values, true)
		var keyErr *KeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, "missing", keyErr.Key)
	})

	t.Run("StrictNested", func(t *testing.T) {
		tmpl := map[string]any{"inner": []any{"{{missing}}"}}
		_, err := Render(tmpl, values, true)
		require.Error(t, err)
	})

	t.Run("NonStrictExactMatchKeepsPlaceholder", func(t *testing.T) {
		got, err := Render("{{missing}}", values, false)
		require.NoError(t, err)
		assert.Equal(t, "{{missing}}", got)
	})

	t.Run("NonStrictEmbeddedKeepsPlaceholder", func(t *testing.T) {
		got, err := Render("pre {{missing}} post {{known}}", values, false)
		require.NoError(t, err)
		assert.Equal(t, "pre {{missing}} post v", got)
	})
}

func TestRender_NullValueIsNotMissing(t *testing.T) {
	got, err := Render("{{k}}", map[string]any{"k": nil}, true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestKeys(t *testing.T) {
	tmpl := map[string]any{
		"a": "{{one}}",
		"b": []any{"x {{two}} y", map[string]any{"c": "{{three}}"}},
		"d": float64(1),
	}
	keys := Keys(tmpl)
	assert.Equal(t, map[string]struct{}{
		"one": {}, "two": {}, "three": {},
	}, keys)
}
