package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid-io/flowgrid/internal/model"
	"github.com/flowgrid-io/flowgrid/internal/template"
)

type capturedRequest struct {
	Method  string
	Path    string
	Query   url.Values
	Headers http.Header
	Body    []byte
}

// newBackend returns a test server that records the last request and
// responds with the given status and JSON body.
func newBackend(t *testing.T, status int, responseBody string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Query = r.URL.Query()
		captured.Headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		captured.Body = body

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestCall_StructuredPost_TypePreservingBody(t *testing.T) {
	server, captured := newBackend(t, http.StatusOK, `{"ok": true}`)

	tool := &model.ToolDefinition{
		ID:      "orders",
		BaseURL: server.URL,
		Method:  "POST",
		Path:    "/orders",
		Request: &model.RequestConfig{
			Body: map[string]any{
				"customer": map[string]any{"email": "{{email}}"},
				"items":    "{{lines}}",
			},
		},
	}
	inputs := map[string]any{
		"email": "a@b",
		"lines": []any{
			map[string]any{"sku": float64(1)},
			map[string]any{"sku": float64(2)},
		},
	}

	output, err := New().Call(context.Background(), tool, inputs, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, output)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(captured.Body, &sent))
	assert.Equal(t, map[string]any{"email": "a@b"}, sent["customer"])
	items, ok := sent["items"].([]any)
	require.True(t, ok, "items must stay an array, not a string")
	assert.Len(t, items, 2)
}

func TestCall_StructuredPartition(t *testing.T) {
	server, captured := newBackend(t, http.StatusOK, `{}`)

	tool := &model.ToolDefinition{
		ID:      "search",
		BaseURL: server.URL,
		Method:  "POST",
		Path:    "/users/{user_id}/search",
		Request: &model.RequestConfig{
			PathParams:  []string{"user_id"},
			QueryParams: []string{"limit", "tags", "empty"},
			Body:        map[string]any{"q": "{{query}}", "user": "{{user_id}}"},
		},
	}
	inputs := map[string]any{
		"user_id": float64(42),
		"limit":   float64(10),
		"tags":    []any{"a", "b"},
		"empty":   nil,
		"query":   "boots",
	}

	_, err := New().Call(context.Background(), tool, inputs, nil)
	require.NoError(t, err)

	assert.Equal(t, "/users/42/search", captured.Path)
	assert.Equal(t, "10", captured.Query.Get("limit"))
	assert.Equal(t, []string{"a", "b"}, captured.Query["tags"])
	assert.NotContains(t, captured.Query, "empty", "null query values are omitted")

	// Names consumed by path params stay visible to the body template.
	var sent map[string]any
	require.NoError(t, json.Unmarshal(captured.Body, &sent))
	assert.Equal(t, "boots", sent["q"])
	assert.Equal(t, float64(42), sent["user"])
}

func TestCall_StructuredMissingPathParam(t *testing.T) {
	tool := &model.ToolDefinition{
		ID:      "get_user",
		BaseURL: "http://127.0.0.1:0",
		Method:  "GET",
		Path:    "/users/{user_id}",
		Request: &model.RequestConfig{PathParams: []string{"user_id"}},
	}

	_, err := New().Call(context.Background(), tool, map[string]any{}, nil)
	var dispatchErr *Error
	require.ErrorAs(t, err, &dispatchErr)
	assert.Contains(t, dispatchErr.Reason, "missing path param")
}

func TestCall_StructuredBodyStrictMiss(t *testing.T) {
	tool := &model.ToolDefinition{
		ID:      "orders",
		BaseURL: "http://127.0.0.1:0",
		Method:  "POST",
		Path:    "/orders",
		Request: &model.RequestConfig{
			Body: map[string]any{"email": "{{email}}"},
		},
	}

	_, err := New().Call(context.Background(), tool, map[string]any{}, nil)
	var keyErr *template.KeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "email", keyErr.Key)
}

func TestCall_StructuredHeaders(t *testing.T) {
	server, captured := newBackend(t, http.StatusOK, `{}`)

	tool := &model.ToolDefinition{
		ID:      "api",
		BaseURL: server.URL,
		Method:  "GET",
		Path:    "/v1/things",
		Auth:    &model.AuthConfig{Type: model.AuthBearer},
		Request: &model.RequestConfig{
			Headers: map[string]string{
				"X-Trace":   "run-{{trace_id}}",
				"X-Dropped": "{{unknown_key}}",
			},
		},
	}
	inputs := map[string]any{"trace_id": "abc"}

	_, err := New().Call(context.Background(), tool, inputs, map[string]string{"auth_token": "tok"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", captured.Headers.Get("Authorization"))
	assert.Equal(t, "run-abc", captured.Headers.Get("X-Trace"))
	assert.Empty(t, captured.Headers.Get("X-Dropped"), "headers with unresolved placeholders are dropped")
}

func TestCall_StructuredFormEncodedBody(t *testing.T) {
	server, captured := newBackend(t, http.StatusOK, `{}`)

	tool := &model.ToolDefinition{
		ID:      "token",
		BaseURL: server.URL,
		Method:  "POST",
		Path:    "/oauth/token",
		Request: &model.RequestConfig{
			ContentType: "application/x-www-form-urlencoded",
			Body: map[string]any{
				"grant_type": "client_credentials",
				"scope":      "{{scope}}",
			},
		},
	}

	_, err := New().Call(context.Background(), tool, map[string]any{"scope": "read"}, nil)
	require.NoError(t, err)

	assert.Contains(t, captured.Headers.Get("Content-Type"), "application/x-www-form-urlencoded")
	form, parseErr := url.ParseQuery(string(captured.Body))
	require.NoError(t, parseErr)
	assert.Equal(t, "client_credentials", form.Get("grant_type"))
	assert.Equal(t, "read", form.Get("scope"))
}

func TestCall_ResponseExtraction(t *testing.T) {
	tests := []struct {
		name     string
		response string
		strict   bool
		expected map[string]any
		wantErr  bool
	}{
		{
			name:     "ExtractsNestedFields",
			response: `{"data": {"order": {"id": "ord_1", "total": 99}}}`,
			strict:   true,
			expected: map[string]any{"order_id": "ord_1", "total": float64(99)},
		},
		{
			name:     "StrictMissFails",
			response: `{"data": {"order": {}}}`,
			strict:   true,
			wantErr:  true,
		},
		{
			name:     "NonStrictMissYieldsNull",
			response: `{"data": {"order": {"total": 5}}}`,
			strict:   false,
			expected: map[string]any{"order_id": nil, "total": float64(5)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := newBackend(t, http.StatusOK, tt.response)
			tool := &model.ToolDefinition{
				ID:      "orders",
				BaseURL: server.URL,
				Method:  "GET",
				Path:    "/order",
				Request: &model.RequestConfig{},
				ResponseExtract: &model.ResponseExtract{
					Fields: map[string]string{
						"order_id": "data.order.id",
						"total":    "data.order.total",
					},
					Strict: tt.strict,
				},
			}

			output, err := New().Call(context.Background(), tool, nil, nil)
			if tt.wantErr {
				var extractErr *ExtractionError
				require.ErrorAs(t, err, &extractErr)
				assert.Equal(t, "data.order.id", extractErr.Path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, output)
		})
	}
}

func TestCall_LegacyGetListResponse(t *testing.T) {
	server, captured := newBackend(t, http.StatusOK, `[1, 2, 3]`)

	tool := &model.ToolDefinition{
		ID:      "list_things",
		BaseURL: server.URL,
		Method:  "GET",
		Path:    "/things",
	}

	output, err := New().Call(context.Background(), tool, map[string]any{"page": float64(2)}, nil)
	require.NoError(t, err)

	assert.Equal(t, "2", captured.Query.Get("page"))
	assert.Equal(t, map[string]any{
		"items": []any{float64(1), float64(2), float64(3)},
		"count": 3,
	}, output)
}

func TestCall_LegacyPathSubstitutionAndPost(t *testing.T) {
	server, captured := newBackend(t, http.StatusOK, `{"created": true}`)

	tool := &model.ToolDefinition{
		ID:      "create_note",
		BaseURL: server.URL,
		Method:  "POST",
		Path:    "/users/{user_id}/notes",
	}
	inputs := map[string]any{"user_id": "u7", "text": "hello"}

	output, err := New().Call(context.Background(), tool, inputs, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"created": true}, output)

	assert.Equal(t, "/users/u7/notes", captured.Path)

	// Path-consumed names are excluded from the flat JSON body.
	var sent map[string]any
	require.NoError(t, json.Unmarshal(captured.Body, &sent))
	assert.Equal(t, map[string]any{"text": "hello"}, sent)
}

func TestCall_LegacyAuth(t *testing.T) {
	tests := []struct {
		name       string
		tool       model.ToolDefinition
		toolConfig map[string]string
		header     string
		expected   string
	}{
		{
			name:       "APIKeyCustomHeader",
			tool:       model.ToolDefinition{AuthType: model.AuthAPIKey, AuthHeader: "X-Custom-Key"},
			toolConfig: map[string]string{"auth_token": "secret"},
			header:     "X-Custom-Key",
			expected:   "secret",
		},
		{
			name:       "APIKeyDefaultHeader",
			tool:       model.ToolDefinition{AuthType: model.AuthAPIKey},
			toolConfig: map[string]string{"auth_token": "secret"},
			header:     "X-API-Key",
			expected:   "secret",
		},
		{
			name:       "Bearer",
			tool:       model.ToolDefinition{AuthType: model.AuthBearer},
			toolConfig: map[string]string{"auth_token": "tok"},
			header:     "Authorization",
			expected:   "Bearer tok",
		},
		{
			name:       "EmptyTokenSkipsHeader",
			tool:       model.ToolDefinition{AuthType: model.AuthBearer},
			toolConfig: map[string]string{},
			header:     "Authorization",
			expected:   "",
		},
		{
			name:       "NoneNeverEmits",
			tool:       model.ToolDefinition{AuthType: model.AuthNone},
			toolConfig: map[string]string{"auth_token": "tok"},
			header:     "Authorization",
			expected:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := newBackend(t, http.StatusOK, `{}`)
			tool := tt.tool
			tool.ID = "t"
			tool.BaseURL = server.URL
			tool.Method = "GET"
			tool.Path = "/x"

			_, err := New().Call(context.Background(), &tool, nil, tt.toolConfig)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, captured.Headers.Get(tt.header))
		})
	}
}

func TestAuthHeaders_Basic(t *testing.T) {
	t.Run("UserAndPassword", func(t *testing.T) {
		headers := authHeaders(
			model.AuthConfig{Type: model.AuthBasic},
			map[string]string{"auth_username": "bob", "auth_token": "pw"},
		)
		// base64("bob:pw")
		assert.Equal(t, map[string]string{"Authorization": "Basic Ym9iOnB3"}, headers)
	})

	t.Run("CustomUsernameKey", func(t *testing.T) {
		headers := authHeaders(
			model.AuthConfig{Type: model.AuthBasic, UsernameKey: "svc_user"},
			map[string]string{"svc_user": "bob", "auth_token": "pw"},
		)
		assert.Equal(t, map[string]string{"Authorization": "Basic Ym9iOnB3"}, headers)
	})

	t.Run("NoCredentialsSkips", func(t *testing.T) {
		headers := authHeaders(model.AuthConfig{Type: model.AuthBasic}, map[string]string{})
		assert.Nil(t, headers)
	})
}

func TestCall_ErrorStatus(t *testing.T) {
	server, _ := newBackend(t, http.StatusBadGateway, `{"error": "upstream"}`)
	tool := &model.ToolDefinition{
		ID:      "flaky",
		BaseURL: server.URL,
		Method:  "GET",
		Path:    "/x",
	}

	_, err := New().Call(context.Background(), tool, nil, nil)
	var dispatchErr *Error
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, http.StatusBadGateway, dispatchErr.Status)
	assert.Equal(t, "flaky", dispatchErr.ToolID)
}

func TestCall_NetworkError(t *testing.T) {
	tool := &model.ToolDefinition{
		ID:      "unreachable",
		BaseURL: "http://127.0.0.1:1",
		Method:  "GET",
		Path:    "/x",
	}

	_, err := New().Call(context.Background(), tool, nil, nil)
	var dispatchErr *Error
	require.ErrorAs(t, err, &dispatchErr)
	assert.Zero(t, dispatchErr.Status)
}

func TestCall_NonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	}))
	t.Cleanup(server.Close)

	tool := &model.ToolDefinition{
		ID:      "ping",
		BaseURL: server.URL,
		Method:  "GET",
		Path:    "/ping",
	}

	output, err := New().Call(context.Background(), tool, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"text": "pong"}, output)
}

func TestCall_InvalidJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	t.Cleanup(server.Close)

	tool := &model.ToolDefinition{
		ID:      "bad",
		BaseURL: server.URL,
		Method:  "GET",
		Path:    "/x",
	}

	_, err := New().Call(context.Background(), tool, nil, nil)
	var dispatchErr *Error
	require.ErrorAs(t, err, &dispatchErr)
	assert.Contains(t, dispatchErr.Reason, "invalid JSON")
}

func TestEncodeQuery(t *testing.T) {
	values := encodeQuery(map[string]any{
		"s":    "x",
		"n":    float64(3),
		"list": []any{"a", float64(2)},
		"null": nil,
		"obj":  map[string]any{"k": "v"},
	})
	assert.Equal(t, "x", values.Get("s"))
	assert.Equal(t, "3", values.Get("n"))
	assert.Equal(t, []string{"a", "2"}, values["list"])
	assert.NotContains(t, values, "null")
	assert.Equal(t, `{"k":"v"}`, values.Get("obj"))
}

func TestJoinURL(t *testing.T) {
	tests := []struct {
		base, path, expected string
	}{
		{"https://api.example.com", "/v1/x", "https://api.example.com/v1/x"},
		{"https://api.example.com/", "v1/x", "https://api.example.com/v1/x"},
		{"https://api.example.com/", "/v1/x", "https://api.example.com/v1/x"},
		{"https://api.example.com", "", "https://api.example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, joinURL(tt.base, tt.path))
	}
}
