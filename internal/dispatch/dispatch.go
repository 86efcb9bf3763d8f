// Package dispatch issues the HTTP calls configured by tool
// definitions. Two call paths coexist: the flat legacy path and the
// structured-config path, selected by the presence of the request
// block on the tool.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/flowgrid-io/flowgrid/internal/model"
)

// DefaultTimeout bounds every HTTP call unless overridden.
const DefaultTimeout = 30 * time.Second

// Error reports a failed dispatch: network failure, non-2xx response
// or an unparsable response body.
type Error struct {
	ToolID string
	URL    string
	// Status is the HTTP status code, or 0 when the call never
	// produced a response.
	Status int
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("tool %s: %s", e.ToolID, e.Reason)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.URL != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.URL)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// ExtractionError reports a strict response extraction miss.
type ExtractionError struct {
	ToolID string
	Path   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("tool %s: response extraction failed: field %q not found", e.ToolID, e.Path)
}

// Client dispatches tool calls over a shared resty client. The
// underlying connection pool is request-agnostic; all per-call state
// (headers, query, body) is set on individual requests.
type Client struct {
	rc      *resty.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDebug enables resty's request/response debug logging.
func WithDebug() Option {
	return func(c *Client) {
		c.rc.SetDebug(true)
	}
}

// New creates a dispatch client.
func New(opts ...Option) *Client {
	c := &Client{
		rc:      resty.New(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rc.SetTimeout(c.timeout)
	return c
}

// Call executes the tool with the resolved inputs and returns the
// shaped output. toolConfig carries the runtime secrets for the tool
// (auth_token, auth_username, ...); it may be nil.
func (c *Client) Call(ctx context.Context, tool *model.ToolDefinition, inputs map[string]any, toolConfig map[string]string) (any, error) {
	if toolConfig == nil {
		toolConfig = map[string]string{}
	}
	if tool.Request != nil {
		return c.callStructured(ctx, tool, inputs, toolConfig)
	}
	return c.callLegacy(ctx, tool, inputs, toolConfig)
}

// joinURL joins the base URL and the (already substituted) path.
func joinURL(baseURL, path string) string {
	if path == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// encodeQuery builds the query values. Sequences expand to repeated
// keys; nulls are omitted.
func encodeQuery(params map[string]any) url.Values {
	values := url.Values{}
	for key, value := range params {
		switch v := value.(type) {
		case nil:
		case []any:
			for _, item := range v {
				if item == nil {
					continue
				}
				values.Add(key, formatValue(item))
			}
		default:
			values.Add(key, formatValue(value))
		}
	}
	return values
}

// formatValue renders a value for use in a URL or form field. Maps
// and sequences serialise as compact JSON.
func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
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

// parseResponse decodes the response body. JSON content types decode
// to a JSON-shaped value; anything else is wrapped as {"text": body}.
func parseResponse(tool *model.ToolDefinition, reqURL string, resp *resty.Response) (any, error) {
	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if !strings.Contains(contentType, "json") {
		return map[string]any{"text": string(body)}, nil
	}
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &Error{
			ToolID: tool.ID,
			URL:    reqURL,
			Status: resp.StatusCode(),
			Reason: "invalid JSON response",
			Err:    err,
		}
	}
	return data, nil
}

// wrapSequence gives bare JSON arrays a stable map shape so dotted
// references can address them.
func wrapSequence(data any) any {
	if seq, ok := data.([]any); ok {
		return map[string]any{"items": seq, "count": len(seq)}
	}
	return data
}
