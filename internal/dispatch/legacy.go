package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/flowgrid-io/flowgrid/internal/model"
)

var pathPlaceholderRe = regexp.MustCompile(`\{(\w+)\}`)

// callLegacy executes the flat legacy call path: path placeholders
// are substituted from the resolved inputs, and everything left is
// sent as query parameters (GET/DELETE) or as a flat JSON body
// (POST/PUT/PATCH).
func (c *Client) callLegacy(ctx context.Context, tool *model.ToolDefinition, resolved map[string]any, toolConfig map[string]string) (any, error) {
	remaining := make(map[string]any, len(resolved))
	for k, v := range resolved {
		remaining[k] = v
	}

	path := tool.Path
	for _, m := range pathPlaceholderRe.FindAllStringSubmatch(path, -1) {
		name := m[1]
		if value, ok := remaining[name]; ok {
			delete(remaining, name)
			path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(formatValue(value)))
		}
	}
	reqURL := joinURL(tool.BaseURL, path)

	r := c.rc.R().SetContext(ctx)
	for name, value := range legacyAuthHeaders(tool, toolConfig) {
		r.SetHeader(name, value)
	}

	method := strings.ToUpper(tool.Method)
	switch method {
	case "GET", "DELETE":
		r.SetQueryParamsFromValues(encodeQuery(remaining))
	default:
		r.SetBody(remaining)
	}

	resp, err := r.Execute(method, reqURL)
	if err != nil {
		return nil, &Error{ToolID: tool.ID, URL: reqURL, Reason: "request failed", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &Error{
			ToolID: tool.ID,
			URL:    reqURL,
			Status: resp.StatusCode(),
			Reason: fmt.Sprintf("unexpected status: %s", strings.TrimSpace(string(resp.Body()))),
		}
	}

	data, err := parseResponse(tool, reqURL, resp)
	if err != nil {
		return nil, err
	}
	return wrapSequence(data), nil
}

// legacyAuthHeaders applies the flat auth fields of a legacy tool.
// Basic auth is only available on the structured path.
func legacyAuthHeaders(tool *model.ToolDefinition, toolConfig map[string]string) map[string]string {
	token := toolConfig[configKeyToken]
	if token == "" {
		return nil
	}
	switch tool.AuthType {
	case model.AuthAPIKey:
		header := tool.AuthHeader
		if header == "" {
			header = defaultAPIKeyHeader
		}
		return map[string]string{header: token}
	case model.AuthBearer:
		return map[string]string{"Authorization": "Bearer " + token}
	default:
		return nil
	}
}
