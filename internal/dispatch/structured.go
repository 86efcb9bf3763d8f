package dispatch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/flowgrid-io/flowgrid/internal/jsonpath"
	"github.com/flowgrid-io/flowgrid/internal/model"
	"github.com/flowgrid-io/flowgrid/internal/template"
)

const formContentType = "application/x-www-form-urlencoded"

// callStructured executes the structured-config call path: partition
// inputs across path, query and body, assemble the request, and shape
// the response per the tool's extraction config.
func (c *Client) callStructured(ctx context.Context, tool *model.ToolDefinition, resolved map[string]any, toolConfig map[string]string) (any, error) {
	req := tool.Request

	// Partition: path and query params are consumed from the working
	// copy; what remains feeds the body template.
	remaining := make(map[string]any, len(resolved))
	for k, v := range resolved {
		remaining[k] = v
	}

	path := tool.Path
	for _, param := range req.PathParams {
		value, ok := remaining[param]
		if !ok {
			return nil, &Error{ToolID: tool.ID, Reason: fmt.Sprintf("missing path param %q", param)}
		}
		delete(remaining, param)
		path = strings.ReplaceAll(path, "{"+param+"}", url.PathEscape(formatValue(value)))
	}

	query := make(map[string]any, len(req.QueryParams))
	for _, param := range req.QueryParams {
		if value, ok := remaining[param]; ok {
			query[param] = value
			delete(remaining, param)
		}
	}

	reqURL := joinURL(tool.BaseURL, path)

	headers := authHeaders(tool.AuthSpec(), toolConfig)

	// Templates see the full resolved map: consumption by path/query
	// never hides a name from a header or body template.
	templateValues := make(map[string]any, len(resolved))
	for k, v := range resolved {
		templateValues[k] = v
	}

	customHeaders, err := renderHeaders(req.Headers, templateValues)
	if err != nil {
		return nil, err
	}

	var body any
	if req.Body != nil {
		body, err = template.Render(req.Body, templateValues, true)
		if err != nil {
			return nil, fmt.Errorf("tool %s: body template: %w", tool.ID, err)
		}
	}

	r := c.rc.R().SetContext(ctx)
	for name, value := range headers {
		r.SetHeader(name, value)
	}
	for name, value := range customHeaders {
		r.SetHeader(name, value)
	}
	r.SetQueryParamsFromValues(encodeQuery(query))
	if body != nil {
		if req.ContentType == formContentType {
			r.SetFormDataFromValues(encodeQuery(asMap(body)))
		} else {
			r.SetBody(body)
		}
	}

	resp, err := r.Execute(strings.ToUpper(tool.Method), reqURL)
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

	if tool.ResponseExtract != nil && len(tool.ResponseExtract.Fields) > 0 {
		return extractFields(tool, data)
	}
	return wrapSequence(data), nil
}

// renderHeaders renders header templates in non-strict mode and drops
// entries whose rendered value still contains an unresolved
// placeholder.
func renderHeaders(templates map[string]string, values map[string]any) (map[string]string, error) {
	if len(templates) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(templates))
	for name, tmpl := range templates {
		rendered, err := template.Render(tmpl, values, false)
		if err != nil {
			return nil, err
		}
		text := formatValue(rendered)
		if strings.Contains(text, "{{") {
			continue
		}
		headers[name] = text
	}
	return headers, nil
}

// extractFields projects the response onto the tool's output keys.
// Strict mode turns a missing path into an extraction error;
// otherwise the key yields null.
func extractFields(tool *model.ToolDefinition, data any) (map[string]any, error) {
	extract := tool.ResponseExtract
	out := make(map[string]any, len(extract.Fields))
	for key, path := range extract.Fields {
		value, err := jsonpath.Traverse(data, path)
		if err != nil {
			if extract.Strict {
				return nil, &ExtractionError{ToolID: tool.ID, Path: path}
			}
			out[key] = nil
			continue
		}
		out[key] = value
	}
	return out, nil
}

// asMap coerces a rendered body into a flat map for form encoding.
func asMap(body any) map[string]any {
	if m, ok := body.(map[string]any); ok {
		return m
	}
	return map[string]any{"body": body}
}
