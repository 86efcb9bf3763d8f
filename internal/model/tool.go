package model

import (
	"fmt"
	"strings"
)

// AuthType is the authentication scheme applied to a tool call.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "api_key"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
)

// HTTP methods accepted for a tool definition.
var validMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {},
}

// AuthConfig is the structured authentication block of a tool.
// Secrets never appear here; they are injected at call time from the
// per-tool runtime config.
type AuthConfig struct {
	Type AuthType `json:"type" mapstructure:"type"`
	// Header is the header name for api_key auth. Defaults to X-API-Key.
	Header string `json:"header,omitempty" mapstructure:"header"`
	// UsernameKey selects the tool-config key holding the basic-auth
	// username. Defaults to auth_username.
	UsernameKey string `json:"username_key,omitempty" mapstructure:"username_key"`
}

// RequestConfig describes how resolved inputs are split across the
// URL path, query string and request body. Its presence on a tool
// selects the structured dispatch path.
type RequestConfig struct {
	PathParams  []string          `json:"path_params,omitempty" mapstructure:"path_params"`
	QueryParams []string          `json:"query_params,omitempty" mapstructure:"query_params"`
	Headers     map[string]string `json:"headers,omitempty" mapstructure:"headers"`
	Body        any               `json:"body,omitempty" mapstructure:"body"`
	// ContentType selects the body encoding. Empty means JSON;
	// application/x-www-form-urlencoded sends form data.
	ContentType string `json:"content_type,omitempty" mapstructure:"content_type"`
}

// ResponseExtract projects the raw response onto a flat output map.
type ResponseExtract struct {
	// Fields maps output keys to dotted paths into the response.
	Fields map[string]string `json:"fields,omitempty" mapstructure:"fields"`
	// Strict makes a missing path fail the step instead of yielding null.
	Strict bool `json:"strict,omitempty" mapstructure:"strict"`
}

// ToolDefinition is an immutable description of one HTTP endpoint.
type ToolDefinition struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	BaseURL     string `json:"base_url" mapstructure:"base_url"`
	Method      string `json:"method" mapstructure:"method"`
	// Path may contain {name} placeholders.
	Path string `json:"path,omitempty" mapstructure:"path"`

	// Legacy call-path fields.
	AuthType   AuthType `json:"auth_type,omitempty" mapstructure:"auth_type"`
	AuthHeader string   `json:"auth_header,omitempty" mapstructure:"auth_header"`
	Parameters []string `json:"parameters,omitempty" mapstructure:"parameters"`

	// Structured call-path fields. Request being non-nil switches the
	// dispatcher to the structured path.
	Auth            *AuthConfig      `json:"auth,omitempty" mapstructure:"auth"`
	Request         *RequestConfig   `json:"request,omitempty" mapstructure:"request"`
	ResponseExtract *ResponseExtract `json:"response_extract,omitempty" mapstructure:"response_extract"`
}

// AuthSpec returns the effective auth configuration, falling back to
// the legacy fields when no structured auth block is present.
func (t *ToolDefinition) AuthSpec() AuthConfig {
	if t.Auth != nil {
		return *t.Auth
	}
	authType := t.AuthType
	if authType == "" {
		authType = AuthNone
	}
	return AuthConfig{Type: authType, Header: t.AuthHeader}
}

// Validate checks the structural invariants of the definition.
func (t *ToolDefinition) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tool id is required")
	}
	if t.BaseURL == "" {
		return fmt.Errorf("tool %s: base_url is required", t.ID)
	}
	method := strings.ToUpper(t.Method)
	if _, ok := validMethods[method]; !ok {
		return fmt.Errorf("tool %s: unsupported method %q", t.ID, t.Method)
	}
	if t.Request == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(t.Request.PathParams))
	for _, p := range t.Request.PathParams {
		seen[p] = struct{}{}
		if !strings.Contains(t.Path, "{"+p+"}") {
			return fmt.Errorf("tool %s: path param %q not present in path %q", t.ID, p, t.Path)
		}
	}
	for _, q := range t.Request.QueryParams {
		if _, ok := seen[q]; ok {
			return fmt.Errorf("tool %s: %q is listed as both path and query param", t.ID, q)
		}
	}
	return nil
}
