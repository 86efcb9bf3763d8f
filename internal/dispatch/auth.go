package dispatch

import (
	"encoding/base64"

	"github.com/flowgrid-io/flowgrid/internal/model"
)

const (
	defaultAPIKeyHeader   = "X-API-Key"
	configKeyToken        = "auth_token"
	defaultUsernameConfig = "auth_username"
)

// authHeaders builds the authentication headers for a call. Secrets
// come from the per-tool runtime config; an empty or missing secret
// skips the header entirely so unauthenticated dev runs still work.
func authHeaders(auth model.AuthConfig, toolConfig map[string]string) map[string]string {
	token := toolConfig[configKeyToken]

	switch auth.Type {
	case model.AuthAPIKey:
		if token == "" {
			return nil
		}
		header := auth.Header
		if header == "" {
			header = defaultAPIKeyHeader
		}
		return map[string]string{header: token}

	case model.AuthBearer:
		if token == "" {
			return nil
		}
		return map[string]string{"Authorization": "Bearer " + token}

	case model.AuthBasic:
		usernameKey := auth.UsernameKey
		if usernameKey == "" {
			usernameKey = defaultUsernameConfig
		}
		username := toolConfig[usernameKey]
		if username == "" && token == "" {
			return nil
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + token))
		return map[string]string{"Authorization": "Basic " + encoded}

	default:
		return nil
	}
}
