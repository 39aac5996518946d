package wiseagent

import (
	"net/url"
	"strings"

	"github.com/estait/crmbridge/core"
)

// Production endpoints. Every data operation multiplexes through APIBaseURL.
const (
	DefaultAuthURL    = "https://sync.thewiseagent.com/WiseAuth/auth"
	DefaultTokenURL   = "https://sync.thewiseagent.com/WiseAuth/token"
	DefaultRevokeURL  = "https://sync.thewiseagent.com/WiseAuth/revoke"
	DefaultAPIBaseURL = "https://sync.thewiseagent.com/http/webconnect.asp"
)

// DefaultScopes covers the full operation surface this adapter exercises.
var DefaultScopes = []string{"profile", "contacts", "team", "marketing", "calendar", "properties"}

// ApplyDefaults fills the provider endpoints and scopes a deployment usually
// leaves untouched, keeping any operator-supplied overrides.
func ApplyDefaults(config core.ProviderConfig) core.ProviderConfig {
	if strings.TrimSpace(config.AuthURL) == "" {
		config.AuthURL = DefaultAuthURL
	}
	if strings.TrimSpace(config.TokenURL) == "" {
		config.TokenURL = DefaultTokenURL
	}
	if strings.TrimSpace(config.RevokeURL) == "" {
		config.RevokeURL = DefaultRevokeURL
	}
	if strings.TrimSpace(config.APIBaseURL) == "" {
		config.APIBaseURL = DefaultAPIBaseURL
	}
	if len(config.Scopes) == 0 {
		config.Scopes = append([]string(nil), DefaultScopes...)
	}
	return config
}

// AuthorizationURL builds the user-facing consent URL for the authorization
// code flow. The state token binds the callback to this request.
func AuthorizationURL(config core.ProviderConfig, state string) (string, error) {
	config = ApplyDefaults(config)
	if strings.TrimSpace(config.ClientID) == "" {
		return "", core.NewConfigurationError("wiseagent: client id is required")
	}
	if strings.TrimSpace(config.RedirectURI) == "" {
		return "", core.NewConfigurationError("wiseagent: redirect URI is required")
	}
	if strings.TrimSpace(state) == "" {
		return "", core.NewBadInputError("wiseagent: state is required")
	}

	target, err := url.Parse(config.AuthURL)
	if err != nil {
		return "", core.NewConfigurationError("wiseagent: auth URL is not a valid URL")
	}
	query := target.Query()
	query.Set("client_id", config.ClientID)
	query.Set("redirect_uri", config.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", strings.Join(config.Scopes, " "))
	query.Set("state", state)
	target.RawQuery = query.Encode()
	return target.String(), nil
}
