package config

import (
	"strings"
	"time"
)

type XeroConfig interface {
	GetIssuerURL() string
	GetAuthorizeURL() string
	GetTokenURL() string
	GetConnectionsURL() string
	GetAccountingBaseURL() string
	GetScopes() []string
	GetDiscoverEndpoints() bool
	GetHTTPTimeout() time.Duration
}

type Xero struct{}

var _ XeroConfig = Xero{}

// Fixed Xero endpoints. Each can be overridden through the environment, which
// tests use to point the client at a local server.
func (Xero) GetIssuerURL() string {
	return GetEnv("XERO_ISSUER_URL", "https://identity.xero.com")
}

func (Xero) GetAuthorizeURL() string {
	return GetEnv("XERO_AUTHORIZE_URL", "https://login.xero.com/identity/connect/authorize")
}

func (Xero) GetTokenURL() string {
	return GetEnv("XERO_TOKEN_URL", "https://identity.xero.com/connect/token")
}

func (Xero) GetConnectionsURL() string {
	return GetEnv("XERO_CONNECTIONS_URL", "https://api.xero.com/connections")
}

func (Xero) GetAccountingBaseURL() string {
	return GetEnv("XERO_ACCOUNTING_URL", "https://api.xero.com/api.xro/2.0")
}

// GetScopes returns the requested OAuth scopes. Space-separated (Xero format),
// commas tolerated. offline_access is appended when missing so Xero grants a
// refresh token.
func (Xero) GetScopes() []string {
	raw := GetEnv("XERO_SCOPES",
		"openid profile email accounting.transactions accounting.attachments offline_access")
	raw = strings.ReplaceAll(raw, ",", " ")

	scopes := make([]string, 0)
	hasOffline := false
	for _, s := range strings.Fields(raw) {
		if s == "offline_access" {
			hasOffline = true
		}
		scopes = append(scopes, s)
	}
	if !hasOffline {
		scopes = append(scopes, "offline_access")
	}
	return scopes
}

// GetDiscoverEndpoints reports whether the authorize and token endpoints
// should be resolved from the identity server's OIDC discovery document
// instead of the fixed values above.
func (Xero) GetDiscoverEndpoints() bool {
	return GetEnv("XERO_DISCOVER_ENDPOINTS", "false") == "true"
}

func (Xero) GetHTTPTimeout() time.Duration {
	return 60 * time.Second
}
