package xeroauth

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"

	"github.com/expo-laith/xero-ap-automation/internal/config"
)

// Endpoints holds the provider URLs the lifecycle manager talks to.
type Endpoints struct {
	Issuer      string
	Authorize   string
	Token       string
	Connections string
}

// EndpointsFromConfig returns the configured (fixed) provider endpoints.
func EndpointsFromConfig(cfg config.XeroConfig) Endpoints {
	return Endpoints{
		Issuer:      cfg.GetIssuerURL(),
		Authorize:   cfg.GetAuthorizeURL(),
		Token:       cfg.GetTokenURL(),
		Connections: cfg.GetConnectionsURL(),
	}
}

// DiscoverEndpoints resolves the authorize and token endpoints from the
// identity server's OIDC discovery document. On any discovery failure the
// fixed endpoints are kept, so startup never depends on the provider being
// reachable.
func DiscoverEndpoints(ctx context.Context, fixed Endpoints) Endpoints {
	provider, err := oidc.NewProvider(ctx, fixed.Issuer)
	if err != nil {
		log.Warn().Err(err).Str("issuer", fixed.Issuer).Msg("endpoint discovery failed, using fixed endpoints")
		return fixed
	}

	discovered := fixed
	endpoint := provider.Endpoint()
	if endpoint.AuthURL != "" {
		discovered.Authorize = endpoint.AuthURL
	}
	if endpoint.TokenURL != "" {
		discovered.Token = endpoint.TokenURL
	}
	log.Info().
		Str("authorize", discovered.Authorize).
		Str("token", discovered.Token).
		Msg("resolved provider endpoints from discovery document")
	return discovered
}
