package xeroauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
	"github.com/expo-laith/xero-ap-automation/secrets"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// expiryLeeway is subtracted from the access token lifetime so a token about
// to expire mid-request is refreshed up front.
const expiryLeeway = 60 * time.Second

// Manager owns the token lifecycle: the authorization-code exchange, lazy
// refresh with rotation persistence, and the tenant (connections) lookup.
// Credentials live in the injected secrets store; the manager holds an
// in-memory copy only for the duration of one exchange.
type Manager struct {
	store     secrets.Store
	endpoints Endpoints
	client    *http.Client

	// refreshMu serialises refreshes so two overlapping requests never
	// both rotate the refresh token and clobber each other's result.
	refreshMu sync.Mutex
}

// NewManager creates a token lifecycle manager. A nil httpClient falls back
// to a client with a 60s timeout.
func NewManager(store secrets.Store, endpoints Endpoints, httpClient *http.Client) *Manager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Manager{
		store:     store,
		endpoints: endpoints,
		client:    httpClient,
	}
}

// oauth2Config builds the exchange configuration from the stored record.
// Xero authenticates token requests with HTTP Basic client credentials.
func (m *Manager) oauth2Config(record *secrets.Record) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     record.ClientID,
		ClientSecret: record.ClientSecret,
		RedirectURL:  record.RedirectURI,
		Scopes:       record.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   m.endpoints.Authorize,
			TokenURL:  m.endpoints.Token,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// httpContext makes the oauth2 package use the manager's HTTP client.
func (m *Manager) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}

// AuthorizeURL constructs the provider authorization URL for the stored
// client. No side effects; the caller owns state generation and checking.
func (m *Manager) AuthorizeURL(state string) (string, error) {
	record, err := m.store.Load()
	if err != nil {
		return "", err
	}
	return m.oauth2Config(record).AuthCodeURL(state), nil
}

// CompleteAuthorization exchanges an authorization code for tokens, resolves
// the authorized tenant, and persists the new refresh token and tenant id in
// one save. A rejected code leaves the stored record untouched.
func (m *Manager) CompleteAuthorization(ctx context.Context, code string) (*secrets.Record, error) {
	record, err := m.store.Load()
	if err != nil {
		return nil, err
	}

	token, err := m.oauth2Config(record).Exchange(m.httpContext(ctx), code)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "%v", err)
	}
	if token.RefreshToken == "" {
		// offline_access was not granted; without a refresh token every
		// later run would fail.
		return nil, apperrors.Wrapf(apperrors.ErrTokenExchangeFailed,
			"token response contained no refresh token, check that scopes include offline_access")
	}

	logIDTokenClaims(token)

	tenantID, err := m.fetchTenantID(ctx, token.AccessToken)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNoTenant) && record.TenantID == "" {
			return nil, err
		}
		if !apperrors.Is(err, apperrors.ErrNoTenant) {
			log.Warn().Err(err).Msg("tenant lookup failed, keeping previously stored tenant")
		}
		tenantID = record.TenantID
	}

	record.RefreshToken = token.RefreshToken
	record.AccessToken = token.AccessToken
	record.TenantID = tenantID
	record.TokenType = token.TokenType
	record.ExpiresAt = token.Expiry.Unix()
	record.ObtainedAt = NowTimeFunc().Unix()

	if err := m.store.Save(record); err != nil {
		return nil, fmt.Errorf("[Manager CompleteAuthorization] save record: %w", err)
	}

	log.Info().Str("tenant_id", tenantID).Msg("authorization complete")
	return record.Clone(), nil
}

// AccessToken returns a valid access token, refreshing lazily. A cached token
// that is still valid is returned without a network round trip.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	record, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if record.AccessToken != "" && !accessTokenExpired(record) {
		return record.AccessToken, nil
	}
	return m.refresh(ctx, record)
}

// Refresh forces a refresh grant regardless of the cached token's validity.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	record, err := m.store.Load()
	if err != nil {
		return "", err
	}
	return m.refresh(ctx, record)
}

// refresh performs the refresh grant and persists the rotated refresh token
// before returning the new access token. Callers must hold refreshMu.
func (m *Manager) refresh(ctx context.Context, record *secrets.Record) (string, error) {
	if record.RefreshToken == "" {
		return "", apperrors.Wrapf(apperrors.ErrRefreshFailed, "no refresh token stored")
	}

	source := m.oauth2Config(record).TokenSource(m.httpContext(ctx), &oauth2.Token{
		RefreshToken: record.RefreshToken,
	})
	token, err := source.Token()
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrRefreshFailed, "%v", err)
	}

	// Xero rotates refresh tokens on every refresh; the returned token must
	// be persisted before the access token is handed out, or the stored
	// token is dead on the next run.
	if token.RefreshToken != "" {
		record.RefreshToken = token.RefreshToken
	}
	record.AccessToken = token.AccessToken
	record.TokenType = token.TokenType
	record.ExpiresAt = token.Expiry.Unix()
	record.ObtainedAt = NowTimeFunc().Unix()

	if err := m.store.Save(record); err != nil {
		return "", fmt.Errorf("[Manager refresh] save rotated refresh token: %w", err)
	}
	return token.AccessToken, nil
}

// TenantID returns the stored tenant identifier.
func (m *Manager) TenantID() (string, error) {
	record, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if record.TenantID == "" {
		return "", apperrors.Wrapf(apperrors.ErrNoTenant, "connect the app to an organisation first")
	}
	return record.TenantID, nil
}

// connection is one entry of the provider's connections document.
type connection struct {
	TenantID   string `json:"tenantId"`
	TenantName string `json:"tenantName"`
}

// fetchTenantID queries the connections endpoint for the organisations the
// authorization is scoped to. The first connection wins; additional
// connections are logged so the operator can tell which one was picked.
func (m *Manager) fetchTenantID(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoints.Connections, nil)
	if err != nil {
		return "", fmt.Errorf("[Manager fetchTenantID] build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("[Manager fetchTenantID] %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("[Manager fetchTenantID] connections returned %d: %s", resp.StatusCode, body)
	}

	var connections []connection
	if err := json.NewDecoder(resp.Body).Decode(&connections); err != nil {
		return "", fmt.Errorf("[Manager fetchTenantID] decode connections: %w", err)
	}
	if len(connections) == 0 {
		return "", apperrors.ErrNoTenant
	}
	if len(connections) > 1 {
		for _, c := range connections {
			log.Info().Str("tenant_id", c.TenantID).Str("tenant_name", c.TenantName).
				Msg("multiple tenant connections found, using the first")
		}
	}
	return connections[0].TenantID, nil
}

// accessTokenExpired checks the cached access token's exp claim. Xero access
// tokens are JWTs; the claim is read without signature verification because
// only the timestamp matters here. Tokens that do not parse fall back to the
// stored expiry bookkeeping.
func accessTokenExpired(record *secrets.Record) bool {
	now := NowTimeFunc()

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(record.AccessToken, claims)
	if err == nil {
		if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
			return now.After(exp.Time.Add(-expiryLeeway))
		}
	}

	if record.ExpiresAt == 0 {
		return true
	}
	return now.After(time.Unix(record.ExpiresAt, 0).Add(-expiryLeeway))
}

// logIDTokenClaims records who completed the authorization when an OIDC ID
// token rode along. Claims are informational only, so no verification.
func logIDTokenClaims(token *oauth2.Token) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return
	}
	email, _ := claims["email"].(string)
	sub, _ := claims["sub"].(string)
	log.Info().Str("email", email).Str("sub", sub).Msg("authorized by")
}
