package xeroauth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/expo-laith/xero-ap-automation/internal/errors"
	"github.com/expo-laith/xero-ap-automation/secrets"
	"github.com/expo-laith/xero-ap-automation/secrets/repofake"
	"github.com/expo-laith/xero-ap-automation/xeroauth"
)

// fakeProvider is a minimal identity server: a token endpoint handling the
// authorization_code and refresh_token grants, and a connections endpoint.
type fakeProvider struct {
	server *httptest.Server

	mu            sync.Mutex
	tokenRequests []url.Values
	basicAuthOK   bool

	acceptCode      string
	nextAccessToken string
	nextRefresh     string
	expiresIn       int
	rejectRefresh   bool
	connections     []map[string]string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		acceptCode:      "good-code",
		nextAccessToken: "A2",
		nextRefresh:     "R2",
		expiresIn:       1800,
		connections: []map[string]string{
			{"tenantId": "tenant-1", "tenantName": "Demo Org"},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /connect/token", p.tokenHandler)
	mux.HandleFunc("GET /connections", p.connectionsHandler)
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) endpoints() xeroauth.Endpoints {
	return xeroauth.Endpoints{
		Issuer:      p.server.URL,
		Authorize:   p.server.URL + "/identity/connect/authorize",
		Token:       p.server.URL + "/connect/token",
		Connections: p.server.URL + "/connections",
	}
}

func (p *fakeProvider) tokenHandler(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	p.mu.Lock()
	p.tokenRequests = append(p.tokenRequests, r.PostForm)
	if _, _, ok := r.BasicAuth(); ok {
		p.basicAuthOK = true
	}
	reject := false
	switch r.PostFormValue("grant_type") {
	case "authorization_code":
		reject = r.PostFormValue("code") != p.acceptCode
	case "refresh_token":
		reject = p.rejectRefresh
	default:
		reject = true
	}
	resp := map[string]any{
		"access_token":  p.nextAccessToken,
		"refresh_token": p.nextRefresh,
		"token_type":    "Bearer",
		"expires_in":    p.expiresIn,
	}
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if reject {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (p *fakeProvider) connectionsHandler(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	conns := p.connections
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(conns)
}

func (p *fakeProvider) tokenRequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tokenRequests)
}

func seededStore() *repofake.FakeSecretsStore {
	store := repofake.NewFakeSecretsStore()
	store.Seed(&secrets.Record{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "http://localhost:8080/callback",
		Scopes:       []string{"accounting.transactions", "offline_access"},
		RefreshToken: "R1",
		TenantID:     "tenant-1",
	})
	return store
}

func TestAuthorizeURL(t *testing.T) {
	provider := newFakeProvider(t)
	store := seededStore()
	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	authURL, err := manager.AuthorizeURL("state-123")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "/identity/connect/authorize", parsed.Path)

	q := parsed.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "client-1", q.Get("client_id"))
	require.Equal(t, "http://localhost:8080/callback", q.Get("redirect_uri"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Contains(t, q.Get("scope"), "offline_access")

	// URL construction must have no side effects.
	require.Equal(t, 0, store.Saves)
	require.Equal(t, 0, provider.tokenRequestCount())
}

func TestAuthorizeURLMissingSecrets(t *testing.T) {
	provider := newFakeProvider(t)
	manager := xeroauth.NewManager(repofake.NewFakeSecretsStore(), provider.endpoints(), provider.server.Client())

	_, err := manager.AuthorizeURL("state-123")
	require.ErrorIs(t, err, apperrors.ErrMissingSecretsFile)
}

func TestCompleteAuthorizationPersistsTokensAndTenant(t *testing.T) {
	provider := newFakeProvider(t)
	store := repofake.NewFakeSecretsStore()
	store.Seed(&secrets.Record{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "http://localhost:8080/callback",
		Scopes:       []string{"accounting.transactions", "offline_access"},
	})
	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	record, err := manager.CompleteAuthorization(context.Background(), "good-code")
	require.NoError(t, err)
	require.Equal(t, "R2", record.RefreshToken)
	require.Equal(t, "tenant-1", record.TenantID)

	stored, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "R2", stored.RefreshToken)
	require.Equal(t, "A2", stored.AccessToken)
	require.Equal(t, "tenant-1", stored.TenantID)
	require.True(t, stored.Authorized())
	require.True(t, provider.basicAuthOK, "token endpoint must be called with Basic client auth")
}

func TestCompleteAuthorizationRejectedCodeLeavesRecordUnchanged(t *testing.T) {
	provider := newFakeProvider(t)
	store := seededStore()
	before, err := store.Load()
	require.NoError(t, err)

	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	_, err = manager.CompleteAuthorization(context.Background(), "bad-code")
	require.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)

	after, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.Equal(t, before, after)
	require.Equal(t, 0, store.Saves)
}

func TestCompleteAuthorizationNoConnections(t *testing.T) {
	provider := newFakeProvider(t)
	provider.connections = nil

	store := repofake.NewFakeSecretsStore()
	store.Seed(&secrets.Record{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "http://localhost:8080/callback",
	})
	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	_, err := manager.CompleteAuthorization(context.Background(), "good-code")
	require.ErrorIs(t, err, apperrors.ErrNoTenant)
	require.Equal(t, 0, store.Saves)
}

func TestRefreshPersistsRotatedToken(t *testing.T) {
	provider := newFakeProvider(t)
	store := seededStore()
	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	accessToken, err := manager.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, "A2", accessToken)

	stored, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "R2", stored.RefreshToken)
	require.Equal(t, "tenant-1", stored.TenantID)
	require.Equal(t, "client-1", stored.ClientID)

	// The refresh grant must have been requested with the previous token.
	require.Equal(t, "R1", provider.tokenRequests[0].Get("refresh_token"))
	require.Equal(t, "refresh_token", provider.tokenRequests[0].Get("grant_type"))
}

func TestRefreshWithoutStoredToken(t *testing.T) {
	provider := newFakeProvider(t)
	store := repofake.NewFakeSecretsStore()
	store.Seed(&secrets.Record{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "http://localhost:8080/callback",
	})
	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	_, err := manager.Refresh(context.Background())
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.Equal(t, 0, provider.tokenRequestCount())
}

func TestRefreshRejectedByProvider(t *testing.T) {
	provider := newFakeProvider(t)
	provider.rejectRefresh = true
	store := seededStore()
	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	_, err := manager.Refresh(context.Background())
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)

	stored, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.Equal(t, "R1", stored.RefreshToken, "rejected refresh must not clobber the stored token")
}

func TestAccessTokenUsesCachedTokenWhileValid(t *testing.T) {
	provider := newFakeProvider(t)
	store := seededStore()

	record, err := store.Load()
	require.NoError(t, err)
	record.AccessToken = "cached-token"
	record.ExpiresAt = time.Now().Add(30 * time.Minute).Unix()
	require.NoError(t, store.Save(record))

	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	accessToken, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "cached-token", accessToken)
	require.Equal(t, 0, provider.tokenRequestCount())
}

func TestAccessTokenRefreshesExpiredToken(t *testing.T) {
	provider := newFakeProvider(t)
	store := seededStore()

	record, err := store.Load()
	require.NoError(t, err)
	record.AccessToken = "stale-token"
	record.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	require.NoError(t, store.Save(record))

	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	accessToken, err := manager.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "A2", accessToken)

	stored, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "R2", stored.RefreshToken)
}

func TestConcurrentAccessTokenRefreshesOnce(t *testing.T) {
	provider := newFakeProvider(t)
	store := seededStore()
	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())

	const callers = 8
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = manager.AccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], fmt.Sprintf("caller %d", i))
		require.Equal(t, "A2", tokens[i])
	}
	require.Equal(t, 1, provider.tokenRequestCount(), "overlapping callers must share one refresh")
}

func TestRotationExample(t *testing.T) {
	// Stored R1, provider returns R2: the store must end up holding R2 with
	// no other credential field altered.
	provider := newFakeProvider(t)
	store := seededStore()
	before, err := store.Load()
	require.NoError(t, err)

	manager := xeroauth.NewManager(store, provider.endpoints(), provider.server.Client())
	_, err = manager.Refresh(context.Background())
	require.NoError(t, err)

	after, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "R2", after.RefreshToken)
	require.Equal(t, before.ClientID, after.ClientID)
	require.Equal(t, before.ClientSecret, after.ClientSecret)
	require.Equal(t, before.RedirectURI, after.RedirectURI)
	require.Equal(t, before.Scopes, after.Scopes)
	require.Equal(t, before.TenantID, after.TenantID)
}
