package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NomadicDaddy/automaker/api"
	"github.com/NomadicDaddy/automaker/auth"
)

const testAPIKey = "sk-automaker-test"

func setupServer(t *testing.T) (*httptest.Server, *api.API) {
	t.Helper()
	sessions := auth.NewMemorySessionStore()
	t.Cleanup(func() { sessions.Close() })

	a := api.New(auth.NewKeyValidator(testAPIKey), sessions)
	t.Cleanup(a.Close)

	r := chi.NewRouter()
	r.Use(api.SecurityHeaders)
	r.Mount("/api", a.Router())
	r.Group(func(r chi.Router) {
		r.Use(a.RequireAuth)
		r.Get("/protected", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, a
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, &reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func login(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	resp := doJSON(t, client, http.MethodPost, baseURL+"/api/auth/login", api.LoginRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.LoginResponse](t, resp)
	require.True(t, body.Success)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestStatusBeforeAndAfterLogin(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodGet, srv.URL+"/api/auth/status", nil)
	status := decodeBody[api.StatusResponse](t, resp)
	assert.True(t, status.Success)
	assert.True(t, status.Required)
	assert.False(t, status.Authenticated)

	login(t, client, srv.URL)

	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/auth/status", nil)
	status = decodeBody[api.StatusResponse](t, resp)
	assert.True(t, status.Authenticated)
}

func TestLoginMissingKey(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.False(t, body.Success)
	assert.Equal(t, "API key is required.", body.Error)
}

func TestLoginWrongKey(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/login", api.LoginRequest{APIKey: "sk-wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, resp.Cookies(), "no cookie may be set on a failed login")
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "Invalid API key.", body.Error)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/login", api.LoginRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.SessionCookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "expected session cookie on login")
	assert.True(t, sessionCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, sessionCookie.SameSite)
	assert.Equal(t, "/", sessionCookie.Path)

	body := decodeBody[api.LoginResponse](t, resp)
	assert.Equal(t, "Logged in successfully.", body.Message)
	assert.Equal(t, sessionCookie.Value, body.Token)
}

func TestGatedRoute(t *testing.T) {
	srv, _ := setupServer(t)

	// No credential at all.
	resp := doJSON(t, newClient(t), http.MethodGet, srv.URL+"/protected", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "Authentication required.", body.Error)

	// Wrong API key.
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/protected", nil)
	require.NoError(t, err)
	req.Header.Set(auth.APIKeyHeader, "sk-wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body = decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "Invalid API key.", body.Error)

	// Right API key.
	req, err = http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/protected", nil)
	require.NoError(t, err)
	req.Header.Set(auth.APIKeyHeader, testAPIKey)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Session cookie from a login.
	client := newClient(t)
	login(t, client, srv.URL)
	resp = doJSON(t, client, http.MethodGet, srv.URL+"/protected", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionTokenHeaderCarry(t *testing.T) {
	srv, _ := setupServer(t)
	token := login(t, newClient(t), srv.URL)

	// A cookie-less client presents the in-body token via header.
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/protected", nil)
	require.NoError(t, err)
	req.Header.Set(auth.SessionTokenHeader, token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)
	login(t, client, srv.URL)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.LogoutResponse](t, resp)
	assert.Equal(t, "Logged out successfully.", body.Message)

	// The (now stale) session no longer opens the gate.
	resp = doJSON(t, client, http.MethodGet, srv.URL+"/protected", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Logout is idempotent.
	resp = doJSON(t, client, http.MethodPost, srv.URL+"/api/auth/logout", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutWithStaleCookieStillSucceeds(t *testing.T) {
	srv, _ := setupServer(t)
	client := newClient(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+"/api/auth/logout", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "never-was-a-session"})
	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestConnectionToken(t *testing.T) {
	srv, a := setupServer(t)

	// Unauthenticated callers are refused.
	resp := doJSON(t, newClient(t), http.MethodGet, srv.URL+"/api/auth/token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	errBody := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "Authentication required.", errBody.Error)

	// A logged-in client gets a redeemable five-minute token.
	client := newClient(t)
	sessionToken := login(t, client, srv.URL)
	resp = doJSON(t, client, http.MethodGet, srv.URL+"/api/auth/token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.TokenResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, 300, body.ExpiresIn)
	assert.NotEmpty(t, body.Token)
	assert.NotEqual(t, sessionToken, body.Token, "connection tokens live in their own namespace")
	assert.True(t, a.Issuer().Redeem(body.Token))

	// A stale session token is never accepted as a connection token.
	assert.False(t, a.Issuer().Redeem(sessionToken))
}

func TestConnectionTokenWithAPIKey(t *testing.T) {
	srv, a := setupServer(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/auth/token", nil)
	require.NoError(t, err)
	req.Header.Set(auth.APIKeyHeader, testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.TokenResponse](t, resp)
	assert.True(t, a.Issuer().Redeem(body.Token))
}

func TestConnectionTokenAPIKeyWithStaleSession(t *testing.T) {
	srv, a := setupServer(t)

	// A valid API key opens the gate even when a stale session credential
	// rides along; the stale token must not block issuance.
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/auth/token", nil)
	require.NoError(t, err)
	req.Header.Set(auth.APIKeyHeader, testAPIKey)
	req.Header.Set(auth.SessionTokenHeader, "long-gone-session-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[api.TokenResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, 300, body.ExpiresIn)
	assert.True(t, a.Issuer().Redeem(body.Token))

	// Same rider as a stale cookie.
	req, err = http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/auth/token", nil)
	require.NoError(t, err)
	req.Header.Set(auth.APIKeyHeader, testAPIKey)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "long-gone-session-token"})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody[api.TokenResponse](t, resp)
	assert.True(t, a.Issuer().Redeem(body.Token))
}

func TestConnectionTokenStaleSessionOnly(t *testing.T) {
	srv, _ := setupServer(t)

	// Without a valid key, a stale session credential stays a 401.
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/api/auth/token", nil)
	require.NoError(t, err)
	req.Header.Set(auth.SessionTokenHeader, "long-gone-session-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, "Authentication required.", body.Error)
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := setupServer(t)

	resp := doJSON(t, newClient(t), http.MethodGet, srv.URL+"/api/auth/status", nil)
	resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", resp.Header.Get("Content-Security-Policy"))
}
