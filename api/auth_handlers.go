package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/NomadicDaddy/automaker/auth"
)

// Status handles GET /api/auth/status. It reports the current authentication
// state without ever rejecting the request.
func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Success:       true,
		Authenticated: a.gate.IsRequestAuthenticated(r),
		Required:      true,
	})
}

// Login handles POST /api/auth/login. A valid API key exchanges for a new
// session, carried both as an HttpOnly cookie and in the response body.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r, maxAuthBodySize)
	if !ok {
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required.")
		return
	}
	if !a.validator.Validate(req.APIKey) {
		a.audit.logFailure(AuditLoginFailure, r, "invalid api key")
		writeError(w, http.StatusUnauthorized, "Invalid API key.")
		return
	}

	token, err := a.sessions.Create(r.Context())
	if err != nil {
		// Entropy or persistence failure: the security guarantee cannot be
		// upheld, so surface it loudly instead of degrading.
		a.audit.logFailure(AuditLoginFailure, r, "session creation failed")
		writeError(w, http.StatusInternalServerError, "Failed to create session.")
		return
	}
	a.writeSessionCookie(w, r, token, time.Now().Add(auth.SessionTTL))

	a.audit.log(AuditLoginSuccess, r)
	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Logged in successfully.",
		Token:   token,
	})
}

// Logout handles POST /api/auth/logout. It is idempotent: the response is
// 200 whether or not a live session was presented.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.SessionToken(r); ok {
		if err := a.sessions.Invalidate(r.Context(), token); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to end session.")
			return
		}
	}
	a.clearSessionCookie(w, r)
	a.audit.log(AuditLogout, r)
	writeJSON(w, http.StatusOK, LogoutResponse{
		Success: true,
		Message: "Logged out successfully.",
	})
}

// ConnectionToken handles GET /api/auth/token. It mints a short-lived token
// for handshake-only authentication, bound to the caller's session.
func (a *API) ConnectionToken(w http.ResponseWriter, r *http.Request) {
	if !a.gate.IsRequestAuthenticated(r) {
		a.audit.logFailure(AuditConnTokenDenied, r, "not authenticated")
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	if sessionToken, ok := auth.SessionToken(r); ok {
		token, err := a.issuer.Issue(r.Context(), sessionToken)
		if err == nil {
			a.writeConnectionToken(w, r, token)
			return
		}
		if !errors.Is(err, auth.ErrNotAuthenticated) {
			writeError(w, http.StatusInternalServerError, "Failed to create token.")
			return
		}
		if r.Header.Get(auth.APIKeyHeader) == "" {
			// The session was the authenticating credential and it lapsed
			// between the gate check and issuance.
			a.audit.logFailure(AuditConnTokenDenied, r, "session invalid at issue")
			writeError(w, http.StatusUnauthorized, "Authentication required.")
			return
		}
		// A stale session token rode along with the valid API key that
		// opened the gate; ignore it and fall through.
	}

	// API-key callers have no live session to bind a token to; mint one so
	// the token still traces back to a live session.
	sessionToken, err := a.sessions.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session.")
		return
	}
	token, err := a.issuer.Issue(r.Context(), sessionToken)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create token.")
		return
	}
	a.writeConnectionToken(w, r, token)
}

func (a *API) writeConnectionToken(w http.ResponseWriter, r *http.Request, token string) {
	a.audit.log(AuditConnTokenIssued, r)
	writeJSON(w, http.StatusOK, TokenResponse{
		Success:   true,
		Token:     token,
		ExpiresIn: int(auth.ConnTokenTTL.Seconds()),
	})
}
