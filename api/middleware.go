package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/NomadicDaddy/automaker/auth"
)

// RequireAuth is the gating middleware applied to every protected route. It
// distinguishes "no attempt" (401) from "failed attempt" (403).
func (a *API) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := a.gate.Authenticate(r)
		if decision.Authenticated {
			next.ServeHTTP(w, r)
			return
		}
		switch decision.Reason {
		case auth.ReasonMissingCredentials:
			a.audit.logFailure(AuditRequestDenied, r, string(decision.Reason))
			writeError(w, http.StatusUnauthorized, "Authentication required.")
		default:
			a.audit.logFailure(AuditRequestDenied, r, string(decision.Reason))
			writeError(w, http.StatusForbidden, "Invalid API key.")
		}
	})
}

func (a *API) writeSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookieSecure(r),
		SameSite: http.SameSiteStrictMode,
		Expires:  expiresAt,
	})
}

func (a *API) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   a.cookieSecure(r),
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// cookieSecure marks cookies Secure when the deployment says so or the
// request already arrived over TLS.
func (a *API) cookieSecure(r *http.Request) bool {
	return a.secureCookies || requestIsSecure(r)
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
