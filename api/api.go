package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/NomadicDaddy/automaker/auth"
)

// API holds the dependencies needed by the auth endpoints and the gating
// middleware.
type API struct {
	validator     *auth.KeyValidator
	sessions      auth.SessionStore
	issuer        *auth.Issuer
	gate          *auth.Gate
	audit         *auditLogger
	secureCookies bool
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithSecureCookies forces the Secure attribute on session cookies even when
// the request itself did not arrive over TLS (e.g. behind a terminating
// proxy that does not set forwarding headers).
func WithSecureCookies() Option {
	return func(a *API) {
		a.secureCookies = true
	}
}

// New creates a new API instance around a bound validator and session store.
func New(validator *auth.KeyValidator, sessions auth.SessionStore, opts ...Option) *API {
	a := &API{
		validator: validator,
		sessions:  sessions,
		issuer:    auth.NewIssuer(sessions),
		gate:      auth.NewGate(validator, sessions),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	return a
}

// Issuer exposes the connection-token issuer for the handshake collaborator
// (streaming/upgrade connections redeem tokens through it).
func (a *API) Issuer() *auth.Issuer {
	return a.issuer
}

// Close stops background sweepers owned by the API.
func (a *API) Close() {
	a.issuer.Close()
}

// Router returns a chi.Router with the auth routes mounted. Login and status
// are reachable without prior authentication; the token endpoint enforces it
// itself so it can answer 401 with the contract's body.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Get("/auth/status", a.Status)
	r.Post("/auth/login", a.Login)
	r.Post("/auth/logout", a.Logout)
	r.Get("/auth/token", a.ConnectionToken)

	return r
}
