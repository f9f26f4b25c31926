package auth

import "net/http"

// Credential carrier channels accepted by the gate, in precedence order.
const (
	APIKeyHeader       = "X-API-Key"
	SessionTokenHeader = "X-Session-Token"
)

// Reason classifies why a request was not authenticated.
type Reason string

const (
	// ReasonMissingCredentials means no credential of any kind was presented.
	ReasonMissingCredentials Reason = "missing_credentials"
	// ReasonInvalidAPIKey means an API key was presented but did not match.
	ReasonInvalidAPIKey Reason = "invalid_api_key"
	// ReasonInvalidSession means a session token was presented but is
	// unknown or expired.
	ReasonInvalidSession Reason = "invalid_or_expired_session"
)

// Decision is the outcome of authenticating one request. Unauthenticated
// outcomes carry a Reason; there is no error channel, callers compose the
// outcome into an HTTP status directly.
type Decision struct {
	Authenticated bool
	Reason        Reason
}

type credentialKind int

const (
	credAPIKey credentialKind = iota
	credSession
)

type credential struct {
	kind  credentialKind
	value string
}

// extractor optionally produces a candidate credential from a request.
type extractor func(r *http.Request) (credential, bool)

// Gate is the composed authentication decision shared by the gating
// middleware and the status endpoint.
type Gate struct {
	validator  *KeyValidator
	sessions   SessionStore
	extractors []extractor
}

// NewGate composes a validator and a session store into a request gate.
func NewGate(validator *KeyValidator, sessions SessionStore) *Gate {
	return &Gate{
		validator: validator,
		sessions:  sessions,
		extractors: []extractor{
			extractAPIKeyHeader,
			extractSessionCookie,
			extractSessionHeader,
		},
	}
}

// Authenticate classifies the request. Extractors run in fixed precedence
// order (API key header, session cookie, session token header); the first
// structurally-present credential is the one judged, valid or not.
func (g *Gate) Authenticate(r *http.Request) Decision {
	for _, extract := range g.extractors {
		cred, ok := extract(r)
		if !ok {
			continue
		}
		switch cred.kind {
		case credAPIKey:
			if g.validator.Validate(cred.value) {
				return Decision{Authenticated: true}
			}
			return Decision{Reason: ReasonInvalidAPIKey}
		case credSession:
			if _, ok := g.sessions.Get(r.Context(), cred.value); ok {
				return Decision{Authenticated: true}
			}
			return Decision{Reason: ReasonInvalidSession}
		}
	}
	return Decision{Reason: ReasonMissingCredentials}
}

// IsRequestAuthenticated is the read-only form of Authenticate used by the
// status endpoint. It never rejects the request.
func (g *Gate) IsRequestAuthenticated(r *http.Request) bool {
	return g.Authenticate(r).Authenticated
}

// SessionToken returns the session token carried by the request, whether by
// cookie or header, without judging its validity.
func SessionToken(r *http.Request) (string, bool) {
	if cred, ok := extractSessionCookie(r); ok {
		return cred.value, true
	}
	if cred, ok := extractSessionHeader(r); ok {
		return cred.value, true
	}
	return "", false
}

func extractAPIKeyHeader(r *http.Request) (credential, bool) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		return credential{}, false
	}
	return credential{kind: credAPIKey, value: key}, true
}

func extractSessionCookie(r *http.Request) (credential, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return credential{}, false
	}
	return credential{kind: credSession, value: cookie.Value}, true
}

func extractSessionHeader(r *http.Request) (credential, bool) {
	token := r.Header.Get(SessionTokenHeader)
	if token == "" {
		return credential{}, false
	}
	return credential{kind: credSession, value: token}, true
}
