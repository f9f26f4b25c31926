package api

// JSON field names follow the wire contract consumed by the automaker web
// client, which is camelCase throughout.

// StatusResponse is returned from GET /api/auth/status.
type StatusResponse struct {
	Success       bool `json:"success"`
	Authenticated bool `json:"authenticated"`
	Required      bool `json:"required"`
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	APIKey string `json:"apiKey"`
}

// LoginResponse is returned from POST /api/auth/login. The session token is
// also returned in-body for clients that cannot rely on cross-origin cookies.
type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

// TokenResponse is returned from GET /api/auth/token.
type TokenResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// LogoutResponse is returned from POST /api/auth/logout.
type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the structured rejection body for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
