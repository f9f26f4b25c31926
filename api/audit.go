package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditLoginSuccess    AuditEvent = "login_success"
	AuditLoginFailure    AuditEvent = "login_failure"
	AuditLogout          AuditEvent = "logout"
	AuditConnTokenIssued AuditEvent = "conn_token_issued"
	AuditConnTokenDenied AuditEvent = "conn_token_denied"
	AuditRequestDenied   AuditEvent = "request_denied"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit entry. Credentials never appear in audit
// attributes; only event metadata does.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("event_id", uuid.NewString()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("path", r.URL.Path),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// logFailure logs a denied or failed authentication attempt.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
