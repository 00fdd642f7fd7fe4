package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types
const (
	EventOTPIssued     = "otp_issued"
	EventOTPVerified   = "otp_verified"
	EventOTPRejected   = "otp_rejected"
	EventUserAdmitted  = "user_admitted"
	EventUserUpdated   = "user_updated"
	EventActiveToggled = "active_toggled"
	EventBulkAction    = "bulk_action"
	EventSessionStart  = "session_start"
	EventSessionEnd    = "session_end"
)

// AuditEvent represents a security-relevant directory event
type AuditEvent struct {
	EventType     string
	ActorEmail    string
	SessionID     string
	TargetID      string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit events through slog
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Log writes a single audit event. Actor emails are masked.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if al == nil || al.logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("audit_type", "directory"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ActorEmail != "" {
		attrs = append(attrs, slog.String("actor", MaskEmail(event.ActorEmail)))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}
	if event.TargetID != "" {
		attrs = append(attrs, slog.String("target_id", event.TargetID))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
