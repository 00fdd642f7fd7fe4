package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a****@example.com"},
		{"a@example.org", "a@example.org"},
		{" bob@localhost ", "b**@localhost"},
		{"not-an-email", "[invalid-email]"},
		{"@example.com", "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskEmail(tt.in), tt.in)
	}
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "code=REDACTED", RedactQuery("code=1234"))
	assert.Equal(t, "Email=REDACTED&q=x", RedactQuery("q=x&Email=a@b.c"))
	assert.Equal(t, "page=2&page_size=5&q=ali", RedactQuery("q=ali&page=2&page_size=5"))
	assert.Equal(t, "", RedactQuery(""))
	assert.Equal(t, "[unparseable]", RedactQuery("q=%zz"))
}

func TestAuditLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.Log(context.Background(), AuditEvent{
		EventType:     EventOTPRejected,
		ActorEmail:    "admin@example.com",
		SessionID:     "s1",
		Success:       false,
		FailureReason: "invalid_code",
		Metadata:      map[string]string{"attempts_left": "4"},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, EventOTPRejected, entry["event_type"])
	assert.Equal(t, "a****@example.com", entry["actor"])
	assert.Equal(t, "4", entry["attempts_left"])
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var al *AuditLogger
	al.Log(context.Background(), AuditEvent{EventType: EventBulkAction, Success: true})
}
