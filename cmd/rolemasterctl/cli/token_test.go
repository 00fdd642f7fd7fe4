package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCmd_SignsExchangeableProviderToken(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("SESSION_SECRET", "cli-session-secret-32-characters")
	t.Setenv("AUTH_PROVIDER_SECRET", "cli-provider-secret-32-characters")
	t.Setenv("DB_PASSWORD", "test")
	t.Setenv("MAIL_FROM_ADDRESS", "no-reply@example.com")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "Ada@Example.com", "--user-id", "u1"})
	require.NoError(t, cmd.Execute())

	token := strings.TrimSpace(out.String())
	sm := auth.NewSessionManager("cli-session-secret-32-characters", time.Hour, time.Hour).
		WithProvider("cli-provider-secret-32-characters", "")

	_, err := sm.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	_, claims, err := sm.Exchange(token, false)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "u1", claims.UserID)
}
