package auth

import (
	"testing"
	"time"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

func TestSessionManager_IssueAndValidate(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, 30*24*time.Hour)

	token, claims, err := sm.Issue("uid-1", " Admin@Example.com ", false)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "admin@example.com", claims.Email)

	got, err := sm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", got.UserID)
	assert.Equal(t, claims.ID, got.ID)
	assert.False(t, got.RememberMe)
}

func TestSessionManager_RememberMeExpiry(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, 30*24*time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	_, short, err := sm.Issue("uid-1", "a@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), short.ExpiresAt.Time)

	_, long, err := sm.Issue("uid-1", "a@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*24*time.Hour), long.ExpiresAt.Time)
	assert.True(t, long.RememberMe)
}

func TestSessionManager_ValidateRejects(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, time.Hour)
	other := NewSessionManager("another-secret-32-characters-long", time.Hour, time.Hour)

	forged, _, err := other.Issue("uid-1", "a@example.com", false)
	require.NoError(t, err)

	expiredManager := NewSessionManager(testSecret, time.Hour, time.Hour)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredManager.Issue("uid-1", "a@example.com", false)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.SessionClaims{Email: "a@example.com"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.SessionClaims{Email: "a@example.com"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", forged},
		{"expired", expired},
		{"alg none", noneToken},
		{"missing expiry", noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sm.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSessionManager_Exchange(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, 30*24*time.Hour)

	provider, err := SignProviderToken(testSecret, "", "provider-uid", "admin@example.com", time.Minute)
	require.NoError(t, err)

	token, claims, err := sm.Exchange(provider, true)
	require.NoError(t, err)
	assert.NotEqual(t, provider, token)
	assert.True(t, claims.RememberMe)
	assert.Equal(t, "provider-uid", claims.UserID)

	_, err = sm.Validate(token)
	assert.NoError(t, err)

	_, _, err = sm.Exchange("bogus", false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionManager_TokenKindsAreNotInterchangeable(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, time.Hour)

	session, _, err := sm.Issue("uid-1", "a@example.com", false)
	require.NoError(t, err)
	_, _, err = sm.Exchange(session, true)
	assert.ErrorIs(t, err, ErrInvalidToken, "a session token cannot be exchanged for a fresh one")

	provider, err := SignProviderToken(testSecret, "", "uid-1", "a@example.com", time.Minute)
	require.NoError(t, err)
	_, err = sm.Validate(provider)
	assert.ErrorIs(t, err, ErrInvalidToken, "a provider token is not a session")
}

func TestSessionManager_ProviderKeyAndIssuer(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, time.Hour).
		WithProvider("provider-secret-with-32-characters", "https://id.example.com")

	good, err := SignProviderToken("provider-secret-with-32-characters", "https://id.example.com", "uid-1", "a@example.com", time.Minute)
	require.NoError(t, err)
	_, _, err = sm.Exchange(good, false)
	assert.NoError(t, err)

	wrongIssuer, err := SignProviderToken("provider-secret-with-32-characters", "https://other.example.com", "uid-1", "a@example.com", time.Minute)
	require.NoError(t, err)
	_, _, err = sm.Exchange(wrongIssuer, false)
	assert.ErrorIs(t, err, ErrInvalidToken)

	sessionKey, err := SignProviderToken(testSecret, "https://id.example.com", "uid-1", "a@example.com", time.Minute)
	require.NoError(t, err)
	_, _, err = sm.Exchange(sessionKey, false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionManager_IssueRequiresEmail(t *testing.T) {
	sm := NewSessionManager(testSecret, time.Hour, time.Hour)

	_, _, err := sm.Issue("uid-1", "  ", false)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
