package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks
var ErrInvalidToken = errors.New("invalid or expired token")

// Session and provider tokens are told apart by audience, so one can
// never be presented as the other.
const (
	SessionIssuer    = "rolemaster"
	SessionAudience  = "rolemaster-session"
	ProviderAudience = "rolemaster-provider"
)

// SessionManager signs and validates the session token kept in the user cookie
type SessionManager struct {
	secret           string
	providerSecret   string
	providerIssuer   string
	sessionExpiry    time.Duration
	rememberMeExpiry time.Duration
	now              func() time.Time
}

// NewSessionManager creates a new SessionManager. Provider tokens are
// checked against the same secret until WithProvider says otherwise.
func NewSessionManager(secret string, sessionExpiry, rememberMeExpiry time.Duration) *SessionManager {
	return &SessionManager{
		secret:           secret,
		providerSecret:   secret,
		sessionExpiry:    sessionExpiry,
		rememberMeExpiry: rememberMeExpiry,
		now:              time.Now,
	}
}

// WithProvider sets the key and issuer expected on identity provider
// tokens. An empty issuer accepts any.
func (sm *SessionManager) WithProvider(secret, issuer string) *SessionManager {
	if secret != "" {
		sm.providerSecret = secret
	}
	sm.providerIssuer = issuer
	return sm
}

// Expiry returns how long a session lasts
func (sm *SessionManager) Expiry(rememberMe bool) time.Duration {
	if rememberMe {
		return sm.rememberMeExpiry
	}
	return sm.sessionExpiry
}

// Issue creates a signed session token. Each token carries a fresh id
// that also scopes the session's one-time codes and selection.
func (sm *SessionManager) Issue(userID, email string, rememberMe bool) (string, *models.SessionClaims, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return "", nil, fmt.Errorf("%w: email is required", ErrInvalidToken)
	}

	now := sm.now()
	claims := &models.SessionClaims{
		UserID:     userID,
		Email:      email,
		RememberMe: rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    SessionIssuer,
			Audience:  jwt.ClaimStrings{SessionAudience},
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.Expiry(rememberMe))),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(sm.secret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, claims, nil
}

// Validate verifies a session token and returns its claims
func (sm *SessionManager) Validate(tokenString string) (*models.SessionClaims, error) {
	return sm.parse(tokenString, sm.secret,
		jwt.WithIssuer(SessionIssuer),
		jwt.WithAudience(SessionAudience),
	)
}

func (sm *SessionManager) parse(tokenString, secret string, opts ...jwt.ParserOption) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.now),
	)

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || strings.TrimSpace(claims.Email) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Exchange validates a token issued by the identity provider and returns
// a session token with the requested lifetime. Session tokens are refused.
func (sm *SessionManager) Exchange(providerToken string, rememberMe bool) (string, *models.SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithAudience(ProviderAudience)}
	if sm.providerIssuer != "" {
		opts = append(opts, jwt.WithIssuer(sm.providerIssuer))
	}

	provider, err := sm.parse(providerToken, sm.providerSecret, opts...)
	if err != nil {
		return "", nil, err
	}

	userID := provider.UserID
	if userID == "" {
		userID = provider.Subject
	}

	return sm.Issue(userID, provider.Email, rememberMe)
}

// SignProviderToken mints a token shaped like the identity provider's,
// for local development against a shared secret.
func SignProviderToken(secret, issuer, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.SessionClaims{
		UserID: userID,
		Email:  models.NormalizeEmail(email),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{ProviderAudience},
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign provider token: %w", err)
	}
	return signed, nil
}
