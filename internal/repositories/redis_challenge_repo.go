package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	defaultChallengePrefix = "otp"

	fieldTarget       = "target"
	fieldCodeHash     = "code_hash"
	fieldPendingName  = "pending_name"
	fieldPendingEmail = "pending_email"
	fieldPendingRole  = "pending_role"
	fieldAttemptsLeft = "attempts_left"
	fieldBootstrap    = "bootstrap"
	fieldIssuedAt     = "issued_at"
	fieldExpiresAt    = "expires_at"
)

// RedisChallengeRepository stores challenges as Redis hashes that expire with the challenge
type RedisChallengeRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisChallengeRepository(client *redis.Client, keyPrefix string) *RedisChallengeRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultChallengePrefix
	}

	return &RedisChallengeRepository{client: client, prefix: prefix}
}

func (r *RedisChallengeRepository) Save(ctx context.Context, c *models.OTPChallenge) error {
	if strings.TrimSpace(c.SessionID) == "" {
		return errors.New("session id is required")
	}

	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return errors.New("challenge is already expired")
	}

	key := r.key(c.SessionID)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldTarget:       c.TargetAdminEmail,
		fieldCodeHash:     c.CodeHash,
		fieldPendingName:  c.Pending.Name,
		fieldPendingEmail: c.Pending.Email,
		fieldPendingRole:  string(c.Pending.Role),
		fieldAttemptsLeft: strconv.Itoa(c.AttemptsLeft),
		fieldBootstrap:    strconv.FormatBool(c.Bootstrap),
		fieldIssuedAt:     strconv.FormatInt(c.IssuedAt.UnixMilli(), 10),
		fieldExpiresAt:    strconv.FormatInt(c.ExpiresAt.UnixMilli(), 10),
	})
	pipe.PExpire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store challenge: %w", err)
	}

	return nil
}

func (r *RedisChallengeRepository) Get(ctx context.Context, sessionID string) (*models.OTPChallenge, error) {
	values, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall challenge: %w", err)
	}
	return challengeFromHash(sessionID, values)
}

// reserveAttemptScript decrements attempts_left only while it is positive
// and returns the updated hash. -1 means no challenge, 0 means exhausted.
var reserveAttemptScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
local left = tonumber(redis.call('HGET', KEYS[1], ARGV[1]))
if left == nil or left <= 0 then
	return 0
end
redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
return redis.call('HGETALL', KEYS[1])
`)

// ReserveAttempt takes one verification attempt atomically. The key's TTL
// is untouched because the script never creates the hash.
func (r *RedisChallengeRepository) ReserveAttempt(ctx context.Context, sessionID string) (*models.OTPChallenge, error) {
	res, err := reserveAttemptScript.Run(ctx, r.client, []string{r.key(sessionID)}, fieldAttemptsLeft).Result()
	if err != nil {
		return nil, fmt.Errorf("redis reserve challenge attempt: %w", err)
	}

	switch v := res.(type) {
	case int64:
		if v < 0 {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrChallengeExhausted
	case []any:
		values := make(map[string]string, len(v)/2)
		for i := 0; i+1 < len(v); i += 2 {
			field, _ := v[i].(string)
			value, _ := v[i+1].(string)
			values[field] = value
		}
		return challengeFromHash(sessionID, values)
	default:
		return nil, fmt.Errorf("redis reserve challenge attempt: unexpected reply %T", res)
	}
}

func challengeFromHash(sessionID string, values map[string]string) (*models.OTPChallenge, error) {
	if len(values) == 0 || values[fieldCodeHash] == "" {
		return nil, models.ErrNotFound
	}

	issuedAt, err := parseUnixMilli(values[fieldIssuedAt])
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}

	expiresAt, err := parseUnixMilli(values[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}

	attempts, err := strconv.Atoi(values[fieldAttemptsLeft])
	if err != nil {
		return nil, fmt.Errorf("parse attempts_left: %w", err)
	}

	// Hashes written before the flag existed read as false
	bootstrap, _ := strconv.ParseBool(values[fieldBootstrap])

	return &models.OTPChallenge{
		SessionID:        sessionID,
		TargetAdminEmail: values[fieldTarget],
		CodeHash:         values[fieldCodeHash],
		Pending: models.PendingUser{
			Name:  values[fieldPendingName],
			Email: values[fieldPendingEmail],
			Role:  models.Role(values[fieldPendingRole]),
		},
		AttemptsLeft: attempts,
		Bootstrap:    bootstrap,
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
	}, nil
}

func (r *RedisChallengeRepository) Delete(ctx context.Context, sessionID string) error {
	deleted, err := r.client.Del(ctx, r.key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("redis delete challenge: %w", err)
	}
	if deleted == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteExpired is a no-op; Redis expires challenge keys on its own
func (r *RedisChallengeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisChallengeRepository) key(sessionID string) string {
	return fmt.Sprintf("%s:challenge:%s", r.prefix, strings.TrimSpace(sessionID))
}

func parseUnixMilli(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, errors.New("timestamp is empty")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(v).UTC(), nil
}
