package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/akumi07/RoleMaster21/internal/database"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

const challengeColumns = `session_id, target_admin_email, code_hash, pending_name, pending_email,
	pending_role, attempts_left, bootstrap, issued_at, expires_at`

// OTPChallengeRepository keeps at most one outstanding challenge per session in PostgreSQL
type OTPChallengeRepository struct {
	pool *pgxpool.Pool
}

func NewOTPChallengeRepository(db *database.DB) *OTPChallengeRepository {
	return &OTPChallengeRepository{pool: db.Pool}
}

// Save stores the challenge, replacing any previous challenge for the session
func (r *OTPChallengeRepository) Save(ctx context.Context, c *models.OTPChallenge) error {
	query := `
		INSERT INTO otp_challenges (` + challengeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE SET
			target_admin_email = EXCLUDED.target_admin_email,
			code_hash = EXCLUDED.code_hash,
			pending_name = EXCLUDED.pending_name,
			pending_email = EXCLUDED.pending_email,
			pending_role = EXCLUDED.pending_role,
			attempts_left = EXCLUDED.attempts_left,
			bootstrap = EXCLUDED.bootstrap,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := r.pool.Exec(ctx, query,
		c.SessionID, c.TargetAdminEmail, c.CodeHash,
		c.Pending.Name, c.Pending.Email, string(c.Pending.Role),
		c.AttemptsLeft, c.Bootstrap, c.IssuedAt, c.ExpiresAt,
	)

	return database.MapPostgresError(err)
}

func scanChallenge(row rowScanner) (*models.OTPChallenge, error) {
	var c models.OTPChallenge
	var role string

	err := row.Scan(
		&c.SessionID, &c.TargetAdminEmail, &c.CodeHash,
		&c.Pending.Name, &c.Pending.Email, &role,
		&c.AttemptsLeft, &c.Bootstrap, &c.IssuedAt, &c.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	c.Pending.Role = models.Role(role)
	return &c, nil
}

func (r *OTPChallengeRepository) Get(ctx context.Context, sessionID string) (*models.OTPChallenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM otp_challenges WHERE session_id = $1`
	return scanChallenge(r.pool.QueryRow(ctx, query, sessionID))
}

// ReserveAttempt takes one verification attempt in the same statement that
// checks the budget, so concurrent guesses can never exceed it. The
// returned challenge carries the attempts left after this one.
func (r *OTPChallengeRepository) ReserveAttempt(ctx context.Context, sessionID string) (*models.OTPChallenge, error) {
	query := `
		UPDATE otp_challenges SET attempts_left = attempts_left - 1
		WHERE session_id = $1 AND attempts_left > 0
		RETURNING ` + challengeColumns

	c, err := scanChallenge(r.pool.QueryRow(ctx, query, sessionID))
	if !errors.Is(err, models.ErrNotFound) {
		return c, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM otp_challenges WHERE session_id = $1)`, sessionID).Scan(&exists); err != nil {
		return nil, database.MapPostgresError(err)
	}
	if exists {
		return nil, models.ErrChallengeExhausted
	}
	return nil, models.ErrNotFound
}

// Delete removes the challenge; ErrNotFound means another caller consumed it first
func (r *OTPChallengeRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM otp_challenges WHERE session_id = $1`, sessionID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// DeleteExpired removes challenges that expired before the given time (call periodically)
func (r *OTPChallengeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM otp_challenges WHERE expires_at < $1`, before)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
