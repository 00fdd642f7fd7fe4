package repositories

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/akumi07/RoleMaster21/internal/database"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = "id, name, email, role, active, created_at, updated_at"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// UserRepository is the PostgreSQL-backed user directory
type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var role string

	err := scanner.Scan(
		&user.ID, &user.Name, &user.Email, &role, &user.Active,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Role = models.Role(role)
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) selectUsers(ctx context.Context, where sq.Sqlizer) ([]*models.User, error) {
	builder := psql.Select(userColumns).From("users").OrderBy("created_at ASC", "id ASC")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// List returns the full directory snapshot, oldest first
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	return r.selectUsers(ctx, nil)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// QueryByEmail returns every record whose email equals the normalized email
func (r *UserRepository) QueryByEmail(ctx context.Context, email string) ([]*models.User, error) {
	return r.selectUsers(ctx, sq.Eq{"email": models.NormalizeEmail(email)})
}

// QueryByRole returns every record holding the given role
func (r *UserRepository) QueryByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	return r.selectUsers(ctx, sq.Eq{"role": string(role)})
}

// Insert creates a record and assigns its id
func (r *UserRepository) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query, args, err := psql.Insert("users").
		Columns("id", "name", "email", "role", "active", "created_at", "updated_at").
		Values(uuid.New().String(), user.Name, models.NormalizeEmail(user.Email), string(user.Role), user.Active, now, now).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	return scanUserRow(r.pool.QueryRow(ctx, query, args...))
}

// InsertFirstAdmin creates user as an admin only while the directory has
// no admin, keeping the caller's active flag. The table lock serializes
// concurrent first-admin inserts.
func (r *UserRepository) InsertFirstAdmin(ctx context.Context, user *models.User) (*models.User, error) {
	var created *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}

		var admins int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, string(models.RoleAdmin)).Scan(&admins); err != nil {
			return err
		}
		if admins > 0 {
			return models.ErrConflict
		}

		now := time.Now()
		query, args, err := psql.Insert("users").
			Columns("id", "name", "email", "role", "active", "created_at", "updated_at").
			Values(uuid.New().String(), user.Name, models.NormalizeEmail(user.Email), string(models.RoleAdmin), user.Active, now, now).
			Suffix("RETURNING " + userColumns).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert: %w", err)
		}

		created, err = scanUserRow(tx.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return created, nil
}

// UpdateFields applies a partial update; unset fields are left untouched
func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields models.UserFields) (*models.User, error) {
	builder := psql.Update("users").Set("updated_at", time.Now())

	if fields.Name != nil {
		builder = builder.Set("name", *fields.Name)
	}
	if fields.Email != nil {
		builder = builder.Set("email", models.NormalizeEmail(*fields.Email))
	}
	if fields.Role != nil {
		builder = builder.Set("role", string(*fields.Role))
	}
	if fields.Active != nil {
		builder = builder.Set("active", *fields.Active)
	}

	query, args, err := builder.
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	return scanUserRow(r.pool.QueryRow(ctx, query, args...))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
