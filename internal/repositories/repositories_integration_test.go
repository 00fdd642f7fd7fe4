//go:build integration

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/akumi07/RoleMaster21/internal/database"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDatabase starts PostgreSQL in a container and applies all migrations
func setupTestDatabase(t *testing.T) (*database.DB, string) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("rolemaster"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.NewFromPool(pool, nil)
	require.NoError(t, db.Migrate(ctx))

	return db, connStr
}

func TestUserRepository_Integration(t *testing.T) {
	db, _ := setupTestDatabase(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice, err := repo.Insert(ctx, &models.User{Name: "Alice", Email: " Alice@Example.com ", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, "alice@example.com", alice.Email)
	assert.False(t, alice.Active)

	bob, err := repo.Insert(ctx, &models.User{Name: "Bob", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, bob.Role)

	t.Run("list is ordered oldest first", func(t *testing.T) {
		users, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, alice.ID, users[0].ID)
		assert.Equal(t, bob.ID, users[1].ID)
	})

	t.Run("query by email and role", func(t *testing.T) {
		byEmail, err := repo.QueryByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		require.Len(t, byEmail, 1)
		assert.Equal(t, alice.ID, byEmail[0].ID)

		admins, err := repo.QueryByRole(ctx, models.RoleAdmin)
		require.NoError(t, err)
		require.Len(t, admins, 1)
	})

	t.Run("first admin insert refuses a second admin", func(t *testing.T) {
		_, err := repo.InsertFirstAdmin(ctx, &models.User{Name: "Carol", Email: "carol@example.com"})
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("partial update leaves other fields", func(t *testing.T) {
		active := true
		updated, err := repo.UpdateFields(ctx, bob.ID, models.UserFields{Active: &active})
		require.NoError(t, err)
		assert.True(t, updated.Active)
		assert.Equal(t, "Bob", updated.Name)
		assert.Equal(t, "bob@example.com", updated.Email)
	})

	t.Run("missing and malformed ids", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = repo.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, bob.ID))
		assert.ErrorIs(t, repo.Delete(ctx, bob.ID), models.ErrNotFound)
	})
}

func TestOTPChallengeRepository_Integration(t *testing.T) {
	db, _ := setupTestDatabase(t)
	repo := NewOTPChallengeRepository(db)
	ctx := context.Background()

	c := sampleChallenge("sess-1")
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, c.Pending, got.Pending)
	assert.Equal(t, 3, got.AttemptsLeft)

	reserved, err := repo.ReserveAttempt(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, reserved.AttemptsLeft)
	assert.Equal(t, c.CodeHash, reserved.CodeHash)

	for i := 0; i < 2; i++ {
		_, err = repo.ReserveAttempt(ctx, "sess-1")
		require.NoError(t, err)
	}
	_, err = repo.ReserveAttempt(ctx, "sess-1")
	assert.ErrorIs(t, err, models.ErrChallengeExhausted)

	_, err = repo.ReserveAttempt(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	c.AttemptsLeft = 5
	require.NoError(t, repo.Save(ctx, c))
	got, err = repo.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.AttemptsLeft)

	removed, err := repo.DeleteExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	assert.ErrorIs(t, repo.Delete(ctx, "sess-1"), models.ErrNotFound)
}

func TestDirectoryListener_Integration(t *testing.T) {
	db, connStr := setupTestDatabase(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	listener := NewDirectoryListener(connStr, "users_changed", repo, time.Second, 5*time.Second, nil)

	snapshots := make(chan []*models.User, 8)
	startCtx, startCancel := context.WithTimeout(ctx, 15*time.Second)
	unsubscribe, err := listener.Subscribe(startCtx,
		func(users []*models.User) { snapshots <- users },
		func(err error) { t.Errorf("unexpected subscription error: %v", err) },
	)
	require.NoError(t, err)
	defer unsubscribe()

	// The start deadline covers the initial load, not the live feed
	startCancel()

	initial := <-snapshots
	assert.Empty(t, initial)

	_, err = repo.Insert(ctx, &models.User{Name: "Carol", Email: "carol@example.com"})
	require.NoError(t, err)

	select {
	case users := <-snapshots:
		require.Len(t, users, 1)
		assert.Equal(t, "Carol", users[0].Name)
	case <-time.After(10 * time.Second):
		t.Fatal("no snapshot after insert")
	}
}
