package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akumi07/RoleMaster21/internal/models"
)

// MockDirectory implements AdmissionDirectory and DirectoryWriter for testing
type MockDirectory struct {
	QueryByEmailFunc func(ctx context.Context, email string) ([]*models.User, error)
	QueryByRoleFunc  func(ctx context.Context, role models.Role) ([]*models.User, error)
	InsertFunc       func(ctx context.Context, user *models.User) (*models.User, error)
	InsertAdminFunc  func(ctx context.Context, user *models.User) (*models.User, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.User, error)
	UpdateFieldsFunc func(ctx context.Context, id string, fields models.UserFields) (*models.User, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockDirectory) QueryByEmail(ctx context.Context, email string) ([]*models.User, error) {
	if m.QueryByEmailFunc != nil {
		return m.QueryByEmailFunc(ctx, email)
	}
	return []*models.User{}, nil
}

func (m *MockDirectory) QueryByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	if m.QueryByRoleFunc != nil {
		return m.QueryByRoleFunc(ctx, role)
	}
	return []*models.User{}, nil
}

func (m *MockDirectory) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

// InsertFirstAdmin defaults to Insert with the admin role
func (m *MockDirectory) InsertFirstAdmin(ctx context.Context, user *models.User) (*models.User, error) {
	if m.InsertAdminFunc != nil {
		return m.InsertAdminFunc(ctx, user)
	}
	u := *user
	u.Role = models.RoleAdmin
	return m.Insert(ctx, &u)
}

func (m *MockDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockDirectory) UpdateFields(ctx context.Context, id string, fields models.UserFields) (*models.User, error) {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, fields)
	}
	return nil, models.ErrInternalServer
}

func (m *MockDirectory) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MemoryChallengeStore is an in-memory ChallengeStore for testing
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]models.OTPChallenge
	SaveErr    error
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]models.OTPChallenge)}
}

func (m *MemoryChallengeStore) Save(ctx context.Context, c *models.OTPChallenge) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[c.SessionID] = *c
	return nil
}

func (m *MemoryChallengeStore) Get(ctx context.Context, sessionID string) (*models.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (m *MemoryChallengeStore) ReserveAttempt(ctx context.Context, sessionID string) (*models.OTPChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[sessionID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if c.AttemptsLeft <= 0 {
		return nil, models.ErrChallengeExhausted
	}
	c.AttemptsLeft--
	m.challenges[sessionID] = c
	return &c, nil
}

func (m *MemoryChallengeStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.challenges[sessionID]; !ok {
		return models.ErrNotFound
	}
	delete(m.challenges, sessionID)
	return nil
}

func (m *MemoryChallengeStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.challenges {
		if c.ExpiresAt.Before(before) {
			delete(m.challenges, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored challenges
func (m *MemoryChallengeStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.challenges)
}

// MockMailer implements Mailer for testing and records every message
type MockMailer struct {
	SendOTPFunc func(ctx context.Context, msg OTPMessage) error

	mu   sync.Mutex
	Sent []OTPMessage
}

func (m *MockMailer) SendOTP(ctx context.Context, msg OTPMessage) error {
	if m.SendOTPFunc != nil {
		if err := m.SendOTPFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Sent = append(m.Sent, msg)
	m.mu.Unlock()
	return nil
}

// MockSubscriber implements DirectorySubscriber and lets tests push snapshots
type MockSubscriber struct {
	SubscribeErr error
	Initial      []*models.User

	mu           sync.Mutex
	onSnapshot   func([]*models.User)
	onError      func(error)
	Unsubscribed int
}

func (m *MockSubscriber) Subscribe(ctx context.Context, onSnapshot func([]*models.User), onError func(error)) (func(), error) {
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	m.mu.Lock()
	m.onSnapshot = onSnapshot
	m.onError = onError
	m.mu.Unlock()

	onSnapshot(m.Initial)

	return func() {
		m.mu.Lock()
		m.Unsubscribed++
		m.mu.Unlock()
	}, nil
}

// Push delivers a snapshot as the store would after a change
func (m *MockSubscriber) Push(users []*models.User) {
	m.mu.Lock()
	fn := m.onSnapshot
	m.mu.Unlock()
	fn(users)
}

// Fail reports a subscription error
func (m *MockSubscriber) Fail(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()
	fn(err)
}

// NewTestUser builds a directory record for tests
func NewTestUser(id, name, email string, active bool) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      models.RoleUser,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestAdmin builds an admin record for tests
func NewTestAdmin(id, email string) *models.User {
	u := NewTestUser(id, "Admin "+id, email, true)
	u.Role = models.RoleAdmin
	return u
}

// NewTestUsers builds n inactive records named "User 1".."User n"
func NewTestUsers(n int) []models.User {
	users := make([]models.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, *NewTestUser(fmt.Sprint(i), fmt.Sprintf("User %d", i), fmt.Sprintf("user%d@example.com", i), false))
	}
	return users
}
