package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/akumi07/RoleMaster21/internal/metrics"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/pkg/auth"
	"github.com/akumi07/RoleMaster21/pkg/logger"
)

// AdmissionDirectory is the part of the directory store used to admit new records
type AdmissionDirectory interface {
	QueryByEmail(ctx context.Context, email string) ([]*models.User, error)
	QueryByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	InsertFirstAdmin(ctx context.Context, user *models.User) (*models.User, error)
}

// ChallengeStore keeps at most one outstanding challenge per session.
// ReserveAttempt must check and take an attempt atomically; it returns
// ErrNotFound without a challenge and ErrChallengeExhausted at zero.
type ChallengeStore interface {
	Save(ctx context.Context, c *models.OTPChallenge) error
	Get(ctx context.Context, sessionID string) (*models.OTPChallenge, error)
	ReserveAttempt(ctx context.Context, sessionID string) (*models.OTPChallenge, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// OTPService issues and verifies the one-time codes that gate new records
type OTPService struct {
	directory   AdmissionDirectory
	challenges  ChallengeStore
	mailer      Mailer
	ttl         time.Duration
	maxAttempts int
	audit       *logger.AuditLogger
	logger      *slog.Logger
	now         func() time.Time
	generate    func() (string, error)
}

// NewOTPService creates a new OTPService
func NewOTPService(
	directory AdmissionDirectory,
	challenges ChallengeStore,
	mailer Mailer,
	ttl time.Duration,
	maxAttempts int,
	audit *logger.AuditLogger,
	logger *slog.Logger,
) *OTPService {
	return &OTPService{
		directory:   directory,
		challenges:  challenges,
		mailer:      mailer,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
		generate:    auth.GenerateCode,
	}
}

// RequestOTP sends a fresh code to the approving admin and replaces any
// challenge the session already holds.
func (s *OTPService) RequestOTP(ctx context.Context, sessionID, adminEmail string, pending models.PendingUser) error {
	pending.Name = strings.TrimSpace(pending.Name)
	pending.Email = models.NormalizeEmail(pending.Email)
	if pending.Role == "" {
		pending.Role = models.RoleUser
	}
	if sessionID == "" || pending.Name == "" || pending.Email == "" || !pending.Role.Valid() {
		return models.ErrIncomplete
	}

	target, pending, bootstrap, err := s.resolveTarget(ctx, adminEmail, pending)
	if err != nil {
		s.recordRequest(ctx, sessionID, adminEmail, err)
		return err
	}

	code, err := s.generate()
	if err != nil {
		s.logger.Error("failed to generate OTP", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := auth.HashCode(code)
	if err != nil {
		s.logger.Error("failed to hash OTP", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := s.now()
	challenge := &models.OTPChallenge{
		SessionID:        sessionID,
		TargetAdminEmail: target,
		CodeHash:         hash,
		Pending:          pending,
		AttemptsLeft:     s.maxAttempts,
		Bootstrap:        bootstrap,
		IssuedAt:         now,
		ExpiresAt:        now.Add(s.ttl),
	}

	if err := s.challenges.Save(ctx, challenge); err != nil {
		s.logger.Error("failed to store OTP challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	msg := OTPMessage{
		To:           target,
		Code:         code,
		PendingEmail: pending.Email,
		ExpiresAt:    challenge.ExpiresAt,
	}

	if err := s.mailer.SendOTP(ctx, msg); err != nil {
		if delErr := s.challenges.Delete(ctx, sessionID); delErr != nil && !errors.Is(delErr, models.ErrNotFound) {
			s.logger.Warn("failed to discard undelivered challenge", slog.Any("error", delErr))
		}
		err = fmt.Errorf("%w: %v", models.ErrDispatchFailed, err)
		s.recordRequest(ctx, sessionID, target, err)
		return err
	}

	s.recordRequest(ctx, sessionID, target, nil)
	return nil
}

// resolveTarget finds the admin who must approve the pending record.
// With no admin in the directory the pending record becomes the first
// admin and approves itself; that challenge is marked bootstrap.
func (s *OTPService) resolveTarget(ctx context.Context, adminEmail string, pending models.PendingUser) (target string, admitted models.PendingUser, bootstrap bool, err error) {
	admins, err := s.directory.QueryByRole(ctx, models.RoleAdmin)
	if err != nil {
		s.logger.Error("failed to query admins", slog.Any("error", err))
		return "", pending, false, models.ErrInternalServer
	}

	if len(admins) == 0 {
		pending.Role = models.RoleAdmin
		s.logger.Info("no admin in directory, registering first admin",
			slog.String("email", logger.MaskEmail(pending.Email)))
		return pending.Email, pending, true, nil
	}

	adminEmail = models.NormalizeEmail(adminEmail)
	if adminEmail == "" {
		return "", pending, false, models.ErrIncomplete
	}

	matches, err := s.directory.QueryByEmail(ctx, adminEmail)
	if err != nil {
		s.logger.Error("failed to query admin email", slog.Any("error", err))
		return "", pending, false, models.ErrInternalServer
	}

	if len(matches) == 0 {
		return "", pending, false, models.ErrUnknownAdmin
	}

	if !matches[0].IsAdmin() {
		return "", pending, false, models.ErrNotAuthorized
	}

	return adminEmail, pending, false, nil
}

// Verify checks code against the session's challenge. A matching code
// consumes the challenge, which is returned exactly once.
func (s *OTPService) Verify(ctx context.Context, sessionID, code string) (*models.OTPChallenge, error) {
	challenge, err := s.verify(ctx, sessionID, strings.TrimSpace(code))
	s.recordVerification(ctx, sessionID, challenge, err)
	return challenge, err
}

func (s *OTPService) verify(ctx context.Context, sessionID, code string) (*models.OTPChallenge, error) {
	// The attempt is spent before the compare, so parallel guesses share
	// the budget instead of racing past it.
	challenge, err := s.challenges.ReserveAttempt(ctx, sessionID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, models.ErrNoChallenge
	case errors.Is(err, models.ErrChallengeExhausted):
		s.discard(ctx, sessionID)
		return nil, models.ErrChallengeExhausted
	case err != nil:
		s.logger.Error("failed to reserve OTP attempt", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if challenge.IsExpired(s.now()) {
		s.discard(ctx, sessionID)
		return nil, models.ErrChallengeExpired
	}

	match, err := auth.CompareCode(challenge.CodeHash, code)
	if err != nil {
		s.logger.Error("failed to compare OTP", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !match {
		if challenge.IsExhausted() {
			s.discard(ctx, sessionID)
			return nil, models.ErrChallengeExhausted
		}
		return nil, models.ErrInvalidCode
	}

	// Only the caller that removes the challenge is admitted
	if err := s.challenges.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoChallenge
		}
		s.logger.Error("failed to consume OTP challenge", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return challenge, nil
}

// CompleteAddUser verifies the code and inserts the pending record as inactive
func (s *OTPService) CompleteAddUser(ctx context.Context, sessionID, code string) (*models.User, error) {
	challenge, err := s.Verify(ctx, sessionID, code)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:   challenge.Pending.Name,
		Email:  challenge.Pending.Email,
		Role:   challenge.Pending.Role,
		Active: false,
	}

	insert := s.directory.Insert
	if challenge.Bootstrap {
		// An admin may have appeared since the code was issued
		insert = s.directory.InsertFirstAdmin
	}

	created, err := insert(ctx, user)
	if challenge.Bootstrap && errors.Is(err, models.ErrConflict) {
		s.audit.Log(ctx, logger.AuditEvent{
			EventType:     logger.EventUserAdmitted,
			ActorEmail:    challenge.TargetAdminEmail,
			SessionID:     sessionID,
			Success:       false,
			FailureReason: "directory already has an admin",
		})
		return nil, fmt.Errorf("%w: directory already has an admin", models.ErrNotAuthorized)
	}
	if err != nil {
		s.logger.Error("failed to insert admitted user", slog.Any("error", err))
		s.audit.Log(ctx, logger.AuditEvent{
			EventType:     logger.EventUserAdmitted,
			ActorEmail:    challenge.TargetAdminEmail,
			SessionID:     sessionID,
			Success:       false,
			FailureReason: err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
	}

	s.audit.Log(ctx, logger.AuditEvent{
		EventType:  logger.EventUserAdmitted,
		ActorEmail: challenge.TargetAdminEmail,
		SessionID:  sessionID,
		TargetID:   created.ID,
		Success:    true,
		Metadata:   map[string]string{"role": string(created.Role)},
	})

	s.logger.Info("user admitted", slog.String("user_id", created.ID))
	return created, nil
}

// PurgeExpired removes challenges whose window has closed
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.challenges.DeleteExpired(ctx, s.now())
}

func (s *OTPService) discard(ctx context.Context, sessionID string) {
	if err := s.challenges.Delete(ctx, sessionID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("failed to discard OTP challenge", slog.Any("error", err))
	}
}

func (s *OTPService) recordRequest(ctx context.Context, sessionID, target string, err error) {
	result := requestResult(err)
	metrics.OTPRequestsTotal.WithLabelValues(result).Inc()

	event := logger.AuditEvent{
		EventType:  logger.EventOTPIssued,
		ActorEmail: target,
		SessionID:  sessionID,
		Success:    err == nil,
	}
	if err != nil {
		event.FailureReason = result
	}
	s.audit.Log(ctx, event)
}

func (s *OTPService) recordVerification(ctx context.Context, sessionID string, challenge *models.OTPChallenge, err error) {
	result := verificationResult(err)
	metrics.OTPVerificationsTotal.WithLabelValues(result).Inc()

	event := logger.AuditEvent{
		EventType: logger.EventOTPVerified,
		SessionID: sessionID,
		Success:   err == nil,
	}
	if challenge != nil {
		event.ActorEmail = challenge.TargetAdminEmail
	}
	if err != nil {
		event.EventType = logger.EventOTPRejected
		event.FailureReason = result
	}
	s.audit.Log(ctx, event)
}

func requestResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, models.ErrUnknownAdmin):
		return "unknown_admin"
	case errors.Is(err, models.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, models.ErrDispatchFailed):
		return "dispatch_failed"
	case errors.Is(err, models.ErrIncomplete):
		return "incomplete"
	default:
		return "error"
	}
}

func verificationResult(err error) string {
	switch {
	case err == nil:
		return "admitted"
	case errors.Is(err, models.ErrInvalidCode):
		return "invalid"
	case errors.Is(err, models.ErrChallengeExpired):
		return "expired"
	case errors.Is(err, models.ErrChallengeExhausted):
		return "exhausted"
	case errors.Is(err, models.ErrNoChallenge):
		return "no_challenge"
	default:
		return "error"
	}
}
