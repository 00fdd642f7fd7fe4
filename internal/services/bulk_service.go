package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/akumi07/RoleMaster21/internal/metrics"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const defaultBulkConcurrency = 8

// DirectoryWriter is the part of the directory store used for edits
type DirectoryWriter interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateFields(ctx context.Context, id string, fields models.UserFields) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// DirectoryCache receives optimistic overlays while writes are pending
type DirectoryCache interface {
	Get(id string) (models.User, bool)
	ApplyOverlay(id string, o Overlay)
	Commit(id string, confirmed *models.User)
	Rollback(id string)
}

// BulkService applies edits to the directory. Every write moves through
// idle, pending, then committed or rolled back, with the pending state
// shown on the cached record.
type BulkService struct {
	store       DirectoryWriter
	cache       DirectoryCache
	selections  *SelectionStore
	concurrency int
	audit       *logger.AuditLogger
	logger      *slog.Logger
}

// NewBulkService creates a new BulkService
func NewBulkService(
	store DirectoryWriter,
	cache DirectoryCache,
	selections *SelectionStore,
	concurrency int,
	audit *logger.AuditLogger,
	logger *slog.Logger,
) *BulkService {
	if concurrency <= 0 {
		concurrency = defaultBulkConcurrency
	}
	return &BulkService{
		store:       store,
		cache:       cache,
		selections:  selections,
		concurrency: concurrency,
		audit:       audit,
		logger:      logger,
	}
}

// ApplyBulk writes action to every target independently. Per-target
// failures are reported in the outcomes and never returned as an error.
func (s *BulkService) ApplyBulk(ctx context.Context, action models.BulkAction, targets []string, requesterIsAdmin bool) (*models.BulkReport, error) {
	policy, ok := models.BulkPolicies[action]
	if !ok {
		return nil, fmt.Errorf("%w: unknown bulk action %q", models.ErrBadRequest, action)
	}

	if policy.RequiresAdmin && !requesterIsAdmin {
		return nil, models.ErrNotAuthorized
	}

	targets = dedupe(targets)
	if len(targets) == 0 {
		return nil, models.ErrIncomplete
	}

	outcomes := make([]models.BulkOutcome, len(targets))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, id := range targets {
		g.Go(func() error {
			outcomes[i] = s.applyOne(ctx, action, id)
			return nil
		})
	}
	_ = g.Wait()

	report := &models.BulkReport{
		Action:    action,
		Requested: len(targets),
		Outcomes:  outcomes,
	}
	for _, o := range outcomes {
		if o.State == models.WriteCommitted {
			report.Committed++
		} else {
			report.Failed++
		}
	}

	s.logger.Info("bulk action applied",
		slog.String("action", string(action)),
		slog.Int("requested", report.Requested),
		slog.Int("committed", report.Committed),
		slog.Int("failed", report.Failed))

	return report, nil
}

func (s *BulkService) applyOne(ctx context.Context, action models.BulkAction, id string) models.BulkOutcome {
	var overlay Overlay
	var fields models.UserFields

	switch action {
	case models.BulkActivate, models.BulkDeactivate:
		active := action == models.BulkActivate
		fields.Active = &active
		overlay.Fields = fields
	case models.BulkDelete:
		overlay.Delete = true
	}

	state := s.begin(id, overlay)

	var confirmed *models.User
	var err error
	if action == models.BulkDelete {
		err = s.store.Delete(ctx, id)
	} else {
		confirmed, err = s.store.UpdateFields(ctx, id, fields)
	}

	state = s.settle(string(action), id, state, confirmed, err)
	if err != nil {
		s.logger.Warn("bulk write failed",
			slog.String("action", string(action)),
			slog.String("user_id", id),
			slog.Any("error", err))
		return models.BulkOutcome{ID: id, State: state, Error: err.Error()}
	}

	return models.BulkOutcome{ID: id, State: state}
}

// begin shows overlay on the cached record and marks the write pending
func (s *BulkService) begin(id string, overlay Overlay) models.WriteState {
	s.cache.ApplyOverlay(id, overlay)
	metrics.DirectoryWritesPending.Inc()
	return models.WriteIdle.Advance(nil)
}

// settle reconciles a pending write with the store's answer. A failed
// write drops the overlay; a confirmed one replaces the cached record.
func (s *BulkService) settle(action, id string, state models.WriteState, confirmed *models.User, err error) models.WriteState {
	state = state.Advance(err)
	metrics.DirectoryWritesPending.Dec()

	if state == models.WriteRolledBack {
		s.cache.Rollback(id)
	} else {
		s.cache.Commit(id, confirmed)
	}
	metrics.DirectoryWritesTotal.WithLabelValues(action, string(state)).Inc()
	return state
}

// ApplySelection runs a bulk action over the session's selection and
// clears the selection afterwards. Actions that need confirmation go
// through RequestDelete and ConfirmDelete instead.
func (s *BulkService) ApplySelection(ctx context.Context, identity models.Identity, action models.BulkAction, requesterIsAdmin bool) (*models.BulkReport, error) {
	policy, ok := models.BulkPolicies[action]
	if !ok {
		return nil, fmt.Errorf("%w: unknown bulk action %q", models.ErrBadRequest, action)
	}
	if policy.RequiresConfirmation {
		return nil, models.ErrConfirmationRequired
	}

	return s.applySelection(ctx, identity, action, requesterIsAdmin)
}

// RequestDelete opens the delete confirmation for the session's selection
func (s *BulkService) RequestDelete(identity models.Identity, requesterIsAdmin bool) (models.SelectionSet, error) {
	if models.BulkPolicies[models.BulkDelete].RequiresAdmin && !requesterIsAdmin {
		return models.SelectionSet{}, models.ErrNotAuthorized
	}

	if len(s.selections.Get(identity.SessionID).IDs) == 0 {
		return models.SelectionSet{}, models.ErrIncomplete
	}

	return s.selections.MarkDeletePending(identity.SessionID), nil
}

// ConfirmDelete deletes the selection once RequestDelete has been called
func (s *BulkService) ConfirmDelete(ctx context.Context, identity models.Identity, requesterIsAdmin bool) (*models.BulkReport, error) {
	if !s.selections.Get(identity.SessionID).DeletePending {
		return nil, models.ErrConfirmationRequired
	}

	return s.applySelection(ctx, identity, models.BulkDelete, requesterIsAdmin)
}

// CancelDelete dismisses the confirmation and clears the selection
func (s *BulkService) CancelDelete(identity models.Identity) {
	s.selections.Clear(identity.SessionID)
}

func (s *BulkService) applySelection(ctx context.Context, identity models.Identity, action models.BulkAction, requesterIsAdmin bool) (*models.BulkReport, error) {
	selected := s.selections.Get(identity.SessionID)

	report, err := s.ApplyBulk(ctx, action, selected.IDs, requesterIsAdmin)
	if err != nil {
		s.audit.Log(ctx, logger.AuditEvent{
			EventType:     logger.EventBulkAction,
			ActorEmail:    identity.Email,
			SessionID:     identity.SessionID,
			Success:       false,
			FailureReason: err.Error(),
			Metadata:      map[string]string{"action": string(action)},
		})
		return nil, err
	}

	s.selections.Clear(identity.SessionID)

	s.audit.Log(ctx, logger.AuditEvent{
		EventType:  logger.EventBulkAction,
		ActorEmail: identity.Email,
		SessionID:  identity.SessionID,
		Success:    report.Failed == 0,
		Metadata: map[string]string{
			"action":    string(action),
			"requested": fmt.Sprint(report.Requested),
			"committed": fmt.Sprint(report.Committed),
			"failed":    fmt.Sprint(report.Failed),
		},
	})

	return report, nil
}

// ToggleActive flips the active flag of one record. The cached record is
// marked as toggling until the write settles; on failure it keeps its
// previous value.
func (s *BulkService) ToggleActive(ctx context.Context, identity models.Identity, id string) (*models.User, error) {
	current, ok := s.cache.Get(id)
	if !ok {
		user, err := s.store.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrNotFound
			}
			s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		current = *user
	}

	desired := !current.Active
	state := s.begin(id, Overlay{Toggling: true})

	updated, err := s.store.UpdateFields(ctx, id, models.UserFields{Active: &desired})
	s.settle("toggle_active", id, state, updated, err)
	if err != nil {
		s.logger.Error("failed to toggle active", slog.String("user_id", id), slog.Any("error", err))
		s.audit.Log(ctx, logger.AuditEvent{
			EventType:     logger.EventActiveToggled,
			ActorEmail:    identity.Email,
			SessionID:     identity.SessionID,
			TargetID:      id,
			Success:       false,
			FailureReason: err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
	}

	s.audit.Log(ctx, logger.AuditEvent{
		EventType:  logger.EventActiveToggled,
		ActorEmail: identity.Email,
		SessionID:  identity.SessionID,
		TargetID:   id,
		Success:    true,
		Metadata:   map[string]string{"active": fmt.Sprint(updated.Active)},
	})

	return updated, nil
}

// UpdateUser replaces the editable fields of one record; all are required
func (s *BulkService) UpdateUser(ctx context.Context, identity models.Identity, id, name, email string, role models.Role) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = models.NormalizeEmail(email)
	if id == "" || name == "" || email == "" || role == "" {
		return nil, models.ErrIncomplete
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrBadRequest, role)
	}

	fields := models.UserFields{Name: &name, Email: &email, Role: &role}
	state := s.begin(id, Overlay{Fields: fields})

	updated, err := s.store.UpdateFields(ctx, id, fields)
	s.settle("update_user", id, state, updated, err)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrWriteFailed, err)
	}

	s.audit.Log(ctx, logger.AuditEvent{
		EventType:  logger.EventUserUpdated,
		ActorEmail: identity.Email,
		SessionID:  identity.SessionID,
		TargetID:   id,
		Success:    true,
	})

	s.logger.Info("user updated", slog.String("user_id", id))
	return updated, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
