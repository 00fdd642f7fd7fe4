package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/akumi07/RoleMaster21/internal/metrics"
	"github.com/akumi07/RoleMaster21/internal/models"
)

// DirectorySubscriber pushes full directory snapshots until unsubscribed
type DirectorySubscriber interface {
	Subscribe(ctx context.Context, onSnapshot func([]*models.User), onError func(error)) (func(), error)
}

// SyncState is the lifecycle state of the directory subscription
type SyncState string

const (
	SyncIdle        SyncState = "idle"
	SyncLive        SyncState = "live"
	SyncFetchFailed SyncState = "fetch_failed"
	SyncStopped     SyncState = "stopped"
)

// DirectoryUpdate is delivered to observers after every cache change.
// Err is set once, when the subscription fails. Version increases with
// every change; observers never see it go backwards.
type DirectoryUpdate struct {
	Version uint64
	Users   []models.User
	Err     error
}

// Overlay is an optimistic change shown on top of the last snapshot
// while its write is pending.
type Overlay struct {
	Fields   models.UserFields
	Toggling bool
	Delete   bool
}

// DirectorySync owns the cached directory. Every snapshot replaces the
// whole cache; pending overlays are applied on top of it when read.
type DirectorySync struct {
	source DirectorySubscriber
	logger *slog.Logger

	mu          sync.RWMutex
	state       SyncState
	err         error
	records     []*models.User
	overlays    map[string]Overlay
	unsubscribe func()
	observers   map[int]func(DirectoryUpdate)
	nextID      int
	version     uint64

	// deliverMu serializes observer calls; delivered is the newest
	// version handed out so far
	deliverMu sync.Mutex
	delivered uint64
}

// NewDirectorySync creates a new DirectorySync
func NewDirectorySync(source DirectorySubscriber, logger *slog.Logger) *DirectorySync {
	return &DirectorySync{
		source:    source,
		logger:    logger,
		state:     SyncIdle,
		overlays:  make(map[string]Overlay),
		observers: make(map[int]func(DirectoryUpdate)),
	}
}

// Start opens the single store subscription. ctx bounds the initial load;
// the subscription itself lives until Stop. A failure here is terminal.
func (s *DirectorySync) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SyncIdle {
		s.mu.Unlock()
		return fmt.Errorf("directory sync already started (state %s)", s.state)
	}
	s.state = SyncLive
	s.mu.Unlock()

	unsubscribe, err := s.source.Subscribe(ctx, s.replace, s.fail)
	if err != nil {
		s.fail(err)
		return fmt.Errorf("%w: %v", models.ErrFetchFailed, err)
	}

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	stopped := s.state == SyncStopped
	s.mu.Unlock()

	if stopped {
		unsubscribe()
	}

	s.logger.Info("directory sync started")
	return nil
}

// Stop releases the subscription. It is safe to call more than once.
func (s *DirectorySync) Stop() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	if s.state != SyncFetchFailed {
		s.state = SyncStopped
	}
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
		s.logger.Info("directory sync stopped")
	}
}

// State returns the subscription state
func (s *DirectorySync) State() SyncState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns the cached directory with pending overlays applied
func (s *DirectorySync) Snapshot() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == SyncFetchFailed {
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailed, s.err)
	}

	return s.viewLocked(), nil
}

// Get returns one cached record with its overlay applied
func (s *DirectorySync) Get(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID != id {
			continue
		}
		u := *r
		if o, ok := s.overlays[id]; ok {
			if o.Delete {
				return models.User{}, false
			}
			o.Fields.Apply(&u)
			u.IsToggling = o.Toggling
		}
		return u, true
	}

	return models.User{}, false
}

// Subscribe registers an observer. It immediately receives the current
// state and then every later update until unsubscribe is called.
func (s *DirectorySync) Subscribe(onUpdate func(DirectoryUpdate)) func() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = onUpdate
	current := s.updateLocked()
	s.mu.Unlock()

	onUpdate(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// ApplyOverlay marks a write as pending on the cached record
func (s *DirectorySync) ApplyOverlay(id string, o Overlay) {
	s.mu.Lock()
	s.overlays[id] = o
	s.version++
	update, observers := s.updateLocked(), s.observersLocked()
	s.mu.Unlock()

	s.publish(observers, update)
}

// Commit drops the overlay and writes the confirmed record into the cache.
// A nil record means the record was deleted.
func (s *DirectorySync) Commit(id string, confirmed *models.User) {
	s.mu.Lock()
	delete(s.overlays, id)

	for i, r := range s.records {
		if r.ID != id {
			continue
		}
		if confirmed == nil {
			s.records = append(s.records[:i:i], s.records[i+1:]...)
		} else {
			u := *confirmed
			u.IsToggling = false
			s.records[i] = &u
		}
		break
	}

	s.version++
	update, observers := s.updateLocked(), s.observersLocked()
	s.mu.Unlock()

	s.publish(observers, update)
}

// Rollback drops the overlay, restoring the last confirmed record
func (s *DirectorySync) Rollback(id string) {
	s.mu.Lock()
	delete(s.overlays, id)
	s.version++
	update, observers := s.updateLocked(), s.observersLocked()
	s.mu.Unlock()

	s.publish(observers, update)
}

func (s *DirectorySync) replace(users []*models.User) {
	records := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u == nil {
			continue
		}
		c := *u
		c.IsToggling = false
		records = append(records, &c)
	}

	s.mu.Lock()
	if s.state != SyncLive {
		s.mu.Unlock()
		return
	}
	s.records = records
	s.version++
	update, observers := s.updateLocked(), s.observersLocked()
	s.mu.Unlock()

	metrics.DirectorySnapshotsTotal.Inc()
	metrics.DirectoryRecords.Set(float64(len(records)))

	s.publish(observers, update)
}

func (s *DirectorySync) fail(err error) {
	if err == nil {
		err = errors.New("subscription closed")
	}

	s.mu.Lock()
	if s.state == SyncFetchFailed || s.state == SyncStopped {
		s.mu.Unlock()
		return
	}
	s.state = SyncFetchFailed
	s.err = err
	s.version++
	update, observers := s.updateLocked(), s.observersLocked()
	s.mu.Unlock()

	s.logger.Error("directory subscription failed", slog.Any("error", err))
	s.publish(observers, update)
}

func (s *DirectorySync) viewLocked() []models.User {
	view := make([]models.User, 0, len(s.records))
	for _, r := range s.records {
		u := *r
		if o, ok := s.overlays[r.ID]; ok {
			if o.Delete {
				continue
			}
			o.Fields.Apply(&u)
			u.IsToggling = o.Toggling
		}
		view = append(view, u)
	}
	return view
}

func (s *DirectorySync) updateLocked() DirectoryUpdate {
	if s.state == SyncFetchFailed {
		return DirectoryUpdate{Version: s.version, Err: fmt.Errorf("%w: %v", models.ErrFetchFailed, s.err)}
	}
	return DirectoryUpdate{Version: s.version, Users: s.viewLocked()}
}

func (s *DirectorySync) observersLocked() []func(DirectoryUpdate) {
	observers := make([]func(DirectoryUpdate), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	return observers
}

// publish hands update to observers unless a newer one already went out
func (s *DirectorySync) publish(observers []func(DirectoryUpdate), update DirectoryUpdate) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if update.Version <= s.delivered {
		return
	}
	s.delivered = update.Version

	for _, fn := range observers {
		fn(update)
	}
}
