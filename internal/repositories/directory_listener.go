package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/lib/pq"
)

// ErrSubscriptionLost is reported when the notification connection drops
var ErrSubscriptionLost = errors.New("directory subscription lost")

// SnapshotLister loads the complete directory
type SnapshotLister interface {
	List(ctx context.Context) ([]*models.User, error)
}

// DirectoryListener pushes full directory snapshots whenever the users table changes.
// Changes are announced by a trigger through LISTEN/NOTIFY on a single channel.
type DirectoryListener struct {
	dsn          string
	channel      string
	lister       SnapshotLister
	minReconnect time.Duration
	maxReconnect time.Duration
	logger       *slog.Logger
}

func NewDirectoryListener(dsn, channel string, lister SnapshotLister, minReconnect, maxReconnect time.Duration, logger *slog.Logger) *DirectoryListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryListener{
		dsn:          dsn,
		channel:      channel,
		lister:       lister,
		minReconnect: minReconnect,
		maxReconnect: maxReconnect,
		logger:       logger,
	}
}

// Subscribe delivers the current snapshot, then a fresh snapshot after every change.
// onError is called at most once, after which no more snapshots are delivered.
// ctx bounds the initial load only; the subscription runs until the returned
// function is called, which stops it and waits for delivery to finish.
func (l *DirectoryListener) Subscribe(ctx context.Context, onSnapshot func([]*models.User), onError func(error)) (func(), error) {
	lost := make(chan error, 1)

	listener := pq.NewListener(l.dsn, l.minReconnect, l.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			if err == nil {
				err = ErrSubscriptionLost
			} else {
				err = fmt.Errorf("%w: %v", ErrSubscriptionLost, err)
			}
			select {
			case lost <- err:
			default:
			}
		}
	})

	if err := listener.Listen(l.channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", l.channel, err)
	}

	users, err := l.lister.List(ctx)
	if err != nil {
		listener.Close()
		return nil, err
	}
	onSnapshot(users)

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer listener.Close()

		for {
			select {
			case <-subCtx.Done():
				return
			case err := <-lost:
				l.logger.Error("directory listener disconnected", "channel", l.channel, "error", err)
				onError(err)
				return
			case n := <-listener.Notify:
				if n == nil {
					continue
				}
				drain(listener.Notify)

				users, err := l.lister.List(subCtx)
				if err != nil {
					if subCtx.Err() != nil {
						return
					}
					onError(err)
					return
				}
				onSnapshot(users)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// drain coalesces a burst of notifications into a single reload
func drain(ch <-chan *pq.Notification) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
