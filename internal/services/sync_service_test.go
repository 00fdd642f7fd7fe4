package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrUsers(users ...models.User) []*models.User {
	out := make([]*models.User, len(users))
	for i := range users {
		u := users[i]
		out[i] = &u
	}
	return out
}

func TestDirectorySync_SnapshotReplacesWholeCache(t *testing.T) {
	source := &MockSubscriber{Initial: ptrUsers(NewTestUsers(3)...)}
	s := NewDirectorySync(source, discardLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	users, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, users, 3)

	source.Push(ptrUsers(*NewTestUser("9", "Zed", "zed@example.com", true)))

	users, err = s.Snapshot()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "9", users[0].ID)
}

func TestDirectorySync_ObserversReceiveUpdates(t *testing.T) {
	source := &MockSubscriber{Initial: ptrUsers(NewTestUsers(2)...)}
	s := NewDirectorySync(source, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	var mu sync.Mutex
	var updates []DirectoryUpdate
	unsubscribe := s.Subscribe(func(u DirectoryUpdate) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	})

	source.Push(ptrUsers(NewTestUsers(4)...))
	unsubscribe()
	source.Push(ptrUsers(NewTestUsers(5)...))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 2)
	assert.Len(t, updates[0].Users, 2)
	assert.Len(t, updates[1].Users, 4)
}

func TestDirectorySync_FetchFailedIsTerminal(t *testing.T) {
	source := &MockSubscriber{Initial: ptrUsers(NewTestUsers(2)...)}
	s := NewDirectorySync(source, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	var last DirectoryUpdate
	s.Subscribe(func(u DirectoryUpdate) { last = u })

	source.Fail(errors.New("connection reset"))

	assert.Equal(t, SyncFetchFailed, s.State())
	assert.ErrorIs(t, last.Err, models.ErrFetchFailed)

	_, err := s.Snapshot()
	assert.ErrorIs(t, err, models.ErrFetchFailed)

	source.Push(ptrUsers(NewTestUsers(3)...))
	_, err = s.Snapshot()
	assert.ErrorIs(t, err, models.ErrFetchFailed)
}

func TestDirectorySync_StartFailure(t *testing.T) {
	source := &MockSubscriber{SubscribeErr: errors.New("dial tcp: refused")}
	s := NewDirectorySync(source, discardLogger())

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, models.ErrFetchFailed)
	assert.Equal(t, SyncFetchFailed, s.State())
}

func TestDirectorySync_StopReleasesSubscriptionOnce(t *testing.T) {
	source := &MockSubscriber{}
	s := NewDirectorySync(source, discardLogger())
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	s.Stop()

	assert.Equal(t, 1, source.Unsubscribed)
	assert.Equal(t, SyncStopped, s.State())
	assert.Error(t, s.Start(context.Background()))
}

func TestDirectorySync_Overlays(t *testing.T) {
	source := &MockSubscriber{Initial: ptrUsers(NewTestUsers(2)...)}
	s := NewDirectorySync(source, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	active := true
	s.ApplyOverlay("1", Overlay{Fields: models.UserFields{Active: &active}, Toggling: true})

	u, ok := s.Get("1")
	require.True(t, ok)
	assert.True(t, u.Active)
	assert.True(t, u.IsToggling)

	s.Rollback("1")
	u, _ = s.Get("1")
	assert.False(t, u.Active)
	assert.False(t, u.IsToggling)

	s.ApplyOverlay("2", Overlay{Delete: true})
	_, ok = s.Get("2")
	assert.False(t, ok)

	s.Commit("2", nil)
	users, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "1", users[0].ID)
}

func TestDirectorySync_CommitWritesConfirmedRecord(t *testing.T) {
	source := &MockSubscriber{Initial: ptrUsers(NewTestUsers(1)...)}
	s := NewDirectorySync(source, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.ApplyOverlay("1", Overlay{Toggling: true})

	confirmed := NewTestUser("1", "User 1", "user1@example.com", true)
	s.Commit("1", confirmed)

	u, ok := s.Get("1")
	require.True(t, ok)
	assert.True(t, u.Active)
	assert.False(t, u.IsToggling)
}

func TestDirectorySync_StartContextOnlyBoundsInitialLoad(t *testing.T) {
	source := &MockSubscriber{Initial: ptrUsers(NewTestUsers(2)...)}
	s := NewDirectorySync(source, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	require.NoError(t, s.Start(ctx))
	cancel()
	defer s.Stop()

	source.Push(ptrUsers(NewTestUsers(5)...))

	assert.Equal(t, SyncLive, s.State())
	users, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, users, 5)
}

func TestDirectorySync_ConcurrentChangesReachObserversInOrder(t *testing.T) {
	source := &MockSubscriber{Initial: ptrUsers(NewTestUsers(8)...)}
	s := NewDirectorySync(source, discardLogger())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	var mu sync.Mutex
	var versions []uint64
	var last DirectoryUpdate
	s.Subscribe(func(u DirectoryUpdate) {
		time.Sleep(time.Millisecond)
		mu.Lock()
		versions = append(versions, u.Version)
		last = u
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			active := true
			s.ApplyOverlay(id, Overlay{Fields: models.UserFields{Active: &active}, Toggling: true})
			confirmed := NewTestUser(id, "User "+id, "user"+id+"@example.com", true)
			s.Commit(id, confirmed)
		}(fmt.Sprint(i))
	}
	wg.Wait()

	final, err := s.Snapshot()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i], versions[i-1], "update %d went backwards", i)
	}
	assert.Equal(t, final, last.Users)
}
