package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"chatterbot/internal/chat"
	"chatterbot/internal/storage"
)

type failingStore struct {
	*storage.MemoryStore
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, m *chat.Manager) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.Save(ctx, m)
}

// gatedStore blocks Load for one user until release is closed.
type gatedStore struct {
	*storage.MemoryStore
	gated   int64
	started chan struct{}
	release chan struct{}
	loads   atomic.Int32
}

func newGatedStore(user int64) *gatedStore {
	return &gatedStore{
		MemoryStore: storage.NewMemoryStore(),
		gated:       user,
		started:     make(chan struct{}, 16),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Load(ctx context.Context, userID int64) (*chat.Manager, error) {
	if userID == g.gated {
		g.loads.Add(1)
		g.started <- struct{}{}
		<-g.release
	}
	return g.MemoryStore.Load(ctx, userID)
}

func TestDo_SlowLoadDoesNotBlockOtherUsers(t *testing.T) {
	store := newGatedStore(1)
	sm := NewSessionManager(store, nil)
	ctx := context.Background()

	slow := make(chan error, 1)
	go func() { slow <- sm.Do(ctx, 1, func(*chat.Manager) error { return nil }) }()
	<-store.started

	fast := make(chan error, 1)
	go func() { fast <- sm.Do(ctx, 2, func(*chat.Manager) error { return nil }) }()
	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("user 2 waited for user 1's load")
	}

	close(store.release)
	require.NoError(t, <-slow)
}

func TestDo_ConcurrentFirstUseLoadsOnce(t *testing.T) {
	store := newGatedStore(1)
	sm := NewSessionManager(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, sm.Do(ctx, 1, func(m *chat.Manager) error {
				m.CreateChat("", "")
				return nil
			}))
		}()
	}
	<-store.started
	// let the other callers queue up behind the load
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.EqualValues(t, 1, store.loads.Load())
	require.NoError(t, sm.View(ctx, 1, func(m *chat.Manager) error {
		assert.Len(t, m.Chats, 5, "every caller wrote to the same manager")
		return nil
	}))
}

func TestDo_CreatesManagerLazily(t *testing.T) {
	sm := NewSessionManager(storage.NewMemoryStore(), nil)
	ctx := context.Background()

	_, ok := sm.Status(5)
	assert.False(t, ok)

	err := sm.Do(ctx, 5, func(m *chat.Manager) error {
		assert.Equal(t, int64(5), m.UserID)
		m.CreateChat("Anna", "")
		return nil
	})
	require.NoError(t, err)

	err = sm.View(ctx, 5, func(m *chat.Manager) error {
		require.NotNil(t, m.ActiveChat())
		assert.Equal(t, "Anna", m.ActiveChat().Profile.Name)
		return nil
	})
	require.NoError(t, err)

	st, ok := sm.Status(5)
	require.True(t, ok)
	assert.Contains(t, st, "1 chats (unsaved changes)")
}

func TestDo_PropagatesCallbackError(t *testing.T) {
	sm := NewSessionManager(nil, nil)
	want := errors.New("boom")
	err := sm.Do(context.Background(), 1, func(*chat.Manager) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestFlush_PersistsAndReloads(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	sm := NewSessionManager(store, nil)
	require.NoError(t, sm.Do(ctx, 9, func(m *chat.Manager) error {
		m.CreateChat("Anna", "")
		m.AddMessageToActiveChat(chat.RoleUser, "hi", chat.TypeText)
		return nil
	}))
	require.NoError(t, sm.Flush(ctx))
	st, _ := sm.Status(9)
	assert.Contains(t, st, "(saved)")

	// A fresh registry over the same store sees the snapshot.
	sm2 := NewSessionManager(store, nil)
	require.NoError(t, sm2.View(ctx, 9, func(m *chat.Manager) error {
		require.NotNil(t, m.ActiveChat())
		assert.Len(t, m.ActiveChat().Messages, 1)
		return nil
	}))
}

func TestFlush_KeepsDirtyOnError(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore(), saveErr: errors.New("disk full")}
	sm := NewSessionManager(store, nil)
	ctx := context.Background()
	require.NoError(t, sm.Do(ctx, 2, func(m *chat.Manager) error { m.CreateChat("", ""); return nil }))

	err := sm.Flush(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	st, _ := sm.Status(2)
	assert.Contains(t, st, "unsaved changes")
	assert.Contains(t, st, "lastErr=disk full")

	store.saveErr = nil
	require.NoError(t, sm.Flush(ctx))
	st, _ = sm.Status(2)
	assert.NotContains(t, st, "lastErr")
}

func TestDo_SerializesPerUser(t *testing.T) {
	sm := NewSessionManager(nil, nil)
	ctx := context.Background()
	require.NoError(t, sm.Do(ctx, 1, func(m *chat.Manager) error { m.CreateChat("Anna", ""); return nil }))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sm.Do(ctx, 1, func(m *chat.Manager) error {
				m.AddMessageToActiveChat(chat.RoleUser, "x", chat.TypeText)
				return nil
			})
		}()
	}
	wg.Wait()
	require.NoError(t, sm.View(ctx, 1, func(m *chat.Manager) error {
		assert.Len(t, m.ActiveChat().Messages, 50)
		return nil
	}))
}

func TestWithClock_ReachesManagers(t *testing.T) {
	fixed := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	sm := NewSessionManager(nil, nil, WithClock(func() time.Time { return fixed }))
	require.NoError(t, sm.Do(context.Background(), 1, func(m *chat.Manager) error {
		c := m.CreateChat("Anna", "")
		assert.Equal(t, fixed, c.CreatedAt)
		return nil
	}))
}

func TestRunFlusher_FinalFlushOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := storage.NewMemoryStore()
	sm := NewSessionManager(store, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sm.Do(ctx, 4, func(m *chat.Manager) error { m.CreateChat("Anna", ""); return nil }))

	done := make(chan struct{})
	go func() {
		sm.RunFlusher(ctx, time.Hour)
		close(done)
	}()
	cancel()
	<-done

	users, err := store.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, users)
}
