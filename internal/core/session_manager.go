package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"chatterbot/internal/chat"
	"chatterbot/internal/storage"
)

// SessionManager hands out one chat.Manager per operator. Managers are
// loaded from storage on first use and written back by Flush.
type SessionManager struct {
	store storage.Store
	log   *zap.Logger
	now   func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session // keyed by telegram user id
	loads    singleflight.Group
}

type Session struct {
	UserID   int64
	LoadedAt time.Time

	// serialize work per user (avoid interleaving mutations)
	mu      sync.Mutex
	manager *chat.Manager
	dirty   bool
	lastErr string
}

type Option func(*SessionManager)

func WithClock(now func() time.Time) Option {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(store storage.Store, log *zap.Logger, opts ...Option) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &SessionManager{
		store:    store,
		log:      log,
		sessions: make(map[int64]*Session),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *SessionManager) lookup(userID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// getOrCreate loads a user's manager at most once at a time per user. The
// registry lock is not held during the load.
func (m *SessionManager) getOrCreate(ctx context.Context, userID int64) (*Session, error) {
	if s := m.lookup(userID); s != nil {
		return s, nil
	}
	v, err, _ := m.loads.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		if s := m.lookup(userID); s != nil {
			return s, nil
		}
		mgr, err := m.load(ctx, userID)
		if err != nil {
			return nil, err
		}
		s := &Session{UserID: userID, LoadedAt: time.Now(), manager: mgr}
		m.mu.Lock()
		m.sessions[userID] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *SessionManager) load(ctx context.Context, userID int64) (*chat.Manager, error) {
	var opts []chat.Option
	if m.now != nil {
		opts = append(opts, chat.WithClock(m.now))
	}
	if m.store == nil {
		return chat.NewManager(userID, opts...), nil
	}
	mgr, err := m.store.Load(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return chat.NewManager(userID, opts...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if m.now != nil {
		mgr.SetClock(m.now)
	}
	m.log.Debug("session loaded", zap.Int64("user_id", userID), zap.Int("chats", len(mgr.Chats)))
	return mgr, nil
}

// Do runs fn with exclusive access to the user's manager. The manager is
// marked dirty when fn returns, whatever its result.
func (m *SessionManager) Do(ctx context.Context, userID int64, fn func(*chat.Manager) error) error {
	s, err := m.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
	return fn(s.manager)
}

// View runs fn with exclusive access but does not mark the manager dirty.
func (m *SessionManager) View(ctx context.Context, userID int64, fn func(*chat.Manager) error) error {
	s, err := m.getOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.manager)
}

// Flush saves every dirty manager and returns the first error seen.
func (m *SessionManager) Flush(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var first error
	saved := 0
	for _, s := range sessions {
		s.mu.Lock()
		if !s.dirty {
			s.mu.Unlock()
			continue
		}
		err := m.store.Save(ctx, s.manager)
		if err != nil {
			s.lastErr = err.Error()
			if first == nil {
				first = fmt.Errorf("save user %d: %w", s.UserID, err)
			}
		} else {
			s.dirty = false
			s.lastErr = ""
			saved++
		}
		s.mu.Unlock()
	}
	if saved > 0 {
		m.log.Debug("sessions flushed", zap.Int("saved", saved))
	}
	return first
}

// RunFlusher flushes every interval and once more when ctx ends.
func (m *SessionManager) RunFlusher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// ctx is already cancelled; give the final save its own deadline.
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := m.Flush(final); err != nil {
				m.log.Error("final flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := m.Flush(ctx); err != nil {
				m.log.Warn("flush failed", zap.Error(err))
			}
		}
	}
}

// Status describes the user's session for the /status command.
func (m *SessionManager) Status(userID int64) (string, bool) {
	m.mu.Lock()
	s := m.sessions[userID]
	m.mu.Unlock()
	if s == nil {
		return "no session", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := "saved"
	if s.dirty {
		st = "unsaved changes"
	}
	out := fmt.Sprintf("user %d: %d chats (%s)", userID, len(s.manager.Chats), st)
	if s.lastErr != "" {
		out += " lastErr=" + s.lastErr
	}
	return out, true
}
