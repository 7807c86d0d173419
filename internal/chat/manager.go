package chat

import (
	"sort"
	"time"
)

// Manager owns every chat of one operator and tracks the active one.
// It is not safe for concurrent use; callers serialize access per user.
type Manager struct {
	UserID       int64
	Chats        map[string]*Chat
	ActiveChatID string

	now func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(userID int64, opts ...Option) *Manager {
	m := &Manager{
		UserID: userID,
		Chats:  make(map[string]*Chat),
		now:    defaultNow,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func defaultNow() time.Time { return time.Now().UTC() }

// SetClock swaps the clock of a manager that was built by Unmarshal.
func (m *Manager) SetClock(now func() time.Time) {
	if now != nil {
		m.now = now
	}
}

func (m *Manager) clock() time.Time {
	if m.now == nil {
		return defaultNow()
	}
	return m.now()
}

// CreateChat adds a new chat. It becomes active when no chat is active.
func (m *Manager) CreateChat(name, description string) *Chat {
	now := m.clock()
	c := NewChat(NewProfile(name, description, now), now)
	m.Chats[c.ID] = c
	if m.ActiveChat() == nil {
		m.ActiveChatID = c.ID
	}
	return c
}

// ActiveChat returns nil when no chat is active or the active id is stale.
func (m *Manager) ActiveChat() *Chat {
	if m.ActiveChatID == "" {
		return nil
	}
	return m.Chats[m.ActiveChatID]
}

func (m *Manager) Chat(id string) (*Chat, bool) {
	c, ok := m.Chats[id]
	return c, ok
}

func (m *Manager) SwitchChat(id string) bool {
	if _, ok := m.Chats[id]; !ok {
		return false
	}
	m.ActiveChatID = id
	return true
}

// DeleteChat removes a chat. Deleting the active chat hands the active
// slot to the most recently used remaining chat.
func (m *Manager) DeleteChat(id string) bool {
	if _, ok := m.Chats[id]; !ok {
		return false
	}
	delete(m.Chats, id)
	if m.ActiveChatID != id {
		return true
	}
	m.ActiveChatID = ""
	var next *Chat
	for _, c := range m.Chats {
		if next == nil || c.LastActivityAt.After(next.LastActivityAt) ||
			(c.LastActivityAt.Equal(next.LastActivityAt) && c.ID < next.ID) {
			next = c
		}
	}
	if next != nil {
		m.ActiveChatID = next.ID
	}
	return true
}

func (m *Manager) AddMessageToActiveChat(role Role, content string, typ MessageType) bool {
	c := m.ActiveChat()
	if c == nil {
		return false
	}
	_, ok := c.AppendMessage(role, content, typ, m.clock())
	return ok
}

// AddMessage appends to a chat by id, for replies that outlive a switch.
func (m *Manager) AddMessage(chatID string, role Role, content string, typ MessageType) (Message, bool) {
	c, ok := m.Chats[chatID]
	if !ok {
		return Message{}, false
	}
	return c.AppendMessage(role, content, typ, m.clock())
}

// Now exposes the manager clock to callers that edit chat memory.
func (m *Manager) Now() time.Time { return m.clock() }

// ListChats summarizes every chat, most recently active first.
func (m *Manager) ListChats() []Summary {
	out := make([]Summary, 0, len(m.Chats))
	for _, c := range m.Chats {
		s := Summary{
			ChatID:         c.ID,
			ClientName:     c.Profile.Name,
			IsActive:       c.ID == m.ActiveChatID,
			MessageCount:   len(c.Messages),
			LastActivityAt: c.LastActivityAt,
			Stage:          c.Stage,
		}
		if last, ok := c.LastMessage(); ok {
			s.LastMessagePreview = Preview(last.Content, 50)
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].ChatID < out[j].ChatID
	})
	return out
}

// AllChats returns every chat, most recently active first.
func (m *Manager) AllChats() []*Chat {
	out := make([]*Chat, 0, len(m.Chats))
	for _, c := range m.Chats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LastActivityAt.After(out[j].LastActivityAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
