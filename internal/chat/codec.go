package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire shapes use camelCase field names and RFC 3339 timestamps. Required
// fields are pointers so that absence can be told apart from zero values.

type profileJSON struct {
	ID                *string        `json:"id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	Tags              []string       `json:"tags"`
	Metadata          map[string]any `json:"metadata"`
	CreatedAt         time.Time      `json:"createdAt"`
	LastInteractionAt time.Time      `json:"lastInteractionAt"`
}

func (p Profile) MarshalJSON() ([]byte, error) {
	id := p.ID
	return json.Marshal(profileJSON{
		ID:                &id,
		Name:              p.Name,
		Description:       p.Description,
		Tags:              normalizeTags(p.Tags),
		Metadata:          nonNilMap(p.Metadata),
		CreatedAt:         p.CreatedAt,
		LastInteractionAt: p.LastInteractionAt,
	})
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	var w profileJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID == nil || *w.ID == "" {
		return fmt.Errorf("profile: %w: id", ErrMissingField)
	}
	name := w.Name
	if name == "" {
		name = "Client_" + prefix(*w.ID, 8)
	}
	*p = Profile{
		ID:                *w.ID,
		Name:              name,
		Description:       w.Description,
		Tags:              normalizeTags(w.Tags),
		Metadata:          nonNilMap(w.Metadata),
		CreatedAt:         w.CreatedAt,
		LastInteractionAt: w.LastInteractionAt,
	}
	return nil
}

type messageJSON struct {
	ID        *string     `json:"id"`
	Role      *Role       `json:"role"`
	Content   *string     `json:"content"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Tags      []string    `json:"tags"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	id, role, content := m.ID, m.Role, m.Content
	return json.Marshal(messageJSON{
		ID:        &id,
		Role:      &role,
		Content:   &content,
		Type:      m.Type,
		Timestamp: m.Timestamp,
		Tags:      normalizeTags(m.Tags),
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w messageJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch {
	case w.ID == nil || *w.ID == "":
		return fmt.Errorf("message: %w: id", ErrMissingField)
	case w.Role == nil:
		return fmt.Errorf("message %s: %w: role", *w.ID, ErrMissingField)
	case w.Content == nil:
		return fmt.Errorf("message %s: %w: content", *w.ID, ErrMissingField)
	}
	if !w.Role.Valid() {
		return fmt.Errorf("message %s: %w: role %q", *w.ID, ErrInvalidValue, *w.Role)
	}
	typ := w.Type
	if typ == "" {
		typ = TypeText
	}
	if !typ.Valid() {
		return fmt.Errorf("message %s: %w: type %q", *w.ID, ErrInvalidValue, typ)
	}
	*m = Message{
		ID:        *w.ID,
		Role:      *w.Role,
		Content:   *w.Content,
		Type:      typ,
		Timestamp: w.Timestamp,
		Tags:      normalizeTags(w.Tags),
	}
	return nil
}

type purchaseJSON struct {
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	ContentPreview string    `json:"contentPreview"`
}

type noteJSON struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type patternJSON struct {
	CommunicationStyle string `json:"communicationStyle,omitempty"`
	ActiveHours        string `json:"activeHours,omitempty"`
	ResponseLength     string `json:"responseLength,omitempty"`
}

type memoryJSON struct {
	Preferences        map[string]string `json:"preferences"`
	Interests          []string          `json:"interests"`
	PurchaseHistory    []purchaseJSON    `json:"purchaseHistory"`
	Notes              []noteJSON        `json:"notes"`
	InteractionPattern patternJSON       `json:"interactionPattern"`
}

func (m Memory) MarshalJSON() ([]byte, error) {
	w := memoryJSON{
		Preferences:     m.Preferences,
		Interests:       m.Interests,
		PurchaseHistory: make([]purchaseJSON, 0, len(m.PurchaseHistory)),
		Notes:           make([]noteJSON, 0, len(m.Notes)),
		InteractionPattern: patternJSON{
			CommunicationStyle: m.InteractionPattern.CommunicationStyle,
			ActiveHours:        m.InteractionPattern.ActiveHours,
			ResponseLength:     m.InteractionPattern.ResponseLength,
		},
	}
	if w.Preferences == nil {
		w.Preferences = map[string]string{}
	}
	if w.Interests == nil {
		w.Interests = []string{}
	}
	for _, p := range m.PurchaseHistory {
		w.PurchaseHistory = append(w.PurchaseHistory, purchaseJSON(p))
	}
	for _, n := range m.Notes {
		w.Notes = append(w.Notes, noteJSON(n))
	}
	return json.Marshal(w)
}

func (m *Memory) UnmarshalJSON(b []byte) error {
	var w memoryJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := newMemory()
	for k, v := range w.Preferences {
		out.Preferences[k] = v
	}
	out.Interests = append(out.Interests, w.Interests...)
	for _, p := range w.PurchaseHistory {
		out.PurchaseHistory = append(out.PurchaseHistory, Purchase(p))
	}
	for _, n := range w.Notes {
		out.Notes = append(out.Notes, Note(n))
	}
	out.InteractionPattern = InteractionPattern{
		CommunicationStyle: w.InteractionPattern.CommunicationStyle,
		ActiveHours:        w.InteractionPattern.ActiveHours,
		ResponseLength:     w.InteractionPattern.ResponseLength,
	}
	*m = out
	return nil
}

type chatJSON struct {
	ID             *string   `json:"id"`
	Profile        *Profile  `json:"profile"`
	Messages       []Message `json:"messages"`
	Stage          Stage     `json:"stage"`
	Mood           string    `json:"mood"`
	Memory         *Memory   `json:"memory"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

func (c Chat) MarshalJSON() ([]byte, error) {
	id, profile, memory := c.ID, c.Profile, c.Memory
	msgs := c.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(chatJSON{
		ID:             &id,
		Profile:        &profile,
		Messages:       msgs,
		Stage:          StageFor(len(msgs)),
		Mood:           c.Mood,
		Memory:         &memory,
		CreatedAt:      c.CreatedAt,
		LastActivityAt: c.LastActivityAt,
	})
}

// UnmarshalJSON rejects chats without id or profile. The stored stage is
// ignored and derived again from the message count.
func (c *Chat) UnmarshalJSON(b []byte) error {
	var w chatJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.ID == nil || *w.ID == "" {
		return fmt.Errorf("chat: %w: id", ErrMissingField)
	}
	if w.Profile == nil {
		return fmt.Errorf("chat %s: %w: profile", *w.ID, ErrMissingField)
	}
	mem := newMemory()
	if w.Memory != nil {
		mem = *w.Memory
	}
	msgs := w.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	mood := w.Mood
	if mood == "" {
		mood = "neutral"
	}
	*c = Chat{
		ID:             *w.ID,
		Profile:        *w.Profile,
		Messages:       msgs,
		Stage:          StageFor(len(msgs)),
		Mood:           mood,
		Memory:         mem,
		CreatedAt:      w.CreatedAt,
		LastActivityAt: w.LastActivityAt,
	}
	return nil
}

type managerJSON struct {
	UserID       *int64           `json:"userId"`
	Chats        map[string]*Chat `json:"chats"`
	ActiveChatID *string          `json:"activeChatId"`
}

func (m *Manager) MarshalJSON() ([]byte, error) {
	uid := m.UserID
	w := managerJSON{UserID: &uid, Chats: m.Chats}
	if w.Chats == nil {
		w.Chats = map[string]*Chat{}
	}
	if m.ActiveChatID != "" {
		active := m.ActiveChatID
		w.ActiveChatID = &active
	}
	return json.Marshal(w)
}

// UnmarshalJSON requires userId. A stale activeChatId is dropped.
func (m *Manager) UnmarshalJSON(b []byte) error {
	var w managerJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.UserID == nil {
		return fmt.Errorf("manager: %w: userId", ErrMissingField)
	}
	chats := make(map[string]*Chat, len(w.Chats))
	for key, c := range w.Chats {
		if c == nil {
			return fmt.Errorf("manager %d: %w: chat %s", *w.UserID, ErrMissingField, key)
		}
		if c.ID != key {
			return fmt.Errorf("manager %d: %w: chat key %s holds chat %s", *w.UserID, ErrInvalidValue, key, c.ID)
		}
		chats[key] = c
	}
	now := m.now
	if now == nil {
		now = defaultNow
	}
	*m = Manager{UserID: *w.UserID, Chats: chats, now: now}
	if w.ActiveChatID != nil {
		if _, ok := chats[*w.ActiveChatID]; ok {
			m.ActiveChatID = *w.ActiveChatID
		}
	}
	return nil
}

// Marshal and Unmarshal are convenience helpers around encoding/json.
func Marshal(m *Manager) ([]byte, error) { return json.Marshal(m) }

func Unmarshal(b []byte) (*Manager, error) {
	m := NewManager(0)
	if err := json.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
