package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Profile identifies one client counterparty.
type Profile struct {
	ID                string
	Name              string
	Description       string
	Tags              []string
	Metadata          map[string]any
	CreatedAt         time.Time
	LastInteractionAt time.Time
}

// NewProfile builds a profile with a fresh id. An empty name becomes
// "Client_" plus the first 8 characters of the id.
func NewProfile(name, description string, now time.Time) Profile {
	id := uuid.NewString()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Client_" + id[:8]
	}
	return Profile{
		ID:                id,
		Name:              name,
		Description:       strings.TrimSpace(description),
		Tags:              []string{},
		Metadata:          map[string]any{},
		CreatedAt:         now,
		LastInteractionAt: now,
	}
}

func (p *Profile) AddTag(tag string) { p.Tags = addTag(p.Tags, strings.TrimSpace(tag)) }

// Message is one immutable turn of a conversation.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Type      MessageType
	Timestamp time.Time
	Tags      []string
}

// Purchase is a compact record of a PPV offer sent to the client.
type Purchase struct {
	Type           string
	Timestamp      time.Time
	ContentPreview string
}

type Note struct {
	Text      string
	CreatedAt time.Time
}

// InteractionPattern holds operator-maintained hints about how the client talks.
type InteractionPattern struct {
	CommunicationStyle string
	ActiveHours        string
	ResponseLength     string
}

func (p InteractionPattern) IsZero() bool {
	return p == InteractionPattern{}
}

// Memory is what the operator has learned about a client.
type Memory struct {
	Preferences        map[string]string
	Interests          []string
	PurchaseHistory    []Purchase
	Notes              []Note
	InteractionPattern InteractionPattern
}

func newMemory() Memory {
	return Memory{
		Preferences:     map[string]string{},
		Interests:       []string{},
		PurchaseHistory: []Purchase{},
		Notes:           []Note{},
	}
}

// SortedPreferenceKeys returns preference keys in lexical order.
func (m Memory) SortedPreferenceKeys() []string {
	keys := make([]string, 0, len(m.Preferences))
	for k := range m.Preferences {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const purchasePPVOffer = "ppv_offer"

// Chat is a conversation thread with one client. Messages are kept in
// chronological order and are never rewritten.
type Chat struct {
	ID             string
	Profile        Profile
	Messages       []Message
	Stage          Stage
	Mood           string
	Memory         Memory
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func NewChat(profile Profile, now time.Time) *Chat {
	return &Chat{
		ID:             uuid.NewString(),
		Profile:        profile,
		Messages:       []Message{},
		Stage:          StageInitial,
		Mood:           "neutral",
		Memory:         newMemory(),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// AppendMessage adds a message and refreshes the derived state. It returns
// false without touching the chat when role or type is unknown.
func (c *Chat) AppendMessage(role Role, content string, typ MessageType, at time.Time) (Message, bool) {
	if !role.Valid() || !typ.Valid() {
		return Message{}, false
	}
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Type:      typ,
		Timestamp: at,
		Tags:      []string{},
	}
	c.Messages = append(c.Messages, msg)
	c.LastActivityAt = at
	c.Profile.LastInteractionAt = at
	c.Stage = StageFor(len(c.Messages))

	if typ == TypePPV && role == RoleAssistant {
		c.Memory.PurchaseHistory = append(c.Memory.PurchaseHistory, Purchase{
			Type:           purchasePPVOffer,
			Timestamp:      at,
			ContentPreview: Preview(content, 50),
		})
	}
	return msg, true
}

// RecentMessages returns the last limit messages, oldest first.
func (c *Chat) RecentMessages(limit int) []Message {
	if limit <= 0 || len(c.Messages) == 0 {
		return []Message{}
	}
	start := len(c.Messages) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(c.Messages)-start)
	copy(out, c.Messages[start:])
	return out
}

// LastMessage returns the newest message, if any.
func (c *Chat) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ContextSummary renders a short deterministic description of the chat.
func (c *Chat) ContextSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Client: %s\n", c.Profile.Name)
	fmt.Fprintf(&b, "Stage: %s\n", c.Stage)
	fmt.Fprintf(&b, "Mood: %s\n", c.Mood)

	keys := c.Memory.SortedPreferenceKeys()
	if len(keys) > 0 {
		if len(keys) > 3 {
			keys = keys[:3]
		}
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+c.Memory.Preferences[k])
		}
		fmt.Fprintf(&b, "Preferences: %s\n", strings.Join(parts, ", "))
	}

	recent := c.RecentMessages(3)
	if len(recent) > 0 {
		b.WriteString("Recent messages:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "- %s: %s\n", m.Role, Preview(m.Content, 100))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// SetPreference stores a preference; empty keys are ignored.
func (c *Chat) SetPreference(key, value string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	c.Memory.Preferences[key] = strings.TrimSpace(value)
	return true
}

func (c *Chat) AddInterest(interest string) bool {
	interest = strings.TrimSpace(interest)
	if interest == "" {
		return false
	}
	for _, it := range c.Memory.Interests {
		if strings.EqualFold(it, interest) {
			return false
		}
	}
	c.Memory.Interests = append(c.Memory.Interests, interest)
	return true
}

func (c *Chat) AddNote(text string, at time.Time) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	c.Memory.Notes = append(c.Memory.Notes, Note{Text: text, CreatedAt: at})
	return true
}

func (c *Chat) SetMood(mood string) bool {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return false
	}
	c.Mood = mood
	return true
}
