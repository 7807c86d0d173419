package telegram

import (
	"context"
	"fmt"
	"strings"

	"chatterbot/internal/chat"
	"chatterbot/internal/format"
)

func (h *Handlers) chatMemory(ctx context.Context, userID int64) (Reply, error) {
	var text string
	err := h.sessions.View(ctx, userID, func(m *chat.Manager) error {
		c := m.ActiveChat()
		if c == nil {
			return errNoActiveChat
		}
		text = format.ChatMemory(c)
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Keyboard: mainMenu()}, nil
}

var memoryUsage = map[string]string{
	"/note":     "usage: /note <text>",
	"/pref":     "usage: /pref <key>=<value>",
	"/interest": "usage: /interest <text>",
	"/mood":     "usage: /mood <text>",
	"/style":    "usage: /style <text>",
}

// editMemory applies one memory command to the active chat.
func (h *Handlers) editMemory(ctx context.Context, userID int64, name, arg string) (Reply, error) {
	usage := Reply{Text: memoryUsage[name]}
	if arg == "" {
		return usage, nil
	}

	var done string
	var applied bool
	err := h.sessions.Do(ctx, userID, func(m *chat.Manager) error {
		c := m.ActiveChat()
		if c == nil {
			return errNoActiveChat
		}
		switch name {
		case "/note":
			applied = c.AddNote(arg, m.Now())
			done = "📝 Note saved for " + c.Profile.Name
		case "/pref":
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return nil
			}
			applied = c.SetPreference(key, value)
			done = fmt.Sprintf("⭐ %s: %s = %s", c.Profile.Name, strings.TrimSpace(key), strings.TrimSpace(value))
		case "/interest":
			applied = true
			done = fmt.Sprintf("🎯 Interest added for %s: %s", c.Profile.Name, arg)
			if !c.AddInterest(arg) {
				done = fmt.Sprintf("🎯 %s already has that interest.", c.Profile.Name)
			}
		case "/mood":
			applied = c.SetMood(arg)
			done = fmt.Sprintf("🌡 %s's mood is now %s", c.Profile.Name, arg)
		case "/style":
			c.Memory.InteractionPattern.CommunicationStyle = arg
			applied = true
			done = fmt.Sprintf("✍️ %s's style: %s", c.Profile.Name, arg)
		}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	if !applied {
		return usage, nil
	}
	return Reply{Text: done, Keyboard: mainMenu()}, nil
}
