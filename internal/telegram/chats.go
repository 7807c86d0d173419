package telegram

import (
	"context"
	"fmt"
	"strings"

	"chatterbot/internal/chat"
	"chatterbot/internal/format"
)

func mainMenu() Keyboard {
	return Keyboard{
		row(button("💬 Reply to client", Command{Kind: CmdReply})),
		row(button("➕ New chat", Command{Kind: CmdNewChat}), button("📋 My chats", Command{Kind: CmdListChats})),
		row(button("👤 Info", Command{Kind: CmdInfo}), button("🧠 Memory", Command{Kind: CmdMemory}), button("📊 Analytics", Command{Kind: CmdAnalytics})),
	}
}

func backRow() []Button {
	return row(button("⬅️ Menu", Command{Kind: CmdMenu}))
}

func menuReply() Reply {
	return Reply{Text: "🏠 Main menu\nPick what to do next.", Keyboard: mainMenu()}
}

func (h *Handlers) askChatName(userID int64) Reply {
	h.setAwait(userID, awaitChatName)
	return Reply{
		Text:     "✏️ Send me the client's name.",
		Keyboard: Keyboard{row(button("✖️ Cancel", Command{Kind: CmdCancel}))},
	}
}

func (h *Handlers) createChat(ctx context.Context, userID int64, name string) (Reply, error) {
	name = strings.TrimSpace(name)
	var made *chat.Chat
	var active bool
	err := h.sessions.Do(ctx, userID, func(m *chat.Manager) error {
		made = m.CreateChat(chat.Preview(name, 64), "")
		active = m.ActiveChatID == made.ID
		return nil
	})
	if err != nil {
		return Reply{}, err
	}

	text := fmt.Sprintf("✅ Chat with %s created.", made.Profile.Name)
	kb := mainMenu()
	if active {
		text += "\nIt is now your active chat."
	} else {
		kb = append(Keyboard{row(button("▶️ Switch to "+made.Profile.Name, Command{Kind: CmdSwitch, ChatID: made.ID}))}, kb...)
	}
	return Reply{Text: text, Keyboard: kb, Toast: "Chat created"}, nil
}

func (h *Handlers) listChats(ctx context.Context, userID int64) (Reply, error) {
	var rows []chat.Summary
	err := h.sessions.View(ctx, userID, func(m *chat.Manager) error {
		rows = m.ListChats()
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	if len(rows) == 0 {
		return Reply{
			Text:     "📋 No chats yet.",
			Keyboard: Keyboard{row(button("➕ New chat", Command{Kind: CmdNewChat})), backRow()},
		}, nil
	}

	now := h.now()
	var b strings.Builder
	b.WriteString("📋 Your chats\n")
	kb := make(Keyboard, 0, len(rows)+2)
	for _, s := range rows {
		marker := "▫️"
		label := s.ClientName
		if s.IsActive {
			marker = "▶️"
			label += " ✓"
		}
		fmt.Fprintf(&b, "%s %s · %d msgs · %s · %s\n", marker, s.ClientName, s.MessageCount, format.StageLabel(s.Stage), format.Since(s.LastActivityAt, now))
		if s.LastMessagePreview != "" {
			fmt.Fprintf(&b, "    %s\n", s.LastMessagePreview)
		}
		kb = append(kb, row(
			button(label, Command{Kind: CmdSwitch, ChatID: s.ChatID}),
			button("🗑", Command{Kind: CmdDelete, ChatID: s.ChatID}),
		))
	}
	kb = append(kb, row(button("➕ New chat", Command{Kind: CmdNewChat})), backRow())
	return Reply{Text: strings.TrimRight(b.String(), "\n"), Keyboard: kb}, nil
}

func (h *Handlers) switchChat(ctx context.Context, userID int64, chatID string) (Reply, error) {
	var info string
	err := h.sessions.Do(ctx, userID, func(m *chat.Manager) error {
		if !m.SwitchChat(chatID) {
			return errChatNotFound
		}
		info = format.ChatInfo(m.ActiveChat(), h.now())
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: info, Keyboard: mainMenu(), Toast: "Switched"}, nil
}

func (h *Handlers) confirmDelete(ctx context.Context, userID int64, chatID string) (Reply, error) {
	var name string
	err := h.sessions.View(ctx, userID, func(m *chat.Manager) error {
		c, ok := m.Chat(chatID)
		if !ok {
			return errChatNotFound
		}
		name = c.Profile.Name
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Text: fmt.Sprintf("🗑 Delete the chat with %s?\nIts messages and memory will be lost.", name),
		Keyboard: Keyboard{row(
			button("Yes, delete", Command{Kind: CmdConfirmDelete, ChatID: chatID}),
			button("Keep it", Command{Kind: CmdListChats}),
		)},
	}, nil
}

func (h *Handlers) deleteChat(ctx context.Context, userID int64, chatID string) (Reply, error) {
	err := h.sessions.Do(ctx, userID, func(m *chat.Manager) error {
		if !m.DeleteChat(chatID) {
			return errChatNotFound
		}
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	if p, ok := h.pending(userID); ok && p.ChatID == chatID {
		h.state.Delete(pendingKey(userID))
	}
	r, err := h.listChats(ctx, userID)
	r.Toast = "Chat deleted"
	return r, err
}

func (h *Handlers) chatInfo(ctx context.Context, userID int64) (Reply, error) {
	var text string
	err := h.sessions.View(ctx, userID, func(m *chat.Manager) error {
		c := m.ActiveChat()
		if c == nil {
			return errNoActiveChat
		}
		text = format.ChatInfo(c, h.now())
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Keyboard: mainMenu()}, nil
}

func (h *Handlers) analytics(ctx context.Context, userID int64) (Reply, error) {
	var text string
	err := h.sessions.View(ctx, userID, func(m *chat.Manager) error {
		text = format.ChatAnalytics(m.AllChats(), h.now())
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text, Keyboard: mainMenu()}, nil
}
