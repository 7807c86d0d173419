package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"chatterbot/internal/chat"
	"chatterbot/internal/format"
	"chatterbot/internal/llm"
	"chatterbot/internal/state"
)

const (
	awaitChatName  = "chat_name"
	awaitChatReply = "chat_reply"
)

func awaitKey(userID int64) string   { return "await:" + strconv.FormatInt(userID, 10) }
func pendingKey(userID int64) string { return "reply:" + strconv.FormatInt(userID, 10) }

func (h *Handlers) setAwait(userID int64, what string) {
	h.state.Set(awaitKey(userID), what, h.ttl)
}

func (h *Handlers) clearAwait(userID int64) {
	h.state.Delete(awaitKey(userID))
}

// takeAwait returns and clears the pending input flag. Of two messages
// racing for one flag only the first gets it.
func (h *Handlers) takeAwait(userID int64) string {
	v, _ := h.state.Take(awaitKey(userID))
	return v
}

// pendingReply is a suggestion waiting for the operator's decision.
type pendingReply struct {
	ChatID     string `json:"chat_id"`
	ClientName string `json:"client_name"`
	Prompt     string `json:"prompt"`
	Text       string `json:"text"`
	Attempt    int    `json:"attempt"`
	Fallback   bool   `json:"fallback"`
}

func (h *Handlers) pending(userID int64) (pendingReply, bool) {
	return state.GetJSON[pendingReply](h.state, pendingKey(userID))
}

func (h *Handlers) askClientMessage(ctx context.Context, userID int64) (Reply, error) {
	var name string
	err := h.sessions.View(ctx, userID, func(m *chat.Manager) error {
		c := m.ActiveChat()
		if c == nil {
			return errNoActiveChat
		}
		name = c.Profile.Name
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	h.setAwait(userID, awaitChatReply)
	return Reply{
		Text:     fmt.Sprintf("📨 Paste the message %s sent you.", name),
		Keyboard: Keyboard{row(button("✖️ Cancel", Command{Kind: CmdCancel}))},
	}, nil
}

// suggestReply records the client's message in the active chat and asks the
// LLM for a reply the operator can accept, regenerate or drop.
func (h *Handlers) suggestReply(ctx context.Context, userID int64, inbound string) (Reply, error) {
	var p pendingReply
	var seed int
	err := h.sessions.Do(ctx, userID, func(m *chat.Manager) error {
		c := m.ActiveChat()
		if c == nil {
			return errNoActiveChat
		}
		p = pendingReply{
			ChatID:     c.ID,
			ClientName: c.Profile.Name,
			Prompt:     format.BuildPrompt(c, inbound),
		}
		c.AppendMessage(chat.RoleUser, inbound, chat.TypeText, m.Now())
		seed = len(c.Messages)
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	return h.complete(ctx, userID, p, seed)
}

func (h *Handlers) regenerate(ctx context.Context, userID int64) (Reply, error) {
	p, ok := state.TakeJSON[pendingReply](h.state, pendingKey(userID))
	if !ok {
		return Reply{}, errExpired
	}
	r, err := h.complete(ctx, userID, p, p.Attempt)
	if err != nil {
		h.restorePending(userID, p)
		return Reply{}, err
	}
	r.Toast = "New suggestion"
	return r, nil
}

// restorePending puts back a suggestion taken by an action that failed.
func (h *Handlers) restorePending(userID int64, p pendingReply) {
	if err := state.SetJSON(h.state, pendingKey(userID), p, h.ttl); err != nil {
		h.log.Warn("restore pending reply", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// complete runs the LLM outside the session lock. An unavailable upstream
// yields a canned persona reply instead of an error.
func (h *Handlers) complete(ctx context.Context, userID int64, p pendingReply, seed int) (Reply, error) {
	text, err := h.llm.Complete(ctx, p.Prompt, h.persona.SystemPrompt)
	p.Fallback = false
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		h.log.Warn("llm unavailable, using fallback", zap.Int64("user_id", userID), zap.Error(err))
		text = h.persona.Fallback(seed)
		p.Fallback = true
	case err != nil:
		return Reply{}, err
	}
	p.Text = text
	p.Attempt++
	if err := state.SetJSON(h.state, pendingKey(userID), p, h.ttl); err != nil {
		return Reply{}, err
	}

	msg := fmt.Sprintf("💬 Suggested reply for %s\n\n%s", p.ClientName, p.Text)
	if p.Fallback {
		msg = fmt.Sprintf("💬 Suggested reply for %s\n%s\nHere is a template reply instead:\n\n%s", p.ClientName, msgUnavailable, p.Text)
	}
	return Reply{Text: msg, Keyboard: suggestionKeyboard()}, nil
}

func suggestionKeyboard() Keyboard {
	return Keyboard{
		row(
			button("✅ Use", Command{Kind: CmdUseReply, Type: chat.TypeText}),
			button("💋 As flirt", Command{Kind: CmdUseReply, Type: chat.TypeFlirt}),
		),
		row(
			button("💰 As PPV", Command{Kind: CmdUseReply, Type: chat.TypePPV}),
			button("🙏 As tip request", Command{Kind: CmdUseReply, Type: chat.TypeTipRequest}),
		),
		row(
			button("🔄 Regenerate", Command{Kind: CmdRegenerate}),
			button("✖️ Discard", Command{Kind: CmdDiscard}),
		),
	}
}

func (h *Handlers) useReply(ctx context.Context, userID int64, typ chat.MessageType) (Reply, error) {
	// Taken before the append so a double tap stores the reply once.
	p, ok := state.TakeJSON[pendingReply](h.state, pendingKey(userID))
	if !ok {
		return Reply{}, errExpired
	}
	err := h.sessions.Do(ctx, userID, func(m *chat.Manager) error {
		if _, ok := m.AddMessage(p.ChatID, chat.RoleAssistant, p.Text, typ); !ok {
			return errChatNotFound
		}
		return nil
	})
	if errors.Is(err, errChatNotFound) {
		return Reply{}, err
	}
	if err != nil {
		h.restorePending(userID, p)
		return Reply{}, err
	}
	return Reply{
		Text:     fmt.Sprintf("✅ Saved to %s's chat as %s:\n\n%s", p.ClientName, typ, p.Text),
		Keyboard: mainMenu(),
		Toast:    "Saved",
	}, nil
}

func (h *Handlers) discardReply(userID int64) Reply {
	h.state.Delete(pendingKey(userID))
	return Reply{Text: "✖️ Suggestion discarded.", Keyboard: mainMenu(), Toast: "Discarded"}
}
