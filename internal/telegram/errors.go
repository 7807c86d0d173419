package telegram

import (
	"errors"

	"chatterbot/internal/llm"
)

var (
	errNoActiveChat = errors.New("no active chat")
	errChatNotFound = errors.New("chat not found")
	errExpired      = errors.New("action expired")
	errBadCallback  = errors.New("unknown action")
)

const (
	msgNoActiveChat = "💡 No active chat yet. Create one with ➕ New chat."
	msgChatNotFound = "🤷 That chat no longer exists."
	msgExpired      = "⌛ This action has expired. Please start again from the menu."
	msgBadCallback  = "🤔 That button is no longer supported. Please open the menu again."
	msgUnavailable  = "😔 Sorry, the AI service is unavailable right now. Please try again in a moment."
	msgGeneric      = "⚠️ Something went wrong. Please try again."
)

// userMessage maps an error to the single text shown to the operator.
func userMessage(err error) string {
	switch {
	case errors.Is(err, errNoActiveChat):
		return msgNoActiveChat
	case errors.Is(err, errChatNotFound):
		return msgChatNotFound
	case errors.Is(err, errExpired):
		return msgExpired
	case errors.Is(err, errBadCallback):
		return msgBadCallback
	case errors.Is(err, llm.ErrUnavailable):
		return msgUnavailable
	default:
		return msgGeneric
	}
}

// expected errors are normal user-facing outcomes and are not logged as failures.
func expected(err error) bool {
	return errors.Is(err, errNoActiveChat) || errors.Is(err, errChatNotFound) ||
		errors.Is(err, errExpired) || errors.Is(err, errBadCallback)
}
