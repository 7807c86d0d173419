package util

import (
	"html"
	"strings"
)

// FormatTelegramHTML escapes s for Telegram's HTML parse mode and renders the
// first line in bold as a title. Single-line texts are only escaped.
func FormatTelegramHTML(s string) string {
	s = SanitizeTelegramText(s)
	title, rest, ok := strings.Cut(s, "\n")
	if !ok {
		return html.EscapeString(s)
	}
	return "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(rest)
}

// IsParseEntitiesError reports whether Telegram rejected a message because
// of its markup.
func IsParseEntitiesError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}

// IsNotModifiedError reports whether an edit was rejected because nothing changed.
func IsNotModifiedError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}

// IsExpiredCallbackError reports whether a callback query is too old to answer.
func IsExpiredCallbackError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "query is too old") || strings.Contains(s, "query id is invalid")
}
