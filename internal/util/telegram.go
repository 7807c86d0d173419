package util

import "strings"

// MaxMessageRunes is Telegram's limit for one text message.
const MaxMessageRunes = 4096

// SanitizeTelegramText removes NUL bytes and normalizes line endings.
func SanitizeTelegramText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// TrimToRunes truncates s to at most n runes, marking the cut with an ellipsis.
func TrimToRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
