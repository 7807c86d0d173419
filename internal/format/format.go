// Package format renders chats as operator-facing text and LLM prompts.
// Every function here is pure: the output depends only on its arguments.
package format

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"chatterbot/internal/chat"
)

// NoChatsMessage is returned by ChatAnalytics for an empty collection.
const NoChatsMessage = "📊 No chats yet. Create one to see analytics."

var stageLabels = map[chat.Stage]string{
	chat.StageInitial:   "🌱 Initial",
	chat.StageWarmingUp: "🔥 Warming up",
	chat.StageEngaged:   "💬 Engaged",
	chat.StageIntimate:  "💞 Intimate",
}

func StageLabel(s chat.Stage) string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// Since buckets the elapsed time into minutes, hours or days.
func Since(then, now time.Time) string {
	d := now.Sub(then)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d d ago", int(d/(24*time.Hour)))
	}
}

// ChatInfo renders the short card shown for the active chat.
func ChatInfo(c *chat.Chat, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n", c.Profile.Name)
	if c.Profile.Description != "" {
		fmt.Fprintf(&b, "%s\n", c.Profile.Description)
	}
	fmt.Fprintf(&b, "Stage: %s\n", StageLabel(c.Stage))
	fmt.Fprintf(&b, "Messages: %d\n", len(c.Messages))
	fmt.Fprintf(&b, "Last activity: %s\n", Since(c.LastActivityAt, now))

	if last, ok := c.LastMessage(); ok {
		fmt.Fprintf(&b, "Last message (%s): %s\n", last.Role, chat.Preview(last.Content, 50))
	}

	keys := c.Memory.SortedPreferenceKeys()
	if len(keys) > 0 {
		b.WriteString("Preferences:\n")
		for _, k := range head(keys, 3) {
			fmt.Fprintf(&b, "• %s: %s\n", k, c.Memory.Preferences[k])
		}
	}
	if len(c.Memory.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s\n", strings.Join(head(c.Memory.Interests, 3), ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ChatMemory renders everything the operator has stored about a client.
func ChatMemory(c *chat.Chat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 Memory: %s\n", c.Profile.Name)
	fmt.Fprintf(&b, "ID: %s\n", c.ID)
	fmt.Fprintf(&b, "Created: %s\n", c.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Stage: %s\n", StageLabel(c.Stage))
	fmt.Fprintf(&b, "Mood: %s\n", c.Mood)

	b.WriteString("\nPreferences:\n")
	keys := c.Memory.SortedPreferenceKeys()
	if len(keys) == 0 {
		b.WriteString("• none\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "• %s: %s\n", k, c.Memory.Preferences[k])
	}

	b.WriteString("\nInterests:\n")
	if len(c.Memory.Interests) == 0 {
		b.WriteString("• none\n")
	} else {
		fmt.Fprintf(&b, "• %s\n", strings.Join(c.Memory.Interests, ", "))
	}

	b.WriteString("\nPurchases:\n")
	if len(c.Memory.PurchaseHistory) == 0 {
		b.WriteString("• none\n")
	}
	for _, p := range tail(c.Memory.PurchaseHistory, 3) {
		fmt.Fprintf(&b, "• %s %s: %s\n", p.Timestamp.Format("2006-01-02"), p.Type, p.ContentPreview)
	}

	ip := c.Memory.InteractionPattern
	b.WriteString("\nInteraction pattern:\n")
	if ip.IsZero() {
		b.WriteString("• unknown\n")
	}
	if ip.CommunicationStyle != "" {
		fmt.Fprintf(&b, "• style: %s\n", ip.CommunicationStyle)
	}
	if ip.ActiveHours != "" {
		fmt.Fprintf(&b, "• active hours: %s\n", ip.ActiveHours)
	}
	if ip.ResponseLength != "" {
		fmt.Fprintf(&b, "• response length: %s\n", ip.ResponseLength)
	}

	b.WriteString("\nNotes:\n")
	if len(c.Memory.Notes) == 0 {
		b.WriteString("• none\n")
	}
	for _, n := range tail(c.Memory.Notes, 3) {
		fmt.Fprintf(&b, "• %s\n", n.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ChatAnalytics aggregates a set of chats. A chat counts as active when it
// saw a message within the last 24 hours.
func ChatAnalytics(chats []*chat.Chat, now time.Time) string {
	if len(chats) == 0 {
		return NoChatsMessage
	}

	total, active := 0, 0
	byStage := make(map[chat.Stage]int, len(chat.Stages))
	for _, c := range chats {
		total += len(c.Messages)
		byStage[c.Stage]++
		if len(c.Messages) > 0 && now.Sub(c.LastActivityAt) <= 24*time.Hour {
			active++
		}
	}

	var b strings.Builder
	b.WriteString("📊 Analytics\n")
	fmt.Fprintf(&b, "Chats: %d\n", len(chats))
	fmt.Fprintf(&b, "Active (24h): %d\n", active)
	fmt.Fprintf(&b, "Messages: %d\n", total)
	fmt.Fprintf(&b, "Average per chat: %d\n", total/len(chats))

	b.WriteString("\nBy stage:\n")
	for _, s := range chat.Stages {
		fmt.Fprintf(&b, "• %s: %d\n", StageLabel(s), byStage[s])
	}

	ranked := append([]*chat.Chat(nil), chats...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if len(ranked[i].Messages) != len(ranked[j].Messages) {
			return len(ranked[i].Messages) > len(ranked[j].Messages)
		}
		return ranked[i].Profile.Name < ranked[j].Profile.Name
	})
	b.WriteString("\nTop chats:\n")
	for i, c := range head(ranked, 3) {
		fmt.Fprintf(&b, "%d. %s: %d messages\n", i+1, c.Profile.Name, len(c.Messages))
	}
	return strings.TrimRight(b.String(), "\n")
}

func head[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
