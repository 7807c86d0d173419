package format

import (
	"fmt"
	"strings"

	"chatterbot/internal/chat"
)

// PromptInstruction closes every prompt built by BuildPrompt.
const PromptInstruction = "Write one short, natural reply in the creator's voice that fits the stage and mood above. Reply with the message text only."

var stageHints = map[chat.Stage]string{
	chat.StageInitial:   "Keep it light and welcoming; ask an easy question to learn about them.",
	chat.StageWarmingUp: "Be warmer and more personal; reference what they told you before.",
	chat.StageEngaged:   "Be playful and confident; tease a little and keep them talking.",
	chat.StageIntimate:  "Be affectionate and familiar; make them feel special and remembered.",
}

// BuildPrompt assembles the LLM instruction for the next reply in c.
// newMessage is the inbound client text, if it is not part of c yet.
func BuildPrompt(c *chat.Chat, newMessage string) string {
	var b strings.Builder
	b.WriteString("You are chatting with a fan on a subscription platform.\n\n")

	b.WriteString("Client profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n", c.Profile.Name)
	fmt.Fprintf(&b, "- Relationship stage: %s\n", c.Stage)
	fmt.Fprintf(&b, "- Mood: %s\n", c.Mood)

	keys := c.Memory.SortedPreferenceKeys()
	if len(keys) > 0 {
		b.WriteString("\nPreferences:\n")
		for _, k := range head(keys, 5) {
			fmt.Fprintf(&b, "- %s: %s\n", k, c.Memory.Preferences[k])
		}
	}
	if len(c.Memory.Interests) > 0 {
		fmt.Fprintf(&b, "\nInterests: %s\n", strings.Join(c.Memory.Interests, ", "))
	}

	recent := c.RecentMessages(5)
	if len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range recent {
			fmt.Fprintf(&b, "%s: %s\n", speaker(m.Role), m.Content)
		}
	}

	b.WriteString("\nStyle:\n")
	if h, ok := stageHints[c.Stage]; ok {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	ip := c.Memory.InteractionPattern
	if ip.CommunicationStyle != "" {
		fmt.Fprintf(&b, "- Match their communication style: %s\n", ip.CommunicationStyle)
	}
	if ip.ResponseLength != "" {
		fmt.Fprintf(&b, "- Preferred reply length: %s\n", ip.ResponseLength)
	}

	if msg := strings.TrimSpace(newMessage); msg != "" {
		fmt.Fprintf(&b, "\nNew message from %s:\n%s\n", c.Profile.Name, msg)
	}

	b.WriteString("\n")
	b.WriteString(PromptInstruction)
	return b.String()
}

func speaker(r chat.Role) string {
	switch r {
	case chat.RoleUser:
		return "Client"
	case chat.RoleAssistant:
		return "You"
	default:
		return "System"
	}
}
