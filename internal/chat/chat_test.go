package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestStageFor(t *testing.T) {
	cases := map[int]Stage{
		0: StageInitial, 3: StageInitial,
		4: StageWarmingUp, 10: StageWarmingUp,
		11: StageEngaged, 20: StageEngaged,
		21: StageIntimate, 500: StageIntimate,
	}
	for n, want := range cases {
		assert.Equal(t, want, StageFor(n), "n=%d", n)
	}
}

func TestStageForIsMonotonic(t *testing.T) {
	rank := map[Stage]int{}
	for i, s := range Stages {
		rank[s] = i
	}
	prev := rank[StageFor(0)]
	for n := 1; n <= 40; n++ {
		cur := rank[StageFor(n)]
		require.GreaterOrEqual(t, cur, prev, "stage went backwards at n=%d", n)
		prev = cur
	}
}

func TestNewProfile_AutoName(t *testing.T) {
	p := NewProfile("  ", "", epoch)
	assert.Equal(t, "Client_"+p.ID[:8], p.Name)
	assert.NotNil(t, p.Tags)
	assert.NotNil(t, p.Metadata)

	p = NewProfile("Anna", "regular", epoch)
	assert.Equal(t, "Anna", p.Name)
	assert.Equal(t, "regular", p.Description)
}

func TestProfileAddTagDedupes(t *testing.T) {
	p := NewProfile("Anna", "", epoch)
	p.AddTag("vip")
	p.AddTag("vip")
	p.AddTag("new")
	assert.Equal(t, []string{"new", "vip"}, p.Tags)
}

func TestAppendMessage_UpdatesDerivedState(t *testing.T) {
	c := NewChat(NewProfile("Anna", "", epoch), epoch)
	at := epoch.Add(time.Minute)

	msg, ok := c.AppendMessage(RoleUser, "hi there", TypeText, at)
	require.True(t, ok)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, at, c.LastActivityAt)
	assert.Equal(t, at, c.Profile.LastInteractionAt)
	assert.Equal(t, StageInitial, c.Stage)
	assert.Empty(t, c.Memory.PurchaseHistory)
}

func TestAppendMessage_RejectsUnknownEnums(t *testing.T) {
	c := NewChat(NewProfile("Anna", "", epoch), epoch)
	_, ok := c.AppendMessage(Role("bot"), "x", TypeText, epoch)
	assert.False(t, ok)
	_, ok = c.AppendMessage(RoleUser, "x", MessageType("sticker"), epoch)
	assert.False(t, ok)
	assert.Empty(t, c.Messages)
}

func TestAppendMessage_PPVRecordsPurchase(t *testing.T) {
	c := NewChat(NewProfile("Anna", "", epoch), epoch)
	long := strings.Repeat("x", 80)

	_, ok := c.AppendMessage(RoleAssistant, long, TypePPV, epoch)
	require.True(t, ok)
	require.Len(t, c.Memory.PurchaseHistory, 1)
	assert.Equal(t, "ppv_offer", c.Memory.PurchaseHistory[0].Type)
	assert.Equal(t, strings.Repeat("x", 50), c.Memory.PurchaseHistory[0].ContentPreview)

	// A PPV message from the client side is not an offer.
	c.AppendMessage(RoleUser, "ppv?", TypePPV, epoch)
	assert.Len(t, c.Memory.PurchaseHistory, 1)
}

func TestRecentMessages(t *testing.T) {
	c := NewChat(NewProfile("Anna", "", epoch), epoch)
	assert.Empty(t, c.RecentMessages(5))

	for i := 0; i < 4; i++ {
		c.AppendMessage(RoleUser, string(rune('a'+i)), TypeText, epoch.Add(time.Duration(i)*time.Second))
	}
	got := c.RecentMessages(2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Content)
	assert.Equal(t, "d", got[1].Content)

	assert.Len(t, c.RecentMessages(10), 4)
}

func TestContextSummary_IsDeterministic(t *testing.T) {
	c := NewChat(NewProfile("Anna", "", epoch), epoch)
	c.SetMood("playful")
	c.SetPreference("drink", "wine")
	c.SetPreference("color", "red")
	c.SetPreference("music", "jazz")
	c.SetPreference("pet", "cat")
	c.AppendMessage(RoleUser, "one", TypeText, epoch)
	c.AppendMessage(RoleAssistant, "two", TypeFlirt, epoch)
	c.AppendMessage(RoleUser, "three", TypeText, epoch)
	c.AppendMessage(RoleUser, strings.Repeat("y", 150), TypeText, epoch)

	got := c.ContextSummary()
	assert.Equal(t, got, c.ContextSummary())
	assert.Contains(t, got, "Client: Anna")
	assert.Contains(t, got, "Stage: warming_up")
	assert.Contains(t, got, "Mood: playful")
	assert.Contains(t, got, "Preferences: color: red, drink: wine, music: jazz")
	assert.NotContains(t, got, "pet")
	assert.NotContains(t, got, "- user: one")
	assert.Contains(t, got, "- user: "+strings.Repeat("y", 100))
	assert.NotContains(t, got, strings.Repeat("y", 101))
}

func TestStageProgressionScenario(t *testing.T) {
	m := NewManager(1, WithClock(stepClock(epoch)))
	m.CreateChat("Anna", "")
	for i := 0; i < 4; i++ {
		require.True(t, m.AddMessageToActiveChat(RoleUser, "hey", TypeText))
		require.True(t, m.AddMessageToActiveChat(RoleAssistant, "hi", TypeFlirt))
	}
	assert.Equal(t, StageWarmingUp, m.ActiveChat().Stage)

	for i := 0; i < 15; i++ {
		m.AddMessageToActiveChat(RoleUser, "more", TypeText)
	}
	assert.Len(t, m.ActiveChat().Messages, 23)
	assert.Equal(t, StageIntimate, m.ActiveChat().Stage)
}
