package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_FirstChatBecomesActive(t *testing.T) {
	m := NewManager(7)
	assert.Nil(t, m.ActiveChat())

	first := m.CreateChat("Anna", "")
	require.NotNil(t, m.ActiveChat())
	assert.Equal(t, first.ID, m.ActiveChat().ID)

	m.CreateChat("Maria", "")
	assert.Equal(t, first.ID, m.ActiveChatID, "later chats do not steal the active slot")
}

func TestManager_SwitchChat(t *testing.T) {
	m := NewManager(7)
	a := m.CreateChat("Anna", "")
	b := m.CreateChat("Maria", "")

	assert.False(t, m.SwitchChat("missing"))
	assert.Equal(t, a.ID, m.ActiveChatID)

	assert.True(t, m.SwitchChat(b.ID))
	assert.Equal(t, b.ID, m.ActiveChat().ID)
}

func TestManager_StaleActiveIDReadsAsNil(t *testing.T) {
	m := NewManager(7)
	m.CreateChat("Anna", "")
	m.ActiveChatID = "gone"
	assert.Nil(t, m.ActiveChat())
	assert.False(t, m.AddMessageToActiveChat(RoleUser, "x", TypeText))
}

func TestManager_DeleteChat(t *testing.T) {
	m := NewManager(7, WithClock(stepClock(epoch)))
	a := m.CreateChat("Anna", "")
	b := m.CreateChat("Maria", "")

	assert.False(t, m.DeleteChat("missing"))

	require.True(t, m.DeleteChat(a.ID))
	active := m.ActiveChat()
	require.NotNil(t, active)
	assert.NotEqual(t, a.ID, active.ID)
	assert.Equal(t, b.ID, active.ID)

	require.True(t, m.DeleteChat(b.ID))
	assert.Nil(t, m.ActiveChat())
	assert.Empty(t, m.ActiveChatID)

	// An emptied manager hands the active slot to the next new chat.
	c := m.CreateChat("Eva", "")
	assert.Equal(t, c.ID, m.ActiveChat().ID)
}

func TestManager_DeleteInactiveKeepsActive(t *testing.T) {
	m := NewManager(7)
	a := m.CreateChat("Anna", "")
	b := m.CreateChat("Maria", "")
	require.True(t, m.DeleteChat(b.ID))
	assert.Equal(t, a.ID, m.ActiveChatID)
}

func TestManager_AddMessageToActiveChat(t *testing.T) {
	m := NewManager(7)
	assert.False(t, m.AddMessageToActiveChat(RoleUser, "hello", TypeText))

	m.CreateChat("Anna", "")
	assert.True(t, m.AddMessageToActiveChat(RoleUser, "hello", TypeText))
	assert.False(t, m.AddMessageToActiveChat(RoleUser, "hello", MessageType("gif")))
	assert.Len(t, m.ActiveChat().Messages, 1)
}

func TestManager_ListChatsSortedByRecency(t *testing.T) {
	m := NewManager(7, WithClock(stepClock(epoch)))
	anna := m.CreateChat("Anna", "")
	maria := m.CreateChat("Maria", "")

	for i := 0; i < 3; i++ {
		_, ok := m.AddMessage(anna.ID, RoleUser, "hi from anna", TypeText)
		require.True(t, ok)
	}
	_, ok := m.AddMessage(maria.ID, RoleUser, "hi from maria", TypeText)
	require.True(t, ok)

	list := m.ListChats()
	require.Len(t, list, 2)
	assert.Equal(t, "Maria", list[0].ClientName, "Maria spoke last")
	assert.Equal(t, 1, list[0].MessageCount)
	assert.False(t, list[0].IsActive)
	assert.Equal(t, "Anna", list[1].ClientName)
	assert.True(t, list[1].IsActive)
	assert.Equal(t, "hi from anna", list[1].LastMessagePreview)

	// Appending to the lower chat moves it to the top.
	m.AddMessageToActiveChat(RoleAssistant, "back to anna", TypeText)
	list = m.ListChats()
	assert.Equal(t, "Anna", list[0].ClientName)
	assert.Equal(t, StageWarmingUp, list[0].Stage)
	assertSortedDesc(t, list)
}

func TestManager_ListChatsPreviewTruncates(t *testing.T) {
	m := NewManager(7)
	m.CreateChat("Anna", "")
	long := strings.Repeat("é", 70)
	m.AddMessageToActiveChat(RoleUser, long, TypeText)
	list := m.ListChats()
	assert.Equal(t, 50, len([]rune(list[0].LastMessagePreview)))
}

func assertSortedDesc(t *testing.T, list []Summary) {
	t.Helper()
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].LastActivityAt.After(list[i-1].LastActivityAt), "row %d out of order", i)
	}
}

func TestManager_AllChatsOrder(t *testing.T) {
	clock := stepClock(epoch)
	m := NewManager(7, WithClock(clock))
	a := m.CreateChat("Anna", "")
	b := m.CreateChat("Maria", "")
	m.AddMessage(a.ID, RoleUser, "x", TypeText)

	all := m.AllChats()
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)
	assert.True(t, all[0].LastActivityAt.After(epoch.Add(time.Second)))
}
