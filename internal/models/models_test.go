package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadSession(t *testing.T) {
	dir := t.TempDir()
	session := NewStarterSession()
	session.History.Entries = []HistoryEntry{
		{PlayerAction: "look", Outcome: "You see fog.", Deferred: []string{"{SKILL_CHECK PERCEPTION dc:10}"}},
	}

	require.NoError(t, session.Save(dir, "current"))

	loaded, err := LoadSession(dir, "current")
	require.NoError(t, err)
	assert.Equal(t, session.World.Description, loaded.World.Description)
	assert.Equal(t, session.State.Inventory.Backpack, loaded.State.Inventory.Backpack)
	assert.Equal(t, session.State.Quests, loaded.State.Quests)
	require.Len(t, loaded.History.Entries, 1)
	assert.Equal(t, session.History.Entries[0].Deferred, loaded.History.Entries[0].Deferred)
	assert.Contains(t, loaded.Locations, "Harbor Square")

	names, err := ListSessions(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"current"}, names)
}

func TestListSessionsMissingDir(t *testing.T) {
	names, err := ListSessions(t.TempDir() + "/nope")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNewContext(t *testing.T) {
	session := NewStarterSession()
	for _, a := range []string{"one", "two", "three"} {
		session.History.Entries = append(session.History.Entries, HistoryEntry{PlayerAction: a, Outcome: a + "!"})
	}
	session.History.Summary = "Earlier things happened."

	ctx := session.NewContext("open the door", 2)
	assert.Equal(t, "open the door", ctx.PlayerInput)
	require.Len(t, ctx.History, 4)
	assert.Equal(t, Message{Role: RoleUser, Content: "two"}, ctx.History[0])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "three!"}, ctx.History[3])
	assert.Equal(t, "Earlier things happened.", ctx.ContextSummary)
	assert.Contains(t, ctx.GameState, "Harbor Square")
	assert.Contains(t, ctx.PlayerState, "Wren")
	assert.Contains(t, ctx.WorldState, "lighthouse")
	assert.NotNil(t, ctx.Additional)
	assert.Equal(t, 1, ctx.HistoryStart)
}

func TestNewContextSkipsSummarizedTurns(t *testing.T) {
	session := NewStarterSession()
	for _, a := range []string{"one", "two", "three", "four"} {
		session.History.Entries = append(session.History.Entries, HistoryEntry{PlayerAction: a, Outcome: a + "!"})
	}
	session.History.Summary = "One and two happened."
	session.History.Summarized = 2

	ctx := session.NewContext("wait", 10)
	require.Len(t, ctx.History, 4)
	assert.Equal(t, "three", ctx.History[0].Content)
	assert.Equal(t, 2, ctx.HistoryStart)

	compact := ctx.Compacted(HistorySummary{Text: "Up to three.", Folded: 2})
	assert.Equal(t, "Up to three.", compact.ContextSummary)
	require.Len(t, compact.History, 2)
	assert.Equal(t, "four", compact.History[0].Content)
	assert.Equal(t, 3, compact.HistoryStart)
	assert.Len(t, ctx.History, 4)
}

func TestWithAdditionalClones(t *testing.T) {
	base := GenerationContext{
		Additional: map[string]any{"weather": "rain"},
		History:    []Message{{Role: RoleUser, Content: "hi"}},
	}
	next := base.WithAdditional(map[string]any{"inventory": []string{"rope"}})

	assert.Len(t, base.Additional, 1)
	assert.Len(t, next.Additional, 2)
	assert.Equal(t, "rain", next.Additional["weather"])

	next.History[0].Content = "changed"
	assert.Equal(t, "hi", base.History[0].Content)
}

func TestSessionLookups(t *testing.T) {
	session := NewStarterSession()
	assert.NotNil(t, session.Quest("DARK-LIGHTHOUSE"))
	assert.Nil(t, session.Quest("missing"))
	assert.Equal(t, 1, session.State.Inventory.Find("Healing Potion"))
	assert.Equal(t, -1, session.State.Inventory.Find("lamp oil"))

	session.State.CurrentLocation = "Nowhere"
	assert.Equal(t, Location{Name: "Nowhere"}, session.CurrentLocation())
}
