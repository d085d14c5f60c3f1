package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/narrator/internal/models"
)

func TestBuild(t *testing.T) {
	session := models.NewStarterSession()
	session.History.Entries = []models.HistoryEntry{{PlayerAction: "look", Outcome: "Fog."}}
	gctx := session.NewContext("open the door", 4)

	msgs, err := Build(gctx)
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "fog-bound harbor town")
	assert.Contains(t, msgs[0].Content, "request_data_retrieval")

	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "look"}, msgs[1])
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: "Fog."}, msgs[2])

	last := msgs[3]
	assert.Equal(t, models.RoleUser, last.Role)
	assert.Contains(t, last.Content, "Location: Harbor Square")
	assert.Contains(t, last.Content, "Wren, level 1 Scout")
	assert.True(t, strings.HasSuffix(last.Content, "[Action]\nopen the door"))
	assert.NotContains(t, last.Content, "[Requested data]")
}

func TestBuildWithRequestedData(t *testing.T) {
	session := models.NewStarterSession()
	gctx := session.NewContext("what do I carry?", 0).
		WithAdditional(map[string]any{"inventory": session.State.Inventory}).
		WithSummary("Wren arrived by boat.")

	msgs, err := Build(gctx)
	require.NoError(t, err)
	last := msgs[len(msgs)-1].Content

	assert.Contains(t, last, "Story so far: Wren arrived by boat.")
	assert.Contains(t, last, "[Requested data]")
	assert.Contains(t, last, "healing potion")
	assert.Contains(t, last, "silver: 15")
}
