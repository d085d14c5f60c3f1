package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/requests"
)

type fakeQuerier struct {
	session *models.GameSession
	failing map[requests.DataType]error
	calls   map[requests.DataType]int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		session: models.NewStarterSession(),
		failing: map[requests.DataType]error{},
		calls:   map[requests.DataType]int{},
	}
}

func (f *fakeQuerier) Inventory(context.Context) (models.Inventory, error) {
	f.calls[requests.DataInventory]++
	return f.session.State.Inventory, f.failing[requests.DataInventory]
}

func (f *fakeQuerier) Stats(context.Context) (models.CharacterSheet, error) {
	f.calls[requests.DataStats]++
	return f.session.State.Character, f.failing[requests.DataStats]
}

func (f *fakeQuerier) Quests(context.Context) ([]models.Quest, error) {
	f.calls[requests.DataQuests]++
	return f.session.State.Quests, f.failing[requests.DataQuests]
}

func (f *fakeQuerier) Location(context.Context) (models.Location, error) {
	f.calls[requests.DataLocation]++
	return f.session.CurrentLocation(), f.failing[requests.DataLocation]
}

type fakeGenerator struct {
	outputs []requests.GenerationOutput
	err     error
	calls   int
	seen    []models.GenerationContext
}

func (g *fakeGenerator) Generate(_ context.Context, gctx models.GenerationContext) (requests.GenerationOutput, error) {
	g.calls++
	g.seen = append(g.seen, gctx)
	if g.err != nil {
		return requests.GenerationOutput{}, g.err
	}
	if len(g.outputs) == 0 {
		return requests.NewOutput("", nil), nil
	}
	out := g.outputs[0]
	g.outputs = g.outputs[1:]
	return out, nil
}

func TestResolveWithoutQueriesMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{}
	first := requests.NewOutput("You wait.", []requests.Request{requests.SkillCheck{Skill: "X"}})

	res := New(newFakeQuerier(), gen, nil).Resolve(context.Background(), models.GenerationContext{}, first)
	assert.False(t, res.SecondPass)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, first, res.Output)
}

func TestResolveUnknownDataTypeMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{}
	first := requests.NewOutput("Hmm.", []requests.Request{requests.DataQuery{DataType: "weather"}})

	res := New(newFakeQuerier(), gen, nil).Resolve(context.Background(), models.GenerationContext{}, first)
	assert.False(t, res.SecondPass)
	assert.Equal(t, 0, gen.calls)
}

func TestResolveSingleRefetch(t *testing.T) {
	q := newFakeQuerier()
	gen := &fakeGenerator{outputs: []requests.GenerationOutput{
		requests.NewOutput("You carry rope and two potions.", []requests.Request{
			requests.DataQuery{DataType: requests.DataQuests},
			requests.QuestStatus{QuestID: "q", NewStatus: "completed"},
		}),
	}}
	first := requests.NewOutput("", []requests.Request{
		requests.DataQuery{DataType: requests.DataInventory},
		requests.DataQuery{DataType: requests.DataInventory},
		requests.DataQuery{DataType: requests.DataStats},
		requests.SkillCheck{Skill: "PERCEPTION"},
	})
	base := models.GenerationContext{Additional: map[string]any{"weather": "fog"}}

	res := New(q, gen, nil).Resolve(context.Background(), base, first)

	assert.True(t, res.SecondPass)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, q.calls[requests.DataInventory])
	assert.Equal(t, 1, q.calls[requests.DataStats])
	assert.Zero(t, q.calls[requests.DataQuests])

	require.Len(t, gen.seen, 1)
	assert.Contains(t, gen.seen[0].Additional, "inventory")
	assert.Contains(t, gen.seen[0].Additional, "stats")
	assert.Contains(t, gen.seen[0].Additional, "weather")
	assert.Len(t, base.Additional, 1)

	assert.Equal(t, "You carry rope and two potions.", res.Output.Narrative)
	assert.Empty(t, res.Output.DataQueries())
	require.Len(t, res.Output.Requests, 2)
	assert.Equal(t, requests.ActionSkillCheck, res.Output.Requests[0].Action())
	assert.Equal(t, requests.ActionQuestStatus, res.Output.Requests[1].Action())
}

func TestResolveSummarizesEmptySecondPass(t *testing.T) {
	gen := &fakeGenerator{outputs: []requests.GenerationOutput{requests.NewOutput("   ", nil)}}
	first := requests.NewOutput("", []requests.Request{
		requests.DataQuery{DataType: requests.DataInventory},
		requests.DataQuery{DataType: requests.DataLocation},
	})

	res := New(newFakeQuerier(), gen, nil).Resolve(context.Background(), models.GenerationContext{}, first)
	assert.True(t, res.Summarized)
	assert.Contains(t, res.Output.Narrative, "[Inventory]")
	assert.Contains(t, res.Output.Narrative, "healing potion x2")
	assert.Contains(t, res.Output.Narrative, "15 silver")
	assert.Contains(t, res.Output.Narrative, "[Location]")
	assert.Contains(t, res.Output.Narrative, "Exits: Docks, Lighthouse Path, The Gull Tavern")
	assert.NotContains(t, res.Output.Narrative, "[Quests]")
}

func TestResolveSecondPassFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("service unavailable")}
	first := requests.NewOutput("Let me look.", []requests.Request{
		requests.DataQuery{DataType: requests.DataQuests},
		requests.QuestUpdate{QuestID: "q", ObjectiveID: "o", NewStatus: "completed"},
	})

	res := New(newFakeQuerier(), gen, nil).Resolve(context.Background(), models.GenerationContext{}, first)
	assert.Equal(t, 1, gen.calls)
	assert.True(t, res.Summarized)
	assert.Contains(t, res.Output.Narrative, "The Dark Lighthouse (active)")
	require.Len(t, res.Output.Requests, 1)
	assert.Equal(t, requests.ActionQuestUpdate, res.Output.Requests[0].Action())
}

func TestFetchRecordsPerTypeErrors(t *testing.T) {
	q := newFakeQuerier()
	q.failing[requests.DataStats] = errors.New("sheet locked")

	fetched := New(q, nil, nil).Fetch(context.Background(), []requests.DataQuery{
		{DataType: requests.DataStats},
		{DataType: requests.DataQuests},
	})
	assert.Equal(t, "sheet locked", fetched.Err(requests.DataStats))
	assert.Empty(t, fetched.Err(requests.DataQuests))

	summary, err := Summarize(fetched)
	require.NoError(t, err)
	assert.Contains(t, summary, "Character details are unavailable right now (sheet locked).")
	assert.Contains(t, summary, "Find the lighthouse keeper: active")
}

func TestSummarizeStats(t *testing.T) {
	session := models.NewStarterSession()
	summary, err := Summarize(Fetched{requests.DataStats: session.State.Character})
	require.NoError(t, err)
	assert.Contains(t, summary, "Wren, level 1 Scout")
	assert.Contains(t, summary, "Health: 12/12")
	assert.Contains(t, summary, "STEALTH: +4")

	empty, err := Summarize(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
