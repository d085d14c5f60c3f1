package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/narrator/internal/requests"
)

func TestParseScenarios(t *testing.T) {
	p := New(nil)

	t.Run("clean object", func(t *testing.T) {
		res := p.ParseDetailed(`{"narrative": "A door creaks.", "requests": [{"action": "request_skill_check", "skill_name": "LOCKPICKING", "difficulty_class": 12}]}`)
		assert.Equal(t, MethodJSON, res.Method)
		assert.Equal(t, "A door creaks.", res.Output.Narrative)
		require.Len(t, res.Output.Requests, 1)

		sc, ok := res.Output.Requests[0].(requests.SkillCheck)
		require.True(t, ok)
		assert.Equal(t, "LOCKPICKING", sc.Skill)
		assert.Equal(t, 12, sc.DifficultyClass)
		assert.Equal(t, requests.DefaultActor, sc.Actor)
	})

	t.Run("fenced with surrounding prose", func(t *testing.T) {
		res := p.ParseDetailed("Sure! ```json\n{\"narrative\": \"Mixed\", \"requests\": []}\n```\nEnjoy!")
		assert.Equal(t, MethodFenced, res.Method)
		assert.Equal(t, "Mixed", res.Output.Narrative)
		assert.NotNil(t, res.Output.Requests)
		assert.Empty(t, res.Output.Requests)
	})

	t.Run("bare list", func(t *testing.T) {
		out := p.Parse(`[{"action": "request_mode_transition", "target_mode": "COMBAT"}]`)
		assert.Equal(t, PlaceholderNarrative, out.Narrative)
		require.Len(t, out.Requests, 1)
		mt, ok := out.Requests[0].(requests.ModeTransition)
		require.True(t, ok)
		assert.Equal(t, "COMBAT", mt.TargetMode)
		assert.Equal(t, requests.DefaultOriginMode, mt.OriginMode)
	})

	t.Run("garbage", func(t *testing.T) {
		res := p.ParseDetailed("  asdf{not json  ")
		assert.Equal(t, MethodFallback, res.Method)
		assert.Equal(t, "asdf{not json", res.Output.Narrative)
		assert.Empty(t, res.Output.Requests)
	})
}

func TestParseProsePrefix(t *testing.T) {
	p := New(nil)

	out := p.Parse(`The goblin snarls. [{"action": "request_mode_transition", "target_mode": "combat", "enemies": [{"name": "Goblin", "keywords": ["goblin"]}]}]`)
	assert.Equal(t, "The goblin snarls.", out.Narrative)
	require.Len(t, out.Requests, 1)
	mt := out.Requests[0].(requests.ModeTransition)
	assert.Equal(t, "COMBAT", mt.TargetMode)
	require.Len(t, mt.Enemies, 1)
	assert.Equal(t, "Goblin", mt.Enemies[0].Name)

	out = p.Parse(`You pause to think. {"requests": [{"action": "request_data_retrieval", "data_type": "inventory"}]}`)
	assert.Equal(t, "You pause to think.", out.Narrative)
	require.Len(t, out.Requests, 1)
}

func TestParseMissingFields(t *testing.T) {
	p := New(nil)

	out := p.Parse(`{"narrative": "Only prose."}`)
	assert.Equal(t, "Only prose.", out.Narrative)
	assert.NotNil(t, out.Requests)
	assert.Empty(t, out.Requests)

	out = p.Parse(`{"requests": [{"action": "request_quest_status", "quest_id": "q1", "new_status": "completed", "confidence": 1.4}]}`)
	assert.Equal(t, PlaceholderNarrative, out.Narrative)
	require.Len(t, out.Requests, 1)
	assert.Equal(t, 1.0, out.Requests[0].(requests.QuestStatus).Confidence)
}

func TestParseFiltersRequestsIndividually(t *testing.T) {
	p := New(nil)

	res := p.ParseDetailed(`{"narrative": "N", "time_passage": "2h", "requests": [
		{"action": "request_skill_check", "skill_name": "STEALTH"},
		{"action": "dance_wildly"},
		"not an object",
		{"no_action": true},
		{"action": "request_state_change", "attribute": ""},
		{"action": "request_quest_update", "quest_id": "q1", "objective_id": "o1", "new_status": "done", "confidence": 0.9}
	]}`)

	assert.Equal(t, "N", res.Output.Narrative)
	assert.Equal(t, "2h", res.Output.TimePassage)
	require.Len(t, res.Output.Requests, 2)
	assert.Equal(t, requests.ActionSkillCheck, res.Output.Requests[0].Action())
	assert.Equal(t, requests.ActionQuestUpdate, res.Output.Requests[1].Action())
	assert.Equal(t, 4, res.Dropped)
}

func TestParseSingleRequestObject(t *testing.T) {
	out := New(nil).Parse(`{"action": "request_data_retrieval", "data_type": "location"}`)
	assert.Equal(t, PlaceholderNarrative, out.Narrative)
	require.Len(t, out.Requests, 1)
	assert.Equal(t, requests.DataLocation, out.Requests[0].(requests.DataQuery).DataType)
}

func TestParseRepairsNearValidPayloads(t *testing.T) {
	p := New(nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"smart quotes", `{“narrative”: “Rain falls.”, “requests”: []}`, "Rain falls."},
		{"trailing comma", `{"narrative": "Wind.", "requests": [],}`, "Wind."},
		{"single quotes", `{'narrative': 'Snow.', 'requests': []}`, "Snow."},
		{"raw newline", "{\"narrative\": \"Line one\nline two\", \"requests\": []}", "Line one\nline two"},
		{"bare keys", `{narrative: "Fog.", requests: []}`, "Fog."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.ParseDetailed(tt.in)
			assert.Equal(t, MethodRepaired, res.Method)
			assert.Equal(t, tt.want, res.Output.Narrative)
		})
	}
}

func TestParseIgnoresIncidentalBrackets(t *testing.T) {
	p := New(nil)

	out := p.Parse("You roll [1, 2] and see {the sign}.")
	assert.Equal(t, "You roll [1, 2] and see {the sign}.", out.Narrative)
	assert.Empty(t, out.Requests)

	out = p.Parse(`You roll [1, 2]. {"narrative": "Later structure", "requests": []}`)
	assert.Equal(t, "Later structure", out.Narrative)
}

func TestParseIsTotal(t *testing.T) {
	p := New(nil)
	inputs := []string{
		"",
		"   ",
		"plain prose with no structure",
		"```",
		"```json\n",
		"```json\n{\"narrative\": \"unterminated fence\"}",
		"{",
		"}",
		"[[[[",
		"]]]]{{{{",
		`{"narrative": 42, "requests": "nope"}`,
		`{"requests": {"action": "request_skill_check", "skill_name": "X"}}`,
		"\xff\xfe\xfd{\"narrative\": \"bad bytes\"}",
		"\xff\xfe garbage \xc3",
		strings.Repeat("[", 20000) + strings.Repeat("]", 20000),
		strings.Repeat("{", 5000),
		`["a", "b"]`,
		`[]`,
		`{}`,
		`{"narrative": null}`,
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			out := p.Parse(in)
			assert.NotNil(t, out.Requests)
		})
	}
}

func FuzzParseDetailed(f *testing.F) {
	for _, seed := range []string{
		"",
		"plain prose",
		"```json\n{\"narrative\": \"x\", \"requests\": []}\n```",
		`Intro {"narrative": "a", "requests": [{"action": "request_skill_check", "skill_name": "X"}]}`,
		`[{"action": "request_mode_transition", "target_mode": "COMBAT"}]`,
		`{'narrative': 'single', requests: [],}`,
		"{\"narrative\": \"He wrote ``` here\"}",
		"[[{{\"\\",
	} {
		f.Add(seed)
	}
	p := New(nil)
	f.Fuzz(func(t *testing.T, raw string) {
		res := p.ParseDetailed(raw)
		if res.Output.Requests == nil {
			t.Fatalf("nil requests for %q", raw)
		}
		if res.Method == "" {
			t.Fatalf("no method for %q", raw)
		}
	})
}

func TestParseTotalityEdgeShapes(t *testing.T) {
	p := New(nil)

	out := p.Parse(`{"narrative": 42, "requests": "nope"}`)
	assert.Equal(t, PlaceholderNarrative, out.Narrative)
	assert.Empty(t, out.Requests)

	out = p.Parse(`{"requests": {"action": "request_skill_check", "skill_name": "X"}}`)
	require.Len(t, out.Requests, 1)

	out = p.Parse(`[]`)
	assert.Equal(t, PlaceholderNarrative, out.Narrative)
	assert.Empty(t, out.Requests)

	out = p.Parse("```json\n{\"narrative\": \"unterminated fence\"}")
	assert.Equal(t, "unterminated fence", out.Narrative)
}

func TestStripFence(t *testing.T) {
	inner, prefix, ok := stripFence("Here:\n```JSON\n{\"a\":1}\n```\ntrailer")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, inner)
	assert.Equal(t, "Here:", prefix)

	_, _, ok = stripFence("no fences")
	assert.False(t, ok)

	_, _, ok = stripFence(`{"narrative": "He wrote ` + "```" + ` here"}`)
	assert.False(t, ok)

	inner, _, ok = stripFence("```json\n{\"narrative\": \"a ``` b\"}\n```")
	require.True(t, ok)
	assert.Equal(t, `{"narrative": "a `+"```"+` b"}`, inner)
}

func TestParseBackticksInsideNarrative(t *testing.T) {
	p := New(nil)
	raw := `{"narrative": "He wrote ` + "```" + ` here", "requests": [{"action": "request_data_retrieval", "data_type": "stats"}]}`

	res := p.ParseDetailed(raw)
	assert.Equal(t, MethodJSON, res.Method)
	assert.Equal(t, "He wrote ```"+" here", res.Output.Narrative)
	require.Len(t, res.Output.Requests, 1)
	assert.Equal(t, requests.ActionDataRetrieval, res.Output.Requests[0].Action())

	res = p.ParseDetailed("```json\n" + raw + "\n```")
	assert.Equal(t, MethodFenced, res.Method)
	assert.Equal(t, "He wrote ``` here", res.Output.Narrative)
	require.Len(t, res.Output.Requests, 1)
}

func TestBalancedSpans(t *testing.T) {
	s := `x {"a": "}"} y [1, [2]] z {unclosed`
	spans := balancedSpans(s)
	require.Len(t, spans, 2)
	assert.Equal(t, `{"a": "}"}`, s[spans[0].start:spans[0].end])
	assert.Equal(t, `[1, [2]]`, s[spans[1].start:spans[1].end])

	assert.Empty(t, balancedSpans("{]"))
}
