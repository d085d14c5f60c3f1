package embedded

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	text := `You find {ITEM_DISCOVER lantern} and {ITEM_CREATE apple type:consumable}. {not_a_command} {X}`
	tokens := Extract(text)
	require.Len(t, tokens, 3)

	assert.Equal(t, "ITEM_DISCOVER", tokens[0].Name)
	assert.Equal(t, "lantern", tokens[0].Args)
	assert.Equal(t, "{ITEM_DISCOVER lantern}", tokens[0].Literal(text))

	assert.Equal(t, "ITEM_CREATE", tokens[1].Name)
	assert.Equal(t, "apple type:consumable", tokens[1].Args)

	assert.Equal(t, "X", tokens[2].Name)
	assert.Empty(t, tokens[2].Args)

	assert.Less(t, tokens[0].Start, tokens[1].Start)
}

func TestExtractNoTokens(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("plain prose with {lowercase} and {} braces"))
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		args       string
		positional string
		options    map[string]string
		raw        int
	}{
		{"apple type:consumable", "apple", map[string]string{"type": "consumable"}, 2},
		{`"rusty key" weight:2 note:"found under mat"`, "rusty key", map[string]string{"weight": "2", "note": "found under mat"}, 3},
		{"type:weapon", "", map[string]string{"type": "weapon"}, 1},
		{"sword extra tokens rarity:rare", "sword", map[string]string{"rarity": "rare"}, 4},
		{"", "", map[string]string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			inv := Tokenize(tt.args)
			assert.Equal(t, tt.positional, inv.Positional)
			assert.Equal(t, tt.options, inv.Options)
			assert.Len(t, inv.Raw, tt.raw)
		})
	}
}

func itemTable() Table {
	return Table{
		"ITEM_CREATE": {
			Category: "Item Creation",
			Fn: func(_ context.Context, inv Invocation) (string, error) {
				if inv.Positional == "" {
					return "", errors.New("missing item name")
				}
				return "You acquired " + inv.Positional, nil
			},
		},
	}
}

func TestResolveAndReplaceScenario(t *testing.T) {
	out, results := ResolveAndReplace(context.Background(),
		"You pick up {ITEM_CREATE apple type:consumable}.", itemTable())

	assert.Equal(t, "You pick up You acquired apple.", out)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestResolveAndReplaceMarkers(t *testing.T) {
	table := itemTable()
	table["BOOM"] = Handler{Fn: func(context.Context, Invocation) (string, error) {
		panic("exploded")
	}}

	out, results := ResolveAndReplace(context.Background(),
		"a {ITEM_CREATE type:junk} b {TELEPORT home} c {BOOM now}", table)

	assert.Equal(t, "a [Item Creation Failed: missing item name] b [Unknown Command: TELEPORT] c [Boom Error: exploded]", out)
	require.Len(t, results, 3)
	assert.True(t, results[0].Known)
	assert.False(t, results[1].Known)
	assert.Error(t, results[2].Err)
}

func TestResolveAndReplaceIdenticalTokensIndependently(t *testing.T) {
	calls := 0
	table := Table{"ITEM_CREATE": {Fn: func(_ context.Context, inv Invocation) (string, error) {
		calls++
		return fmt.Sprintf("%s#%d", inv.Positional, calls), nil
	}}}

	out, _ := ResolveAndReplace(context.Background(),
		"{ITEM_CREATE coin} and {ITEM_CREATE coin} and {ITEM_CREATE gem}", table)

	assert.Equal(t, "coin#1 and coin#2 and gem#3", out)
	assert.Equal(t, 3, calls)
}

func TestResolveAndReplaceLeavesNoTokens(t *testing.T) {
	table := Table{"NOTE": {Fn: func(_ context.Context, inv Invocation) (string, error) {
		return "noted", nil
	}}}

	for n := 0; n < 6; n++ {
		var b strings.Builder
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "line %d {NOTE n%d} ", i, i)
		}
		out, results := ResolveAndReplace(context.Background(), b.String(), table)
		assert.Len(t, results, n)
		assert.Equal(t, n, strings.Count(out, "noted"))
		assert.Empty(t, Extract(out))
	}
}

func TestResolveAndReplaceNoTokensReturnsInput(t *testing.T) {
	out, results := ResolveAndReplace(context.Background(), "nothing here", nil)
	assert.Equal(t, "nothing here", out)
	assert.Nil(t, results)
}
