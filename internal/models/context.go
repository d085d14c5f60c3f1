package models

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation entry.
type Message struct {
	Role    string `yaml:"role" json:"role"`
	Content string `yaml:"content" json:"content"`
}

// GenerationContext is the per-call snapshot handed to the narrative
// service. Treat it as immutable; use WithAdditional to inject data.
type GenerationContext struct {
	GameState      string
	PlayerState    string
	WorldState     string
	PlayerInput    string
	History        []Message
	// HistoryStart is the session entry index of History[0].
	HistoryStart   int
	Memories       []string
	ContextSummary string
	Additional     map[string]any
}

// WithAdditional returns a copy of c whose Additional map is a clone of the
// original plus extra. The receiver is left untouched.
func (c GenerationContext) WithAdditional(extra map[string]any) GenerationContext {
	merged := make(map[string]any, len(c.Additional)+len(extra))
	maps.Copy(merged, c.Additional)
	maps.Copy(merged, extra)
	c.Additional = merged
	c.History = append([]Message(nil), c.History...)
	c.Memories = append([]string(nil), c.Memories...)
	return c
}

// WithSummary returns a copy of c with ContextSummary set.
func (c GenerationContext) WithSummary(summary string) GenerationContext {
	c.ContextSummary = summary
	return c
}

// Compacted returns a copy of c whose first folded history messages are
// replaced by summary.
func (c GenerationContext) Compacted(hs HistorySummary) GenerationContext {
	folded := min(max(hs.Folded, 0), len(c.History))
	c.ContextSummary = hs.Text
	c.History = append([]Message(nil), c.History[folded:]...)
	c.HistoryStart += folded / 2
	return c
}

// HistorySummary is older history condensed into text. Folded counts the
// leading history messages it covers.
type HistorySummary struct {
	Text   string
	Folded int
}

// NewContext snapshots the session for one player input. The history
// holds the turns not yet summarized, at most historyLimit of them, as
// user/assistant message pairs.
func (s *GameSession) NewContext(input string, historyLimit int) GenerationContext {
	entries := s.History.Pending()
	start := len(s.History.Entries) - len(entries)
	if historyLimit > 0 && len(entries) > historyLimit {
		start += len(entries) - historyLimit
		entries = entries[len(entries)-historyLimit:]
	}
	history := make([]Message, 0, 2*len(entries))
	for _, e := range entries {
		history = append(history,
			Message{Role: RoleUser, Content: e.PlayerAction},
			Message{Role: RoleAssistant, Content: e.Outcome},
		)
	}

	return GenerationContext{
		GameState:      s.gameStateSummary(),
		PlayerState:    s.playerStateSummary(),
		WorldState:     s.worldStateSummary(),
		PlayerInput:    input,
		History:        history,
		HistoryStart:   start,
		ContextSummary: s.History.Summary,
		Additional:     map[string]any{},
	}
}

func (s *GameSession) gameStateSummary() string {
	st := s.State
	mode := st.Mode
	if mode == "" {
		mode = ModeNarrative
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Mode: %s\nLocation: %s\nElapsed: %dm\n", mode, st.CurrentLocation, st.ElapsedMinutes)
	if len(st.Enemies) > 0 {
		names := make([]string, 0, len(st.Enemies))
		for _, e := range st.Enemies {
			names = append(names, e.Name)
		}
		fmt.Fprintf(&b, "Enemies: %s\n", strings.Join(names, ", "))
	}
	active := 0
	for _, q := range st.Quests {
		if q.Status == StatusActive {
			active++
		}
	}
	fmt.Fprintf(&b, "Active quests: %d\n", active)
	return b.String()
}

func (s *GameSession) playerStateSummary() string {
	c := s.State.Character
	var b strings.Builder
	fmt.Fprintf(&b, "%s, level %d %s, HP %d/%d\n", c.Name, c.Level, c.Class, c.Health, c.MaxHealth)
	if len(s.State.Inventory.Equipped) > 0 {
		slots := make([]string, 0, len(s.State.Inventory.Equipped))
		for slot, item := range s.State.Inventory.Equipped {
			slots = append(slots, slot+": "+item)
		}
		sort.Strings(slots)
		fmt.Fprintf(&b, "Equipped: %s\n", strings.Join(slots, ", "))
	}
	return b.String()
}

func (s *GameSession) worldStateSummary() string {
	loc := s.CurrentLocation()
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.World.Description)
	if loc.Description != "" {
		fmt.Fprintf(&b, "Here (%s): %s\n", loc.Name, loc.Description)
	}
	return b.String()
}
