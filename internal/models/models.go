package models

import "strings"

// Modes the game can be in.
const (
	ModeNarrative = "NARRATIVE"
	ModeCombat    = "COMBAT"
)

// Quest and objective statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// World represents the static (or semi-static) world definition.
type World struct {
	Title          string   `yaml:"title"`
	ShortName      string   `yaml:"short_name"` // e.g., "hidden-manor"
	Description    string   `yaml:"description"`
	Possibilities  []string `yaml:"possibilities"` // e.g., what sorts of actions a player can take
	WinConditions  string   `yaml:"win_conditions"`
	LoseConditions string   `yaml:"lose_conditions"`
}

// Item is one stack of things the player carries.
type Item struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type,omitempty"`
	Quantity int    `yaml:"quantity"`
}

// Inventory is what the player carries and wears.
type Inventory struct {
	Equipped map[string]string `yaml:"equipped"` // slot -> item name
	Backpack []Item            `yaml:"backpack"`
	Currency map[string]int    `yaml:"currency"`
}

// Find returns the index of the named backpack item, matching
// case-insensitively, or -1.
func (inv *Inventory) Find(name string) int {
	for i, it := range inv.Backpack {
		if strings.EqualFold(it.Name, name) {
			return i
		}
	}
	return -1
}

// CharacterSheet holds the player's stats.
type CharacterSheet struct {
	Name       string         `yaml:"name"`
	Class      string         `yaml:"class"`
	Level      int            `yaml:"level"`
	Health     int            `yaml:"health"`
	MaxHealth  int            `yaml:"max_health"`
	Attributes map[string]int `yaml:"attributes"`
	Skills     map[string]int `yaml:"skills"` // skill name -> bonus
}

// Objective is one step of a quest.
type Objective struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
}

// Quest is a tracked goal with objectives.
type Quest struct {
	ID         string      `yaml:"id"`
	Title      string      `yaml:"title"`
	Status     string      `yaml:"status"`
	Objectives []Objective `yaml:"objectives"`
}

// Enemy is an entity spawned by a transition into combat.
type Enemy struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords,omitempty"`
}

// GameState represents the current dynamic state of the game.
type GameState struct {
	Mode            string            `yaml:"mode"`
	CurrentLocation string            `yaml:"current_location"`
	ElapsedMinutes  int               `yaml:"elapsed_minutes"`
	Character       CharacterSheet    `yaml:"character"`
	Inventory       Inventory         `yaml:"inventory"`
	Quests          []Quest           `yaml:"quests"`
	Enemies         []Enemy           `yaml:"enemies,omitempty"`
	Flags           map[string]string `yaml:"flags,omitempty"`
}

// HistoryEntry represents a single turn in the game.
type HistoryEntry struct {
	PlayerAction string   `yaml:"player_action"`
	Outcome      string   `yaml:"outcome"`
	Deferred     []string `yaml:"deferred,omitempty"` // commands handed back to the caller
}

// GameHistory contains the abbreviated history of the game. The first
// Summarized entries are covered by Summary and no longer sent verbatim.
type GameHistory struct {
	Summary    string         `yaml:"summary"`
	Summarized int            `yaml:"summarized,omitempty"`
	Entries    []HistoryEntry `yaml:"entries"`
}

// Pending returns the entries not yet folded into Summary.
func (h GameHistory) Pending() []HistoryEntry {
	n := min(max(h.Summarized, 0), len(h.Entries))
	return h.Entries[n:]
}

// Location represents a specific place in the world.
type Location struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Exits       []string `yaml:"exits"`
	People      []string `yaml:"people"`
	Objects     []string `yaml:"objects"`
}

// GameSession aggregates all game-related data.
type GameSession struct {
	World     World               `yaml:"world"`
	State     GameState           `yaml:"state"`
	History   GameHistory         `yaml:"history"`
	Locations map[string]Location `yaml:"locations"` // Keyed by location name
}

// CurrentLocation returns the location the player is in, falling back to a
// bare record when it was never described.
func (s *GameSession) CurrentLocation() Location {
	if loc, ok := s.Locations[s.State.CurrentLocation]; ok {
		return loc
	}
	return Location{Name: s.State.CurrentLocation}
}

// Quest returns a pointer to the quest with the given ID, or nil.
func (s *GameSession) Quest(id string) *Quest {
	for i := range s.State.Quests {
		if strings.EqualFold(s.State.Quests[i].ID, id) {
			return &s.State.Quests[i]
		}
	}
	return nil
}
