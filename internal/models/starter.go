package models

// NewStarterSession returns a small hand-written world used when no world
// is generated, e.g. offline play and tests.
func NewStarterSession() *GameSession {
	return &GameSession{
		World: World{
			Title:          "The Sunken Lantern",
			ShortName:      "sunken-lantern",
			Description:    "A fog-bound harbor town where the old lighthouse went dark a week ago.",
			Possibilities:  []string{"explore", "talk", "fight", "search"},
			WinConditions:  "Relight the lighthouse lantern.",
			LoseConditions: "Fall in battle or let the town flood.",
		},
		State: GameState{
			Mode:            ModeNarrative,
			CurrentLocation: "Harbor Square",
			Character: CharacterSheet{
				Name:       "Wren",
				Class:      "Scout",
				Level:      1,
				Health:     12,
				MaxHealth:  12,
				Attributes: map[string]int{"strength": 10, "dexterity": 14, "wisdom": 12},
				Skills:     map[string]int{"STEALTH": 4, "LOCKPICKING": 2, "PERCEPTION": 3},
			},
			Inventory: Inventory{
				Equipped: map[string]string{"main_hand": "short sword", "body": "oilskin coat"},
				Backpack: []Item{
					{Name: "rope", Type: "tool", Quantity: 1},
					{Name: "healing potion", Type: "consumable", Quantity: 2},
				},
				Currency: map[string]int{"silver": 15},
			},
			Quests: []Quest{
				{
					ID:     "dark-lighthouse",
					Title:  "The Dark Lighthouse",
					Status: StatusActive,
					Objectives: []Objective{
						{ID: "find-keeper", Description: "Find the lighthouse keeper", Status: StatusActive},
						{ID: "oil", Description: "Bring lamp oil to the lighthouse", Status: StatusActive},
					},
				},
			},
		},
		Locations: map[string]Location{
			"Harbor Square": {
				Name:        "Harbor Square",
				Description: "Wet cobblestones, shuttered stalls and the smell of brine.",
				Exits:       []string{"Docks", "Lighthouse Path", "The Gull Tavern"},
				People:      []string{"a nervous fishmonger"},
				Objects:     []string{"a dry fountain"},
			},
		},
	}
}
