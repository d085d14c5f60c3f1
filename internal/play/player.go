package play

import (
	"context"
	"fmt"
	"strings"

	"github.com/tatianab/narrator/internal/engine"
	"github.com/tatianab/narrator/internal/models"
)

var playerParams = models.GenerationParams{Temperature: 1.0, MaxTokens: 64}

// NextAction asks svc to play one turn of gs. It falls back to a harmless
// action when the service fails.
func NextAction(ctx context.Context, svc engine.Service, gs *models.GameSession) string {
	var history strings.Builder
	for _, entry := range gs.History.Entries {
		fmt.Fprintf(&history, "Action: %s\nOutcome: %s\n", entry.PlayerAction, entry.Outcome)
	}
	var items []string
	for _, it := range gs.State.Inventory.Backpack {
		items = append(items, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
	}

	prompt := fmt.Sprintf(`You are playing a text-based adventure game.
World: %s
Current Location: %s
Inventory: %s
Health: %d/%d

History:
%s

What is your next action? Be creative but stay within the world's logic. Return ONLY the action string, no extra commentary.`,
		gs.World.Description,
		gs.State.CurrentLocation,
		strings.Join(items, ", "),
		gs.State.Character.Health, gs.State.Character.MaxHealth,
		history.String(),
	)

	text, err := svc.Generate(ctx, []models.Message{{Role: models.RoleUser, Content: prompt}}, playerParams)
	if err != nil {
		return "examine the area"
	}
	action := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))
	if action == "" {
		return "look around"
	}
	return action
}
