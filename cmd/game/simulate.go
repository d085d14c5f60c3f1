package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/play"
	"github.com/tatianab/narrator/internal/router"
)

var (
	simTurns   int
	simHint    string
	simActions string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a game without a human",
	Long: `simulate plays up to --turns turns. Actions come from --actions, one per
line, or else from the narrative service acting as the player.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simTurns, "turns", "n", 10, "maximum number of turns")
	simulateCmd.Flags().StringVar(&simHint, "hint", "", "world hint; empty uses the starter world")
	simulateCmd.Flags().StringVar(&simActions, "actions", "", "file with one player action per line")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, cleanup, err := startRuntime(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	actions, err := readActions(simActions)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var world *models.GameSession
	if resumeName != "" {
		fmt.Fprintf(out, "--- Resuming %s ---\n", resumeName)
		world, err = rt.Resume(resumeName)
	} else {
		fmt.Fprintln(out, "--- Generating world ---")
		world, err = rt.NewWorld(ctx, simHint)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Title: %s\n%s\n\n", world.World.Title, world.World.Description)

	s := rt.Start(world)
	if resumeName == "" {
		turn, err := s.Turn(ctx, router.OnboardingInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n\n", turn.Narrative)
	} else if n := len(world.History.Entries); n > 0 {
		fmt.Fprintf(out, "%s\n\n", world.History.Entries[n-1].Outcome)
	}

	for i := 1; i <= simTurns; i++ {
		var action string
		switch {
		case actions != nil && len(actions) == 0:
			return nil
		case actions != nil:
			action, actions = actions[0], actions[1:]
		default:
			action = play.NextAction(ctx, rt.Service, s.Game.Session())
		}

		fmt.Fprintf(out, "--- Turn %d ---\n> %s\n", i, action)
		turn, err := s.Turn(ctx, action)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, turn.Narrative)
		for _, line := range turn.Lines() {
			fmt.Fprintf(out, "  * %s\n", line)
		}

		st := s.Game.Session().State
		fmt.Fprintf(out, "  [%s | %s | HP %d/%d | %dm]\n\n",
			st.Mode, st.CurrentLocation, st.Character.Health, st.Character.MaxHealth, st.ElapsedMinutes)

		if st.Character.Health <= 0 {
			fmt.Fprintln(out, "Game ended: the player fell.")
			return nil
		}
		if allQuestsDone(st.Quests) {
			fmt.Fprintln(out, "Game ended: every quest is resolved.")
			return nil
		}
	}
	return nil
}

// readActions returns nil when path is empty.
func readActions(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	actions := []string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			actions = append(actions, line)
		}
	}
	return actions, sc.Err()
}

func allQuestsDone(quests []models.Quest) bool {
	if len(quests) == 0 {
		return false
	}
	for _, q := range quests {
		if q.Status == models.StatusActive {
			return false
		}
	}
	return true
}
