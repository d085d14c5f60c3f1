package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tatianab/narrator/internal/tui"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal UI (default)",
	RunE:  runPlay,
}

func runPlay(cmd *cobra.Command, args []string) error {
	// The TUI owns the terminal, so logs go to a file.
	rt, cleanup, err := startRuntime(context.Background(), true)
	if err != nil {
		return err
	}
	defer cleanup()
	return tui.Run(rt, resumeName)
}
