package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tatianab/narrator/internal/journal"
	"github.com/tatianab/narrator/internal/models"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal [session]",
	Short: "Show journaled turns",
	Long: `journal prints the recorded turns of a session, oldest first. Without a
session ID it lists the journaled sessions and shows the most recent one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJournal,
}

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "List saved games",
	Args:  cobra.NoArgs,
	RunE:  runSaves,
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "turns to show; 0 shows all")
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return errors.New("no journal configured: set journal_path or NARRATOR_JOURNAL")
	}
	db, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	session := ""
	if len(args) == 1 {
		session = args[0]
	} else {
		sessions, err := db.Sessions(ctx, 0)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(out, "The journal is empty.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(out, "%s  %3d turns  last %s\n", s.ID, s.Turns, s.LastAt.Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(out)
		session = sessions[0].ID
	}

	turns, err := db.Recent(ctx, session, journalLimit)
	if err != nil {
		return err
	}
	slices.Reverse(turns)
	for _, t := range turns {
		printTurn(out, t)
	}
	return nil
}

func printTurn(out io.Writer, t journal.Turn) {
	fmt.Fprintf(out, "[%s] > %s\n", t.CreatedAt.Format("15:04:05"), t.Input)
	status := t.Method
	if t.Rejected {
		status = "rejected"
	}
	fmt.Fprintf(out, "  (%s) %s\n", status, t.Narrative)
	if len(t.Immediate) > 0 {
		fmt.Fprintf(out, "  applied:  %s\n", strings.Join(t.Immediate, " "))
	}
	if len(t.Deferred) > 0 {
		fmt.Fprintf(out, "  deferred: %s\n", strings.Join(t.Deferred, " "))
	}
}

func runSaves(cmd *cobra.Command, args []string) error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	names, err := models.ListSessions(cfg.SaveDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "No saved games.")
		return nil
	}
	for _, name := range names {
		gs, err := models.LoadSession(cfg.SaveDir, name)
		if err != nil {
			fmt.Fprintf(out, "%s  (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Fprintf(out, "%s  %s  %d turns, %s\n", name, gs.World.Title, len(gs.History.Entries), gs.State.CurrentLocation)
	}
	return nil
}
