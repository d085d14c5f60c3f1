package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tatianab/narrator/internal/parser"
	"github.com/tatianab/narrator/internal/requests"
	"github.com/tatianab/narrator/internal/router"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse narrator output and show how it would be routed",
	Long: `parse reads raw narrative-service output from a file or stdin and prints
the parsed narrative, the parse method and every lowered command with its
routing class. Nothing is executed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

type parsedCommand struct {
	Command string `json:"command"`
	Class   string `json:"class"`
}

type parseReport struct {
	Narrative    string          `json:"narrative"`
	TimePassage  string          `json:"time_passage,omitempty"`
	Method       parser.Method   `json:"method"`
	Dropped      int             `json:"dropped"`
	Warnings     []string        `json:"warnings,omitempty"`
	Commands     []parsedCommand `json:"commands"`
	Unrecognized []string        `json:"unrecognized,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	in := io.Reader(os.Stdin)
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	res := parser.New(nil).ParseDetailed(string(raw))
	outcome := router.New(nil, nil).Partition(requests.LowerAll(res.Output.Requests))

	report := parseReport{
		Narrative:   res.Output.Narrative,
		TimePassage: res.Output.TimePassage,
		Method:      res.Method,
		Dropped:     res.Dropped,
		Warnings:    res.Warnings,
		Commands:    []parsedCommand{},
	}
	for _, d := range outcome.Decisions {
		report.Commands = append(report.Commands, parsedCommand{Command: d.Command.String(), Class: d.Class.String()})
	}
	for _, c := range outcome.Unrecognized {
		report.Unrecognized = append(report.Unrecognized, c.String())
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
