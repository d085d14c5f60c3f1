package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tatianab/narrator/internal/config"
	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/play"
)

var (
	configPath string
	scriptPath string
	resumeName string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "narrator",
	Short: "An AI-narrated text adventure",
	Long: `narrator runs a text adventure whose story is written by a language
model. Player input passes a rule check, is narrated, may ask for game data
and a second pass, and ends in commands applied to the game state.`,
	SilenceUsage: true,
	RunE:         runPlay,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&scriptPath, "script", "", "play offline against a scripted narrator (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&resumeName, "resume", "", "continue a saved game (the autosave when no name is given)")
	rootCmd.PersistentFlags().Lookup("resume").NoOptDefVal = play.SaveName

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(savesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// readConfig skips validation; commands that never call the narrative
// service use it directly.
func readConfig() (*config.Config, error) {
	cfg, err := config.Read(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if scriptPath != "" {
		cfg.ScriptPath = scriptPath
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, toFile bool) (*logging.Logger, error) {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if toFile {
		return logging.NewFile(cfg.LogMode, level, cfg.LogFile)
	}
	return logging.New(cfg.LogMode, level)
}

// startRuntime loads config, logging and the narrative service. The
// returned cleanup closes them in reverse order.
func startRuntime(ctx context.Context, logToFile bool) (*play.Runtime, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg, logToFile)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	rt, err := play.NewRuntime(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, nil, err
	}
	return rt, func() {
		rt.Close()
		log.Sync()
	}, nil
}
