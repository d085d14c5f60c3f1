package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
)

// Config holds the application configuration.
type Config struct {
	GeminiAPIKey      string        `yaml:"gemini_api_key"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`

	// ScriptPath selects the offline scripted narrator instead of Gemini.
	ScriptPath string `yaml:"script"`

	SaveDir     string `yaml:"save_dir"`
	JournalPath string `yaml:"journal"`

	LogMode  string `yaml:"log_mode"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	HistoryLimit       int     `yaml:"history_limit"`
	SummarizeAfter     int     `yaml:"summarize_after"`
	SummaryKeep        int     `yaml:"summary_keep"`
	MinQuestConfidence float64 `yaml:"min_quest_confidence"`
	RuleHistory        int     `yaml:"rule_history"`
	MaxRepeats         int     `yaml:"max_repeats"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:              "gemini-2.5-flash",
		Timeout:            60 * time.Second,
		RequestsPerMinute:  30,
		SaveDir:            models.DefaultSaveDir,
		LogMode:            "production",
		LogLevel:           "info",
		LogFile:            "narrator.log",
		HistoryLimit:       10,
		SummarizeAfter:     16,
		SummaryKeep:        6,
		MinQuestConfidence: 0.5,
		RuleHistory:        8,
		MaxRepeats:         3,
	}
}

// LoadConfig reads the YAML file at path (skipped when path is empty),
// then applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is LoadConfig without validation, for commands that only inspect
// saves and the journal.
func Read(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"GEMINI_API_KEY":    &c.GeminiAPIKey,
		"NARRATOR_MODEL":    &c.Model,
		"NARRATOR_SAVE_DIR": &c.SaveDir,
		"NARRATOR_JOURNAL":  &c.JournalPath,
		"NARRATOR_LOG_MODE": &c.LogMode,
		"NARRATOR_SCRIPT":   &c.ScriptPath,
	}
	for env, dst := range strs {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("NARRATOR_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NARRATOR_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v, ok := os.LookupEnv("NARRATOR_RPM"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NARRATOR_RPM: %w", err)
		}
		c.RequestsPerMinute = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.ScriptPath == "" {
		return errors.New("GEMINI_API_KEY environment variable is not set")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.MinQuestConfidence < 0 || c.MinQuestConfidence > 1 {
		return fmt.Errorf("min_quest_confidence must be within [0,1], got %v", c.MinQuestConfidence)
	}
	if _, ok := logging.ParseMode(c.LogMode); !ok {
		return fmt.Errorf("log_mode must be development or production, got %q", c.LogMode)
	}
	if c.HistoryLimit > 0 && c.SummarizeAfter >= 2*c.HistoryLimit {
		return fmt.Errorf("summarize_after (%d messages) must be below twice history_limit (%d turns)", c.SummarizeAfter, c.HistoryLimit)
	}
	return nil
}

// Offline reports whether the scripted narrator is configured.
func (c *Config) Offline() bool {
	return c.ScriptPath != ""
}
