// Package play wires the game engine, the narrative pipeline and the
// journal into one playable session, and drives single turns.
package play

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tatianab/narrator/internal/config"
	"github.com/tatianab/narrator/internal/engine"
	"github.com/tatianab/narrator/internal/game"
	"github.com/tatianab/narrator/internal/journal"
	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/orchestrator"
	"github.com/tatianab/narrator/internal/rules"
)

// SaveName is the save slot written after every turn.
const SaveName = "current"

// Session is one game in progress.
type Session struct {
	ID   string
	Game *game.Engine
	Orch *orchestrator.Orchestrator

	historyLimit int
	saveDir      string
	log          *logging.Logger
}

// Turn is the outcome of one player input after deferred effects were
// applied.
type Turn struct {
	orchestrator.Result
	Effects []game.Effect
}

// Lines returns short descriptions of what changed, for display.
func (t Turn) Lines() []string {
	var lines []string
	for _, d := range t.Immediate {
		if d.Err != nil {
			lines = append(lines, fmt.Sprintf("%s failed: %v", d.Command.Name, d.Err))
			continue
		}
		lines = append(lines, d.Result.Summary)
	}
	for _, e := range t.Effects {
		if e.Err != nil {
			lines = append(lines, fmt.Sprintf("%s failed: %v", e.Command.Name, e.Err))
			continue
		}
		lines = append(lines, e.Summary)
	}
	return lines
}

// Runtime holds what outlives a single session: the narrative service and
// the journal.
type Runtime struct {
	Config  *config.Config
	Service engine.Service
	Journal *journal.DB
	Log     *logging.Logger

	closers []func() error
}

// NewRuntime connects the narrative service chosen by cfg and opens the
// journal when one is configured.
func NewRuntime(ctx context.Context, cfg *config.Config, log *logging.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Log: logging.OrNop(log)}

	if cfg.Offline() {
		svc, err := engine.LoadScript(cfg.ScriptPath)
		if err != nil {
			return nil, err
		}
		rt.Service = svc
	} else {
		g, err := engine.NewGemini(ctx, engine.Options{
			APIKey:            cfg.GeminiAPIKey,
			Model:             cfg.Model,
			Timeout:           cfg.Timeout,
			RequestsPerMinute: cfg.RequestsPerMinute,
		}, rt.Log)
		if err != nil {
			return nil, fmt.Errorf("creating narrative service: %w", err)
		}
		rt.Service = g
		rt.closers = append(rt.closers, g.Close)
	}

	if cfg.JournalPath != "" {
		db, err := journal.Open(cfg.JournalPath)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.Journal = db
		rt.closers = append(rt.closers, db.Close)
	}
	return rt, nil
}

func (rt *Runtime) Close() error {
	var first error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	rt.closers = nil
	return first
}

// NewWorld returns a generated session for hint, or the starter session
// when hint is empty or "starter".
func (rt *Runtime) NewWorld(ctx context.Context, hint string) (*models.GameSession, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.EqualFold(hint, "starter") {
		return models.NewStarterSession(), nil
	}
	return engine.GenerateWorld(ctx, rt.Service, hint)
}

// Resume loads the saved session name, or the autosave when name is
// empty.
func (rt *Runtime) Resume(name string) (*models.GameSession, error) {
	if rt.Config.SaveDir == "" {
		return nil, errors.New("no save directory configured")
	}
	if name = strings.TrimSpace(name); name == "" {
		name = SaveName
	}
	gs, err := models.LoadSession(rt.Config.SaveDir, name)
	if err != nil {
		return nil, fmt.Errorf("loading save %q: %w", name, err)
	}
	return gs, nil
}

// Saves lists the saved sessions.
func (rt *Runtime) Saves() ([]string, error) {
	if rt.Config.SaveDir == "" {
		return []string{}, nil
	}
	return models.ListSessions(rt.Config.SaveDir)
}

// Start binds a session to a fresh pipeline.
func (rt *Runtime) Start(gs *models.GameSession) *Session {
	cfg := rt.Config
	id := uuid.NewString()
	log := rt.Log.With("session", id)

	g := game.New(gs, game.Options{MinQuestConfidence: cfg.MinQuestConfidence}, log)
	checker := rules.NewChecker(cfg.RuleHistory, cfg.MaxRepeats, log)

	opts := orchestrator.Options{
		Service:        rt.Service,
		Validator:      checker,
		Query:          g,
		Executor:       g,
		Handlers:       g.Handlers(),
		Summarizer:     engine.NewSummarizer(rt.Service, cfg.SummaryKeep, log),
		SummarizeAfter: cfg.SummarizeAfter,
		SessionID:      id,
		Log:            log,
	}
	if rt.Journal != nil {
		opts.Recorder = rt.Journal
	}

	return &Session{
		ID:           id,
		Game:         g,
		Orch:         orchestrator.New(opts),
		historyLimit: cfg.HistoryLimit,
		saveDir:      cfg.SaveDir,
		log:          log.Named("play"),
	}
}

// Turn runs input through the pipeline, applies the deferred commands,
// advances the clock and records the turn. Rejected and failed turns do
// not enter the history, but a history summary made during the call is
// kept.
func (s *Session) Turn(ctx context.Context, input string) (Turn, error) {
	gctx := s.Game.Context(input, s.historyLimit)
	res, err := s.Orch.ProcessInput(ctx, gctx)
	if err != nil {
		return Turn{}, err
	}
	if res.Summarized {
		s.Game.FoldHistory(res.History.Text, gctx.HistoryStart+res.History.Folded/2)
	}
	t := Turn{Result: res}
	if res.Rejected || res.Failure != "" {
		return t, nil
	}

	t.Effects = s.Game.ApplyDeferred(ctx, res.Deferred)
	s.Game.AdvanceTime(res.TimePassage)

	deferred := make([]string, 0, len(res.Deferred))
	for _, c := range res.Deferred {
		deferred = append(deferred, c.String())
	}
	s.Game.RecordTurn(input, res.Narrative, deferred)

	if s.saveDir != "" {
		if err := s.Game.Save(s.saveDir, SaveName); err != nil {
			s.log.Warn("autosave failed", "error", err)
		}
	}
	return t, nil
}

// Restart clears per-session pipeline state.
func (s *Session) Restart() {
	s.Orch.Reset()
}
