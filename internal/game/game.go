// Package game binds a GameSession to the pipeline: it answers data
// queries, executes immediate commands, applies deferred effects and
// provides the embedded-command handlers.
package game

import (
	"context"
	"errors"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
)

var (
	ErrUnknownQuest     = errors.New("unknown quest")
	ErrUnknownObjective = errors.New("unknown objective")
	ErrLowConfidence    = errors.New("confidence below threshold")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrItemNotFound     = errors.New("item not found")
	ErrNotEnough        = errors.New("not enough")
	ErrUnsupported      = errors.New("unsupported command")
)

// DefaultMinQuestConfidence is used when Options leaves it zero.
const DefaultMinQuestConfidence = 0.5

type Options struct {
	// MinQuestConfidence is the lowest confidence at which a quest
	// update or status change is applied.
	MinQuestConfidence float64
	// Roll returns a number in [1, sides]. Defaults to math/rand/v2.
	Roll func(sides int) int
}

// Engine owns one session. All methods are safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	session *models.GameSession
	opts    Options
	log     *logging.Logger
}

func New(session *models.GameSession, opts Options, log *logging.Logger) *Engine {
	if session == nil {
		session = models.NewStarterSession()
	}
	if opts.MinQuestConfidence <= 0 {
		opts.MinQuestConfidence = DefaultMinQuestConfidence
	}
	if opts.Roll == nil {
		opts.Roll = func(sides int) int { return rand.IntN(sides) + 1 }
	}
	if session.State.Mode == "" {
		session.State.Mode = models.ModeNarrative
	}
	return &Engine{session: session, opts: opts, log: logging.OrNop(log).Named("game")}
}

// Inventory returns a copy of the player's inventory.
func (e *Engine) Inventory(ctx context.Context) (models.Inventory, error) {
	if err := ctx.Err(); err != nil {
		return models.Inventory{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	inv := e.session.State.Inventory
	inv.Equipped = maps.Clone(inv.Equipped)
	inv.Backpack = slices.Clone(inv.Backpack)
	inv.Currency = maps.Clone(inv.Currency)
	return inv, nil
}

// Stats returns a copy of the character sheet.
func (e *Engine) Stats(ctx context.Context) (models.CharacterSheet, error) {
	if err := ctx.Err(); err != nil {
		return models.CharacterSheet{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.session.State.Character
	c.Attributes = maps.Clone(c.Attributes)
	c.Skills = maps.Clone(c.Skills)
	return c, nil
}

// Quests returns a copy of the quest log.
func (e *Engine) Quests(ctx context.Context) ([]models.Quest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Quest, len(e.session.State.Quests))
	for i, q := range e.session.State.Quests {
		q.Objectives = slices.Clone(q.Objectives)
		out[i] = q
	}
	return out, nil
}

// Location returns the player's current location.
func (e *Engine) Location(ctx context.Context) (models.Location, error) {
	if err := ctx.Err(); err != nil {
		return models.Location{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	loc := e.session.CurrentLocation()
	loc.Exits = slices.Clone(loc.Exits)
	loc.People = slices.Clone(loc.People)
	loc.Objects = slices.Clone(loc.Objects)
	return loc, nil
}

// Mode returns the current game mode.
func (e *Engine) Mode() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.State.Mode
}

// Context snapshots the session for one player input.
func (e *Engine) Context(input string, historyLimit int) models.GenerationContext {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.NewContext(input, historyLimit)
}

// AdvanceTime moves the game clock forward. Negative durations are
// ignored.
func (e *Engine) AdvanceTime(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.State.ElapsedMinutes += int(d / time.Minute)
}

// RecordTurn appends a finished turn to the session history.
func (e *Engine) RecordTurn(input, outcome string, deferred []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.History.Entries = append(e.session.History.Entries, models.HistoryEntry{
		PlayerAction: input,
		Outcome:      outcome,
		Deferred:     deferred,
	})
}

// FoldHistory replaces the history summary with one that covers the
// first upTo entries. The covered range never shrinks.
func (e *Engine) FoldHistory(summary string, upTo int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := &e.session.History
	h.Summary = summary
	h.Summarized = max(h.Summarized, min(upTo, len(h.Entries)))
}

// Save writes the session to dir/name.
func (e *Engine) Save(dir, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Save(dir, name)
}

// Session returns the underlying session. Callers must not use it while
// the engine is in use.
func (e *Engine) Session() *models.GameSession {
	return e.session
}
