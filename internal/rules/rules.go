// Package rules is the pass/fail gate consulted before any narrative is
// generated for a player input.
package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
)

// Verdict is the gate's answer. Reason is shown to the player when the
// input is rejected.
type Verdict struct {
	Valid  bool
	Reason string
}

// Allow is the passing verdict.
var Allow = Verdict{Valid: true}

// Reject builds a failing verdict.
func Reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Player input that tries to manipulate the narrator rather than describe
// an action.
var injectionPatterns = []string{
	"ignore instructions",
	"ignore previous instructions",
	"ignore rules",
	"forget everything",
	"you are now",
	"new role",
	"system prompt",
	"developer mode",
	"jailbreak",
	"i am admin",
	"give me gold",
	"infinite health",
	"make me immortal",
	"god mode",
}

// Actions no character in the setting can perform.
var godModePatterns = []string{
	"kill everyone",
	"destroy the world",
	"stop time",
	"become a god",
	"instant kill",
	"one shot",
	"resurrect myself",
}

var lootPattern = regexp.MustCompile(`(?i)^\s*(?:loot|rob|strip)\s+(?:the\s+)?(?:body\s+of\s+(?:the\s+)?)?(.+?)(?:'s\s+(?:body|corpse))?\s*[.!]?\s*$`)

const (
	reasonManipulation = "That is not something your character can do."
	reasonLooted       = "There is nothing left to take from %s."
	reasonRepeated     = "You have already tried that. Try something different."
)

// Checker validates player input against guardrail patterns, remembers
// which entities were looted and keeps a short ring of recent inputs to
// stop repeated attempts.
type Checker struct {
	mu         sync.Mutex
	looted     map[string]bool
	recent     []string
	next       int
	filled     int
	maxRepeats int
	log        *logging.Logger
}

// NewChecker returns a checker that remembers historySize recent inputs
// and rejects an input seen maxRepeats times among them.
func NewChecker(historySize, maxRepeats int, log *logging.Logger) *Checker {
	if historySize <= 0 {
		historySize = 8
	}
	if maxRepeats <= 0 {
		maxRepeats = 3
	}
	return &Checker{
		looted:     make(map[string]bool),
		recent:     make([]string, historySize),
		maxRepeats: maxRepeats,
		log:        logging.OrNop(log).Named("rules"),
	}
}

// Validate checks the player input in gctx.
func (c *Checker) Validate(ctx context.Context, gctx models.GenerationContext) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	input := normalize(gctx.PlayerInput)
	if input == "" {
		return Allow, nil
	}

	for _, groups := range [][]string{injectionPatterns, godModePatterns} {
		for _, p := range groups {
			if strings.Contains(input, p) {
				c.log.Info("rejecting manipulative input", "pattern", p)
				return Reject(reasonManipulation), nil
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count(input)+1 >= c.maxRepeats {
		c.log.Info("rejecting repeated input", "input", input)
		return Reject(reasonRepeated), nil
	}
	c.remember(input)

	if m := lootPattern.FindStringSubmatch(gctx.PlayerInput); m != nil {
		entity := normalize(m[1])
		if c.looted[entity] {
			return Reject(fmt.Sprintf(reasonLooted, m[1])), nil
		}
		c.looted[entity] = true
	}
	return Allow, nil
}

// Looted reports whether the entity has been looted this session.
func (c *Checker) Looted(entity string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.looted[normalize(entity)]
}

// Reset clears the looted set and the input history.
func (c *Checker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.looted = make(map[string]bool)
	for i := range c.recent {
		c.recent[i] = ""
	}
	c.next, c.filled = 0, 0
}

func (c *Checker) remember(input string) {
	c.recent[c.next] = input
	c.next = (c.next + 1) % len(c.recent)
	if c.filled < len(c.recent) {
		c.filled++
	}
}

func (c *Checker) count(input string) int {
	n := 0
	for i := 0; i < c.filled; i++ {
		if c.recent[i] == input {
			n++
		}
	}
	return n
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
