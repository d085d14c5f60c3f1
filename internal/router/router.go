// Package router sorts commands into the three dispatch classes and runs
// the immediate ones against the game engine.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/requests"
)

// Class is the dispatch class of a command.
type Class int

const (
	// Internal commands are consumed by the pipeline and never surfaced.
	Internal Class = iota + 1
	// Immediate commands are executed synchronously during the turn.
	Immediate
	// Deferred commands are returned to the caller.
	Deferred
)

func (c Class) String() string {
	switch c {
	case Internal:
		return "internal"
	case Immediate:
		return "immediate"
	case Deferred:
		return "deferred"
	}
	return "unknown"
}

var classes = map[string]Class{
	requests.CmdDataQuery:      Internal,
	requests.CmdModeTransition: Immediate,
	requests.CmdQuestUpdate:    Immediate,
	requests.CmdQuestStatus:    Immediate,
	requests.CmdSkillCheck:     Deferred,
	requests.CmdStateChange:    Deferred,
	requests.CmdAddItem:        Deferred,
	requests.CmdConsumeItem:    Deferred,
}

// Classify returns the class of a command name. ok is false for names the
// router does not know.
func Classify(name string) (Class, bool) {
	c, ok := classes[name]
	return c, ok
}

// OnboardingInput is the one player input that skips the rule gate.
const OnboardingInput = "I'm ready to begin my adventure."

// IsOnboardingInput reports whether input is the onboarding greeting,
// ignoring case and surrounding whitespace.
func IsOnboardingInput(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), OnboardingInput)
}

// Result is what an immediate execution reports back.
type Result struct {
	Summary string
}

// ImmediateExecutor applies an immediate command to the game engine. The
// engine and game state are bound inside the implementation.
type ImmediateExecutor interface {
	ExecuteImmediate(ctx context.Context, cmd requests.Command) (Result, error)
}

// ErrNoExecutor is recorded when an immediate command arrives and no
// executor was configured.
var ErrNoExecutor = errors.New("no immediate executor configured")

// Decision records how one command was handled.
type Decision struct {
	Command requests.Command
	Class   Class
	Result  Result
	Err     error
}

// Outcome is the routed batch. Every recognized input command appears in
// exactly one of Internal, Immediate or Deferred.
type Outcome struct {
	Decisions    []Decision
	Internal     []requests.Command
	Immediate    []requests.Command
	Deferred     []requests.Command
	Unrecognized []requests.Command
	Failed       int
}

type Router struct {
	exec ImmediateExecutor
	log  *logging.Logger
}

func New(exec ImmediateExecutor, log *logging.Logger) *Router {
	return &Router{exec: exec, log: logging.OrNop(log).Named("router")}
}

// Partition classifies cmds without executing anything.
func (r *Router) Partition(cmds []requests.Command) Outcome {
	var out Outcome
	for _, cmd := range cmds {
		class, ok := Classify(cmd.Name)
		if !ok {
			r.log.Warn("dropping unrecognized command", "command", cmd.Name)
			out.Unrecognized = append(out.Unrecognized, cmd)
			continue
		}
		out.Decisions = append(out.Decisions, Decision{Command: cmd, Class: class})
		switch class {
		case Internal:
			out.Internal = append(out.Internal, cmd)
		case Immediate:
			out.Immediate = append(out.Immediate, cmd)
		case Deferred:
			out.Deferred = append(out.Deferred, cmd)
		}
	}
	return out
}

// Route classifies cmds and executes the immediate ones in order. A failed
// or panicking immediate command is logged and skipped; it never stops the
// rest of the batch.
func (r *Router) Route(ctx context.Context, cmds []requests.Command) Outcome {
	out := r.Partition(cmds)
	for i := range out.Decisions {
		d := &out.Decisions[i]
		if d.Class != Immediate {
			continue
		}
		d.Result, d.Err = r.execute(ctx, d.Command)
		if d.Err != nil {
			out.Failed++
			r.log.Warn("immediate command failed", "command", d.Command.Name, "args", d.Command.Args, "error", d.Err)
			continue
		}
		r.log.Debug("immediate command executed", "command", d.Command.Name, "summary", d.Result.Summary)
	}
	return out
}

func (r *Router) execute(ctx context.Context, cmd requests.Command) (res Result, err error) {
	if r.exec == nil {
		return Result{}, ErrNoExecutor
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s panicked: %v", cmd.Name, p)
		}
	}()
	return r.exec.ExecuteImmediate(ctx, cmd)
}
