package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/narrator/internal/models"
)

// ErrScriptExhausted is returned when a Scripted service has no response
// left for a call.
var ErrScriptExhausted = errors.New("script exhausted")

// ScriptEntry is one canned response. Entries with Match answer any call
// whose last message contains it and may be reused; the others are
// consumed in order.
type ScriptEntry struct {
	Match string `yaml:"match,omitempty"`
	Text  string `yaml:"text"`
	// Error makes the call fail with this message instead.
	Error string `yaml:"error,omitempty"`
}

// Scripted is an offline Service that replays canned responses.
type Scripted struct {
	mu      sync.Mutex
	entries []ScriptEntry
	next    int
	calls   []string
}

func NewScripted(entries []ScriptEntry) *Scripted {
	return &Scripted{entries: entries}
}

// LoadScript reads a YAML file holding a list of entries under
// "responses".
func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file struct {
		Responses []ScriptEntry `yaml:"responses"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}
	return NewScripted(file.Responses), nil
}

func (s *Scripted) Generate(ctx context.Context, msgs []models.Message, _ models.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	last := ""
	if len(msgs) > 0 {
		last = msgs[len(msgs)-1].Content
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, last)

	lower := strings.ToLower(last)
	for _, e := range s.entries {
		if e.Match != "" && strings.Contains(lower, strings.ToLower(e.Match)) {
			return e.result()
		}
	}
	for s.next < len(s.entries) {
		e := s.entries[s.next]
		s.next++
		if e.Match == "" {
			return e.result()
		}
	}
	return "", ErrScriptExhausted
}

func (e ScriptEntry) result() (string, error) {
	if e.Error != "" {
		return "", errors.New(e.Error)
	}
	return e.Text, nil
}

// Calls returns the last message of every call made so far.
func (s *Scripted) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Remaining reports how many ordered entries are left.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries[s.next:] {
		if e.Match == "" {
			n++
		}
	}
	return n
}
