package engine

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/cespare/xxhash/v2"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
)

//go:embed prompts/summarize_history.txt
var summarizeHistoryPrompt string

var summarizeTmpl = template.Must(template.New("summarize_history").Parse(summarizeHistoryPrompt))

var summaryParams = models.GenerationParams{Temperature: 0.3, MaxTokens: 512}

// Summarizer condenses older conversation history. Results are cached by
// the content they summarize until Reset.
type Summarizer struct {
	svc  Service
	keep int
	log  *logging.Logger

	mu    sync.Mutex
	cache map[uint64]string
}

// NewSummarizer keeps the last keep messages verbatim and summarizes the
// rest. keep is rounded up to whole turns.
func NewSummarizer(svc Service, keep int, log *logging.Logger) *Summarizer {
	if keep <= 0 {
		keep = 6
	}
	keep += keep % 2
	return &Summarizer{
		svc:   svc,
		keep:  keep,
		log:   logging.OrNop(log).Named("summarizer"),
		cache: make(map[uint64]string),
	}
}

// Summarize folds everything in gctx.History except the most recent
// messages into the existing ContextSummary.
func (s *Summarizer) Summarize(ctx context.Context, gctx models.GenerationContext) (models.HistorySummary, error) {
	if len(gctx.History) <= s.keep {
		return models.HistorySummary{Text: gctx.ContextSummary}, nil
	}
	older := gctx.History[:len(gctx.History)-s.keep]
	folded := len(older)

	var events strings.Builder
	for _, m := range older {
		label := "Action"
		if m.Role == models.RoleAssistant {
			label = "Outcome"
		}
		fmt.Fprintf(&events, "%s: %s\n", label, m.Content)
	}

	key := xxhash.Sum64String(gctx.ContextSummary + "\x00" + events.String())
	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return models.HistorySummary{Text: cached, Folded: folded}, nil
	}

	var buf bytes.Buffer
	data := struct {
		CurrentSummary string
		NewEvents      string
	}{
		CurrentSummary: gctx.ContextSummary,
		NewEvents:      events.String(),
	}
	if err := summarizeTmpl.Execute(&buf, data); err != nil {
		return models.HistorySummary{}, err
	}

	text, err := s.svc.Generate(ctx, []models.Message{{Role: models.RoleUser, Content: buf.String()}}, summaryParams)
	if err != nil {
		return models.HistorySummary{}, fmt.Errorf("summarizing history: %w", err)
	}
	summary := strings.TrimSpace(text)
	if summary == "" {
		return models.HistorySummary{}, ErrEmpty
	}

	s.mu.Lock()
	s.cache[key] = summary
	s.mu.Unlock()
	s.log.Debug("history summarized", "messages", folded, "chars", len(summary))
	return models.HistorySummary{Text: summary, Folded: folded}, nil
}

// Reset drops cached summaries.
func (s *Summarizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}
