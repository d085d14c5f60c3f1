// Package engine talks to the narrative service: the Gemini client, an
// offline scripted stand-in, world generation and history summaries.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/tatianab/narrator/internal/logging"
	"github.com/tatianab/narrator/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Service generates text from a conversation.
type Service interface {
	Generate(ctx context.Context, msgs []models.Message, params models.GenerationParams) (string, error)
}

type Options struct {
	APIKey string
	Model  string
	// Timeout bounds a single call. Zero means no extra bound.
	Timeout time.Duration
	// RequestsPerMinute throttles calls. Zero disables throttling.
	RequestsPerMinute int
}

// Gemini is a Service backed by the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	log     *logging.Logger
}

func NewGemini(ctx context.Context, opts Options, log *logging.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, classify(err)
	}

	g := &Gemini{
		client:  client,
		model:   opts.Model,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Inf, 1),
		log:     logging.OrNop(log).Named("gemini"),
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if opts.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return g, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Generate sends msgs as one chat: system messages become the system
// instruction, the last message is sent and the rest form the history.
func (g *Gemini) Generate(ctx context.Context, msgs []models.Message, params models.GenerationParams) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	model := g.client.GenerativeModel(g.model)
	if params.Temperature > 0 {
		model.SetTemperature(params.Temperature)
	}
	if params.MaxTokens > 0 {
		model.SetMaxOutputTokens(params.MaxTokens)
	}
	if params.JSON {
		model.ResponseMIMEType = "application/json"
	}

	var system []string
	var turns []models.Message
	for _, m := range msgs {
		if m.Role == models.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 {
		return "", fmt.Errorf("no messages to send")
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))}}
	}

	cs := model.StartChat()
	for _, m := range turns[:len(turns)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(turns[len(turns)-1].Content))
	if err != nil {
		g.log.Warn("generation failed", "model", g.model, "elapsed", time.Since(start), "error", err)
		return "", classify(err)
	}
	text, err := responseText(resp)
	if err != nil {
		return "", err
	}
	g.log.Debug("generation finished", "model", g.model, "elapsed", time.Since(start), "chars", len(text))
	return text, nil
}

func geminiRole(role string) string {
	if role == models.RoleAssistant {
		return "model"
	}
	return "user"
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmpty
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmpty
	}
	return b.String(), nil
}
