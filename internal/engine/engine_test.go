package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tatianab/narrator/internal/models"
)

func user(s string) []models.Message {
	return []models.Message{{Role: models.RoleUser, Content: s}}
}

func TestScripted(t *testing.T) {
	s := NewScripted([]ScriptEntry{
		{Text: "first"},
		{Match: "Summarize", Text: "a summary"},
		{Error: "boom"},
		{Text: "second"},
	})
	ctx := context.Background()

	got, err := s.Generate(ctx, user("go north"), models.GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	for range 2 {
		got, err = s.Generate(ctx, user("please summarize the events"), models.GenerationParams{})
		require.NoError(t, err)
		assert.Equal(t, "a summary", got)
	}

	_, err = s.Generate(ctx, user("x"), models.GenerationParams{})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, s.Remaining())

	got, err = s.Generate(ctx, user("y"), models.GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	_, err = s.Generate(ctx, user("z"), models.GenerationParams{})
	assert.ErrorIs(t, err, ErrScriptExhausted)
	assert.Len(t, s.Calls(), 6)
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`responses:
  - text: '{"narrative": "Fog rolls in.", "requests": []}'
  - match: summarize
    text: Earlier, Wren arrived.
`), 0o644))

	s, err := LoadScript(path)
	require.NoError(t, err)
	got, err := s.Generate(context.Background(), user("look"), models.GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, `{"narrative": "Fog rolls in.", "requests": []}`, got)

	_, err = LoadScript(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func history(n int) []models.Message {
	msgs := make([]models.Message, 0, n)
	for i := range n {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msgs = append(msgs, models.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return msgs
}

func TestSummarizerCaches(t *testing.T) {
	svc := NewScripted([]ScriptEntry{{Text: " one "}, {Text: "two"}, {Text: "  "}})
	s := NewSummarizer(svc, 2, nil)
	ctx := context.Background()

	short := models.GenerationContext{History: history(2), ContextSummary: "old"}
	got, err := s.Summarize(ctx, short)
	require.NoError(t, err)
	assert.Equal(t, models.HistorySummary{Text: "old"}, got)
	assert.Empty(t, svc.Calls())

	long := models.GenerationContext{History: history(6)}
	got, err = s.Summarize(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, models.HistorySummary{Text: "one", Folded: 4}, got)

	got, err = s.Summarize(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, "one", got.Text)
	require.Len(t, svc.Calls(), 1)
	assert.Contains(t, svc.Calls()[0], "Action: turn 0")
	assert.Contains(t, svc.Calls()[0], "Outcome: turn 3")
	assert.NotContains(t, svc.Calls()[0], "turn 4")

	s.Reset()
	got, err = s.Summarize(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, "two", got.Text)

	_, err = s.Summarize(ctx, models.GenerationContext{History: history(8)})
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = s.Summarize(ctx, models.GenerationContext{History: history(10)})
	assert.ErrorIs(t, err, ErrScriptExhausted)
}

func TestSummarizerKeepsWholeTurns(t *testing.T) {
	svc := NewScripted([]ScriptEntry{{Text: "earlier"}})
	got, err := NewSummarizer(svc, 3, nil).Summarize(context.Background(), models.GenerationContext{History: history(6)})
	require.NoError(t, err)
	assert.Equal(t, 2, got.Folded)
}

func TestGenerateWorld(t *testing.T) {
	svc := NewScripted([]ScriptEntry{{Text: "```yaml\n" + `world:
  title: Glass Hollow
  description: A valley of singing crystals.
initial_location:
  name: Crystal Gate
  exits: [Hollow Road]
state:
  character:
    name: Ash
    health: 8
    max_health: 8
` + "```"}})

	session, err := GenerateWorld(context.Background(), svc, "crystals")
	require.NoError(t, err)
	assert.Equal(t, "Glass Hollow", session.World.Title)
	assert.Equal(t, "Crystal Gate", session.State.CurrentLocation)
	assert.Equal(t, models.ModeNarrative, session.State.Mode)
	assert.Equal(t, []string{"Hollow Road"}, session.CurrentLocation().Exits)
	assert.Contains(t, svc.Calls()[0], "The player asked for: crystals")

	_, err = decodeWorld("just prose")
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{&googleapi.Error{Code: http.StatusUnauthorized}, ErrCredentials},
		{&googleapi.Error{Code: http.StatusTooManyRequests}, ErrRateLimited},
		{&googleapi.Error{Code: http.StatusServiceUnavailable}, ErrUnavailable},
		{status.Error(codes.PermissionDenied, "bad key"), ErrCredentials},
		{status.Error(codes.ResourceExhausted, "quota"), ErrRateLimited},
		{status.Error(codes.Unavailable, "down"), ErrUnavailable},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), ErrTimeout},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, classify(tt.err), tt.want, tt.err.Error())
	}

	plain := errors.New("odd")
	assert.Equal(t, plain, classify(plain))
	assert.NoError(t, classify(nil))
}
