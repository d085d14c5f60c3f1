package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/narrator/internal/config"
	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/play"
)

func newRuntime(t *testing.T, script string) *play.Runtime {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	cfg := config.Default()
	cfg.ScriptPath = path
	cfg.SaveDir = ""
	rt, err := play.NewRuntime(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestOnboardingAndTurn(t *testing.T) {
	rt := newRuntime(t, `responses:
  - text: '{"narrative": "Rain hammers the harbor.", "requests": []}'
  - text: '{"narrative": "You find a coin.", "requests": [{"action": "request_state_change", "attribute": "silver", "change_type": "add", "value": 1}]}'
`)
	var m tea.Model = NewModel(rt, "")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, cmd = m.Update(cmd())
	require.NotNil(t, cmd, "onboarding turn starts after the world is ready")
	m, _ = m.Update(cmd())

	view := m.View()
	assert.Contains(t, view, "Rain hammers the harbor.")
	assert.Contains(t, view, "Harbor Square")

	mm := m.(model)
	mm.textInput.SetValue("search the stalls")
	m, cmd = mm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())

	view = m.View()
	assert.Contains(t, view, "You find a coin.")
	assert.Contains(t, view, "16 silver")
}

func TestResumeSavedGame(t *testing.T) {
	rt := newRuntime(t, `responses:
  - text: '{"narrative": "The keeper nods.", "requests": []}'
`)
	rt.Config.SaveDir = t.TempDir()
	gs := models.NewStarterSession()
	gs.History.Entries = append(gs.History.Entries, models.HistoryEntry{PlayerAction: "knock", Outcome: "A lamp flickers upstairs."})
	require.NoError(t, gs.Save(rt.Config.SaveDir, play.SaveName))

	var m tea.Model = NewModel(rt, "")
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Contains(t, m.View(), "Saved games: current")

	mm := m.(model)
	mm.textInput.SetValue("/load")
	m, cmd := mm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, cmd = m.Update(cmd())
	assert.Nil(t, cmd, "a resumed game skips onboarding")
	assert.Contains(t, m.View(), "A lamp flickers upstairs.")

	mm = m.(model)
	mm.textInput.SetValue("go upstairs")
	m, cmd = mm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = m.Update(cmd())
	assert.Contains(t, m.View(), "The keeper nods.")
	assert.Len(t, m.(model).session.Game.Session().History.Entries, 2)
}

func TestResumeFromFlag(t *testing.T) {
	rt := newRuntime(t, "responses: []\n")
	rt.Config.SaveDir = t.TempDir()
	require.NoError(t, models.NewStarterSession().Save(rt.Config.SaveDir, "harbor"))

	m := NewModel(rt, "harbor")
	assert.Equal(t, phaseGenerating, m.phase)
	msg := m.loadWorld("harbor")()
	ready, ok := msg.(worldReadyMsg)
	require.True(t, ok)
	assert.True(t, ready.resumed)

	msg = m.loadWorld("missing")()
	assert.IsType(t, errMsg{}, msg)
}
