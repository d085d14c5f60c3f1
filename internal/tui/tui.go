package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/play"
	"github.com/tatianab/narrator/internal/router"
)

type phase int

const (
	phaseWorldHint phase = iota
	phaseGenerating
	phaseTurns
	phaseFailed
)

type model struct {
	phase     phase
	runtime   *play.Runtime
	session   *play.Session
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	gameLog   string
	width     int
	height    int
	busy      bool
	saves     []string
	resume    string
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	effectStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AF87")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7875F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

const hintPlaceholder = "Enter a hint, or leave empty for the starter world..."

// NewModel starts at the world hint prompt, or loads the save named
// resume when it is not empty.
func NewModel(rt *play.Runtime, resume string) model {
	ti := textinput.New()
	ti.Placeholder = hintPlaceholder
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	m := model{
		phase:     phaseWorldHint,
		runtime:   rt,
		textInput: ti,
		resume:    resume,
	}
	if resume != "" {
		m.phase = phaseGenerating
	} else if saves, err := rt.Saves(); err == nil {
		m.saves = saves
	}
	return m
}

func (m model) Init() tea.Cmd {
	if m.resume != "" {
		return tea.Batch(textinput.Blink, m.loadWorld(m.resume))
	}
	return textinput.Blink
}

type worldReadyMsg struct {
	session *play.Session
	resumed bool
}

type turnDoneMsg struct {
	input string
	turn  play.Turn
	err   error
}

type errMsg struct {
	err error
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.75)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.phase == phaseWorldHint {
				hint := strings.TrimSpace(m.textInput.Value())
				m.phase = phaseGenerating
				if name, ok := strings.CutPrefix(hint, "/load"); ok {
					return m, m.loadWorld(name)
				}
				return m, m.generateWorld(hint)
			}
			if m.phase == phaseTurns {
				action := strings.TrimSpace(m.textInput.Value())
				if action == "" || m.busy {
					return m, nil
				}
				m.textInput.Reset()

				switch action {
				case "/quit":
					return m, tea.Quit
				case "/restart":
					m.session.Restart()
					m.phase = phaseWorldHint
					m.gameLog = ""
					m.session = nil
					m.textInput.Placeholder = hintPlaceholder
					m.saves, _ = m.runtime.Saves()
					return m, nil
				}

				m.gameLog += "\n\n" + userStyle.Width(m.logWidth()).Render("> "+action) + "\n\n"
				m.viewport.SetContent(m.gameLog)
				m.viewport.GotoBottom()
				m.busy = true
				return m, m.processTurn(action)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = msg.Height - 6
		if m.phase == phaseTurns {
			m.viewport.SetContent(m.gameLog)
		}

	case worldReadyMsg:
		m.session = msg.session
		m.phase = phaseTurns
		gs := m.session.Game.Session()
		header := gameStyle.Bold(true).Render(gs.World.Title)
		description := gameStyle.Width(m.logWidth()).Render(gs.World.Description)
		m.gameLog = header + "\n\n" + description + "\n\n"
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(m.logWidth(), m.height-6)
		}
		m.viewport.SetContent(m.gameLog)
		m.textInput.Placeholder = "What do you do?"
		m.textInput.Reset()
		if msg.resumed {
			if n := len(gs.History.Entries); n > 0 {
				m.gameLog += gameStyle.Width(m.logWidth()).Render(gs.History.Entries[n-1].Outcome) + "\n\n"
				m.viewport.SetContent(m.gameLog)
			}
			return m, nil
		}
		m.busy = true
		return m, m.processTurn(router.OnboardingInput)

	case turnDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.phase = phaseFailed
			return m, nil
		}
		m.gameLog += m.renderTurn(msg.turn)
		m.viewport.SetContent(m.gameLog)
		m.viewport.GotoBottom()
		return m, nil

	case errMsg:
		m.err = msg.err
		m.phase = phaseFailed
		return m, nil
	}

	if m.phase == phaseWorldHint || m.phase == phaseTurns {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) renderTurn(t play.Turn) string {
	w := m.logWidth()
	var b strings.Builder
	style := gameStyle
	if t.Rejected || t.Failure != "" {
		style = warnStyle
	}
	b.WriteString(style.Width(w).Render(t.Narrative))
	b.WriteString("\n")
	for _, line := range t.Lines() {
		b.WriteString(effectStyle.Width(w).Render("* " + line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m model) View() string {
	var s string

	switch m.phase {
	case phaseWorldHint:
		s = fmt.Sprintf(
			"Welcome to the Narrator!\n\n%s\n\n%s",
			"Give me a hint about the world you want to play in:",
			m.textInput.View(),
		)
		if len(m.saves) > 0 {
			s += "\n\n" + helpStyle.Render("Saved games: "+strings.Join(m.saves, ", ")+". Type /load <name> to continue one.")
		}

	case phaseGenerating:
		s = "\n  Generating your world... please wait.\n"

	case phaseTurns:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)

		help := "Commands: /restart, /quit, or just type what you want to do."
		if m.busy {
			help = "The narrator is thinking..."
		}

		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+m.textInput.View(),
			"\n"+helpStyle.Render(help),
		)

	case phaseFailed:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	if m.session == nil {
		return ""
	}
	ctx := context.Background()
	g := m.session.Game

	var b strings.Builder

	loc, _ := g.Location(ctx)
	b.WriteString(titleStyle.Render("LOCATION") + "\n" + loc.Name + "\n")
	if mode := g.Mode(); mode != models.ModeNarrative {
		b.WriteString(warnStyle.Render(mode) + "\n")
	}
	b.WriteString("\n")

	c, _ := g.Stats(ctx)
	b.WriteString(titleStyle.Render("STATS") + "\n")
	fmt.Fprintf(&b, "%s, level %d %s\nHealth: %d/%d\n\n", c.Name, c.Level, c.Class, c.Health, c.MaxHealth)

	inv, _ := g.Inventory(ctx)
	b.WriteString(titleStyle.Render("INVENTORY") + "\n")
	if len(inv.Backpack) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, it := range inv.Backpack {
		fmt.Fprintf(&b, "- %s x%d\n", it.Name, it.Quantity)
	}
	kinds := make([]string, 0, len(inv.Currency))
	for k := range inv.Currency {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "%d %s\n", inv.Currency[k], k)
	}
	b.WriteString("\n")

	quests, _ := g.Quests(ctx)
	b.WriteString(titleStyle.Render("QUESTS") + "\n")
	for _, q := range quests {
		fmt.Fprintf(&b, "%s (%s)\n", q.Title, q.Status)
	}

	sidebarWidth := int(float64(m.width) * 0.23)
	return sidebarStyle.Width(sidebarWidth).Height(m.viewport.Height).Render(b.String())
}

func (m model) generateWorld(hint string) tea.Cmd {
	return func() tea.Msg {
		gs, err := m.runtime.NewWorld(context.Background(), hint)
		if err != nil {
			return errMsg{err}
		}
		return worldReadyMsg{session: m.runtime.Start(gs)}
	}
}

func (m model) loadWorld(name string) tea.Cmd {
	return func() tea.Msg {
		gs, err := m.runtime.Resume(name)
		if err != nil {
			return errMsg{err}
		}
		return worldReadyMsg{session: m.runtime.Start(gs), resumed: true}
	}
}

func (m model) processTurn(action string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		turn, err := s.Turn(context.Background(), action)
		return turnDoneMsg{input: action, turn: turn, err: err}
	}
}

func Run(rt *play.Runtime, resume string) error {
	p := tea.NewProgram(NewModel(rt, resume), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
