package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// fieldExtent is the world-space half-width mapped onto the plan view.
// Slightly beyond the patrol orbit so cruising agents stay on screen.
const fieldExtent = 7.5

type frameMsg time.Time

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	phaseStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	alertStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	fieldStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	reportStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("10")).Padding(0, 1)
)

// Model is the bubbletea model for the full-screen scene view.
type Model struct {
	driver   Driver
	interval time.Duration

	snap       Snapshot
	report     viewport.Model
	lastReport string

	width  int
	height int
	ready  bool
}

// NewModel creates the TUI model stepping the driver at the given frame
// interval.
func NewModel(driver Driver, interval time.Duration) Model {
	return Model{
		driver:   driver,
		interval: interval,
		report:   viewport.New(0, 0),
	}
}

// NewProgram wraps the model in a full-screen program.
func NewProgram(driver Driver, interval time.Duration) *tea.Program {
	return tea.NewProgram(NewModel(driver, interval), tea.WithAltScreen())
}

func (m Model) Init() tea.Cmd {
	return m.frameTick()
}

func (m Model) frameTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.driver.Dispatch(CommandQuit)
			return m, tea.Quit
		case "n":
			m.driver.Dispatch(CommandNext)
		case "r":
			m.driver.Dispatch(CommandReset)
		case "d":
			m.driver.Dispatch(CommandToggleDemoMode)
		case "m":
			m.driver.Dispatch(CommandToggleMute)
		case "g":
			m.driver.Dispatch(CommandGenerateReport)
		case "up", "k", "down", "j", "pgup", "pgdown":
			var cmd tea.Cmd
			m.report, cmd = m.report.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.report.Width = max(msg.Width-6, 10)
		m.report.Height = max(msg.Height/4, 3)
		m.ready = true
		return m, nil

	case frameMsg:
		m.snap = m.driver.Step(time.Time(msg))
		if m.snap.Report != m.lastReport {
			m.lastReport = m.snap.Report
			m.report.SetContent(m.snap.Report)
			m.report.GotoTop()
		}
		return m, m.frameTick()
	}

	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewTimeline())
	b.WriteString("\n")
	b.WriteString(m.viewField())
	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	if m.snap.Report != "" {
		b.WriteString("\n")
		b.WriteString(reportStyle.Render(m.report.View()))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("[n]ext  [r]eset  [d]emo  [m]ute  [g]enerate report  [q]uit"))
	return b.String()
}

func (m Model) viewHeader() string {
	mode := m.snap.Mode
	if m.snap.Demo {
		mode = okStyle.Render(mode)
	}
	title := fmt.Sprintf("SENTINEL SCENE  %s  cycle %d", mode, m.snap.Cycles)
	return headerStyle.Render(title)
}

// viewTimeline renders the six stages with the current one highlighted.
func (m Model) viewTimeline() string {
	if m.snap.TimelineLen == 0 {
		return ""
	}
	parts := make([]string, 0, m.snap.TimelineLen)
	for i := 0; i < m.snap.TimelineLen; i++ {
		label := fmt.Sprintf("%d", i+1)
		if i == m.snap.TimelineIndex {
			label = phaseStyle.Render("[" + m.snap.PhaseTitle + "]")
		}
		parts = append(parts, label)
	}
	return dimStyle.Render(strings.Join(parts, " - "))
}

// viewField projects agent positions onto a top-down character grid.
func (m Model) viewField() string {
	w := max(min(m.width-4, 72), 24)
	h := max(min(m.height/2, 20), 8)

	grid := make([][]rune, h)
	for i := range grid {
		grid[i] = make([]rune, w)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}
	// Hub at the center
	grid[h/2][w/2] = '+'

	for _, a := range m.snap.Agents {
		col := int((a.X/fieldExtent + 1) / 2 * float64(w-1))
		row := int((a.Z/fieldExtent + 1) / 2 * float64(h-1))
		if col < 0 || col >= w || row < 0 || row >= h {
			continue
		}
		grid[row][col] = agentGlyph(a)
	}

	lines := make([]string, h)
	for i := range grid {
		lines[i] = string(grid[i])
	}
	return fieldStyle.Width(w).Render(strings.Join(lines, "\n"))
}

// agentGlyph encodes altitude and fold into a single character.
func agentGlyph(a AgentView) rune {
	if a.Fold > 0.5 {
		return 'x'
	}
	switch {
	case a.Y > 3.5:
		return '^'
	case a.Y > 1.8:
		return 'o'
	default:
		return '.'
	}
}

func (m Model) viewStatus() string {
	var b strings.Builder
	b.WriteString("audio ")
	b.WriteString(tuiAudioBar(m.snap.AudioLevel, 24))
	if m.snap.ThreatLevel > 0 {
		b.WriteString("  ")
		b.WriteString(alertStyle.Render(fmt.Sprintf("threat %d/5", m.snap.ThreatLevel)))
	}
	if m.snap.GeneratingReport {
		b.WriteString("  ")
		b.WriteString(okStyle.Render("generating report..."))
	}
	if m.snap.Muted {
		b.WriteString(dimStyle.Render("  muted"))
	}
	return b.String()
}

func tuiAudioBar(level float64, width int) string {
	level = math.Max(0, math.Min(1, level))
	filled := int(level * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if level > 0.6 {
		return alertStyle.Render(bar)
	}
	return okStyle.Render(bar)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
