// Package tui provides the Bubble Tea race screen.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/mcdev12/typerace/go/internal/game"
)

// Typist receives the local player's edits.
type Typist interface {
	Type(text string)
}

// ViewMsg carries a controller view into the Bubble Tea loop.
type ViewMsg game.View

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	timerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	sectionStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
)

// Model implements the Bubble Tea race UI.
type Model struct {
	typist Typist
	view   game.View

	roundID uuid.UUID
	input   []rune

	width  int
	height int
	bar    progress.Model
}

func NewModel(typist Typist) *Model {
	return &Model{
		typist: typist,
		view:   game.View{Phase: game.PhasePlaying},
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ViewMsg:
		m.applyView(game.View(msg))
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(60, msg.Width-20))
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyBackspace, tea.KeyDelete:
			if m.canType() && len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
				m.typist.Type(string(m.input))
			}
		case tea.KeySpace:
			m.handleRunes([]rune{' '})
		case tea.KeyRunes:
			m.handleRunes(msg.Runes)
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) applyView(v game.View) {
	roundID := uuid.Nil
	if v.Round != nil {
		roundID = v.Round.ID
	}
	if roundID != m.roundID {
		m.roundID = roundID
		m.input = m.input[:0]
	}
	m.view = v
}

func (m *Model) canType() bool {
	return m.view.Phase == game.PhasePlaying && m.view.Round != nil && m.view.SecondsLeft > 0
}

func (m *Model) handleRunes(runes []rune) {
	if !m.canType() {
		return
	}
	limit := len([]rune(m.view.Round.Sentence))
	if len(m.input) >= limit {
		return
	}
	m.input = append(m.input, runes...)
	if len(m.input) > limit {
		m.input = m.input[:limit]
	}
	m.typist.Type(string(m.input))
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch {
	case m.view.Phase == game.PhaseResults:
		b.WriteString(titleStyle.Render("Results"))
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  next round in %ds", m.view.ResultsLeft)))
		b.WriteString("\n")
		b.WriteString(renderStandings(m.view.Results, m.selfID(), len(m.view.Results)))
	case m.view.Phase == game.PhaseSaving:
		b.WriteString(mutedStyle.Render("Time's up, saving..."))
	case m.view.Round == nil:
		b.WriteString(mutedStyle.Render("Waiting for a round..."))
	default:
		b.WriteString(m.race())
	}

	if m.view.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(m.view.Err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(mutedStyle.Render("esc to quit"))
	return b.String()
}

func (m *Model) header() string {
	name := "connecting"
	if m.view.Player != nil {
		name = m.view.Player.Name
	}
	line := titleStyle.Render("typerace") + "  " + name
	if s := m.view.Stats; s != nil {
		line += mutedStyle.Render(fmt.Sprintf("  avg %.0f wpm · %.0f%% acc · %d rounds",
			s.AvgWPM, s.AvgAccuracy*100, s.RoundsPlayed))
	}
	return line
}

func (m *Model) race() string {
	var b strings.Builder
	state := m.view.Typing
	target := []rune(m.view.Round.Sentence)

	b.WriteString(timerStyle.Render(fmt.Sprintf("%2ds", m.view.SecondsLeft)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d wpm · %.0f%% acc", state.WPM, state.Accuracy*100)))
	if !m.view.Joined {
		b.WriteString(mutedStyle.Render("  (joining)"))
	}
	b.WriteString("\n")

	width := 60
	if m.width > 0 {
		width = max(20, m.width*7/10)
	}
	b.WriteString(sectionStyle.Render(renderSentence(target, m.input, width)))
	b.WriteString("\n")

	done := 0.0
	if len(target) > 0 {
		done = float64(min(len(m.input), len(target))) / float64(len(target))
	}
	b.WriteString(m.bar.ViewAs(done))
	b.WriteString("\n\n")

	b.WriteString(renderStandings(m.view.Standings, m.selfID(), 8))
	return b.String()
}

func (m *Model) selfID() uuid.UUID {
	if m.view.Player == nil {
		return uuid.Nil
	}
	return m.view.Player.ID
}
