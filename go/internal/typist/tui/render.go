package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/mcdev12/typerace/go/internal/models"
)

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

// renderSentence colours typed runes against the target and wraps on spaces
// so no line is wider than width cells.
func renderSentence(target, input []rune, width int) string {
	var lines []string
	var line strings.Builder
	lineWidth := 0

	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range splitWords(target) {
		w := 0
		for _, r := range target[word.start:word.end] {
			w += runewidth.RuneWidth(r)
		}
		if lineWidth > 0 && lineWidth+w > width {
			flush()
		}
		for i := word.start; i < word.end; i++ {
			line.WriteString(styleRune(target, input, i))
		}
		lineWidth += w
	}
	if line.Len() > 0 {
		flush()
	}
	return strings.Join(lines, "\n")
}

func styleRune(target, input []rune, i int) string {
	displayed := target[i]
	style := pendingStyle
	if i < len(input) {
		switch {
		case input[i] == target[i]:
			style = correctStyle
		case target[i] == ' ':
			displayed = '•'
			style = incorrectStyle
		default:
			style = incorrectStyle
		}
	} else if i == len(input) {
		style = style.Underline(true)
	}
	return style.Render(string(displayed))
}

type span struct{ start, end int }

// splitWords returns word spans that include their trailing space.
func splitWords(target []rune) []span {
	var spans []span
	start := 0
	for i, r := range target {
		if r == ' ' {
			spans = append(spans, span{start, i + 1})
			start = i + 1
		}
	}
	if start < len(target) {
		spans = append(spans, span{start, len(target)})
	}
	return spans
}

func renderStandings(rows []models.ProgressSnapshot, self uuid.UUID, limit int) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No other racers yet")
	}
	rows = rows[:min(limit, len(rows))]

	columns := []table.Column{
		{Title: "#", Width: 3},
		{Title: "Player", Width: 22},
		{Title: "WPM", Width: 5},
		{Title: "Acc", Width: 5},
		{Title: "Chars", Width: 6},
	}
	tableRows := make([]table.Row, 0, len(rows))
	for i, snap := range rows {
		name := snap.PlayerName
		if snap.PlayerID == self {
			name += " (you)"
		}
		tableRows = append(tableRows, table.Row{
			fmt.Sprintf("%d", i+1),
			runewidth.Truncate(name, 22, "…"),
			fmt.Sprintf("%d", snap.WPM),
			fmt.Sprintf("%.0f%%", snap.Accuracy*100),
			fmt.Sprintf("%d", len([]rune(snap.TypedText))),
		})
	}

	styles := table.DefaultStyles()
	styles.Selected = lipgloss.NewStyle()
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithHeight(len(tableRows)+1),
		table.WithStyles(styles),
	)
	return t.View()
}
