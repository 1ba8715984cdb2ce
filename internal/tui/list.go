package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/devmetrics/devmetrics-hook/internal/journal"
)

// linesPerItem is the number of terminal lines each entry occupies.
const linesPerItem = 2

// renderList renders the left panel: journaled events with scrolling.
func (m model) renderList(width, height int) string {
	if len(m.results) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No events")
		return empty
	}

	var lines []string
	for i, e := range m.results {
		if i < m.listOffset {
			continue
		}
		if len(lines)+linesPerItem > height {
			break
		}
		rows := formatEntryLine(e, width, i == m.cursor)
		lines = append(lines, rows...)
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}

	return strings.Join(lines, "\n")
}

// formatEntryLine formats a single journal entry as two lines:
//
//	line 1: [>] outcome  MM-DD HH:MM  event
//	line 2:    session / project (dimmed)
func formatEntryLine(e journal.Entry, width int, selected bool) []string {
	var outcome string
	switch e.Outcome {
	case journal.OutcomeSent:
		outcome = styleOutcomeSent.Render("sent   ")
	case journal.OutcomeSkipped:
		outcome = styleOutcomeSkipped.Render("skipped")
	case journal.OutcomeFailed:
		outcome = styleOutcomeFailed.Render("failed ")
	default:
		outcome = runewidth.FillRight(e.Outcome, 7)
	}

	date := ""
	if !e.Time.IsZero() {
		date = e.Time.Local().Format("01-02 15:04")
	}

	event := styleEvent.Render(e.Event)

	line1 := fmt.Sprintf("%s %s %s", outcome, date, event)
	if selected {
		line1 = styleListSelected.Render("> ") + line1
	} else {
		line1 = "  " + line1
	}

	ident := e.SessionID
	if e.Project != "" {
		ident += " / " + e.Project
	}
	identMax := width - 4
	if identMax < 0 {
		identMax = 0
	}
	if runewidth.StringWidth(ident) > identMax {
		ident = runewidth.Truncate(ident, identMax, "")
	}
	line2 := "    " + lipgloss.NewStyle().Foreground(colorDim).Render(ident)

	return []string{line1, line2}
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := listHeight / linesPerItem
	if visibleItems < 1 {
		visibleItems = 1
	}
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
