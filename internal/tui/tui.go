// Package tui is the interactive journal browser behind `stats -i`: a
// filterable list of journaled telemetry events with a detail pane showing
// the payload that was sent.
package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/devmetrics/devmetrics-hook/internal/journal"
)

type model struct {
	entries     []journal.Entry
	results     []journal.Entry
	filter      string
	cursor      int
	listOffset  int
	filterInput textinput.Model
	detail      viewport.Model
	detailID    int64 // entry ID currently rendered, to skip redundant renders
	width       int
	height      int
	ready       bool
	quitting    bool
}

func initialModel(entries []journal.Entry) model {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	m := model{
		entries:     entries,
		filterInput: ti,
		detail:      viewport.New(0, 0),
	}
	m.results = entries
	return m
}

// Run starts the TUI and blocks until it exits.
func Run(entries []journal.Entry) error {
	m := initialModel(entries)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.detail = viewport.New(m.detailWidth(), m.panelHeight())
		m.detailID = 0 // new viewport, force a re-render
		m.refreshDetail()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				m.refreshDetail()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.results)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				m.refreshDetail()
			}
			return m, nil

		case key.Matches(msg, keys.DetailUp):
			m.detail.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.DetailDn):
			m.detail.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.detail.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.detail.LineDown(m.panelHeight())
			return m, nil
		}

		// Pass remaining keys to the filter input.
		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)

		if newFilter := m.filterInput.Value(); newFilter != m.filter {
			m.filter = newFilter
			m.applyFilter()
			m.refreshDetail()
		}
		return m, tiCmd
	}

	return m, nil
}

// applyFilter narrows entries to those matching the filter text against
// event name, session ID, project, and outcome.
func (m *model) applyFilter() {
	m.cursor = 0
	m.listOffset = 0
	if m.filter == "" {
		m.results = m.entries
		return
	}
	needle := strings.ToLower(m.filter)
	var filtered []journal.Entry
	for _, e := range m.entries {
		hay := strings.ToLower(e.Event + " " + e.SessionID + " " + e.Project + " " + e.Outcome)
		if strings.Contains(hay, needle) {
			filtered = append(filtered, e)
		}
	}
	m.results = filtered
}

// refreshDetail renders the selected entry's payload into the detail pane.
func (m *model) refreshDetail() {
	if len(m.results) == 0 || m.cursor >= len(m.results) {
		m.detail.SetContent("")
		m.detailID = 0
		return
	}
	e := m.results[m.cursor]
	if e.ID == m.detailID {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event:   %s\n", e.Event)
	fmt.Fprintf(&buf, "outcome: %s\n", e.Outcome)
	fmt.Fprintf(&buf, "session: %s\n", e.SessionID)
	if e.Project != "" {
		fmt.Fprintf(&buf, "project: %s\n", e.Project)
	}
	if !e.Time.IsZero() {
		fmt.Fprintf(&buf, "time:    %s\n", e.Time.Local().Format("2006-01-02 15:04:05"))
	}
	buf.WriteString("\n")
	buf.WriteString(prettyJSON(e.Detail))

	m.detail.SetContent(buf.String())
	m.detail.GotoTop()
	m.detailID = e.ID
}

func prettyJSON(detail string) string {
	if detail == "" {
		return "(no payload)"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(detail), "", "  "); err != nil {
		return detail
	}
	return out.String()
}

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	detailW := m.detailWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.detail.Width = detailW
	m.detail.Height = panelH
	detailPanel := styleActiveBorder.
		Width(detailW).
		Height(panelH).
		Render(m.detail.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, detailPanel)

	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	w := m.width*45/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) detailWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width*55/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract input row (1) + status bar (1) + borders (4)
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (m model) statusBar() string {
	parts := []string{
		fmt.Sprintf("%d events", len(m.results)),
		"up/dn navigate",
		"C-u/C-d detail",
		"Esc quit",
	}
	return styleStatusBar.Render(strings.Join(parts, " | "))
}
