package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CerberusV1/proc-monitor/pkg/procmon"
)

// Update handles input and engine messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(m.columns())
		if h := msg.Height - chromeLines; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case SnapshotMsg:
		m.snap = procmon.Snapshot(msg)
		m.hasSnap = true
		m.now = time.Now()
		m.table.SetRows(rows(m.snap))
		return m, nil

	case tea.KeyMsg:
		if m.mode == filterMode {
			return m.handleFilterMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	var cmd tea.Cmd
	if m.mode == filterMode {
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.mode = filterMode
		m.prevFilter = m.filterInput.Value()
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()

	case key.Matches(msg, m.keys.Clear):
		if m.filterInput.Value() != "" {
			m.filterInput.SetValue("")
			m.applyFilter()
		}
		return m, nil

	case key.Matches(msg, m.keys.Sort):
		m.sortKey = m.sortKey.Next()
		m.applySort()
		return m, nil

	case key.Matches(msg, m.keys.Reverse):
		m.reverse = !m.reverse
		m.applySort()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.ctrl.Refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// handleFilterMode edits the filter. Every edit is applied at once; esc
// restores the filter that was active before editing began.
func (m Model) handleFilterMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = normalMode
		m.filterInput.Blur()
		return m, nil

	case tea.KeyEsc:
		m.mode = normalMode
		m.filterInput.Blur()
		if m.filterInput.Value() != m.prevFilter {
			m.filterInput.SetValue(m.prevFilter)
			m.applyFilter()
		}
		return m, nil

	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	before := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if m.filterInput.Value() != before {
		m.applyFilter()
	}
	return m, cmd
}

func (m *Model) applyFilter() {
	m.ctrl.SetFilter(m.filterInput.Value())
	m.ctrl.Refresh()
}

func (m *Model) applySort() {
	m.ctrl.SetSort(m.sortKey, m.reverse)
	m.table.SetColumns(m.columns())
	m.ctrl.Refresh()
}
