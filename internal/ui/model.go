// Package ui implements the interactive process table.
//
// The model never reads procfs itself. It renders the snapshots published by
// a running engine and sends filter and sort changes back through a
// Controller.
package ui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CerberusV1/proc-monitor/internal/filter"
	"github.com/CerberusV1/proc-monitor/pkg/procmon"
)

// Controller is the part of an engine the table drives.
type Controller interface {
	SetFilter(text string)
	Filter() string
	SetSort(key procmon.SortKey, reverse bool)
	Sort() (procmon.SortKey, bool)
	Refresh() bool
}

// SnapshotMsg delivers a published snapshot to the model.
type SnapshotMsg procmon.Snapshot

type tickMsg time.Time

type uiMode int

const (
	normalMode uiMode = iota
	filterMode
)

// chromeLines is the number of screen lines used by everything but the table.
const chromeLines = 8

var columnTitles = [...]string{"PID", "PPID", "NAME", "OWNER", "STATE", "MEMORY", "CPU%"}

// Model holds the table state.
type Model struct {
	ctrl  Controller
	title string
	keys  keyMap
	help  help.Model

	table       table.Model
	filterInput textinput.Model
	mode        uiMode
	prevFilter  string

	snap    procmon.Snapshot
	hasSnap bool
	now     time.Time

	sortKey procmon.SortKey
	reverse bool

	width  int
	height int
}

// NewModel returns a model driving ctrl. title is shown in the top bar.
func NewModel(ctrl Controller, title string) Model {
	t := table.New(
		table.WithFocused(true),
		table.WithHeight(20),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("cyan"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "text, or an expression like " + filter.Example
	ti.CharLimit = 256
	ti.SetValue(ctrl.Filter())

	key, reverse := ctrl.Sort()
	m := Model{
		ctrl:        ctrl,
		title:       title,
		keys:        defaultKeyMap(),
		help:        help.New(),
		table:       t,
		filterInput: ti,
		sortKey:     key,
		reverse:     reverse,
		now:         time.Now(),
	}
	m.table.SetColumns(m.columns())
	return m
}

// Init starts the clock that keeps the snapshot age current.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// columns sizes the table to the terminal width. NAME takes the slack.
func (m Model) columns() []table.Column {
	widths := [...]int{7, 7, 20, 12, 12, 12, 8}
	if m.width > 0 {
		fixed := 0
		for i, w := range widths {
			if i != 2 {
				fixed += w
			}
		}
		if name := m.width - fixed - 2*len(widths) - 2; name > widths[2] {
			widths[2] = name
		}
	}

	cols := make([]table.Column, len(columnTitles))
	for i, title := range columnTitles {
		if i == sortColumn(m.sortKey) {
			title += sortArrow(m.reverse)
		}
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}

// sortColumn maps a sort key to its column index.
func sortColumn(k procmon.SortKey) int {
	switch k {
	case procmon.SortName:
		return 2
	case procmon.SortMemory:
		return 5
	case procmon.SortCPU:
		return 6
	default:
		return 0
	}
}

func sortArrow(reverse bool) string {
	if reverse {
		return " ▼"
	}
	return " ▲"
}

// rows converts display rows to table rows.
func rows(snap procmon.Snapshot) []table.Row {
	out := make([]table.Row, len(snap.Rows))
	for i, r := range snap.Rows {
		out[i] = table.Row{
			strconv.Itoa(r.PID),
			strconv.Itoa(r.PPID),
			r.Name,
			r.Owner,
			r.State,
			r.Memory,
			r.CPU,
		}
	}
	return out
}
