package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderTitle())
	b.WriteString("\n")
	b.WriteString(m.renderSummary())
	b.WriteString("\n")
	b.WriteString(m.renderOrder())
	b.WriteString("\n")
	b.WriteString(baseStyle.Render(m.table.View()))
	b.WriteString("\n")

	if m.mode == filterMode {
		b.WriteString(m.renderFilterBar())
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderTitle() string {
	title := m.title
	if title == "" {
		title = "proc-monitor"
	}
	style := titleStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(title)
}

// renderSummary shows the row counts, the memory header and the state of
// the CPU window.
func (m Model) renderSummary() string {
	if !m.hasSnap {
		return labelStyle.Render("Waiting for the first refresh")
	}

	c := m.snap.Counts
	zombies := valueStyle.Render(fmt.Sprint(c.Zombie))
	if c.Zombie > 0 {
		zombies = errorStyle.Render(fmt.Sprint(c.Zombie))
	}
	parts := []string{
		fmt.Sprintf("%s %s total, %s running, %s sleeping, %s zombie",
			labelStyle.Render("Processes"),
			valueStyle.Render(fmt.Sprint(c.Total)),
			valueStyle.Render(fmt.Sprint(c.Running)),
			valueStyle.Render(fmt.Sprint(c.Sleeping)),
			zombies),
		labelStyle.Render("Memory ") + valueStyle.Render(m.snap.MemoryUsageString()),
		labelStyle.Render("CPU ") + m.cpuState(),
		labelStyle.Render("Updated ") + valueStyle.Render(m.age()),
	}
	return headerStyle.Render(strings.Join(parts, labelStyle.Render(" | ")))
}

func (m Model) cpuState() string {
	if !m.snap.CPUKnown {
		return warnStyle.Render("sampling")
	}
	return valueStyle.Render("window " + m.snap.CPUWindowEnd.Format("15:04:05"))
}

func (m Model) age() string {
	if m.snap.AssembledAt.IsZero() {
		return "never"
	}
	d := m.now.Sub(m.snap.AssembledAt)
	if d < time.Second {
		return "now"
	}
	return d.Truncate(time.Second).String() + " ago"
}

func (m Model) renderOrder() string {
	line := labelStyle.Render("Sort ") + sortedStyle.Render(m.sortKey.String()+sortArrow(m.reverse))
	if f := m.filterInput.Value(); f != "" && m.mode != filterMode {
		line += labelStyle.Render(" | Filter ") + filterStyle.Render(f)
	}
	if m.hasSnap && m.snap.FilterErr != nil {
		line += "  " + warnStyle.Render("matching as text: "+m.snap.FilterErr.Error())
	}
	return line
}

func (m Model) renderFilterBar() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Render("Filter: ") +
		m.filterInput.View() +
		labelStyle.Render(" (enter to keep, esc to cancel)")
}
