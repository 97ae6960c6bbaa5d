package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/CerberusV1/proc-monitor/pkg/procmon"
)

// RenderTable renders snap as a static bordered table followed by a summary
// line, for non-interactive output.
func RenderTable(snap procmon.Snapshot) string {
	rows := make([][]string, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		rows = append(rows, []string{
			strconv.Itoa(r.PID),
			strconv.Itoa(r.PPID),
			r.Name,
			r.Owner,
			r.State,
			r.Memory,
			r.CPU,
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle := lipgloss.NewStyle().PaddingRight(1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(columnTitles[:]...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	c := snap.Counts
	summary := fmt.Sprintf("%d processes (%d running, %d sleeping, %d zombie), memory %s",
		c.Total, c.Running, c.Sleeping, c.Zombie, snap.MemoryUsageString())
	return t.Render() + "\n" + summary
}
