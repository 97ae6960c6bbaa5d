package monitor

import (
	"fmt"
)

// Page-count thresholds for choosing the memory unit.
const (
	kbPageLimit = 1000
	mbPageLimit = 1000000
)

// FormatMemory renders resident memory with a unit chosen by page count:
// fewer than 1,000 pages in Kb, fewer than 1,000,000 in Mb, otherwise Gb.
// Conversion between units uses 1024.
func FormatMemory(bytes uint64, pageSize int) string {
	if pageSize <= 0 {
		pageSize = HostPageSize()
	}
	pages := bytes / uint64(pageSize)
	kb := float64(bytes) / 1024

	switch {
	case pages < kbPageLimit:
		return fmt.Sprintf("%.2f Kb", kb)
	case pages < mbPageLimit:
		return fmt.Sprintf("%.2f Mb", kb/1024)
	default:
		return fmt.Sprintf("%.2f Gb", kb/1024/1024)
	}
}

// FormatCPU renders a utilization value with two decimals, or NotAvailable.
func FormatCPU(percent float64, ok bool) string {
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f", percent)
}
