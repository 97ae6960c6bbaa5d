package monitor

import (
	"time"

	"golang.org/x/sys/unix"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultRoot            = "/proc"
	DefaultSampleInterval  = time.Second
	DefaultRefreshInterval = time.Second
)

// Config is passed into every component at construction. There is no
// package-level state; two monitors over different roots do not interact.
type Config struct {
	// Root is the procfs mount point.
	Root string
	// SampleInterval is the length of one CPU sampling window.
	SampleInterval time.Duration
	// RefreshInterval is the period of the refresh coordinator.
	RefreshInterval time.Duration
	// PageSize is the memory page size in bytes. Zero queries the host.
	PageSize int
	// LegacyPIDMatch accepts any directory whose name contains a digit,
	// instead of requiring every character to be a digit.
	LegacyPIDMatch bool
	// SortKey orders assembled rows. The zero value sorts by PID.
	SortKey SortKey
	// SortReverse reverses the sort order.
	SortReverse bool
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = DefaultSampleInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.PageSize <= 0 {
		c.PageSize = HostPageSize()
	}
	return c
}

// HostPageSize returns the kernel page size in bytes.
func HostPageSize() int {
	return unix.Getpagesize()
}
