package procmon

import (
	"bytes"
	"fmt"
	"io"

	"github.com/CerberusV1/proc-monitor/internal/config"
	"github.com/CerberusV1/proc-monitor/internal/monitor"
)

// Configuration format constants for use with NewFromReader.
const (
	// FormatLegacy indicates the legacy "key value" line format.
	FormatLegacy = "legacy"
	// FormatLua indicates the Lua configuration format.
	FormatLua = "lua"
)

// Engine types re-exported for callers outside this module.
type (
	// Snapshot is one fully assembled, immutable set of display rows.
	Snapshot = monitor.Snapshot
	// DisplayRow is one process row.
	DisplayRow = monitor.DisplayRow
	// SortKey selects the column rows are ordered by.
	SortKey = monitor.SortKey
)

// Sort keys.
const (
	SortPID    = monitor.SortPID
	SortName   = monitor.SortName
	SortCPU    = monitor.SortCPU
	SortMemory = monitor.SortMemory
)

// Instance is an embedded proc-monitor engine with full lifecycle control.
// It is safe for concurrent use from multiple goroutines.
type Instance interface {
	// Start launches the CPU sampler and the refresh coordinator.
	// It returns immediately; both run in background goroutines.
	// Returns an error if already running.
	Start() error

	// Stop gracefully shuts down the instance and waits for its goroutines,
	// up to the shutdown timeout. Safe to call multiple times.
	Stop() error

	// Restart performs a stop, a configuration reload and a start.
	Restart() error

	// ReloadConfig reloads the configuration in place. Filter and sort changes
	// apply immediately; engine settings rebuild the engine. On error the
	// previous configuration remains active.
	ReloadConfig() error

	// IsRunning returns true if the instance is currently running.
	IsRunning() bool

	// Snapshot assembles a table now with the given filter. It never waits
	// on the sampler and works whether or not the instance is running.
	Snapshot(filter string) Snapshot

	// Latest returns the snapshot most recently published by the refresh
	// coordinator.
	Latest() (Snapshot, bool)

	// Refresh requests an immediate coordinator pass. It reports false when
	// a pass was already in flight.
	Refresh() bool

	// SetFilter changes the filter used by the coordinator.
	SetFilter(text string)

	// Filter returns the coordinator's filter text.
	Filter() string

	// SetSort changes the row order.
	SetSort(key SortKey, reverse bool)

	// Sort returns the row order.
	Sort() (SortKey, bool)

	// Subscribe registers fn to receive every published snapshot. fn runs on
	// the coordinator goroutine and must not block. The returned function
	// removes the subscription.
	Subscribe(fn func(Snapshot)) (cancel func())

	// Config returns a copy of the active configuration.
	Config() config.Config

	// Status returns detailed status information about the instance.
	Status() Status

	// SetErrorHandler registers a callback for runtime errors.
	// Panics in the handler are recovered.
	SetErrorHandler(handler ErrorHandler)

	// SetEventHandler registers a callback for lifecycle events.
	SetEventHandler(handler EventHandler)

	// Health returns a health check result for the instance.
	Health() HealthCheck

	// Metrics returns the metrics collector for this instance.
	Metrics() *Metrics
}

// New creates an instance from a configuration file. An empty path means the
// default path, which may be absent. PROC_MONITOR_* environment variables
// override file values. The instance is created but not started.
//
// Example:
//
//	m, err := procmon.New("/etc/proc-monitor/config.lua", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer m.Stop()
//	if err := m.Start(); err != nil {
//		log.Fatal(err)
//	}
func New(configPath string, opts *Options) (Instance, error) {
	o := resolveOptions(opts)

	var source string
	loader := func() (*config.Config, error) {
		cfg, used, err := config.Load(config.LoadOptions{Path: configPath, Environ: o.Environ})
		if err != nil {
			return nil, err
		}
		source = used
		return cfg, nil
	}

	cfg, err := finishConfig(loader, o.Adjust)
	if err != nil {
		return nil, err
	}
	if source == "" {
		source = "defaults"
	}

	inst := newInstance(cfg, o, source, func() (*config.Config, error) {
		return finishConfig(loader, o.Adjust)
	})
	if source != "defaults" {
		inst.watchPath = source
	}
	return inst, nil
}

// NewFromConfig creates an instance from an existing configuration. There is
// no source to reload from, so ReloadConfig re-applies the same values.
func NewFromConfig(cfg config.Config, opts *Options) (Instance, error) {
	o := resolveOptions(opts)
	loader := func() (*config.Config, error) {
		return cfg.Clone(), nil
	}
	loaded, err := finishConfig(loader, o.Adjust)
	if err != nil {
		return nil, err
	}
	return newInstance(loaded, o, "config", func() (*config.Config, error) {
		return finishConfig(loader, o.Adjust)
	}), nil
}

// NewFromReader creates an instance from configuration content. The format
// parameter must be FormatLua or FormatLegacy.
func NewFromReader(r io.Reader, format string, opts *Options) (Instance, error) {
	o := resolveOptions(opts)
	if format != FormatLegacy && format != FormatLua {
		return nil, fmt.Errorf("invalid format: %s (expected '%s' or '%s')", format, FormatLua, FormatLegacy)
	}

	// Read content once (can't re-read a Reader)
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	loader := func() (*config.Config, error) {
		p, err := config.NewParser()
		if err != nil {
			return nil, fmt.Errorf("parser init: %w", err)
		}
		defer p.Close()

		cfg, err := p.ParseReader(bytes.NewReader(content), format)
		if err != nil {
			return nil, err
		}
		config.ExpandEnvConfig(cfg)
		if err := config.ApplyEnvOverrides(cfg, o.Environ); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg, err := finishConfig(loader, o.Adjust)
	if err != nil {
		return nil, err
	}
	return newInstance(cfg, o, "reader", func() (*config.Config, error) {
		return finishConfig(loader, o.Adjust)
	}), nil
}

func resolveOptions(opts *Options) Options {
	if opts == nil {
		return DefaultOptions()
	}
	return *opts
}

// finishConfig loads, adjusts and validates a configuration.
func finishConfig(load func() (*config.Config, error), adjust func(*config.Config)) (*config.Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
