// Package config provides configuration parsing for proc-monitor.
// This file implements the Lua configuration parser.

package config

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/arnodel/golua/lib"
	rt "github.com/arnodel/golua/runtime"
)

// Resource limits for executing a configuration chunk.
const (
	luaCPULimit    = 10_000_000
	luaMemoryLimit = 50 * 1024 * 1024 // 50 MB
)

// LuaConfigParser parses Lua configuration files. It executes the file with
// the Golua runtime and reads settings from the procmon.config table.
type LuaConfigParser struct {
	runtime *rt.Runtime
	cleanup func()
	mu      sync.Mutex
}

// NewLuaConfigParser creates a new LuaConfigParser with a fresh Lua runtime.
func NewLuaConfigParser() (*LuaConfigParser, error) {
	return NewLuaConfigParserWithOutput(io.Discard)
}

// NewLuaConfigParserWithOutput creates a LuaConfigParser with custom output
// for print() calls in the configuration.
func NewLuaConfigParserWithOutput(stdout io.Writer) (*LuaConfigParser, error) {
	if stdout == nil {
		stdout = os.Stdout
	}

	runtime := rt.New(stdout)
	cleanup := lib.LoadAll(runtime)

	return &LuaConfigParser{
		runtime: runtime,
		cleanup: cleanup,
	}, nil
}

// Parse executes a Lua configuration and extracts procmon.config.
func (p *LuaConfigParser) Parse(content []byte) (*Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.initGlobal()

	closure, err := p.runtime.CompileAndLoadLuaChunk(
		"config",
		content,
		rt.TableValue(p.runtime.GlobalEnv()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile Lua configuration: %w", err)
	}

	ctx := rt.RuntimeContextDef{
		HardLimits: rt.RuntimeResources{
			Cpu:    luaCPULimit,
			Memory: luaMemoryLimit,
		},
	}
	p.runtime.PushContext(ctx)
	defer p.runtime.PopContext()

	thread := p.runtime.MainThread()
	if _, err := rt.Call1(thread, rt.FunctionValue(closure)); err != nil {
		return nil, fmt.Errorf("failed to execute Lua configuration: %w", err)
	}

	return p.extractConfig()
}

// initGlobal installs an empty procmon table with an empty config table, so
// scripts may either assign procmon.config or set fields on it.
func (p *LuaConfigParser) initGlobal() {
	procmon := rt.NewTable()
	procmon.Set(rt.StringValue("config"), rt.TableValue(rt.NewTable()))
	p.runtime.GlobalEnv().Set(rt.StringValue("procmon"), rt.TableValue(procmon))
}

// extractConfig reads the procmon global table.
func (p *LuaConfigParser) extractConfig() (*Config, error) {
	cfg := DefaultConfig()

	val := p.runtime.GlobalEnv().Get(rt.StringValue("procmon"))
	if val == rt.NilValue {
		return &cfg, nil
	}
	procmon, ok := val.TryTable()
	if !ok {
		return nil, fmt.Errorf("procmon is not a table")
	}

	configVal := procmon.Get(rt.StringValue("config"))
	if configVal == rt.NilValue {
		return &cfg, nil
	}
	table, ok := configVal.TryTable()
	if !ok {
		return nil, fmt.Errorf("procmon.config is not a table")
	}
	if err := extractConfigTable(&cfg, table); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// extractConfigTable copies recognized keys into cfg. Intervals are seconds.
func extractConfigTable(cfg *Config, table *rt.Table) error {
	if val := getTableString(table, "root"); val != nil {
		cfg.Root = *val
	}
	if val := getTableString(table, "filter"); val != nil {
		cfg.Filter = *val
	}
	if val := getTableString(table, "sort"); val != nil {
		cfg.SortKey = *val
	}
	if val := getTableString(table, "log_level"); val != nil {
		cfg.LogLevel = *val
	}
	if val := getTableString(table, "log_file"); val != nil {
		cfg.LogFile = *val
	}

	if val := getTableBool(table, "legacy_pid_match"); val != nil {
		cfg.LegacyPIDMatch = *val
	}
	if val := getTableBool(table, "sort_reverse"); val != nil {
		cfg.SortReverse = *val
	}

	for _, f := range []struct {
		key    string
		target *time.Duration
	}{
		{"sample_interval", &cfg.SampleInterval},
		{"refresh_interval", &cfg.RefreshInterval},
	} {
		if !hasKey(table, f.key) {
			continue
		}
		val := getTableFloat(table, f.key)
		if val == nil {
			return fmt.Errorf("%s must be a number of seconds", f.key)
		}
		*f.target = secondsToDuration(*val)
	}

	if hasKey(table, "page_size") {
		val := getTableInt(table, "page_size")
		if val == nil {
			return fmt.Errorf("page_size must be a number")
		}
		cfg.PageSize = *val
	}
	return nil
}

func hasKey(table *rt.Table, key string) bool {
	return table.Get(rt.StringValue(key)) != rt.NilValue
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Close releases resources associated with the parser's Lua runtime.
func (p *LuaConfigParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cleanup != nil {
		p.cleanup()
		p.cleanup = nil
	}
	return nil
}

// getTableBool retrieves a boolean value from a Lua table.
// Returns nil if the key doesn't exist or is not a boolean.
func getTableBool(table *rt.Table, key string) *bool {
	val := table.Get(rt.StringValue(key))
	if val == rt.NilValue {
		return nil
	}

	if b, ok := val.TryBool(); ok {
		return &b
	}

	// Handle string "true"/"false" for compatibility
	if s, ok := val.TryString(); ok {
		b := parseBool(s)
		return &b
	}

	return nil
}

// getTableString retrieves a string value from a Lua table.
// Returns nil if the key doesn't exist or is not a string.
func getTableString(table *rt.Table, key string) *string {
	val := table.Get(rt.StringValue(key))
	if val == rt.NilValue {
		return nil
	}

	if s, ok := val.TryString(); ok {
		return &s
	}

	return nil
}

// getTableFloat retrieves a float64 value from a Lua table.
// Returns nil if the key doesn't exist or is not a number.
func getTableFloat(table *rt.Table, key string) *float64 {
	val := table.Get(rt.StringValue(key))
	if val == rt.NilValue {
		return nil
	}

	if n, ok := val.TryFloat(); ok {
		return &n
	}

	if n, ok := val.TryInt(); ok {
		f := float64(n)
		return &f
	}

	return nil
}

// getTableInt retrieves an int value from a Lua table.
// Returns nil if the key doesn't exist or is not a number.
func getTableInt(table *rt.Table, key string) *int {
	val := table.Get(rt.StringValue(key))
	if val == rt.NilValue {
		return nil
	}

	if n, ok := val.TryInt(); ok {
		i := int(n)
		return &i
	}

	// Try float conversion (truncate)
	if f, ok := val.TryFloat(); ok {
		i := int(f)
		return &i
	}

	return nil
}
