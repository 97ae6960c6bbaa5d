package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/CerberusV1/proc-monitor/internal/config"
	"github.com/CerberusV1/proc-monitor/internal/filter"
	"github.com/CerberusV1/proc-monitor/internal/profiling"
	"github.com/CerberusV1/proc-monitor/internal/ui"
	"github.com/CerberusV1/proc-monitor/pkg/procmon"
)

type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

type flags struct {
	configPath      string
	root            string
	sampleInterval  time.Duration
	refreshInterval time.Duration
	filter          string
	sort            string
	reverse         bool
	legacyPIDMatch  bool
	pageSize        int
	logLevel        string
	logFile         string
	logFormat       string
	watch           bool
	cpuProfile      string
	memProfile      string
	leakCheck       time.Duration
	debugAddr       string
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			log.Error(ee.message)
			return ee.code
		}
		if ctx.Err() != nil {
			return 130
		}
		log.Error("unexpected error", "err", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "proc-monitor",
		Short: "Live process table read straight from procfs",
		Long: fmt.Sprintf("proc-monitor shows every process with its owner, state, resident memory and CPU use.\n\n"+
			"Press / to filter by text or by an expression such as %s.\n\nConfig: %s", filter.Example, config.DefaultPath()),
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTable(cmd, f)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "configuration file (Lua or legacy key/value)")
	pf.StringVar(&f.root, "root", config.DefaultRoot, "procfs mount point")
	pf.DurationVar(&f.sampleInterval, "sample-interval", config.DefaultSampleInterval, "length of one CPU sampling window")
	pf.DurationVar(&f.refreshInterval, "refresh-interval", config.DefaultRefreshInterval, "time between table refreshes")
	pf.StringVarP(&f.filter, "filter", "f", "", "initial filter text or expression")
	pf.StringVarP(&f.sort, "sort", "s", config.DefaultSortKey, "sort column: pid, name, cpu or memory")
	pf.BoolVarP(&f.reverse, "reverse", "r", false, "reverse the sort order")
	pf.BoolVar(&f.legacyPIDMatch, "legacy-pid-match", false, "treat any /proc entry containing a digit as a process")
	pf.IntVar(&f.pageSize, "page-size", 0, "memory page size in bytes (0 asks the kernel)")
	pf.StringVar(&f.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	pf.StringVar(&f.logFile, "log-file", "", "write logs to this file")
	pf.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&f.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	pf.StringVar(&f.memProfile, "memprofile", "", "write a heap profile to this file on exit")
	pf.DurationVar(&f.leakCheck, "leak-check", 0, "log suspected memory or goroutine leaks at this interval (0 disables)")
	cmd.Flags().StringVar(&f.debugAddr, "debug-addr", "", "serve expvar metrics on this address at /debug/vars")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "reload the configuration file when it changes")

	cmd.AddCommand(
		newOnceCmd(f),
		newConfigCmd(f),
		newVersionCmd(),
	)
	return cmd
}

// adjuster returns the function that applies explicitly set flags on top of
// a loaded configuration.
func adjuster(cmd *cobra.Command, f *flags) func(*config.Config) {
	changed := cmd.Flags().Changed
	return func(cfg *config.Config) {
		if changed("root") {
			cfg.Root = f.root
		}
		if changed("sample-interval") {
			cfg.SampleInterval = f.sampleInterval
		}
		if changed("refresh-interval") {
			cfg.RefreshInterval = f.refreshInterval
		}
		if changed("filter") {
			cfg.Filter = f.filter
		}
		if changed("sort") {
			cfg.SortKey = f.sort
		}
		if changed("reverse") {
			cfg.SortReverse = f.reverse
		}
		if changed("legacy-pid-match") {
			cfg.LegacyPIDMatch = f.legacyPIDMatch
		}
		if changed("page-size") {
			cfg.PageSize = f.pageSize
		}
		if changed("log-level") {
			cfg.LogLevel = f.logLevel
		}
		if changed("log-file") {
			cfg.LogFile = f.logFile
		}
	}
}

// loadConfig resolves the effective configuration the same way an instance
// does, so logging can be set up before the instance exists.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, _, err := config.Load(config.LoadOptions{Path: f.configPath})
	if err != nil {
		return nil, &exitError{code: 1, message: fmt.Sprintf("load config: %v", err)}
	}
	adjuster(cmd, f)(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, &exitError{code: 2, message: err.Error()}
	}
	return cfg, nil
}

// setup loads the configuration and creates a stopped instance. The returned
// cleanup closes the log file.
func setup(cmd *cobra.Command, f *flags, interactive bool) (procmon.Instance, procmon.Logger, func(), error) {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, closeLog, err := newLogger(cfg, f.logFormat, interactive, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, nil, &exitError{code: 1, message: err.Error()}
	}

	metrics := procmon.DefaultMetrics()
	metrics.RegisterExpvar()

	opts := procmon.DefaultOptions()
	opts.Logger = logger
	opts.Metrics = metrics
	opts.Adjust = adjuster(cmd, f)
	opts.WatchConfig = f.watch

	inst, err := procmon.New(f.configPath, &opts)
	if err != nil {
		closeLog()
		return nil, nil, nil, &exitError{code: 1, message: err.Error()}
	}
	return inst, logger, closeLog, nil
}

// startProfiling starts the profiler when requested. The returned function
// stops it.
func startProfiling(f *flags, logger procmon.Logger) (func(), error) {
	cfg := profiling.Config{CPUProfilePath: f.cpuProfile, MemProfilePath: f.memProfile}
	if !cfg.Enabled() {
		return func() {}, nil
	}
	prof := profiling.New(cfg)
	if err := prof.Start(); err != nil {
		return nil, &exitError{code: 1, message: err.Error()}
	}
	return func() {
		if err := prof.Stop(); err != nil {
			logger.Warn("failed to write profiles", "error", err)
		}
	}, nil
}

func runTable(cmd *cobra.Command, f *flags) error {
	inst, logger, closeLog, err := setup(cmd, f, true)
	if err != nil {
		return err
	}
	defer closeLog()

	stopProfiling, err := startProfiling(f, logger)
	if err != nil {
		return err
	}
	defer stopProfiling()

	if err := inst.Start(); err != nil {
		return &exitError{code: 1, message: fmt.Sprintf("start: %v", err)}
	}
	defer func() {
		if err := inst.Stop(); err != nil {
			logger.Warn("stop", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	program := ui.NewProgram(ctx, inst, "proc-monitor "+Version)
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return ui.Forward(ctx, inst, program.Send)
	})
	g.Go(func() error {
		return reloadOnHangup(ctx, inst, logger)
	})
	if f.debugAddr != "" {
		g.Go(func() error {
			return serveDebug(ctx, f.debugAddr, logger)
		})
	}
	if f.leakCheck > 0 {
		g.Go(func() error {
			return profiling.WatchLeaks(ctx, f.leakCheck, profiling.DefaultThresholds(), func(growth profiling.Growth) {
				logger.Warn("possible leak", "reason", growth.Reason, "over", growth.Over.Round(time.Second))
			})
		})
	}

	if err := g.Wait(); err != nil {
		return &exitError{code: 1, message: err.Error()}
	}
	return nil
}

// reloadOnHangup reloads the configuration on SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, inst procmon.Instance, logger procmon.Logger) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := inst.ReloadConfig(); err != nil {
				logger.Warn("reload failed", "error", err)
			}
		}
	}
}

// debugShutdownTimeout bounds how long in-flight debug requests may run at exit.
const debugShutdownTimeout = time.Second

// serveDebug serves /debug/vars on addr until ctx is done.
func serveDebug(ctx context.Context, addr string, logger procmon.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("debug server: %w", err)
	}
	return serveDebugOn(ctx, ln, logger)
}

func serveDebugOn(ctx context.Context, ln net.Listener, logger procmon.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownServer(srv, debugShutdownTimeout, logger)
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("debug server: %w", err)
	}
	return nil
}

func shutdownServer(srv *http.Server, timeout time.Duration, logger procmon.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("debug server shutdown", "error", err)
	}
}

// openLogFile opens path for appending.
func openLogFile(path string) (io.WriteCloser, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
