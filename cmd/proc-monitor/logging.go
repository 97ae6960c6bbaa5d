package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/CerberusV1/proc-monitor/internal/config"
	"github.com/CerberusV1/proc-monitor/pkg/procmon"
)

// newLogger builds the logger for cfg. Interactive sessions own the terminal,
// so without a log file they log nothing. The returned function closes the
// log file.
func newLogger(cfg *config.Config, format string, interactive bool, stderr io.Writer) (procmon.Logger, func(), error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	w, closer := stderr, func() {}
	switch {
	case cfg.LogFile != "":
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, func() { f.Close() }
	case interactive:
		return procmon.NopLogger(), closer, nil
	}

	switch format {
	case "", "text":
		return procmon.NewSlogAdapter(slog.New(procmon.NewHandler(w, level))), closer, nil
	case "json":
		return procmon.JSONLogger(w, level), closer, nil
	default:
		closer()
		return nil, nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
