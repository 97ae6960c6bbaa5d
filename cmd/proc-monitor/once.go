package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/CerberusV1/proc-monitor/internal/ui"
	"github.com/CerberusV1/proc-monitor/pkg/procmon"
)

// onceWindows bounds how many sampling intervals once waits for CPU figures.
const onceWindows = 3

func newOnceCmd(f *flags) *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Print the process table once and exit",
		Long: "Print the process table once and exit. By default the table is printed after the\n" +
			"first CPU sampling window, so the CPU column is filled in.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd, f, noWait)
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "print immediately, without CPU figures")
	return cmd
}

func runOnce(cmd *cobra.Command, f *flags, noWait bool) error {
	inst, logger, closeLog, err := setup(cmd, f, false)
	if err != nil {
		return err
	}
	defer closeLog()

	stopProfiling, err := startProfiling(f, logger)
	if err != nil {
		return err
	}
	defer stopProfiling()

	var snap procmon.Snapshot
	if noWait {
		snap = inst.Snapshot(inst.Filter())
	} else {
		snap, err = waitForCPU(cmd, inst, logger)
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), ui.RenderTable(snap))
	return nil
}

// waitForCPU runs inst until it publishes a snapshot with CPU figures. If none
// arrives in time it falls back to a snapshot without them.
func waitForCPU(cmd *cobra.Command, inst procmon.Instance, logger procmon.Logger) (procmon.Snapshot, error) {
	ready := make(chan procmon.Snapshot, 1)
	cancel := inst.Subscribe(func(s procmon.Snapshot) {
		if !s.CPUKnown {
			return
		}
		select {
		case ready <- s:
		default:
		}
	})
	defer cancel()

	if err := inst.Start(); err != nil {
		return procmon.Snapshot{}, &exitError{code: 1, message: fmt.Sprintf("start: %v", err)}
	}
	defer func() {
		if err := inst.Stop(); err != nil {
			logger.Warn("stop", "error", err)
		}
	}()

	cfg := inst.Config()
	timeout := onceWindows*cfg.SampleInterval + cfg.RefreshInterval

	select {
	case snap := <-ready:
		return snap, nil
	case <-time.After(timeout):
		logger.Warn("no CPU sampling window completed", "waited", timeout)
		return inst.Snapshot(inst.Filter()), nil
	case <-cmd.Context().Done():
		return procmon.Snapshot{}, &exitError{code: 130, message: "interrupted"}
	}
}
