// Package procmon provides the public API for embedding the proc-monitor
// sampling engine. It wraps the engine with lifecycle management, logging,
// metrics, health reporting and configuration hot reload.
//
// # Basic Usage
//
// Create an instance from a configuration file, start it and read snapshots:
//
//	m, err := procmon.New("", nil) // "" uses the default config path
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := m.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer m.Stop()
//
//	snap := m.Snapshot("ssh")
//	for _, row := range snap.Rows {
//		fmt.Println(row.PID, row.Name, row.CPU, row.Memory)
//	}
//
// # Configuration Sources
//
//   - Disk file: use [New]; an empty path means the XDG default, which may be absent
//   - A Config value: use [NewFromConfig]
//   - io.Reader: use [NewFromReader] for generated configurations
//
// PROC_MONITOR_* environment variables override file values in every case.
//
// # Push and Pull
//
// [Instance.Snapshot] assembles a table on demand and never waits on the CPU
// sampler. [Instance.Subscribe] receives every snapshot the refresh
// coordinator publishes. Callbacks run on the coordinator goroutine and must
// not block.
//
// # Hot Reload
//
// With Options.WatchConfig set, changes to the configuration file are applied
// in place. Filter and sort changes take effect immediately; changes to the
// root, intervals or page size rebuild the engine.
package procmon
