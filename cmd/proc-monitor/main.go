// Package main provides the proc-monitor command: a live process table that
// reads procfs directly.
package main

import (
	"os"

	"github.com/charmbracelet/log"
)

// Version is the current version of proc-monitor.
// This default value can be overridden at build time using:
//
//	go build -ldflags "-X main.Version=x.y.z"
var Version = "0.1.0-dev"

func main() {
	log.SetPrefix("proc-monitor")
	log.SetReportTimestamp(false)

	os.Exit(Execute())
}
