// Package simulation wires the elamport protocol package into a runnable
// simulation: the driver-facing pieces the core protocol treats as
// external collaborators (spec.md §1) — reading process count and
// duration, running the peer pool to completion, and flushing the
// message and critical-section logs.
package simulation

import (
	"fmt"

	"github.com/jabolina/elamport/internal/elamport"
)

// Config is the simulation's external configuration: the two integers the
// driver reads (spec.md §6) plus the log destinations and diagnostics
// knobs layered on top.
type Config struct {
	// ProcessCount is N, the number of peers. Must be >= 2.
	ProcessCount int

	// Duration is the logical time horizon; any send whose timestamp
	// reaches this value terminates the simulation.
	Duration uint64

	// MessageLogPath is where the CSV message log is written.
	MessageLogPath string

	// CriticalSectionLogPath is where the critical-section operations
	// log is written.
	CriticalSectionLogPath string

	// Debug enables debug-level log lines.
	Debug bool
}

// DefaultConfig returns a Config with the log paths spec.md §6 names and
// no debug output.
func DefaultConfig(processCount int, duration uint64) Config {
	return Config{
		ProcessCount:           processCount,
		Duration:               duration,
		MessageLogPath:         "messageLog.csv",
		CriticalSectionLogPath: "criticalSectionLog.txt",
	}
}

// Result is what a completed simulation run reports back.
type Result struct {
	Transport *elamport.Transport
}

// Run constructs the peer pool and transport described by cfg, runs the
// simulation to completion (every peer loop exits once the time horizon
// trips), flushes the logs, and returns the transport for inspection.
func Run(cfg Config) (*Result, error) {
	if cfg.ProcessCount < 2 {
		return nil, fmt.Errorf("simulation: process_count must be >= 2, got %d", cfg.ProcessCount)
	}
	if cfg.Duration == 0 {
		return nil, fmt.Errorf("simulation: duration must be > 0, got %d", cfg.Duration)
	}

	log := elamport.NewDefaultLogger(cfg.Debug)
	transport, err := elamport.NewTransport(cfg.ProcessCount, cfg.Duration, log)
	if err != nil {
		return nil, err
	}

	transport.Run()

	if cfg.MessageLogPath != "" || cfg.CriticalSectionLogPath != "" {
		transport.FlushLogs(cfg.MessageLogPath, cfg.CriticalSectionLogPath)
	}

	return &Result{Transport: transport}, nil
}
