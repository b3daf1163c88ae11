// Command elamport drives a single in-process run of the Lamport
// distributed mutual-exclusion simulation: it reads a peer count and a
// logical-time duration, runs the peer pool to completion, and writes
// the message and critical-section logs.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/jabolina/elamport/internal/simulation"
)

var (
	processCount = -1 // N, number of peers {2, ...}
	duration     = -1 // logical time horizon, in clock ticks

	messageLog = flag.String("message-log", "messageLog.csv", "path to write the message log")
	csLog      = flag.String("cs-log", "criticalSectionLog.txt", "path to write the critical-section operations log")
	debug      = flag.Bool("debug", false, "enable debug-level log output")
)

func init() {
	flag.IntVar(&processCount, "n", processCount, "total number of peer processes")
	flag.IntVar(&duration, "duration", duration, "logical time horizon, in clock ticks")
	flag.Parse()
	setArgsPositional()
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "elamport: protocol invariant violation: %v\n", r)
			os.Exit(1)
		}
	}()

	cfg := simulation.DefaultConfig(processCount, uint64(duration))
	cfg.MessageLogPath = *messageLog
	cfg.CriticalSectionLogPath = *csLog
	cfg.Debug = *debug

	result, err := simulation.Run(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "elamport: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("simulation %s complete: %d critical section entries\n",
		result.Transport.RunID(), result.Transport.CriticalSectionCount())
}

// If -n/-duration were not provided as flags, fall back to parsing the
// first two positional arguments (N then D).
func setArgsPositional() {
	getIntArg := func(i int) int {
		arg := flag.Arg(i)
		if arg == "" {
			fmt.Fprintln(os.Stderr, "usage: elamport [-n N] [-duration D] [N D]")
			flag.PrintDefaults()
			os.Exit(1)
		}
		val, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not parse %q into an integer\n", arg)
			os.Exit(1)
		}
		return val
	}

	if processCount == -1 {
		processCount = getIntArg(0)
	}
	if duration == -1 {
		duration = getIntArg(1)
	}
}
