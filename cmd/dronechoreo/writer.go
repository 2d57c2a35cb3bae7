package main

import (
	"os"

	"golang.org/x/term"

	"dronechoreo/internal/choreo"
	"dronechoreo/internal/config"
	"dronechoreo/internal/solver"
)

// newWriters wires the row sink stack: the TUI or stdout as the base sink,
// GreptimeDB when GREPTIMEDB_ENDPOINT is set and printOnly is off, and an
// optional JSONL tee. The cleanup function closes whatever was opened.
func newWriters(cfg *config.MissionConfig, printOnly bool, logFile string, tui bool) (choreo.RowWriter, *choreo.TUIWriter, func(), error) {
	var stack []choreo.RowWriter
	var closers []func() error
	var tuiWriter *choreo.TUIWriter

	if tui {
		tuiWriter = choreo.NewTUIWriter(cfg)
		stack = append(stack, tuiWriter)
		closers = append(closers, tuiWriter.Close)
	} else if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			stack = append(stack, choreo.NewColorStdoutWriter(cfg))
		} else {
			stack = append(stack, choreo.NewJSONStdoutWriter())
		}
	}

	if !printOnly && os.Getenv("GREPTIMEDB_ENDPOINT") != "" {
		gw, err := choreo.NewGreptimeDBWriter(os.Getenv("GREPTIMEDB_ENDPOINT"), greptimeDatabase())
		if err != nil {
			return nil, nil, nil, err
		}
		stack = append(stack, gw)
	}

	if logFile != "" {
		fw, err := choreo.NewFileWriter(logFile, logFile+".adaptations", logFile+".state", logFile+".commands")
		if err != nil {
			return nil, nil, nil, err
		}
		stack = append(stack, fw)
		closers = append(closers, fw.Close)
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}
	if len(stack) == 1 {
		return stack[0], tuiWriter, cleanup, nil
	}
	return choreo.NewMultiWriter(stack...), tuiWriter, cleanup, nil
}

// newReplayWriter picks the sink for replayed rows: GreptimeDB when
// configured, STDOUT otherwise.
func newReplayWriter(printOnly bool) (choreo.TransitionWriter, error) {
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		return choreo.NewJSONStdoutWriter(), nil
	}
	return choreo.NewGreptimeDBWriter(os.Getenv("GREPTIMEDB_ENDPOINT"), greptimeDatabase())
}

func greptimeDatabase() string {
	if db := os.Getenv("GREPTIMEDB_DATABASE"); db != "" {
		return db
	}
	return "public"
}

// newOracle builds the sampling oracle when the mission enables it. A nil
// oracle leaves the solver on its greedy paths.
func newOracle(cfg *config.MissionConfig) solver.Oracle {
	if !cfg.Solver.Annealer {
		return nil
	}
	return solver.NewAnnealOracle(cfg.Solver.Seed)
}
