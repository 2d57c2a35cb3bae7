package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dronechoreo/internal/choreo"
	"dronechoreo/internal/config"
	"dronechoreo/internal/solver"
	"dronechoreo/internal/telemetry"
)

func TestNewWritersPrintOnly(t *testing.T) {
	w, tuiWriter, cleanup, err := newWriters(nil, true, "", false)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	// Test processes have no terminal on stdout, so the base sink is JSONL.
	if _, ok := w.(*choreo.JSONStdoutWriter); !ok {
		t.Fatalf("expected *choreo.JSONStdoutWriter, got %T", w)
	}
	if tuiWriter != nil {
		t.Fatalf("expected no TUI writer, got %T", tuiWriter)
	}
}

func TestNewWritersGreptimeFallback(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, _, cleanup, err := newWriters(nil, false, "", false)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*choreo.JSONStdoutWriter); !ok {
		t.Fatalf("expected *choreo.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "show.log")
	w, _, cleanup, err := newWriters(nil, true, path, false)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*choreo.MultiWriter); !ok {
		t.Fatalf("expected *choreo.MultiWriter, got %T", w)
	}
	row := telemetry.TransitionRow{SessionID: "s1", Formation: "line", Vehicle: 1, Timestamp: time.Now()}
	if err := w.WriteTransition(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	adapt := telemetry.AdaptationRow{SessionID: "s1", Trigger: telemetry.TriggerShowStep, Generation: 1, Timestamp: time.Now()}
	if err := w.WriteAdaptation(adapt); err != nil {
		t.Fatalf("write adaptation failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected transition log to be non-empty")
	}
	adaptInfo, err := os.Stat(path + ".adaptations")
	if err != nil {
		t.Fatalf("stat adaptations failed: %v", err)
	}
	if adaptInfo.Size() == 0 {
		t.Fatalf("expected adaptation log to be non-empty")
	}
}

func TestNewReplayWriterPrintOnly(t *testing.T) {
	w, err := newReplayWriter(true)
	if err != nil {
		t.Fatalf("newReplayWriter returned error: %v", err)
	}
	if _, ok := w.(*choreo.JSONStdoutWriter); !ok {
		t.Fatalf("expected *choreo.JSONStdoutWriter, got %T", w)
	}
}

func TestNewOracle(t *testing.T) {
	cfg := &config.MissionConfig{}
	if o := newOracle(cfg); o != nil {
		t.Fatalf("expected nil oracle when the annealer is disabled, got %T", o)
	}
	cfg.Solver.Annealer = true
	cfg.Solver.Seed = 7
	o := newOracle(cfg)
	if _, ok := o.(*solver.AnnealOracle); !ok {
		t.Fatalf("expected *solver.AnnealOracle, got %T", o)
	}
}
