package main

import (
	"strings"
	"testing"
)

func TestBuildEventFrame(t *testing.T) {
	tests := []struct {
		name     string
		vehicle  int
		code     string
		duration string
		pos      string
		extra    string
		want     string
	}{
		{"battery", 3, "bat_low", "B30", "1.5, 0, 20", "18", "EVT|3|BAT_LOW|B30|1.5|0|20|18"},
		{"poi", 5, "POI", "M6", "0,0,12", "stage-front", "EVT|5|POI|M6|0|0|12|stage-front"},
		{"fault", 9, "sensor_fault", "x", "4,4,10", "imu", "EVT|9|SENSOR_FAULT|X|4|4|10|imu"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildEventFrame(tc.vehicle, tc.code, tc.duration, tc.pos, tc.extra)
			if err != nil {
				t.Fatalf("buildEventFrame returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("frame = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildEventFrameBadPosition(t *testing.T) {
	if _, err := buildEventFrame(1, "POI", "X", "1,2", ""); err == nil {
		t.Fatal("expected error for two-coordinate position")
	}
	if _, err := buildEventFrame(1, "POI", "X", "a,b,c", ""); err == nil {
		t.Fatal("expected error for non-numeric position")
	}
}

func TestBuildEventFrameCanonicalizesDuration(t *testing.T) {
	// An unrecognized duration code decodes as extended and re-encodes as X.
	got, err := buildEventFrame(2, "RTH", "Q5", "0,0,0", "")
	if err != nil {
		t.Fatalf("buildEventFrame returned error: %v", err)
	}
	if !strings.Contains(got, "|RTH|X|") {
		t.Fatalf("frame = %q, want extended duration", got)
	}
}

func TestBuildCommandFrame(t *testing.T) {
	tests := []struct {
		name    string
		targets string
		code    string
		params  string
		want    string
	}{
		{"hold broadcast", "", "hold", "10", "CMD|*|HOLD|10"},
		{"land pair", "3,5", "LAND", "", "CMD|3,5|LAND|"},
		{"resume all", "*", "resume", "", "CMD|*|RESUME|"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildCommandFrame(tc.targets, tc.code, tc.params)
			if err != nil {
				t.Fatalf("buildCommandFrame returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("frame = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildCommandFrameBadTargets(t *testing.T) {
	if _, err := buildCommandFrame("3,x", "HOLD", "5"); err == nil {
		t.Fatal("expected error for non-numeric target id")
	}
}
