package choreo

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"dronechoreo/internal/telemetry"
)

type collectWriter struct{ rows []telemetry.TransitionRow }

func (c *collectWriter) WriteTransition(r telemetry.TransitionRow) error {
	c.rows = append(c.rows, r)
	return nil
}

func TestReplayLog(t *testing.T) {
	rows := []telemetry.TransitionRow{
		{SessionID: "s1", Vehicle: 1, Formation: "line", Timestamp: time.Unix(0, 0)},
		{SessionID: "s1", Vehicle: 2, Formation: "line", Timestamp: time.Unix(1, 0)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectWriter{}
	if err := ReplayLog(context.Background(), &buf, cw, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if len(cw.rows) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(cw.rows))
	}
	for i, r := range rows {
		if cw.rows[i].Vehicle != r.Vehicle {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.rows[i], r)
		}
	}
}

func TestReplayLogCancelled(t *testing.T) {
	rows := []telemetry.TransitionRow{
		{SessionID: "s1", Vehicle: 1, Timestamp: time.Unix(0, 0)},
		{SessionID: "s1", Vehicle: 2, Timestamp: time.Unix(10, 0)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cw := &collectWriter{}
	if err := ReplayLog(ctx, &buf, cw, 1); err != context.Canceled {
		t.Fatalf("ReplayLog error = %v, want context.Canceled", err)
	}
	if len(cw.rows) != 1 {
		t.Errorf("rows written before cancel = %d, want 1", len(cw.rows))
	}
}
