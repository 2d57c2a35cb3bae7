package choreo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"dronechoreo/internal/telemetry"
)

// ReplayLog replays exported transition rows from r to writer. A speed > 0
// keeps the recorded pacing scaled by that factor; speed <= 0 replays as
// fast as the sink accepts.
func ReplayLog(ctx context.Context, r io.Reader, writer TransitionWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var row telemetry.TransitionRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !prev.IsZero() && speed > 0 {
			diff := row.Timestamp.Sub(prev)
			if speed != 1 {
				diff = time.Duration(float64(diff) / speed)
			}
			if diff > 0 {
				t := time.NewTimer(diff)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
		if err := writer.WriteTransition(row); err != nil {
			return err
		}
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a transitions JSONL file and replays it.
func ReplayLogFile(ctx context.Context, path string, writer TransitionWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
