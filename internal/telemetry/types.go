// Telemetry row structs for the timeseries sink
package telemetry

import (
	"os"
	"time"

	"github.com/google/uuid"

	"dronechoreo/internal/planner"
)

// NewSessionID returns the run identifier stamped on every exported row.
func NewSessionID() string {
	return uuid.NewString()
}

// TransitionRow is one vehicle's leg of a planned formation transition.
type TransitionRow struct {
	SessionID     string    `json:"session_id"` // TAG
	Formation     string    `json:"formation"`  // TAG
	Vehicle       int       `json:"vehicle"`    // TAG
	Generation    uint64    `json:"generation"`
	Slot          int       `json:"slot"`
	Method        string    `json:"method"`
	Delay         float64   `json:"delay"`
	MoveDuration  float64   `json:"move_duration"`
	FromX         float64   `json:"from_x"`
	FromY         float64   `json:"from_y"`
	FromZ         float64   `json:"from_z"`
	ToX           float64   `json:"to_x"`
	ToY           float64   `json:"to_y"`
	ToZ           float64   `json:"to_z"`
	MinSeparation float64   `json:"min_separation"`
	DurationS     float64   `json:"duration_s"`
	Timestamp     time.Time `json:"ts"` // TIME INDEX
}

// TransitionTableName holds the table name used when writing transition
// rows to GreptimeDB. Override with the CHOREO_TRANSITION_TABLE
// environment variable.
var TransitionTableName = func() string {
	if env := os.Getenv("CHOREO_TRANSITION_TABLE"); env != "" {
		return env
	}
	return "choreo_transitions"
}()

func (TransitionRow) TableName() string {
	return TransitionTableName
}

// TransitionRows flattens a plan into one row per vehicle leg, all stamped
// with the same receive time.
func TransitionRows(session string, generation uint64, formation string, plan *planner.Plan, at time.Time) []TransitionRow {
	if plan == nil {
		return nil
	}
	rows := make([]TransitionRow, 0, len(plan.Paths))
	for _, p := range plan.Paths {
		row := TransitionRow{
			SessionID:     session,
			Formation:     formation,
			Vehicle:       p.Vehicle,
			Generation:    generation,
			Slot:          plan.Assignment[p.Vehicle],
			Method:        plan.Method,
			Delay:         p.Delay,
			MoveDuration:  p.Duration,
			MinSeparation: plan.MinSeparation,
			DurationS:     plan.Duration.Seconds(),
			Timestamp:     at,
		}
		if len(p.Waypoints) > 0 {
			from := p.Waypoints[0].Position
			to := p.Waypoints[len(p.Waypoints)-1].Position
			row.FromX, row.FromY, row.FromZ = from.X, from.Y, from.Z
			row.ToX, row.ToY, row.ToZ = to.X, to.Y, to.Z
		}
		rows = append(rows, row)
	}
	return rows
}
