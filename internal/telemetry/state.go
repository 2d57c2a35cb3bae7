package telemetry

import (
	"os"
	"time"

	"dronechoreo/internal/swarm"
)

// VehicleStateRow records one vehicle's lifecycle phase at a point in time.
type VehicleStateRow struct {
	SessionID  string    `json:"session_id"` // TAG
	Vehicle    int       `json:"vehicle"`    // TAG
	Generation uint64    `json:"generation"`
	Phase      string    `json:"phase"`
	Cause      string    `json:"cause,omitempty"`
	Priority   string    `json:"priority,omitempty"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Z          float64   `json:"z"`
	Timestamp  time.Time `json:"ts"` // TIME INDEX
}

// VehicleStateTableName holds the table name for vehicle state rows.
// Override with the CHOREO_STATE_TABLE environment variable.
var VehicleStateTableName = func() string {
	if env := os.Getenv("CHOREO_STATE_TABLE"); env != "" {
		return env
	}
	return "choreo_vehicle_state"
}()

func (VehicleStateRow) TableName() string {
	return VehicleStateTableName
}

// NewVehicleStateRow snapshots one vehicle's state.
func NewVehicleStateRow(session string, generation uint64, st swarm.VehicleState, priority swarm.Priority, at time.Time) VehicleStateRow {
	return VehicleStateRow{
		SessionID:  session,
		Vehicle:    st.ID,
		Generation: generation,
		Phase:      string(st.Phase),
		Cause:      st.Cause,
		Priority:   string(priority),
		X:          st.Position.X,
		Y:          st.Position.Y,
		Z:          st.Position.Z,
		Timestamp:  at,
	}
}
