// Package choreo runs the live show loop: it consumes wire frames, drives
// the swarm coordinator and the transition planner, and exports rows
// describing what the show did.
package choreo

import "dronechoreo/internal/telemetry"

// TransitionWriter handles planned transition legs.
type TransitionWriter interface {
	WriteTransition(telemetry.TransitionRow) error
}

// Optional: writers may support batch mode for transition rows.
type batchTransitionWriter interface {
	WriteTransitions([]telemetry.TransitionRow) error
}

// AdaptationWriter handles replan summary rows.
type AdaptationWriter interface {
	WriteAdaptation(telemetry.AdaptationRow) error
}

// StateWriter handles vehicle lifecycle rows.
type StateWriter interface {
	WriteVehicleState(telemetry.VehicleStateRow) error
}

// Optional: writers may support batch mode for state rows.
type batchStateWriter interface {
	WriteVehicleStates([]telemetry.VehicleStateRow) error
}

// CommandWriter handles issued command rows.
type CommandWriter interface {
	WriteCommand(telemetry.CommandRow) error
}

// RowWriter aggregates every row kind the runner emits.
type RowWriter interface {
	TransitionWriter
	AdaptationWriter
	StateWriter
	CommandWriter
}

// AdminStatusWriter allows writers to show whether the admin server is up.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}
