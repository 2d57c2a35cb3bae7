// Package swarm tracks live per-vehicle lifecycle state, classifies inbound
// vehicle events, and replans the formation when the active roster shrinks
// or regrows.
package swarm

import (
	"time"

	"dronechoreo/internal/geometry"
	"dronechoreo/internal/wire"
)

// Lifecycle is a vehicle's place in the show.
type Lifecycle string

const (
	// Active vehicles fly the formation.
	Active Lifecycle = "active"
	// Holding vehicles pause in place while a momentary departure resolves.
	Holding Lifecycle = "holding"
	// Departed vehicles left the formation on their own report.
	Departed Lifecycle = "departed"
	// Returning vehicles announced a rejoin and enter the next replan.
	Returning Lifecycle = "returning"
	// Offline vehicles were commanded out of the show.
	Offline Lifecycle = "offline"
)

// Priority ranks how urgently an event needs operator attention.
type Priority string

const (
	PriorityInfo    Priority = "info"
	PriorityWarning Priority = "warning"
	PriorityUrgent  Priority = "urgent"
)

// Profile holds a vehicle's capability thresholds. Events at or inside the
// thresholds are informational; beyond them they pull the vehicle out of
// the formation.
type Profile struct {
	BatteryWarn     int     `json:"battery_warn" yaml:"battery_warn"`
	BatteryCritical int     `json:"battery_critical" yaml:"battery_critical"`
	MaxWindMPS      float64 `json:"max_wind_mps" yaml:"max_wind_mps"`
	SeverityLimit   int     `json:"severity_limit" yaml:"severity_limit"`
}

// DefaultProfile returns the thresholds used when a mission config does not
// override them.
func DefaultProfile() Profile {
	return Profile{BatteryWarn: 25, BatteryCritical: 10, MaxWindMPS: 10, SeverityLimit: 1}
}

// Classification is the swarm-side reading of one event.
type Classification struct {
	Departs  bool
	Priority Priority
}

// Classify decides whether an event pulls the vehicle out of the formation
// and how urgent it is. Battery and return-to-home events always depart;
// wind and hardware warnings depart only beyond the profile's limits;
// rejoin and unknown events never do.
func (p Profile) Classify(e wire.Event) Classification {
	switch ev := e.(type) {
	case wire.LowBattery:
		pr := PriorityWarning
		if ev.Percent <= p.BatteryCritical {
			pr = PriorityUrgent
		}
		return Classification{Departs: true, Priority: pr}
	case wire.CriticalBattery:
		return Classification{Departs: true, Priority: PriorityUrgent}
	case wire.ReturnHome:
		return Classification{Departs: true, Priority: PriorityUrgent}
	case wire.PointOfInterest:
		return Classification{Departs: true, Priority: PriorityInfo}
	case wire.FollowMe:
		return Classification{Departs: true, Priority: PriorityInfo}
	case wire.HighWind:
		if ev.SpeedMPS == 0 || ev.SpeedMPS > p.MaxWindMPS {
			return Classification{Departs: true, Priority: PriorityWarning}
		}
		return Classification{Priority: PriorityInfo}
	case wire.SensorFault:
		return Classification{Departs: true, Priority: PriorityUrgent}
	case wire.HardwareWarning:
		if ev.Severity > p.SeverityLimit {
			return Classification{Departs: true, Priority: PriorityWarning}
		}
		return Classification{Priority: PriorityInfo}
	case wire.Rejoin:
		return Classification{Priority: PriorityInfo}
	default:
		return Classification{Priority: PriorityInfo}
	}
}

// Vehicle is one roster entry at mission start.
type Vehicle struct {
	ID       int                 `json:"id" yaml:"id"`
	Position geometry.Position3D `json:"position" yaml:"position"`
	Profile  Profile             `json:"profile" yaml:"profile"`
}

// VehicleState is an immutable snapshot of one vehicle. Cause and Since are
// set while the vehicle is departed; HoldUntil while it is holding.
type VehicleState struct {
	ID        int                 `json:"id"`
	Phase     Lifecycle           `json:"phase"`
	Position  geometry.Position3D `json:"position"`
	Profile   Profile             `json:"profile"`
	Cause     string              `json:"cause,omitempty"`
	Since     time.Time           `json:"since,omitzero"`
	HoldUntil time.Time           `json:"hold_until,omitzero"`
	LastSeen  time.Time           `json:"last_seen,omitzero"`
}
