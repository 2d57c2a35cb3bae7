// Package wire implements the pipe-delimited text format vehicles use to
// report events and receive swarm commands. The format is deliberately
// plain ASCII so frames survive narrow status-text telemetry channels.
package wire

import (
	"time"

	"dronechoreo/internal/geometry"
)

// Event codes carried in notification frames.
const (
	CodeLowBattery      = "BAT_LOW"
	CodeCriticalBattery = "BAT_CRIT"
	CodeReturnHome      = "RTH"
	CodePointOfInterest = "POI"
	CodeFollowMe        = "FOLLOW"
	CodeHighWind        = "WIND_HIGH"
	CodeSensorFault     = "SENSOR_FAULT"
	CodeHardwareWarning = "HW_WARN"
	CodeRejoin          = "REJOIN"
)

// Command codes carried in command frames.
const (
	CodeHold         = "HOLD"
	CodeResume       = "RESUME"
	CodeLand         = "LAND"
	CodeReturnToBase = "RTB"
)

// DurationClass is the coarse length of a reported event.
type DurationClass string

const (
	// Momentary events resolve in seconds; the swarm waits in place.
	Momentary DurationClass = "M"
	// Brief events resolve within the hold ceiling; the swarm loiters.
	Brief DurationClass = "B"
	// Extended events have no known end; the formation replans without
	// the vehicle.
	Extended DurationClass = "X"
)

// Duration is an event's estimated length. Seconds is meaningful for the
// Momentary and Brief classes only.
type Duration struct {
	Class   DurationClass
	Seconds float64
}

// Estimate returns the duration as wall-clock time. ok is false for the
// Extended class, whose end is unknown.
func (d Duration) Estimate() (time.Duration, bool) {
	if d.Class == Extended {
		return 0, false
	}
	return time.Duration(d.Seconds * float64(time.Second)), true
}

// Event is the payload of one vehicle-reported occurrence. The set of
// implementations is closed apart from Custom, which carries anything a
// newer vehicle firmware may emit.
type Event interface {
	Code() string
}

// LowBattery reports remaining charge below the vehicle's warning level.
type LowBattery struct {
	Percent int
}

// CriticalBattery reports charge low enough to force an immediate landing.
type CriticalBattery struct {
	Percent int
}

// ReturnHome reports that the vehicle started its return-to-home routine.
type ReturnHome struct{}

// PointOfInterest reports a detour to investigate something.
type PointOfInterest struct {
	Label string
}

// FollowMe reports that the vehicle is shadowing another vehicle.
type FollowMe struct {
	Target int
}

// HighWind reports wind beyond the vehicle's operating envelope.
type HighWind struct {
	SpeedMPS float64
}

// SensorFault reports a failed sensor by name.
type SensorFault struct {
	Sensor string
}

// HardwareWarning reports a component problem with a severity level.
type HardwareWarning struct {
	Component string
	Severity  int
}

// Rejoin reports that a departed vehicle is ready to re-enter the show.
type Rejoin struct{}

// Custom carries an event code this build does not know, with any key=value
// payload preserved.
type Custom struct {
	Tag    string
	Fields map[string]string
}

func (LowBattery) Code() string      { return CodeLowBattery }
func (CriticalBattery) Code() string { return CodeCriticalBattery }
func (ReturnHome) Code() string      { return CodeReturnHome }
func (PointOfInterest) Code() string { return CodePointOfInterest }
func (FollowMe) Code() string        { return CodeFollowMe }
func (HighWind) Code() string        { return CodeHighWind }
func (SensorFault) Code() string     { return CodeSensorFault }
func (HardwareWarning) Code() string { return CodeHardwareWarning }
func (Rejoin) Code() string          { return CodeRejoin }
func (c Custom) Code() string        { return c.Tag }

// Notification is one vehicle-to-ground event frame.
type Notification struct {
	Vehicle  int
	Event    Event
	Duration Duration
	Position geometry.Position3D
}

// Action is the payload of one ground-to-vehicle command. Closed apart from
// CustomAction.
type Action interface {
	Code() string
}

// Hold tells vehicles to pause in place for a number of seconds.
type Hold struct {
	Seconds float64
}

// Resume tells holding vehicles to continue the show.
type Resume struct{}

// Land tells vehicles to land where they are.
type Land struct{}

// ReturnToBase tells vehicles to fly back to their launch point.
type ReturnToBase struct{}

// CustomAction carries a command code this build does not know.
type CustomAction struct {
	Tag    string
	Params map[string]string
}

func (Hold) Code() string           { return CodeHold }
func (Resume) Code() string         { return CodeResume }
func (Land) Code() string           { return CodeLand }
func (ReturnToBase) Code() string   { return CodeReturnToBase }
func (c CustomAction) Code() string { return c.Tag }

// Command is one ground-to-vehicle frame. A nil Targets list addresses the
// whole swarm.
type Command struct {
	Targets []int
	Action  Action
}

// Broadcast reports whether the command addresses every vehicle.
func (c Command) Broadcast() bool {
	return len(c.Targets) == 0
}
