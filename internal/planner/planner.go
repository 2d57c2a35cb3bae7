// Package planner turns a solved vehicle-to-slot assignment into flyable
// transition paths. Direct simultaneous paths are kept when they clear the
// separation floor; otherwise the planner encodes a launch-window timing
// problem, solves it, and re-verifies the staggered schedule.
package planner

import (
	"context"
	"fmt"
	"time"

	"dronechoreo/internal/geometry"
	"dronechoreo/internal/qubo"
	"dronechoreo/internal/solver"
)

// Plan methods.
const (
	MethodDirect    = "direct"
	MethodStaggered = "staggered"
)

// Formation is a named ordered set of target slots for one choreography
// step. Immutable once built; slot index is the identity a vehicle is
// assigned to.
type Formation struct {
	Name  string                `json:"name" yaml:"name"`
	Slots []geometry.Position3D `json:"slots" yaml:"slots"`
}

// Constraints bound one planning call. Values are copied, never mutated;
// the With helpers return adjusted copies.
type Constraints struct {
	MinSeparation float64 `json:"min_separation" yaml:"min_separation"`
	MaxVelocity   float64 `json:"max_velocity" yaml:"max_velocity"`
	DelaySteps    int     `json:"delay_steps" yaml:"delay_steps"`
	Samples       int     `json:"samples" yaml:"samples"`
}

// DefaultConstraints returns the planning bounds used when a mission config
// does not override them.
func DefaultConstraints() Constraints {
	return Constraints{MinSeparation: 2, MaxVelocity: 5, DelaySteps: 5, Samples: 50}
}

// WithSeparation returns a copy with the separation floor set, in meters.
func (c Constraints) WithSeparation(meters float64) Constraints {
	c.MinSeparation = meters
	return c
}

// WithMaxVelocity returns a copy with the velocity cap set, in m/s.
func (c Constraints) WithMaxVelocity(mps float64) Constraints {
	c.MaxVelocity = mps
	return c
}

// WithDelaySteps returns a copy with the number of launch windows set.
func (c Constraints) WithDelaySteps(steps int) Constraints {
	c.DelaySteps = steps
	return c
}

// WithSamples returns a copy with the path-sampling resolution set.
func (c Constraints) WithSamples(samples int) Constraints {
	c.Samples = samples
	return c
}

// Validate rejects constraint values that no planning call can interpret.
// Degenerate but meaningful values (a single delay step, zero velocity) are
// allowed and handled by explicit guards instead.
func (c Constraints) Validate() error {
	if c.MinSeparation < 0 {
		return fmt.Errorf("min_separation %f is negative", c.MinSeparation)
	}
	if c.MaxVelocity < 0 {
		return fmt.Errorf("max_velocity %f is negative", c.MaxVelocity)
	}
	if c.DelaySteps < 0 {
		return fmt.Errorf("delay_steps %d is negative", c.DelaySteps)
	}
	if c.Samples < 1 {
		return fmt.Errorf("samples %d must be at least 1", c.Samples)
	}
	return nil
}

// Waypoint is one timed point of a vehicle's transition. Time is normalized
// to [0,1] over the transition; Hold is how long the vehicle dwells there
// before moving on.
type Waypoint struct {
	Position geometry.Position3D `json:"position"`
	Time     float64             `json:"time"`
	Hold     float64             `json:"hold"`
}

// DronePath is one vehicle's transition: an ordered waypoint list plus the
// delay/duration window the move is flown in.
type DronePath struct {
	Vehicle   int        `json:"vehicle"`
	Waypoints []Waypoint `json:"waypoints"`
	Delay     float64    `json:"delay"`
	Duration  float64    `json:"duration"`
}

// Offset returns the path's position-over-time parameterization.
func (p DronePath) Offset() geometry.OffsetPath {
	o := geometry.OffsetPath{Delay: p.Delay, Duration: p.Duration}
	if len(p.Waypoints) > 0 {
		o.Start = p.Waypoints[0].Position
		o.End = p.Waypoints[len(p.Waypoints)-1].Position
	}
	return o
}

// Plan is the flyable outcome of one formation transition.
type Plan struct {
	Assignment    qubo.Assignment `json:"assignment"`
	Paths         []DronePath     `json:"paths"`
	Method        string          `json:"method"`
	MinSeparation float64         `json:"min_separation"`
	Duration      time.Duration   `json:"duration"`
	Solve         solver.Outcome  `json:"solve"`
}

// PlanTransition plans the move of every assigned vehicle onto its slot.
// Assignment entries pointing outside the known vehicles or slots are
// dropped. When the direct paths violate the separation floor, per-vehicle
// launch windows are solved for and the staggered schedule is re-verified;
// a schedule that still violates the floor reports MinSeparation zero
// rather than failing.
func PlanTransition(ctx context.Context, oracle solver.Oracle, current []geometry.Position3D, target Formation, asg qubo.Assignment, c Constraints, opts solver.Options) (*Plan, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	legs := assignedLegs(current, target.Slots, asg)
	direct := make([]DronePath, len(legs))
	for i, l := range legs {
		direct[i] = directPath(l)
	}

	report := CheckTimingCollisions(direct, c)
	if report.Safe() {
		return &Plan{
			Assignment:    asg,
			Paths:         direct,
			Method:        MethodDirect,
			MinSeparation: report.MinSeparation,
			Duration:      transitionDuration(direct, c.MaxVelocity),
		}, nil
	}

	segs := make([]geometry.PathSegment, len(legs))
	for i, l := range legs {
		segs[i] = l.seg
	}
	problem := qubo.NewTimingProblem(segs, c.DelaySteps, c.MinSeparation, c.Samples)
	steps, outcome := solver.SolveDelays(ctx, oracle, problem, opts)

	staggered := make([]DronePath, len(legs))
	delays, width := launchSchedule(steps, c.DelaySteps)
	for i, l := range legs {
		staggered[i] = staggeredPath(l, delays[i], width)
	}

	verified := CheckTimingCollisions(staggered, c)
	minSep := verified.MinSeparation
	if !verified.Safe() {
		minSep = 0
	}
	return &Plan{
		Assignment:    asg,
		Paths:         staggered,
		Method:        MethodStaggered,
		MinSeparation: minSep,
		Duration:      transitionDuration(staggered, c.MaxVelocity),
		Solve:         outcome,
	}, nil
}

func directPath(l leg) DronePath {
	return DronePath{
		Vehicle:  l.vehicle,
		Duration: 1,
		Waypoints: []Waypoint{
			{Position: l.seg.Start, Time: 0},
			{Position: l.seg.End, Time: 1},
		},
	}
}

func staggeredPath(l leg, delay, width float64) DronePath {
	return DronePath{
		Vehicle:  l.vehicle,
		Delay:    delay,
		Duration: width,
		Waypoints: []Waypoint{
			{Position: l.seg.Start, Time: 0, Hold: delay},
			{Position: l.seg.End, Time: delay + width},
		},
	}
}

// launchSchedule converts solved delay steps into a normalized start time
// per vehicle plus the shared window width, sized off the latest launch so
// the slowest vehicle still lands inside the transition. A degenerate
// schedule collapses to an immediate, instantaneous move.
func launchSchedule(steps []int, delaySteps int) (delays []float64, width float64) {
	delays = make([]float64, len(steps))
	if len(steps) == 0 || delaySteps <= 1 {
		return delays, 0
	}
	maxStep := 0
	for _, s := range steps {
		if s > maxStep {
			maxStep = s
		}
	}
	width = 1 / float64(maxStep+2)
	for i, s := range steps {
		delays[i] = float64(s) * width
	}
	return delays, width
}

// transitionDuration recommends a wall-clock length for the transition such
// that no vehicle exceeds the velocity cap inside its launch window.
func transitionDuration(paths []DronePath, maxVelocity float64) time.Duration {
	if maxVelocity <= 0 {
		return 0
	}
	var seconds float64
	for _, p := range paths {
		o := p.Offset()
		width := p.Duration
		if width <= 0 {
			width = 1
		}
		if need := geometry.Distance(o.Start, o.End) / (width * maxVelocity); need > seconds {
			seconds = need
		}
	}
	return time.Duration(seconds * float64(time.Second))
}
