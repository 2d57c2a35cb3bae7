package swarm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dronechoreo/internal/geometry"
	"dronechoreo/internal/planner"
	"dronechoreo/internal/qubo"
	"dronechoreo/internal/solver"
	"dronechoreo/internal/wire"
)

// DefaultHoldCeiling is the longest reported event duration the swarm waits
// out in place. Anything longer reduces the roster instead.
const DefaultHoldCeiling = 30 * time.Second

// Decision is the outcome of handling one notification.
type Decision struct {
	Vehicle      int           `json:"vehicle"`
	Code         string        `json:"code"`
	Priority     Priority      `json:"priority"`
	Departed     bool          `json:"departed"`
	ReplanNeeded bool          `json:"replan_needed"`
	Hold         *wire.Command `json:"-"`
}

// AdaptationResult is the outcome of one replanning call.
type AdaptationResult struct {
	Generation    uint64          `json:"generation"`
	Assignments   qubo.Assignment `json:"assignments"`
	SelectedSlots []int           `json:"selected_slots"`
	Active        []int           `json:"active"`
	Holding       []int           `json:"holding,omitempty"`
	Departed      []int           `json:"departed,omitempty"`
	Method        string          `json:"method"`
	UsedOracle    bool            `json:"used_oracle"`
	Elapsed       time.Duration   `json:"elapsed"`
	// WasCancelled is kept for a future cancellation channel; nothing sets
	// it today.
	WasCancelled bool `json:"was_cancelled"`
}

// Coordinator owns the live roster and the replan generation counter.
// Snapshots it hands out are copies; all mutation happens under its lock
// through explicit transitions.
type Coordinator struct {
	oracle      solver.Oracle
	opts        solver.Options
	constraints planner.Constraints
	holdCeiling time.Duration
	now         func() time.Time

	generation atomic.Uint64

	mu        sync.Mutex
	formation planner.Formation
	vehicles  map[int]VehicleState
}

// NewCoordinator builds a coordinator with every fleet vehicle active. A
// zero holdCeiling falls back to DefaultHoldCeiling, a nil now to time.Now.
func NewCoordinator(fleet []Vehicle, formation planner.Formation, constraints planner.Constraints, oracle solver.Oracle, opts solver.Options, holdCeiling time.Duration, now func() time.Time) *Coordinator {
	if holdCeiling <= 0 {
		holdCeiling = DefaultHoldCeiling
	}
	if now == nil {
		now = time.Now
	}
	c := &Coordinator{
		oracle:      oracle,
		opts:        opts,
		constraints: constraints,
		holdCeiling: holdCeiling,
		now:         now,
		formation:   formation,
		vehicles:    make(map[int]VehicleState, len(fleet)),
	}
	for _, v := range fleet {
		profile := v.Profile
		if profile == (Profile{}) {
			profile = DefaultProfile()
		}
		c.vehicles[v.ID] = VehicleState{ID: v.ID, Phase: Active, Position: v.Position, Profile: profile}
	}
	return c
}

// HandleNotification applies one vehicle event to the roster. A departure
// with a short enough estimated duration yields a broadcast hold command in
// the decision; longer departures flag a replan instead.
func (c *Coordinator) HandleNotification(n wire.Notification) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.vehicles[n.Vehicle]
	if !ok {
		return Decision{}, fmt.Errorf("vehicle %d is not in the roster", n.Vehicle)
	}
	now := c.now()
	st.Position = n.Position
	st.LastSeen = now

	code := ""
	if n.Event != nil {
		code = n.Event.Code()
	}
	cls := st.Profile.Classify(n.Event)
	dec := Decision{Vehicle: n.Vehicle, Code: code, Priority: cls.Priority}

	if _, rejoin := n.Event.(wire.Rejoin); rejoin {
		if st.Phase == Departed {
			st.Phase = Returning
			st.Cause = ""
			dec.ReplanNeeded = true
		}
		c.vehicles[n.Vehicle] = st
		return dec, nil
	}

	if cls.Departs && (st.Phase == Active || st.Phase == Holding || st.Phase == Returning) {
		st.Phase = Departed
		st.Cause = code
		st.Since = now
		dec.Departed = true

		if est, known := n.Duration.Estimate(); known && est <= c.holdCeiling {
			dec.Hold = &wire.Command{Action: wire.Hold{Seconds: est.Seconds()}}
			until := now.Add(est)
			for id, other := range c.vehicles {
				if id != n.Vehicle && other.Phase == Active {
					other.Phase = Holding
					other.HoldUntil = until
					c.vehicles[id] = other
				}
			}
		} else {
			dec.ReplanNeeded = true
		}
	}
	c.vehicles[n.Vehicle] = st
	return dec, nil
}

// HandleCommand applies a ground command to the roster, mirroring what the
// addressed vehicles will do.
func (c *Coordinator) HandleCommand(cmd wire.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	apply := func(st VehicleState) VehicleState {
		switch a := cmd.Action.(type) {
		case wire.Hold:
			if st.Phase == Active {
				st.Phase = Holding
				st.HoldUntil = now.Add(time.Duration(a.Seconds * float64(time.Second)))
			}
		case wire.Resume:
			if st.Phase == Holding {
				st.Phase = Active
				st.HoldUntil = time.Time{}
			}
		case wire.Land, wire.ReturnToBase:
			st.Phase = Offline
			st.Cause = cmd.Action.Code()
			st.Since = now
		}
		return st
	}

	if cmd.Broadcast() {
		for id, st := range c.vehicles {
			c.vehicles[id] = apply(st)
		}
		return
	}
	for _, id := range cmd.Targets {
		if st, ok := c.vehicles[id]; ok {
			c.vehicles[id] = apply(st)
		}
	}
}

// ExpireHolds returns holding vehicles whose hold window has passed to the
// active phase, reporting which ids resumed.
func (c *Coordinator) ExpireHolds() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var resumed []int
	for id, st := range c.vehicles {
		if st.Phase == Holding && !st.HoldUntil.After(now) {
			st.Phase = Active
			st.HoldUntil = time.Time{}
			c.vehicles[id] = st
			resumed = append(resumed, id)
		}
	}
	sort.Ints(resumed)
	return resumed
}

// SetFormation switches the target formation used by subsequent replans.
func (c *Coordinator) SetFormation(f planner.Formation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.formation = f
}

// Formation returns the current target formation.
func (c *Coordinator) Formation() planner.Formation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.formation
}

// Generation returns the latest replan generation handed out.
func (c *Coordinator) Generation() uint64 {
	return c.generation.Load()
}

// State returns a snapshot of every vehicle, ordered by id.
func (c *Coordinator) State() []VehicleState {
	c.mu.Lock()
	defer c.mu.Unlock()

	states := make([]VehicleState, 0, len(c.vehicles))
	for _, st := range c.vehicles {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Replan recomputes the assignment for the current roster. Every call takes
// a fresh generation; callers must discard results whose generation is
// older than the newest they have seen. Returning and holding vehicles
// rejoin the active set here.
func (c *Coordinator) Replan(ctx context.Context) *AdaptationResult {
	gen := c.generation.Add(1)
	start := time.Now()

	c.mu.Lock()
	var activeIDs, holding, departed []int
	for id, st := range c.vehicles {
		switch st.Phase {
		case Holding:
			holding = append(holding, id)
			st.Phase = Active
			st.HoldUntil = time.Time{}
			c.vehicles[id] = st
			activeIDs = append(activeIDs, id)
		case Returning:
			st.Phase = Active
			c.vehicles[id] = st
			activeIDs = append(activeIDs, id)
		case Active:
			activeIDs = append(activeIDs, id)
		case Departed:
			departed = append(departed, id)
		}
	}
	sort.Ints(activeIDs)
	sort.Ints(holding)
	sort.Ints(departed)
	positions := make([]geometry.Position3D, len(activeIDs))
	for i, id := range activeIDs {
		positions[i] = c.vehicles[id].Position
	}
	formation := c.formation
	c.mu.Unlock()

	selected := SelectSlots(positions, formation, len(activeIDs))
	slotPositions := make([]geometry.Position3D, len(selected))
	for i, s := range selected {
		slotPositions[i] = formation.Slots[s]
	}

	problem := qubo.NewAssignmentProblem(positions, slotPositions)
	rows, outcome := solver.SolveAssignment(ctx, c.oracle, problem, c.opts)

	assignments := make(qubo.Assignment, len(rows))
	for row, col := range rows {
		if row >= len(activeIDs) || col >= len(selected) {
			continue
		}
		assignments[activeIDs[row]] = selected[col]
	}

	return &AdaptationResult{
		Generation:    gen,
		Assignments:   assignments,
		SelectedSlots: selected,
		Active:        activeIDs,
		Holding:       holding,
		Departed:      departed,
		Method:        outcome.Method,
		UsedOracle:    outcome.UsedOracle,
		Elapsed:       time.Since(start),
	}
}

// SelectSlots picks which formation slots a shrunken roster keeps: all of
// them when the roster covers the formation, otherwise the activeCount
// slots nearest the active vehicles' centroid, ties going to the lower slot
// index. The result is ascending.
func SelectSlots(active []geometry.Position3D, f planner.Formation, activeCount int) []int {
	n := len(f.Slots)
	if activeCount <= 0 {
		return nil
	}
	if activeCount >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}

	centroid := geometry.Centroid(active)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		da := geometry.Distance(f.Slots[idx[a]], centroid)
		db := geometry.Distance(f.Slots[idx[b]], centroid)
		if da != db {
			return da < db
		}
		return idx[a] < idx[b]
	})
	selected := append([]int(nil), idx[:activeCount]...)
	sort.Ints(selected)
	return selected
}
