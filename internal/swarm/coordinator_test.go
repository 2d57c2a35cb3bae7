package swarm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"dronechoreo/internal/geometry"
	"dronechoreo/internal/planner"
	"dronechoreo/internal/qubo"
	"dronechoreo/internal/solver"
	"dronechoreo/internal/wire"
)

func lineFleet() []Vehicle {
	return []Vehicle{
		{ID: 0, Position: geometry.Position3D{X: -6}},
		{ID: 1, Position: geometry.Position3D{X: -2}},
		{ID: 2, Position: geometry.Position3D{X: 2}},
		{ID: 3, Position: geometry.Position3D{X: 6}},
	}
}

func diamond() planner.Formation {
	return planner.Formation{Name: "diamond", Slots: []geometry.Position3D{
		{Z: 25}, {X: -8, Z: 15}, {X: 8, Z: 15}, {Z: 5},
	}}
}

// testClock returns an injectable clock and a function to move it forward.
func testClock() (func() time.Time, func(time.Duration)) {
	cur := time.Date(2026, 6, 21, 22, 0, 0, 0, time.UTC)
	return func() time.Time { return cur },
		func(d time.Duration) { cur = cur.Add(d) }
}

func newTestCoordinator(now func() time.Time) *Coordinator {
	return NewCoordinator(lineFleet(), diamond(), planner.DefaultConstraints(), nil, solver.Options{}, 0, now)
}

func stateByID(t *testing.T, c *Coordinator, id int) VehicleState {
	t.Helper()
	for _, st := range c.State() {
		if st.ID == id {
			return st
		}
	}
	t.Fatalf("vehicle %d missing from state snapshot", id)
	return VehicleState{}
}

func TestHandleNotificationMomentaryDeparture(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	dec, err := c.HandleNotification(wire.Notification{
		Vehicle:  1,
		Event:    wire.LowBattery{Percent: 18},
		Duration: wire.Duration{Class: wire.Momentary, Seconds: 10},
		Position: geometry.Position3D{X: -2, Z: 3},
	})
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if !dec.Departed || dec.ReplanNeeded {
		t.Fatalf("decision = %+v, want departed without replan", dec)
	}
	if dec.Hold == nil {
		t.Fatal("short departure must yield a hold command")
	}
	if !dec.Hold.Broadcast() {
		t.Errorf("hold targets = %v, want broadcast", dec.Hold.Targets)
	}
	hold, ok := dec.Hold.Action.(wire.Hold)
	if !ok || hold.Seconds != 10 {
		t.Errorf("hold action = %#v, want 10s hold", dec.Hold.Action)
	}

	gone := stateByID(t, c, 1)
	if gone.Phase != Departed || gone.Cause != wire.CodeLowBattery {
		t.Errorf("vehicle 1 = %+v, want departed on %s", gone, wire.CodeLowBattery)
	}
	if gone.Since != now() {
		t.Errorf("Since = %v, want %v", gone.Since, now())
	}
	until := now().Add(10 * time.Second)
	for _, id := range []int{0, 2, 3} {
		st := stateByID(t, c, id)
		if st.Phase != Holding {
			t.Errorf("vehicle %d phase = %s, want holding", id, st.Phase)
		}
		if !st.HoldUntil.Equal(until) {
			t.Errorf("vehicle %d hold until %v, want %v", id, st.HoldUntil, until)
		}
	}
}

func TestHandleNotificationExtendedDeparture(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	dec, err := c.HandleNotification(wire.Notification{
		Vehicle:  2,
		Event:    wire.SensorFault{Sensor: "gps"},
		Duration: wire.Duration{Class: wire.Extended},
	})
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if !dec.Departed || !dec.ReplanNeeded || dec.Hold != nil {
		t.Fatalf("decision = %+v, want departure flagged for replan", dec)
	}
	if dec.Priority != PriorityUrgent {
		t.Errorf("priority = %s, want urgent", dec.Priority)
	}
	for _, id := range []int{0, 1, 3} {
		if st := stateByID(t, c, id); st.Phase != Active {
			t.Errorf("vehicle %d phase = %s, want active", id, st.Phase)
		}
	}
}

func TestHandleNotificationBriefBeyondCeiling(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	dec, err := c.HandleNotification(wire.Notification{
		Vehicle:  0,
		Event:    wire.PointOfInterest{Label: "ridge"},
		Duration: wire.Duration{Class: wire.Brief, Seconds: 120},
	})
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if dec.Hold != nil || !dec.ReplanNeeded {
		t.Fatalf("decision = %+v, want replan once the estimate exceeds the hold ceiling", dec)
	}
}

func TestHandleNotificationInformational(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	pos := geometry.Position3D{X: 2.5, Y: 1, Z: 4}
	dec, err := c.HandleNotification(wire.Notification{
		Vehicle:  2,
		Event:    wire.HighWind{SpeedMPS: 5},
		Duration: wire.Duration{Class: wire.Momentary, Seconds: 3},
		Position: pos,
	})
	if err != nil {
		t.Fatalf("HandleNotification: %v", err)
	}
	if dec.Departed || dec.ReplanNeeded || dec.Hold != nil {
		t.Fatalf("decision = %+v, want a pure position update", dec)
	}
	st := stateByID(t, c, 2)
	if st.Phase != Active || st.Position != pos {
		t.Errorf("vehicle 2 = %+v, want active at %v", st, pos)
	}
	if !st.LastSeen.Equal(now()) {
		t.Errorf("LastSeen = %v, want %v", st.LastSeen, now())
	}
}

func TestHandleNotificationRejoin(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	if _, err := c.HandleNotification(wire.Notification{
		Vehicle:  3,
		Event:    wire.CriticalBattery{Percent: 4},
		Duration: wire.Duration{Class: wire.Extended},
	}); err != nil {
		t.Fatalf("departure: %v", err)
	}

	dec, err := c.HandleNotification(wire.Notification{Vehicle: 3, Event: wire.Rejoin{}})
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if !dec.ReplanNeeded || dec.Departed {
		t.Fatalf("decision = %+v, want rejoin flagged for replan", dec)
	}
	st := stateByID(t, c, 3)
	if st.Phase != Returning || st.Cause != "" {
		t.Errorf("vehicle 3 = %+v, want returning with cause cleared", st)
	}

	// A rejoin from a vehicle that never left changes nothing.
	dec, err = c.HandleNotification(wire.Notification{Vehicle: 0, Event: wire.Rejoin{}})
	if err != nil {
		t.Fatalf("active rejoin: %v", err)
	}
	if dec.ReplanNeeded {
		t.Errorf("decision = %+v, want no replan for an active vehicle", dec)
	}
}

func TestHandleNotificationUnknownVehicle(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	if _, err := c.HandleNotification(wire.Notification{Vehicle: 9, Event: wire.ReturnHome{}}); err == nil {
		t.Fatal("expected error for a vehicle outside the roster")
	}
}

func TestHandleCommandTransitions(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	c.HandleCommand(wire.Command{Action: wire.Hold{Seconds: 15}})
	until := now().Add(15 * time.Second)
	for _, st := range c.State() {
		if st.Phase != Holding || !st.HoldUntil.Equal(until) {
			t.Errorf("vehicle %d = %+v, want holding until %v", st.ID, st, until)
		}
	}

	c.HandleCommand(wire.Command{Targets: []int{0}, Action: wire.Resume{}})
	if st := stateByID(t, c, 0); st.Phase != Active || !st.HoldUntil.IsZero() {
		t.Errorf("vehicle 0 = %+v, want active again", st)
	}
	if st := stateByID(t, c, 1); st.Phase != Holding {
		t.Errorf("vehicle 1 phase = %s, want still holding", st.Phase)
	}

	c.HandleCommand(wire.Command{Targets: []int{3}, Action: wire.Land{}})
	if st := stateByID(t, c, 3); st.Phase != Offline || st.Cause != wire.CodeLand {
		t.Errorf("vehicle 3 = %+v, want offline after land", st)
	}

	c.HandleCommand(wire.Command{Targets: []int{2}, Action: wire.ReturnToBase{}})
	if st := stateByID(t, c, 2); st.Phase != Offline || st.Cause != wire.CodeReturnToBase {
		t.Errorf("vehicle 2 = %+v, want offline after return to base", st)
	}

	// Unknown targets are skipped, not an error.
	c.HandleCommand(wire.Command{Targets: []int{42}, Action: wire.Resume{}})
}

func TestExpireHolds(t *testing.T) {
	now, advance := testClock()
	c := newTestCoordinator(now)

	if _, err := c.HandleNotification(wire.Notification{
		Vehicle:  1,
		Event:    wire.LowBattery{Percent: 18},
		Duration: wire.Duration{Class: wire.Momentary, Seconds: 10},
	}); err != nil {
		t.Fatalf("departure: %v", err)
	}

	advance(5 * time.Second)
	if resumed := c.ExpireHolds(); len(resumed) != 0 {
		t.Fatalf("resumed %v before the hold window passed", resumed)
	}

	advance(6 * time.Second)
	resumed := c.ExpireHolds()
	if diff := cmp.Diff([]int{0, 2, 3}, resumed); diff != "" {
		t.Fatalf("resumed mismatch (-want +got):\n%s", diff)
	}
	for _, id := range resumed {
		st := stateByID(t, c, id)
		if st.Phase != Active || !st.HoldUntil.IsZero() {
			t.Errorf("vehicle %d = %+v, want active with hold cleared", id, st)
		}
	}
	if st := stateByID(t, c, 1); st.Phase != Departed {
		t.Errorf("vehicle 1 phase = %s, want still departed", st.Phase)
	}
}

func TestReplanReducedRoster(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	if _, err := c.HandleNotification(wire.Notification{
		Vehicle:  3,
		Event:    wire.ReturnHome{},
		Duration: wire.Duration{Class: wire.Extended},
	}); err != nil {
		t.Fatalf("departure: %v", err)
	}

	res := c.Replan(context.Background())
	if res.Generation != 1 {
		t.Fatalf("generation = %d, want 1", res.Generation)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, res.Active); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3}, res.Departed); diff != "" {
		t.Errorf("departed mismatch (-want +got):\n%s", diff)
	}
	// Three vehicles keep the three slots nearest their centroid: the
	// diamond's bottom and both wings, never the far apex.
	if diff := cmp.Diff([]int{1, 2, 3}, res.SelectedSlots); diff != "" {
		t.Errorf("selected slots mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(qubo.Assignment{0: 3, 1: 1, 2: 2}, res.Assignments); diff != "" {
		t.Errorf("assignment mismatch (-want +got):\n%s", diff)
	}
	if res.Method != solver.MethodGreedyNearest || res.UsedOracle {
		t.Errorf("method = %s (oracle %v), want classical fallback without an oracle", res.Method, res.UsedOracle)
	}
}

func TestReplanAfterRejoin(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	if _, err := c.HandleNotification(wire.Notification{
		Vehicle:  3,
		Event:    wire.ReturnHome{},
		Duration: wire.Duration{Class: wire.Extended},
	}); err != nil {
		t.Fatalf("departure: %v", err)
	}
	c.Replan(context.Background())

	if _, err := c.HandleNotification(wire.Notification{Vehicle: 3, Event: wire.Rejoin{}}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	res := c.Replan(context.Background())
	if res.Generation != 2 {
		t.Fatalf("generation = %d, want 2", res.Generation)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3}, res.Active); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3}, res.SelectedSlots); diff != "" {
		t.Errorf("selected slots mismatch (-want +got):\n%s", diff)
	}
	if len(res.Departed) != 0 {
		t.Errorf("departed = %v, want none after rejoin", res.Departed)
	}
	if st := stateByID(t, c, 3); st.Phase != Active {
		t.Errorf("vehicle 3 phase = %s, want active after replan", st.Phase)
	}
}

func TestReplanAbsorbsHolding(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	if _, err := c.HandleNotification(wire.Notification{
		Vehicle:  0,
		Event:    wire.LowBattery{Percent: 18},
		Duration: wire.Duration{Class: wire.Momentary, Seconds: 10},
	}); err != nil {
		t.Fatalf("departure: %v", err)
	}

	res := c.Replan(context.Background())
	if diff := cmp.Diff([]int{1, 2, 3}, res.Active); diff != "" {
		t.Errorf("active mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, res.Holding); diff != "" {
		t.Errorf("holding mismatch (-want +got):\n%s", diff)
	}
	for _, id := range []int{1, 2, 3} {
		if st := stateByID(t, c, id); st.Phase != Active || !st.HoldUntil.IsZero() {
			t.Errorf("vehicle %d = %+v, want active after replan", id, st)
		}
	}
}

func TestReplanEmptyRoster(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	c.HandleCommand(wire.Command{Action: wire.Land{}})
	res := c.Replan(context.Background())
	if len(res.Active) != 0 || len(res.Assignments) != 0 || len(res.SelectedSlots) != 0 {
		t.Fatalf("result = %+v, want nothing to assign", res)
	}
}

func TestReplanGenerationsConcurrent(t *testing.T) {
	now, _ := testClock()
	c := newTestCoordinator(now)

	const calls = 16
	gens := make([]uint64, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gens[i] = c.Replan(context.Background()).Generation
		}(i)
	}
	wg.Wait()

	if got := c.Generation(); got != calls {
		t.Fatalf("generation = %d, want %d", got, calls)
	}
	seen := make(map[uint64]bool, calls)
	for _, g := range gens {
		if g == 0 || g > calls {
			t.Errorf("generation %d out of range 1..%d", g, calls)
		}
		if seen[g] {
			t.Errorf("generation %d handed out twice", g)
		}
		seen[g] = true
	}
}

func TestSelectSlots(t *testing.T) {
	f := diamond()
	// Symmetric pair around the origin so the wing slots tie exactly.
	active := []geometry.Position3D{{X: -1}, {X: 1}}

	cases := []struct {
		name  string
		count int
		want  []int
	}{
		{"full roster", 4, []int{0, 1, 2, 3}},
		{"oversized roster", 6, []int{0, 1, 2, 3}},
		{"three of four", 3, []int{1, 2, 3}},
		{"two of four ties to lower index", 2, []int{1, 3}},
		{"nobody active", 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectSlots(active, f, tc.count)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("slots mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewCoordinatorDefaults(t *testing.T) {
	c := NewCoordinator([]Vehicle{{ID: 7}}, diamond(), planner.DefaultConstraints(), nil, solver.Options{}, 0, nil)
	if c.holdCeiling != DefaultHoldCeiling {
		t.Errorf("hold ceiling = %v, want %v", c.holdCeiling, DefaultHoldCeiling)
	}
	st := stateByID(t, c, 7)
	if st.Profile != DefaultProfile() {
		t.Errorf("profile = %+v, want defaults filled in", st.Profile)
	}
	if st.Phase != Active {
		t.Errorf("phase = %s, want active", st.Phase)
	}
}
