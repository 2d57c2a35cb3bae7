package choreo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"dronechoreo/internal/config"
	"dronechoreo/internal/geometry"
	"dronechoreo/internal/logging"
	"dronechoreo/internal/planner"
	"dronechoreo/internal/qubo"
	"dronechoreo/internal/solver"
	"dronechoreo/internal/swarm"
	"dronechoreo/internal/telemetry"
	"dronechoreo/internal/wire"
)

// Runner plays a show: it feeds vehicle frames to the swarm coordinator,
// turns replans into transition plans, and exports every step as rows.
type Runner struct {
	session string
	coord   *swarm.Coordinator
	oracle  solver.Oracle
	opts    solver.Options
	cons    planner.Constraints
	writer  RowWriter
	tick    time.Duration
	now     func() time.Time

	// wmu serializes writer access; frames may arrive from the loop and
	// the admin surface at once.
	wmu sync.Mutex

	mu       sync.Mutex
	show     []planner.Formation
	showIdx  int
	step     time.Duration
	lastStep time.Time
	lastPlan *planner.Plan
	planGen  uint64
}

// NewRunner wires a show from a mission config. The fleet starts in the
// first show formation; session may be empty to generate one; now may be
// nil for wall-clock time.
func NewRunner(session string, cfg *config.MissionConfig, oracle solver.Oracle, writer RowWriter, tick time.Duration, now func() time.Time) (*Runner, error) {
	show, err := cfg.ShowSequence()
	if err != nil {
		return nil, err
	}
	if len(show) == 0 {
		return nil, fmt.Errorf("mission %q has no formations to fly", cfg.Name)
	}
	opts, err := cfg.SolverOptions()
	if err != nil {
		return nil, err
	}
	ceiling, err := cfg.HoldCeilingDuration()
	if err != nil {
		return nil, err
	}
	if session == "" {
		session = telemetry.NewSessionID()
	}
	if tick <= 0 {
		tick = time.Second
	}
	if now == nil {
		now = time.Now
	}
	cons := cfg.Constraints()
	coord := swarm.NewCoordinator(cfg.Fleet(), show[0], cons, oracle, opts, ceiling, now)
	return &Runner{
		session: session,
		coord:   coord,
		oracle:  oracle,
		opts:    opts,
		cons:    cons,
		writer:  writer,
		tick:    tick,
		now:     now,
		show:    show,
	}, nil
}

// Session returns the row session id.
func (r *Runner) Session() string { return r.session }

// SetAutoStep makes the runner advance the show on its own every d. Zero
// disables automatic advancement.
func (r *Runner) SetAutoStep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.step = d
}

// Run plans the opening formation, then lets frames arriving on input and
// the hold-expiry ticker drive the swarm until the context is done or
// input is exhausted.
func (r *Runner) Run(ctx context.Context, input io.Reader) error {
	log := logging.FromContext(ctx)
	log.Info("starting show runner", "session", r.session, "tick", r.tick, "roster", len(r.coord.State()))

	r.replan(ctx, telemetry.TriggerShowStep, r.currentFormation().Name)
	r.mu.Lock()
	r.lastStep = r.now()
	r.mu.Unlock()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(input)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping show runner")
			return nil
		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-scanErr:
				default:
				}
				log.Info("input exhausted")
				return err
			}
			if line = strings.TrimSpace(line); line != "" {
				r.handleFrame(ctx, line)
			}
		case <-ticker.C:
			r.tickOnce(ctx)
		}
	}
}

func (r *Runner) currentFormation() planner.Formation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.show[r.showIdx]
}

func (r *Runner) handleFrame(ctx context.Context, frame string) {
	if _, err := r.Inject(ctx, frame); err != nil {
		logging.FromContext(ctx).Warn("dropping frame", "frame", frame, "err", err)
	}
}

// Inject decodes and applies one raw frame. Notification frames return the
// coordinator's decision; command frames return a zero decision.
func (r *Runner) Inject(ctx context.Context, frame string) (swarm.Decision, error) {
	frame = strings.TrimSpace(frame)
	switch {
	case strings.HasPrefix(frame, "EVT|"):
		n, err := wire.DecodeNotification(frame)
		if err != nil {
			return swarm.Decision{}, err
		}
		return r.Notify(ctx, n)
	case strings.HasPrefix(frame, "CMD|"):
		cmd, err := wire.DecodeCommand(frame)
		if err != nil {
			return swarm.Decision{}, err
		}
		r.Command(ctx, cmd)
		return swarm.Decision{}, nil
	default:
		return swarm.Decision{}, fmt.Errorf("frame %q is neither EVT nor CMD", frame)
	}
}

// Notify runs one vehicle notification through the coordinator, exporting
// the changed state, any hold broadcast, and a replan when one is needed.
func (r *Runner) Notify(ctx context.Context, n wire.Notification) (swarm.Decision, error) {
	log := logging.FromContext(ctx)
	dec, err := r.coord.HandleNotification(n)
	if err != nil {
		return dec, err
	}
	log.Info("vehicle notification",
		"vehicle", n.Vehicle, "code", dec.Code, "priority", dec.Priority,
		"departed", dec.Departed, "replan", dec.ReplanNeeded)

	now := r.now()
	gen := r.coord.Generation()
	if dec.Hold != nil {
		r.writeCommand(ctx, telemetry.NewCommandRow(r.session, *dec.Hold, now))
		r.writeStates(ctx, r.rosterRows(gen, n.Vehicle, dec.Priority, now))
	} else if row, ok := r.vehicleRow(gen, n.Vehicle, dec.Priority, now); ok {
		r.writeState(ctx, row)
	}
	if dec.ReplanNeeded {
		r.replan(ctx, telemetry.TriggerEvent, dec.Code)
	}
	return dec, nil
}

// Command applies an operator command and exports the states it changed.
func (r *Runner) Command(ctx context.Context, cmd wire.Command) {
	r.coord.HandleCommand(cmd)
	now := r.now()
	row := telemetry.NewCommandRow(r.session, cmd, now)
	logging.FromContext(ctx).Info("command applied", "targets", row.Targets, "code", row.Code)
	r.writeCommand(ctx, row)

	gen := r.coord.Generation()
	if cmd.Broadcast() {
		r.writeStates(ctx, r.rosterRows(gen, -1, "", now))
		return
	}
	for _, id := range cmd.Targets {
		if row, ok := r.vehicleRow(gen, id, "", now); ok {
			r.writeState(ctx, row)
		}
	}
}

// StepShow advances to the next show formation and replans into it. The
// show wraps around at the end.
func (r *Runner) StepShow(ctx context.Context) {
	r.mu.Lock()
	if len(r.show) == 0 {
		r.mu.Unlock()
		return
	}
	r.showIdx = (r.showIdx + 1) % len(r.show)
	idx := r.showIdx
	f := r.show[idx]
	r.lastStep = r.now()
	r.mu.Unlock()

	logging.FromContext(ctx).Info("advancing show", "formation", f.Name, "step", idx)
	r.coord.SetFormation(f)
	r.replan(ctx, telemetry.TriggerShowStep, f.Name)
}

func (r *Runner) tickOnce(ctx context.Context) {
	resumed := r.coord.ExpireHolds()
	now := r.now()
	if len(resumed) > 0 {
		logging.FromContext(ctx).Info("holds expired", "vehicles", resumed)
		gen := r.coord.Generation()
		rows := make([]telemetry.VehicleStateRow, 0, len(resumed))
		for _, id := range resumed {
			if row, ok := r.vehicleRow(gen, id, "", now); ok {
				rows = append(rows, row)
			}
		}
		r.writeStates(ctx, rows)
	}

	r.mu.Lock()
	due := r.step > 0 && now.Sub(r.lastStep) >= r.step
	r.mu.Unlock()
	if due {
		r.StepShow(ctx)
	}
}

func (r *Runner) replan(ctx context.Context, trigger, cause string) {
	log := logging.FromContext(ctx)
	res := r.coord.Replan(ctx)
	if latest := r.coord.Generation(); res.Generation < latest {
		log.Warn("dropping stale replan", "generation", res.Generation, "latest", latest)
		return
	}
	now := r.now()
	r.writeAdaptation(ctx, telemetry.NewAdaptationRow(r.session, trigger, cause, res, now))

	formation := r.coord.Formation()
	log.Info("replanned",
		"generation", res.Generation, "trigger", trigger, "cause", cause,
		"formation", formation.Name, "active", len(res.Active),
		"method", res.Method, "oracle", res.UsedOracle)

	plan, err := PlanAdaptation(ctx, r.oracle, r.coord.State(), formation, res, r.cons, r.opts)
	if err != nil {
		log.Error("transition planning failed", "generation", res.Generation, "err", err)
		return
	}
	r.setPlan(plan, res.Generation)
	if plan == nil {
		return
	}
	r.writeTransitions(ctx, telemetry.TransitionRows(r.session, res.Generation, formation.Name, plan, now))
	r.writeStates(ctx, r.rosterRows(res.Generation, -1, "", now))
}

// PlanAdaptation turns one adaptation result into a transition plan keyed
// by real vehicle ids. A nil plan with a nil error means the result had
// nothing to assign.
func PlanAdaptation(ctx context.Context, oracle solver.Oracle, states []swarm.VehicleState, formation planner.Formation, res *swarm.AdaptationResult, cons planner.Constraints, opts solver.Options) (*planner.Plan, error) {
	byID := make(map[int]geometry.Position3D, len(states))
	for _, st := range states {
		byID[st.ID] = st.Position
	}
	positions := make([]geometry.Position3D, len(res.Active))
	asg := make(qubo.Assignment, len(res.Active))
	for i, id := range res.Active {
		positions[i] = byID[id]
		if slot, ok := res.Assignments[id]; ok {
			asg[i] = slot
		}
	}
	if len(asg) == 0 {
		return nil, nil
	}
	plan, err := planner.PlanTransition(ctx, oracle, positions, formation, asg, cons, opts)
	if err != nil {
		return nil, err
	}
	renumberPlan(plan, res.Active)
	return plan, nil
}

// renumberPlan rewrites the planner's row indexes into real vehicle ids.
func renumberPlan(plan *planner.Plan, active []int) {
	for i := range plan.Paths {
		if v := plan.Paths[i].Vehicle; v >= 0 && v < len(active) {
			plan.Paths[i].Vehicle = active[v]
		}
	}
	asg := make(qubo.Assignment, len(plan.Assignment))
	for row, slot := range plan.Assignment {
		if row >= 0 && row < len(active) {
			asg[active[row]] = slot
		} else {
			asg[row] = slot
		}
	}
	plan.Assignment = asg
}

func (r *Runner) setPlan(p *planner.Plan, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen < r.planGen {
		return
	}
	r.lastPlan = p
	r.planGen = gen
}

// LatestPlan returns the most recent transition plan and its generation.
// The plan is nil before the first replan and after one with nothing to
// assign.
func (r *Runner) LatestPlan() (*planner.Plan, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPlan, r.planGen
}

// State returns a snapshot of the roster.
func (r *Runner) State() []swarm.VehicleState { return r.coord.State() }

// Generation returns the current replan generation.
func (r *Runner) Generation() uint64 { return r.coord.Generation() }

// Formation returns the formation currently flown.
func (r *Runner) Formation() planner.Formation { return r.coord.Formation() }

func (r *Runner) rosterRows(gen uint64, reporter int, prio swarm.Priority, at time.Time) []telemetry.VehicleStateRow {
	states := r.coord.State()
	rows := make([]telemetry.VehicleStateRow, 0, len(states))
	for _, st := range states {
		p := swarm.Priority("")
		if st.ID == reporter {
			p = prio
		}
		rows = append(rows, telemetry.NewVehicleStateRow(r.session, gen, st, p, at))
	}
	return rows
}

func (r *Runner) vehicleRow(gen uint64, id int, prio swarm.Priority, at time.Time) (telemetry.VehicleStateRow, bool) {
	for _, st := range r.coord.State() {
		if st.ID == id {
			return telemetry.NewVehicleStateRow(r.session, gen, st, prio, at), true
		}
	}
	return telemetry.VehicleStateRow{}, false
}

func (r *Runner) writeTransitions(ctx context.Context, rows []telemetry.TransitionRow) {
	if r.writer == nil || len(rows) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if bw, ok := r.writer.(batchTransitionWriter); ok {
		if err := bw.WriteTransitions(rows); err != nil {
			log.Error("transition batch write failed", "err", err)
		}
		return
	}
	for _, row := range rows {
		if err := r.writer.WriteTransition(row); err != nil {
			log.Error("transition write failed", "vehicle", row.Vehicle, "err", err)
		}
	}
}

func (r *Runner) writeStates(ctx context.Context, rows []telemetry.VehicleStateRow) {
	if r.writer == nil || len(rows) == 0 {
		return
	}
	log := logging.FromContext(ctx)
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if bw, ok := r.writer.(batchStateWriter); ok {
		if err := bw.WriteVehicleStates(rows); err != nil {
			log.Error("state batch write failed", "err", err)
		}
		return
	}
	for _, row := range rows {
		if err := r.writer.WriteVehicleState(row); err != nil {
			log.Error("state write failed", "vehicle", row.Vehicle, "err", err)
		}
	}
}

func (r *Runner) writeState(ctx context.Context, row telemetry.VehicleStateRow) {
	if r.writer == nil {
		return
	}
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if err := r.writer.WriteVehicleState(row); err != nil {
		logging.FromContext(ctx).Error("state write failed", "vehicle", row.Vehicle, "err", err)
	}
}

func (r *Runner) writeAdaptation(ctx context.Context, row telemetry.AdaptationRow) {
	if r.writer == nil {
		return
	}
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if err := r.writer.WriteAdaptation(row); err != nil {
		logging.FromContext(ctx).Error("adaptation write failed", "err", err)
	}
}

func (r *Runner) writeCommand(ctx context.Context, row telemetry.CommandRow) {
	if r.writer == nil {
		return
	}
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if err := r.writer.WriteCommand(row); err != nil {
		logging.FromContext(ctx).Error("command write failed", "err", err)
	}
}
