// Package solver decides, per planning call, whether a cost model is worth
// submitting to the external sampling oracle and falls back to classical
// greedy heuristics whenever the oracle is skipped, fails, or returns no
// usable candidate.
package solver

import (
	"context"
	"math"
	"time"

	"dronechoreo/internal/logging"
	"dronechoreo/internal/qubo"
)

// Solution methods reported in Outcome.Method.
const (
	MethodSampling      = "qubo-sampling"
	MethodGreedyNearest = "greedy-nearest"
	MethodGreedyStagger = "greedy-stagger"
)

const (
	// DefaultVariableCeiling caps the model size submitted to the oracle.
	DefaultVariableCeiling = 32
	// DefaultSamples is the number of candidate draws requested per call.
	DefaultSamples = 200
	// MinTimeBudget is the smallest budget worth spending on an oracle
	// round-trip; anything below goes straight to the greedy path.
	MinTimeBudget = 100 * time.Millisecond
)

// Options bound one solve call. The zero value never uses the oracle since
// its time budget is below MinTimeBudget.
type Options struct {
	VariableCeiling int
	TimeBudget      time.Duration
	Samples         int
}

func (o Options) withDefaults() Options {
	if o.VariableCeiling <= 0 {
		o.VariableCeiling = DefaultVariableCeiling
	}
	if o.Samples <= 0 {
		o.Samples = DefaultSamples
	}
	return o
}

// Outcome describes how a solution was produced.
type Outcome struct {
	Method     string
	UsedOracle bool
	Elapsed    time.Duration
}

// SolveAssignment picks a vehicle-to-slot assignment for the encoded
// problem. The oracle result is used only when a drawn candidate decodes to
// a valid assignment; otherwise the nearest-slot greedy answers.
func SolveAssignment(ctx context.Context, oracle Oracle, p *qubo.AssignmentProblem, opts Options) (qubo.Assignment, Outcome) {
	opts = opts.withDefaults()
	start := time.Now()

	bits, ok := bestSample(ctx, oracle, p.Model, opts, func(b qubo.Bits) bool {
		_, valid := p.Decode(b)
		return valid
	})
	if ok {
		asg, _ := p.Decode(bits)
		return asg, Outcome{Method: MethodSampling, UsedOracle: true, Elapsed: time.Since(start)}
	}
	return GreedyNearestAssignment(p), Outcome{Method: MethodGreedyNearest, Elapsed: time.Since(start)}
}

// SolveDelays picks one launch window per vehicle for the encoded timing
// problem, falling back to the sequential stagger greedy.
func SolveDelays(ctx context.Context, oracle Oracle, p *qubo.TimingProblem, opts Options) ([]int, Outcome) {
	opts = opts.withDefaults()
	start := time.Now()

	bits, ok := bestSample(ctx, oracle, p.Model, opts, func(b qubo.Bits) bool {
		_, valid := p.Decode(b)
		return valid
	})
	if ok {
		steps, _ := p.Decode(bits)
		return steps, Outcome{Method: MethodSampling, UsedOracle: true, Elapsed: time.Since(start)}
	}
	return GreedyStaggerDelays(p), Outcome{Method: MethodGreedyStagger, Elapsed: time.Since(start)}
}

// bestSample runs one oracle round-trip and returns the lowest-energy valid
// candidate. ok is false when the oracle is skipped, fails, or yields no
// valid draw; the caller then owns the classical fallback.
func bestSample(ctx context.Context, oracle Oracle, m *qubo.Model, opts Options, valid func(qubo.Bits) bool) (qubo.Bits, bool) {
	if oracle == nil {
		return nil, false
	}
	if m.NumVariables() > opts.VariableCeiling || opts.TimeBudget < MinTimeBudget {
		return nil, false
	}
	log := logging.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, opts.TimeBudget)
	defer cancel()

	state, err := oracle.Execute(ctx, m)
	if err != nil {
		log.Error("oracle execution failed, using classical fallback", "err", err)
		return nil, false
	}
	draws, err := oracle.Measure(state, opts.Samples)
	if err != nil {
		log.Error("oracle measurement failed, using classical fallback", "err", err)
		return nil, false
	}

	best := math.Inf(1)
	var bestBits qubo.Bits
	for _, bits := range draws {
		if !valid(bits) {
			continue
		}
		if e := m.Energy(bits); e < best {
			best = e
			bestBits = bits
		}
	}
	return bestBits, bestBits != nil
}

// GreedyNearestAssignment assigns each vehicle, in id order, the nearest
// slot not yet taken. With more vehicles than slots the overflow vehicles
// stay unassigned.
func GreedyNearestAssignment(p *qubo.AssignmentProblem) qubo.Assignment {
	asg := make(qubo.Assignment, p.Vehicles)
	used := make([]bool, p.Slots)
	for v := 0; v < p.Vehicles; v++ {
		best := -1
		for s := 0; s < p.Slots; s++ {
			if used[s] {
				continue
			}
			if best < 0 || p.Distance(v, s) < p.Distance(v, best) {
				best = s
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		asg[v] = best
	}
	return asg
}

// GreedyStaggerDelays schedules vehicles in id order. Each vehicle takes the
// window that maximizes its worst-case separation from every vehicle already
// scheduled, with ties going to the earlier window.
func GreedyStaggerDelays(p *qubo.TimingProblem) []int {
	steps := make([]int, p.Model.Rows())
	for v := range steps {
		bestStep := 0
		bestSep := math.Inf(-1)
		for k := 0; k < p.Steps; k++ {
			worst := math.Inf(1)
			for u := 0; u < v; u++ {
				if sep := p.Separation(p.Samples, v, k, u, steps[u]); sep < worst {
					worst = sep
				}
			}
			if worst > bestSep {
				bestSep = worst
				bestStep = k
			}
		}
		steps[v] = bestStep
	}
	return steps
}
