package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"dronechoreo/internal/qubo"
)

// State is the opaque handle an Oracle hands back from Execute. Callers pass
// it to Measure unchanged and never inspect it.
type State any

// Oracle is the external combinatorial sampling backend. Execute submits a
// cost model and returns a handle; Measure draws independent candidate
// bit-assignments from it. Implementations may be remote services, so every
// error is treated as recoverable by the callers in this package.
type Oracle interface {
	Execute(ctx context.Context, model *qubo.Model) (State, error)
	Measure(state State, shots int) ([]qubo.Bits, error)
}

// AnnealOracle samples candidates with seeded simulated annealing. It stands
// in for a remote sampling service during local runs and demos.
type AnnealOracle struct {
	Sweeps int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAnnealOracle returns an oracle with a deterministic sample stream for
// the given seed.
func NewAnnealOracle(seed int64) *AnnealOracle {
	return &AnnealOracle{Sweeps: 64, rng: rand.New(rand.NewSource(seed))}
}

type annealState struct {
	model *qubo.Model
}

// Execute validates the model and prepares a sampling handle.
func (o *AnnealOracle) Execute(ctx context.Context, model *qubo.Model) (State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if model == nil || model.NumVariables() == 0 {
		return nil, fmt.Errorf("anneal: empty model")
	}
	return &annealState{model: model}, nil
}

// Measure runs one annealing sweep per shot and returns the final candidate
// of each.
func (o *AnnealOracle) Measure(state State, shots int) ([]qubo.Bits, error) {
	st, ok := state.(*annealState)
	if !ok {
		return nil, fmt.Errorf("anneal: state %T was not produced by this oracle", state)
	}
	if shots < 1 {
		shots = 1
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	draws := make([]qubo.Bits, 0, shots)
	for i := 0; i < shots; i++ {
		draws = append(draws, o.annealOnce(st.model))
	}
	return draws, nil
}

func (o *AnnealOracle) annealOnce(m *qubo.Model) qubo.Bits {
	n := m.NumVariables()
	bits := make(qubo.Bits, n)
	for i := range bits {
		bits[i] = uint8(o.rng.Intn(2))
	}

	sweeps := o.Sweeps
	if sweeps <= 0 {
		sweeps = 64
	}
	temp := hottest(m)
	for s := 0; s < sweeps; s++ {
		for i := 0; i < n; i++ {
			v := o.rng.Intn(n)
			d := flipDelta(m, bits, v)
			if d <= 0 || o.rng.Float64() < math.Exp(-d/temp) {
				bits[v] ^= 1
			}
		}
		temp *= 0.9
	}
	return bits
}

// flipDelta returns the energy change of flipping variable v in bits.
func flipDelta(m *qubo.Model, bits qubo.Bits, v int) float64 {
	sum := m.At(v, v)
	for b := 0; b < m.NumVariables(); b++ {
		if b != v && bits[b] != 0 {
			sum += m.At(v, b) + m.At(b, v)
		}
	}
	if bits[v] != 0 {
		return -sum
	}
	return sum
}

// hottest picks a starting temperature on the scale of the model's largest
// coefficient so early sweeps can cross any penalty barrier.
func hottest(m *qubo.Model) float64 {
	max := 0.0
	n := m.NumVariables()
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			if abs := math.Abs(m.At(a, b)); abs > max {
				max = abs
			}
		}
	}
	if max == 0 {
		return 1
	}
	return max
}
