package qubo

import (
	"gonum.org/v1/gonum/floats"

	"dronechoreo/internal/geometry"
)

// AssignmentProblem encodes "which vehicle flies to which slot" with total
// travel distance as the objective. Each vehicle row carries a hard one-hot
// penalty; slot columns carry a softer one, since slots may legitimately
// stay empty when a formation has more slots than vehicles.
type AssignmentProblem struct {
	*Model
	Vehicles int
	Slots    int
	Lambda   float64

	dist []float64 // vehicle × slot travel distances, row-major
}

// NewAssignmentProblem builds the assignment-shape model for the given
// vehicle positions and formation slots.
func NewAssignmentProblem(current, slots []geometry.Position3D) *AssignmentProblem {
	nv, ns := len(current), len(slots)
	p := &AssignmentProblem{
		Model:    New(nv, ns),
		Vehicles: nv,
		Slots:    ns,
		dist:     make([]float64, nv*ns),
	}
	if nv == 0 || ns == 0 {
		return p
	}
	for v, pos := range current {
		for s, slot := range slots {
			p.dist[p.Model.Index(v, s)] = geometry.Distance(pos, slot)
		}
	}

	// Lucas-rule penalty scale: large enough that breaking a one-hot
	// constraint always costs more than any feasible travel saving.
	p.Lambda = 2 * float64(nv) * floats.Max(p.dist)
	if p.Lambda == 0 {
		p.Lambda = 1
	}

	for v := 0; v < nv; v++ {
		for s := 0; s < ns; s++ {
			p.Model.AddLinear(p.Model.Index(v, s), p.dist[p.Model.Index(v, s)]-p.Lambda-p.Lambda/2)
		}
	}
	// One-hot per vehicle.
	for v := 0; v < nv; v++ {
		for s1 := 0; s1 < ns; s1++ {
			for s2 := s1 + 1; s2 < ns; s2++ {
				p.Model.AddQuadratic(p.Model.Index(v, s1), p.Model.Index(v, s2), 2*p.Lambda)
			}
		}
	}
	// At most one vehicle per slot, at half strength.
	for s := 0; s < ns; s++ {
		for v1 := 0; v1 < nv; v1++ {
			for v2 := v1 + 1; v2 < nv; v2++ {
				p.Model.AddQuadratic(p.Model.Index(v1, s), p.Model.Index(v2, s), p.Lambda)
			}
		}
	}
	return p
}

// Distance returns the travel distance from vehicle v's position to slot s.
func (p *AssignmentProblem) Distance(v, s int) float64 {
	return p.dist[p.Model.Index(v, s)]
}

// TotalDistance sums the travel distances of an assignment. Entries outside
// the problem's bounds contribute nothing.
func (p *AssignmentProblem) TotalDistance(asg Assignment) float64 {
	var sum float64
	for v, s := range asg {
		if v < 0 || v >= p.Vehicles || s < 0 || s >= p.Slots {
			continue
		}
		sum += p.Distance(v, s)
	}
	return sum
}

// Decode interprets a candidate as a vehicle→slot assignment. ok is false
// unless every vehicle row has exactly one set bit and no slot is claimed
// twice.
func (p *AssignmentProblem) Decode(bits Bits) (Assignment, bool) {
	choices, ok := p.Model.DecodeOneHot(bits)
	if !ok {
		return nil, false
	}
	asg := make(Assignment, len(choices))
	used := make(map[int]bool, len(choices))
	for v, s := range choices {
		if used[s] {
			return nil, false
		}
		used[s] = true
		asg[v] = s
	}
	return asg, true
}
