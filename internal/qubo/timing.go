package qubo

import (
	"gonum.org/v1/gonum/floats"

	"dronechoreo/internal/geometry"
)

// DelayWindow maps a delay step to the normalized (delay, duration) window a
// vehicle flies in. The unit is sized so the largest step still completes
// inside one transition: with k steps the slowest vehicle starts at
// (k-1)/(k+1) and lands at k/(k+1). A single step (or fewer) degenerates to
// an immediate, instantaneous move rather than dividing by zero.
func DelayWindow(step, steps int) (delay, duration float64) {
	if steps <= 1 {
		return 0, 0
	}
	duration = 1 / float64(steps+1)
	return float64(step) * duration, duration
}

// TimingProblem encodes "which delay step does each vehicle launch on" for a
// set of straight paths that cannot all fly at once. Rows are vehicles,
// columns are delay steps; colliding (vehicle, step) pairs are penalized by
// how badly they violate the separation floor, and a small linear term
// nudges every vehicle toward earlier steps so the show finishes sooner.
type TimingProblem struct {
	*Model
	Steps   int
	Samples int
	Lambda  float64

	paths []geometry.PathSegment
}

// NewTimingProblem builds the timing-shape model. minSeparation is the
// spatial floor in meters; samples controls the path-sampling resolution.
func NewTimingProblem(paths []geometry.PathSegment, steps int, minSeparation float64, samples int) *TimingProblem {
	nv := len(paths)
	p := &TimingProblem{
		Model:   New(nv, steps),
		Steps:   steps,
		Samples: samples,
		paths:   paths,
	}
	if nv == 0 || steps == 0 {
		return p
	}

	spans := make([]float64, nv)
	for i, seg := range paths {
		spans[i] = geometry.Distance(seg.Start, seg.End)
	}
	p.Lambda = 2 * float64(nv) * floats.Max(spans)
	if p.Lambda == 0 {
		p.Lambda = 1
	}

	// One-hot per vehicle, same structure as the assignment shape.
	for v := 0; v < nv; v++ {
		for k1 := 0; k1 < steps; k1++ {
			p.Model.AddLinear(p.Model.Index(v, k1), -p.Lambda)
			for k2 := k1 + 1; k2 < steps; k2++ {
				p.Model.AddQuadratic(p.Model.Index(v, k1), p.Model.Index(v, k2), 2*p.Lambda)
			}
		}
	}

	// Earlier steps are cheaper.
	for v := 0; v < nv; v++ {
		for k := 0; k < steps; k++ {
			p.Model.AddLinear(p.Model.Index(v, k), 0.1*float64(k))
		}
	}

	// Penalize every pair of (vehicle, step) choices whose staggered paths
	// still come closer than the separation floor.
	for v1 := 0; v1 < nv; v1++ {
		for v2 := v1 + 1; v2 < nv; v2++ {
			for k1 := 0; k1 < steps; k1++ {
				for k2 := 0; k2 < steps; k2++ {
					sep, _ := geometry.MinOffsetPathSeparation(samples,
						offsetPath(paths[v1], k1, steps),
						offsetPath(paths[v2], k2, steps))
					if sep < minSeparation {
						p.Model.AddQuadratic(
							p.Model.Index(v1, k1),
							p.Model.Index(v2, k2),
							(minSeparation-sep)*p.Lambda*0.5)
					}
				}
			}
		}
	}
	return p
}

// Separation returns the sampled minimum distance between two vehicles'
// paths for a concrete pair of delay steps.
func (p *TimingProblem) Separation(samples, v1, step1, v2, step2 int) float64 {
	sep, _ := geometry.MinOffsetPathSeparation(samples,
		offsetPath(p.paths[v1], step1, p.Steps),
		offsetPath(p.paths[v2], step2, p.Steps))
	return sep
}

// Decode interprets a candidate as one delay step per vehicle. Unlike the
// assignment shape, many vehicles may share a step.
func (p *TimingProblem) Decode(bits Bits) ([]int, bool) {
	return p.Model.DecodeOneHot(bits)
}

func offsetPath(seg geometry.PathSegment, step, steps int) geometry.OffsetPath {
	delay, duration := DelayWindow(step, steps)
	return geometry.OffsetPath{Start: seg.Start, End: seg.End, Delay: delay, Duration: duration}
}
