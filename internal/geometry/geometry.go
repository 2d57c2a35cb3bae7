// Package geometry provides the distance and interpolation primitives the
// transition planner is built on. All times are normalized to [0,1] over a
// single formation transition.
package geometry

import "math"

// Position3D is a point in show-local coordinates, in meters.
type Position3D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Position3D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Lerp linearly interpolates from p to q, clamping t to [0,1].
func Lerp(t float64, p, q Position3D) Position3D {
	if t <= 0 {
		return p
	}
	if t >= 1 {
		return q
	}
	return Position3D{
		X: p.X + (q.X-p.X)*t,
		Y: p.Y + (q.Y-p.Y)*t,
		Z: p.Z + (q.Z-p.Z)*t,
	}
}

// Centroid returns the mean of pts, or the zero position for an empty slice.
func Centroid(pts []Position3D) Position3D {
	if len(pts) == 0 {
		return Position3D{}
	}
	var c Position3D
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
		c.Z += p.Z
	}
	n := float64(len(pts))
	return Position3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// PathSegment is a straight flight leg covering the whole transition window:
// the vehicle leaves Start at t=0 and arrives at End at t=1.
type PathSegment struct {
	Start Position3D
	End   Position3D
}

// At returns the position on the segment at normalized time t.
func (s PathSegment) At(t float64) Position3D {
	return Lerp(t, s.Start, s.End)
}

// OffsetPath is a straight flight leg flown inside a delay/duration window of
// the transition: the vehicle holds at Start until Delay, flies until
// Delay+Duration, then holds at End. A non-positive Duration is treated as an
// instantaneous move at Delay.
type OffsetPath struct {
	Start    Position3D
	End      Position3D
	Delay    float64
	Duration float64
}

// At returns the position on the offset path at normalized transition time t.
func (p OffsetPath) At(t float64) Position3D {
	if t <= p.Delay {
		return p.Start
	}
	frac := 1.0
	if p.Duration > 0 {
		frac = (t - p.Delay) / p.Duration
	}
	return Lerp(frac, p.Start, p.End)
}

// MinPathSeparation evaluates both segments at samples+1 evenly spaced
// normalized times and returns the smallest pairwise distance found and the
// time at which it occurs. More samples can only find an equal or smaller
// minimum, never a larger one.
func MinPathSeparation(samples int, a, b PathSegment) (minDist, tAtMin float64) {
	return minSeparation(samples, a.At, b.At)
}

// MinOffsetPathSeparation is MinPathSeparation for two delay/duration
// parameterized paths.
func MinOffsetPathSeparation(samples int, a, b OffsetPath) (minDist, tAtMin float64) {
	return minSeparation(samples, a.At, b.At)
}

func minSeparation(samples int, a, b func(float64) Position3D) (minDist, tAtMin float64) {
	if samples < 1 {
		samples = 1
	}
	minDist = math.Inf(1)
	for i := 0; i <= samples; i++ {
		t := float64(i) / float64(samples)
		if d := Distance(a(t), b(t)); d < minDist {
			minDist = d
			tAtMin = t
		}
	}
	return minDist, tAtMin
}
