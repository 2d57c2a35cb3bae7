package planner

import (
	"math"
	"sort"

	"dronechoreo/internal/geometry"
	"dronechoreo/internal/qubo"
)

// PotentialCollision is one pair of vehicles whose planned paths come closer
// than the separation floor.
type PotentialCollision struct {
	VehicleA int     `json:"vehicle_a"`
	VehicleB int     `json:"vehicle_b"`
	Time     float64 `json:"time"`
	Distance float64 `json:"distance"`
}

// CollisionReport aggregates the pairwise separation check for one set of
// planned paths. MinSeparation is the smallest pairwise distance found, or
// zero when fewer than two vehicles fly.
type CollisionReport struct {
	MinSeparation float64              `json:"min_separation"`
	Collisions    []PotentialCollision `json:"collisions,omitempty"`
}

// Safe reports whether no pair violates the separation floor.
func (r CollisionReport) Safe() bool {
	return len(r.Collisions) == 0
}

// leg is one vehicle's straight transition path.
type leg struct {
	vehicle int
	seg     geometry.PathSegment
}

// assignedLegs builds per-vehicle paths for an assignment, in vehicle-id
// order. Entries pointing outside the position or slot range are dropped
// rather than trusted.
func assignedLegs(current, slots []geometry.Position3D, asg qubo.Assignment) []leg {
	vehicles := make([]int, 0, len(asg))
	for v := range asg {
		vehicles = append(vehicles, v)
	}
	sort.Ints(vehicles)

	legs := make([]leg, 0, len(vehicles))
	for _, v := range vehicles {
		s := asg[v]
		if v < 0 || v >= len(current) || s < 0 || s >= len(slots) {
			continue
		}
		legs = append(legs, leg{vehicle: v, seg: geometry.PathSegment{Start: current[v], End: slots[s]}})
	}
	return legs
}

// DetectCollisions checks every unordered pair of assigned vehicles for a
// separation violation along their direct, simultaneous paths.
func DetectCollisions(current, slots []geometry.Position3D, asg qubo.Assignment, c Constraints) CollisionReport {
	legs := assignedLegs(current, slots, asg)
	paths := make([]DronePath, len(legs))
	for i, l := range legs {
		paths[i] = directPath(l)
	}
	return CheckTimingCollisions(paths, c)
}

// CheckTimingCollisions is the same pairwise check over already-built plan
// paths, honoring each path's delay and duration window. With all delays at
// zero and full-length durations it reports exactly what DetectCollisions
// reports.
func CheckTimingCollisions(paths []DronePath, c Constraints) CollisionReport {
	report := CollisionReport{MinSeparation: math.Inf(1)}
	pairs := 0
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			pairs++
			dist, at := geometry.MinOffsetPathSeparation(c.Samples, paths[i].Offset(), paths[j].Offset())
			if dist < report.MinSeparation {
				report.MinSeparation = dist
			}
			if dist < c.MinSeparation {
				report.Collisions = append(report.Collisions, PotentialCollision{
					VehicleA: paths[i].Vehicle,
					VehicleB: paths[j].Vehicle,
					Time:     at,
					Distance: dist,
				})
			}
		}
	}
	if pairs == 0 {
		report.MinSeparation = 0
	}
	return report
}
