package config

import (
	"math"

	"dronechoreo/internal/geometry"
)

// Generator builds the slot list of a parametric formation. Slots come back
// in a stable index order so assignments are comparable across replans.
type Generator func(count int, spacingM, altitudeM float64) []geometry.Position3D

// BuiltIn returns the named formation generators available without any
// formation definition in the mission file.
func BuiltIn() map[string]Generator {
	return map[string]Generator{
		"line":   Line,
		"circle": Circle,
		"grid":   Grid,
		"vee":    Vee,
		"helix":  Helix,
	}
}

// DefaultShow is the formation sequence played when a mission defines none.
func DefaultShow() []string {
	return []string{"line", "vee", "circle", "grid", "line"}
}

// Line places slots along the X axis, centered on the origin.
func Line(count int, spacingM, altitudeM float64) []geometry.Position3D {
	slots := make([]geometry.Position3D, count)
	for i := range slots {
		slots[i] = geometry.Position3D{
			X: (float64(i) - float64(count-1)/2) * spacingM,
			Z: altitudeM,
		}
	}
	return slots
}

// Circle places slots on a ring sized so neighbors sit spacingM apart.
func Circle(count int, spacingM, altitudeM float64) []geometry.Position3D {
	if count == 1 {
		return []geometry.Position3D{{Z: altitudeM}}
	}
	radius := spacingM / (2 * math.Sin(math.Pi/float64(count)))
	slots := make([]geometry.Position3D, count)
	for i := range slots {
		angle := 2 * math.Pi * float64(i) / float64(count)
		slots[i] = geometry.Position3D{
			X: radius * math.Cos(angle),
			Y: radius * math.Sin(angle),
			Z: altitudeM,
		}
	}
	return slots
}

// Grid places slots row by row on a near-square lattice, centered on the
// origin.
func Grid(count int, spacingM, altitudeM float64) []geometry.Position3D {
	cols := int(math.Ceil(math.Sqrt(float64(count))))
	rows := (count + cols - 1) / cols
	slots := make([]geometry.Position3D, count)
	for i := range slots {
		row, col := i/cols, i%cols
		slots[i] = geometry.Position3D{
			X: (float64(col) - float64(cols-1)/2) * spacingM,
			Y: (float64(row) - float64(rows-1)/2) * spacingM,
			Z: altitudeM,
		}
	}
	return slots
}

// Vee places an apex slot with wings sweeping back at 45 degrees, filled
// alternating left and right.
func Vee(count int, spacingM, altitudeM float64) []geometry.Position3D {
	slots := make([]geometry.Position3D, count)
	leg := spacingM / math.Sqrt2
	for i := range slots {
		if i == 0 {
			slots[i] = geometry.Position3D{Z: altitudeM}
			continue
		}
		k := float64((i + 1) / 2)
		side := 1.0
		if i%2 == 0 {
			side = -1
		}
		slots[i] = geometry.Position3D{
			X: side * k * leg,
			Y: -k * leg,
			Z: altitudeM,
		}
	}
	return slots
}

// Helix is a circle whose slots climb half a spacing per index, ending one
// turn above where it started.
func Helix(count int, spacingM, altitudeM float64) []geometry.Position3D {
	slots := Circle(count, spacingM, altitudeM)
	for i := range slots {
		slots[i].Z = altitudeM + float64(i)*spacingM/2
	}
	return slots
}
