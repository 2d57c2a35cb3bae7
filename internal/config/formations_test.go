package config

import (
	"math"
	"testing"

	"dronechoreo/internal/geometry"
)

func minPairwise(slots []geometry.Position3D) float64 {
	min := math.Inf(1)
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if d := geometry.Distance(slots[i], slots[j]); d < min {
				min = d
			}
		}
	}
	return min
}

func TestBuiltInCoversDefaultShow(t *testing.T) {
	gens := BuiltIn()
	for _, name := range DefaultShow() {
		if _, ok := gens[name]; !ok {
			t.Errorf("default show step %q has no generator", name)
		}
	}
}

func TestGeneratorsKeepSpacing(t *testing.T) {
	const spacing, altitude = 4.0, 20.0
	for name, gen := range BuiltIn() {
		t.Run(name, func(t *testing.T) {
			for _, count := range []int{1, 2, 6, 9} {
				slots := gen(count, spacing, altitude)
				if len(slots) != count {
					t.Fatalf("count %d: got %d slots", count, len(slots))
				}
				if count < 2 {
					continue
				}
				if min := minPairwise(slots); min < spacing-1e-9 {
					t.Errorf("count %d: slots %.3fm apart, want at least %.1fm", count, min, spacing)
				}
			}
		})
	}
}

func TestLineCentered(t *testing.T) {
	slots := Line(5, 4, 20)
	if slots[2].X != 0 || slots[2].Z != 20 {
		t.Errorf("middle slot = %+v, want on the axis at altitude", slots[2])
	}
	if d := geometry.Distance(slots[0], slots[1]); math.Abs(d-4) > 1e-9 {
		t.Errorf("neighbor distance = %v, want 4", d)
	}
}

func TestCircleNeighborSpacing(t *testing.T) {
	slots := Circle(8, 5, 25)
	for i := range slots {
		if slots[i].Z != 25 {
			t.Fatalf("slot %d at altitude %v, want 25", i, slots[i].Z)
		}
		next := slots[(i+1)%len(slots)]
		if d := geometry.Distance(slots[i], next); math.Abs(d-5) > 1e-9 {
			t.Errorf("slots %d-%d are %.4fm apart, want 5", i, (i+1)%len(slots), d)
		}
	}
}

func TestVeeShape(t *testing.T) {
	slots := Vee(5, 4, 20)
	if slots[0] != (geometry.Position3D{Z: 20}) {
		t.Fatalf("apex = %+v, want above the origin", slots[0])
	}
	// First wing pair sits one spacing from the apex, mirrored on X.
	if d := geometry.Distance(slots[0], slots[1]); math.Abs(d-4) > 1e-9 {
		t.Errorf("apex to first wing = %v, want 4", d)
	}
	if slots[1].X != -slots[2].X || slots[1].Y != slots[2].Y {
		t.Errorf("wings not mirrored: %+v vs %+v", slots[1], slots[2])
	}
	for _, s := range slots[1:] {
		if s.Y >= 0 {
			t.Errorf("wing slot %+v does not sweep back", s)
		}
	}
}

func TestHelixClimbs(t *testing.T) {
	slots := Helix(6, 4, 10)
	for i := 1; i < len(slots); i++ {
		if slots[i].Z <= slots[i-1].Z {
			t.Fatalf("slot %d at %v does not climb past %v", i, slots[i].Z, slots[i-1].Z)
		}
	}
	if slots[0].Z != 10 {
		t.Errorf("first slot at %v, want base altitude 10", slots[0].Z)
	}
}
