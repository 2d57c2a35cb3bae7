package choreo

import (
	"math/rand"

	"dronechoreo/internal/geometry"
	"dronechoreo/internal/swarm"
	"dronechoreo/internal/wire"
)

// DemoFeed scripts a small eventful show for the given fleet: routine wind
// reports with jittered positions, a point-of-interest hold, a sensor fault
// with a later rejoin, and a battery warning near the end. One wire frame
// per entry, ready to feed into Run. The same seed yields the same feed.
func DemoFeed(fleet []swarm.Vehicle, seed int64) []string {
	if len(fleet) == 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))
	frames := make([]string, 0, 3*len(fleet)+4)

	jitter := func(v swarm.Vehicle) geometry.Position3D {
		return geometry.Position3D{
			X: v.Position.X + rng.NormFloat64()*0.5,
			Y: v.Position.Y + rng.NormFloat64()*0.5,
			Z: v.Position.Z + rng.NormFloat64()*0.2,
		}
	}
	// Wind inside the operating envelope: a position refresh that never
	// pulls the vehicle out of formation.
	routine := func(v swarm.Vehicle) string {
		return wire.EncodeNotification(wire.Notification{
			Vehicle:  v.ID,
			Event:    wire.HighWind{SpeedMPS: 2 + rng.Float64()*4},
			Duration: wire.Duration{Class: wire.Momentary, Seconds: 1},
			Position: jitter(v),
		})
	}

	for _, v := range fleet {
		frames = append(frames, routine(v))
	}

	star := fleet[len(fleet)/2]
	frames = append(frames, wire.EncodeNotification(wire.Notification{
		Vehicle:  star.ID,
		Event:    wire.PointOfInterest{Label: "stage-front"},
		Duration: wire.Duration{Class: wire.Momentary, Seconds: 6},
		Position: jitter(star),
	}))
	for _, v := range fleet {
		frames = append(frames, routine(v))
	}

	casualty := fleet[len(fleet)-1]
	frames = append(frames, wire.EncodeNotification(wire.Notification{
		Vehicle:  casualty.ID,
		Event:    wire.SensorFault{Sensor: "imu"},
		Duration: wire.Duration{Class: wire.Extended},
		Position: jitter(casualty),
	}))
	for _, v := range fleet[:len(fleet)-1] {
		frames = append(frames, routine(v))
	}

	frames = append(frames, wire.EncodeNotification(wire.Notification{
		Vehicle:  casualty.ID,
		Event:    wire.Rejoin{},
		Duration: wire.Duration{Class: wire.Momentary},
		Position: jitter(casualty),
	}))

	frames = append(frames, wire.EncodeNotification(wire.Notification{
		Vehicle:  fleet[0].ID,
		Event:    wire.LowBattery{Percent: 18},
		Duration: wire.Duration{Class: wire.Brief, Seconds: 20},
		Position: jitter(fleet[0]),
	}))
	return frames
}
