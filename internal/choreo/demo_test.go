package choreo

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"dronechoreo/internal/swarm"
	"dronechoreo/internal/wire"
)

func TestDemoFeedDecodesAndRepeats(t *testing.T) {
	fleet := []swarm.Vehicle{{ID: 1}, {ID: 2}, {ID: 3}}
	feed := DemoFeed(fleet, 42)
	if len(feed) == 0 {
		t.Fatal("empty feed")
	}
	for _, frame := range feed {
		if _, err := wire.DecodeNotification(frame); err != nil {
			t.Errorf("frame %q does not decode: %v", frame, err)
		}
	}
	if diff := cmp.Diff(feed, DemoFeed(fleet, 42)); diff != "" {
		t.Errorf("same seed produced a different feed (-first +second):\n%s", diff)
	}

	joined := strings.Join(feed, "\n")
	for _, code := range []string{wire.CodePointOfInterest, wire.CodeSensorFault, wire.CodeRejoin, wire.CodeLowBattery} {
		if !strings.Contains(joined, "|"+code+"|") {
			t.Errorf("feed is missing a %s frame", code)
		}
	}
}

func TestDemoFeedEmptyFleet(t *testing.T) {
	if got := DemoFeed(nil, 1); got != nil {
		t.Errorf("feed for empty fleet = %v, want nil", got)
	}
}
