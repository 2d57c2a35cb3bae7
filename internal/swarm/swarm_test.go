package swarm

import (
	"testing"

	"dronechoreo/internal/wire"
)

func TestProfileClassify(t *testing.T) {
	p := DefaultProfile()
	cases := []struct {
		name     string
		event    wire.Event
		departs  bool
		priority Priority
	}{
		{"low battery", wire.LowBattery{Percent: 18}, true, PriorityWarning},
		{"low battery near empty", wire.LowBattery{Percent: 5}, true, PriorityUrgent},
		{"critical battery", wire.CriticalBattery{Percent: 4}, true, PriorityUrgent},
		{"return home", wire.ReturnHome{}, true, PriorityUrgent},
		{"point of interest", wire.PointOfInterest{Label: "ridge"}, true, PriorityInfo},
		{"follow me", wire.FollowMe{Target: 2}, true, PriorityInfo},
		{"wind beyond envelope", wire.HighWind{SpeedMPS: 12}, true, PriorityWarning},
		{"wind unreported speed", wire.HighWind{}, true, PriorityWarning},
		{"wind inside envelope", wire.HighWind{SpeedMPS: 8}, false, PriorityInfo},
		{"sensor fault", wire.SensorFault{Sensor: "gps"}, true, PriorityUrgent},
		{"hardware warning above limit", wire.HardwareWarning{Component: "motor2", Severity: 3}, true, PriorityWarning},
		{"hardware warning at limit", wire.HardwareWarning{Component: "motor2", Severity: 1}, false, PriorityInfo},
		{"rejoin", wire.Rejoin{}, false, PriorityInfo},
		{"custom", wire.Custom{Tag: "THERMAL"}, false, PriorityInfo},
		{"nil event", nil, false, PriorityInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Classify(tc.event)
			if got.Departs != tc.departs {
				t.Errorf("departs = %v, want %v", got.Departs, tc.departs)
			}
			if got.Priority != tc.priority {
				t.Errorf("priority = %q, want %q", got.Priority, tc.priority)
			}
		})
	}
}

func TestDefaultProfileFilled(t *testing.T) {
	p := DefaultProfile()
	if p.BatteryWarn <= p.BatteryCritical {
		t.Errorf("warn threshold %d must exceed critical %d", p.BatteryWarn, p.BatteryCritical)
	}
	if p.MaxWindMPS <= 0 || p.SeverityLimit <= 0 {
		t.Errorf("profile = %+v, want positive limits", p)
	}
}
