package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"dronechoreo/internal/geometry"
)

func TestDecodeNotificationLowBattery(t *testing.T) {
	n, err := DecodeNotification("EVT|2|BAT_LOW|X|10.5|5.2|15.0|18")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if n.Vehicle != 2 {
		t.Errorf("vehicle = %d, want 2", n.Vehicle)
	}
	ev, ok := n.Event.(LowBattery)
	if !ok {
		t.Fatalf("event = %T, want LowBattery", n.Event)
	}
	if ev.Percent != 18 {
		t.Errorf("percent = %d, want 18", ev.Percent)
	}
	if n.Duration.Class != Extended {
		t.Errorf("duration class = %q, want extended", n.Duration.Class)
	}
	want := geometry.Position3D{X: 10.5, Y: 5.2, Z: 15}
	if n.Position != want {
		t.Errorf("position = %+v, want %+v", n.Position, want)
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	pos := geometry.Position3D{X: 1.5, Y: -2, Z: 30}
	cases := []struct {
		name string
		n    Notification
	}{
		{"low battery", Notification{Vehicle: 1, Event: LowBattery{Percent: 21}, Duration: Duration{Class: Brief, Seconds: 45}, Position: pos}},
		{"critical battery", Notification{Vehicle: 2, Event: CriticalBattery{Percent: 4}, Duration: Duration{Class: Extended}, Position: pos}},
		{"return home", Notification{Vehicle: 3, Event: ReturnHome{}, Duration: Duration{Class: Extended}, Position: pos}},
		{"point of interest", Notification{Vehicle: 4, Event: PointOfInterest{Label: "ridge-north"}, Duration: Duration{Class: Brief, Seconds: 20}, Position: pos}},
		{"follow me", Notification{Vehicle: 5, Event: FollowMe{Target: 2}, Duration: Duration{Class: Momentary, Seconds: 5}, Position: pos}},
		{"high wind", Notification{Vehicle: 6, Event: HighWind{SpeedMPS: 12.5}, Duration: Duration{Class: Brief, Seconds: 60}, Position: pos}},
		{"sensor fault", Notification{Vehicle: 7, Event: SensorFault{Sensor: "gps"}, Duration: Duration{Class: Extended}, Position: pos}},
		{"hardware warning", Notification{Vehicle: 8, Event: HardwareWarning{Component: "motor2", Severity: 3}, Duration: Duration{Class: Extended}, Position: pos}},
		{"rejoin", Notification{Vehicle: 9, Event: Rejoin{}, Duration: Duration{Class: Momentary, Seconds: 0}, Position: pos}},
		{"custom", Notification{Vehicle: 10, Event: Custom{Tag: "GEOFENCE", Fields: map[string]string{"zone": "A", "lat": "47.1"}}, Duration: Duration{Class: Extended}, Position: pos}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeNotification(EncodeNotification(tc.n))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tc.n, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		c    Command
	}{
		{"broadcast hold", Command{Action: Hold{Seconds: 25}}},
		{"targeted resume", Command{Targets: []int{1, 4, 7}, Action: Resume{}}},
		{"land", Command{Targets: []int{3}, Action: Land{}}},
		{"return to base", Command{Action: ReturnToBase{}}},
		{"custom", Command{Targets: []int{2}, Action: CustomAction{Tag: "LIGHTS", Params: map[string]string{"color": "red"}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeCommand(EncodeCommand(tc.c))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if diff := cmp.Diff(tc.c, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeNotificationUnknownEventCode(t *testing.T) {
	n, err := DecodeNotification("EVT|4|THERMAL|B30|0|0|0|cell=2,temp=81")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ev, ok := n.Event.(Custom)
	if !ok {
		t.Fatalf("event = %T, want Custom", n.Event)
	}
	if ev.Tag != "THERMAL" || ev.Fields["temp"] != "81" || ev.Fields["cell"] != "2" {
		t.Errorf("custom event = %+v", ev)
	}
}

func TestDecodeCommandUnknownCode(t *testing.T) {
	c, err := DecodeCommand("CMD|*|SPIRAL|turns=3")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !c.Broadcast() {
		t.Errorf("command targets = %v, want broadcast", c.Targets)
	}
	ac, ok := c.Action.(CustomAction)
	if !ok {
		t.Fatalf("action = %T, want CustomAction", c.Action)
	}
	if ac.Tag != "SPIRAL" || ac.Params["turns"] != "3" {
		t.Errorf("custom action = %+v", ac)
	}
}

func TestDecodeNotificationErrors(t *testing.T) {
	cases := []struct {
		name  string
		frame string
	}{
		{"empty", ""},
		{"wrong prefix", "CMD|2|BAT_LOW|X|1|2|3|18"},
		{"too few fields", "EVT|2|BAT_LOW|X|1|2"},
		{"bad vehicle id", "EVT|two|BAT_LOW|X|1|2|3|18"},
		{"bad coordinate", "EVT|2|BAT_LOW|X|north|2|3|18"},
		{"free text", "hello swarm"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeNotification(tc.frame); err == nil {
				t.Errorf("decoded %q without error", tc.frame)
			}
		})
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	cases := []struct {
		name  string
		frame string
	}{
		{"empty", ""},
		{"wrong prefix", "EVT|*|HOLD|25"},
		{"too few fields", "CMD|*|HOLD"},
		{"bad target id", "CMD|1,two|HOLD|25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeCommand(tc.frame); err == nil {
				t.Errorf("decoded %q without error", tc.frame)
			}
		})
	}
}

func TestDecodeDurationVariants(t *testing.T) {
	cases := []struct {
		in   string
		want Duration
	}{
		{"M5", Duration{Class: Momentary, Seconds: 5}},
		{"B2.5", Duration{Class: Brief, Seconds: 2.5}},
		{"X", Duration{Class: Extended}},
		{"", Duration{Class: Extended}},
		{"Q9", Duration{Class: Extended}},
		{"Mfast", Duration{Class: Momentary, Seconds: 0}},
	}
	for _, tc := range cases {
		if got := decodeDuration(tc.in); got != tc.want {
			t.Errorf("decodeDuration(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestDurationEstimate(t *testing.T) {
	if _, ok := (Duration{Class: Extended}).Estimate(); ok {
		t.Errorf("extended duration should have no estimate")
	}
	est, ok := (Duration{Class: Brief, Seconds: 30}).Estimate()
	if !ok || est.Seconds() != 30 {
		t.Errorf("estimate = (%s,%v), want 30s", est, ok)
	}
}
