package wire

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dronechoreo/internal/geometry"
)

// EncodeNotification renders a notification as one EVT frame:
//
//	EVT|<vehicle>|<eventCode>|<durationCode>|<x>|<y>|<z>|<extra>
//
// The extra field is last so event payloads never need escaping.
func EncodeNotification(n Notification) string {
	code := ""
	extra := ""
	if n.Event != nil {
		code = n.Event.Code()
		extra = eventExtra(n.Event)
	}
	return strings.Join([]string{
		"EVT",
		strconv.Itoa(n.Vehicle),
		code,
		encodeDuration(n.Duration),
		formatFloat(n.Position.X),
		formatFloat(n.Position.Y),
		formatFloat(n.Position.Z),
		extra,
	}, "|")
}

// DecodeNotification parses one EVT frame. Unknown event codes decode to a
// Custom event rather than failing; only a structurally broken frame (wrong
// prefix, missing fields, unreadable numbers) returns an error.
func DecodeNotification(frame string) (Notification, error) {
	parts := strings.SplitN(frame, "|", 8)
	if len(parts) != 8 {
		return Notification{}, fmt.Errorf("notification frame has %d fields, want 8", len(parts))
	}
	if parts[0] != "EVT" {
		return Notification{}, fmt.Errorf("frame prefix %q is not EVT", parts[0])
	}
	vehicle, err := strconv.Atoi(parts[1])
	if err != nil {
		return Notification{}, fmt.Errorf("vehicle id %q is not a number", parts[1])
	}
	var pos geometry.Position3D
	for i, target := range []*float64{&pos.X, &pos.Y, &pos.Z} {
		v, err := strconv.ParseFloat(parts[4+i], 64)
		if err != nil {
			return Notification{}, fmt.Errorf("coordinate %q is not a number", parts[4+i])
		}
		*target = v
	}
	return Notification{
		Vehicle:  vehicle,
		Event:    decodeEvent(parts[2], parts[7]),
		Duration: decodeDuration(parts[3]),
		Position: pos,
	}, nil
}

// EncodeCommand renders a command as one CMD frame:
//
//	CMD|<targets>|<commandCode>|<params>
//
// An empty target list becomes the broadcast marker "*".
func EncodeCommand(c Command) string {
	code := ""
	params := ""
	if c.Action != nil {
		code = c.Action.Code()
		params = actionParams(c.Action)
	}
	targets := "*"
	if len(c.Targets) > 0 {
		ids := make([]string, len(c.Targets))
		for i, id := range c.Targets {
			ids[i] = strconv.Itoa(id)
		}
		targets = strings.Join(ids, ",")
	}
	return strings.Join([]string{"CMD", targets, code, params}, "|")
}

// DecodeCommand parses one CMD frame. Unknown command codes decode to a
// CustomAction; a broken frame or an unreadable target id returns an error.
func DecodeCommand(frame string) (Command, error) {
	parts := strings.SplitN(frame, "|", 4)
	if len(parts) != 4 {
		return Command{}, fmt.Errorf("command frame has %d fields, want 4", len(parts))
	}
	if parts[0] != "CMD" {
		return Command{}, fmt.Errorf("frame prefix %q is not CMD", parts[0])
	}
	var targets []int
	if parts[1] != "*" {
		for _, raw := range strings.Split(parts[1], ",") {
			id, err := strconv.Atoi(raw)
			if err != nil {
				return Command{}, fmt.Errorf("target %q is not a vehicle id", raw)
			}
			targets = append(targets, id)
		}
	}
	return Command{Targets: targets, Action: decodeAction(parts[2], parts[3])}, nil
}

func encodeDuration(d Duration) string {
	switch d.Class {
	case Momentary, Brief:
		return string(d.Class) + formatFloat(d.Seconds)
	default:
		return string(Extended)
	}
}

func decodeDuration(s string) Duration {
	if len(s) == 0 {
		return Duration{Class: Extended}
	}
	class := DurationClass(s[:1])
	if class != Momentary && class != Brief {
		return Duration{Class: Extended}
	}
	seconds, err := strconv.ParseFloat(s[1:], 64)
	if err != nil {
		seconds = 0
	}
	return Duration{Class: class, Seconds: seconds}
}

func eventExtra(e Event) string {
	switch ev := e.(type) {
	case LowBattery:
		return strconv.Itoa(ev.Percent)
	case CriticalBattery:
		return strconv.Itoa(ev.Percent)
	case PointOfInterest:
		return ev.Label
	case FollowMe:
		return strconv.Itoa(ev.Target)
	case HighWind:
		return formatFloat(ev.SpeedMPS)
	case SensorFault:
		return ev.Sensor
	case HardwareWarning:
		return ev.Component + "," + strconv.Itoa(ev.Severity)
	case Custom:
		return encodePairs(ev.Fields)
	default:
		return ""
	}
}

func decodeEvent(code, extra string) Event {
	switch code {
	case CodeLowBattery:
		return LowBattery{Percent: atoiOrZero(extra)}
	case CodeCriticalBattery:
		return CriticalBattery{Percent: atoiOrZero(extra)}
	case CodeReturnHome:
		return ReturnHome{}
	case CodePointOfInterest:
		return PointOfInterest{Label: extra}
	case CodeFollowMe:
		return FollowMe{Target: atoiOrZero(extra)}
	case CodeHighWind:
		return HighWind{SpeedMPS: floatOrZero(extra)}
	case CodeSensorFault:
		return SensorFault{Sensor: extra}
	case CodeHardwareWarning:
		w := HardwareWarning{Component: extra}
		if i := strings.LastIndex(extra, ","); i >= 0 {
			w.Component = extra[:i]
			w.Severity = atoiOrZero(extra[i+1:])
		}
		return w
	case CodeRejoin:
		return Rejoin{}
	default:
		return Custom{Tag: code, Fields: decodePairs(extra)}
	}
}

func actionParams(a Action) string {
	switch ac := a.(type) {
	case Hold:
		return formatFloat(ac.Seconds)
	case CustomAction:
		return encodePairs(ac.Params)
	default:
		return ""
	}
}

func decodeAction(code, params string) Action {
	switch code {
	case CodeHold:
		return Hold{Seconds: floatOrZero(params)}
	case CodeResume:
		return Resume{}
	case CodeLand:
		return Land{}
	case CodeReturnToBase:
		return ReturnToBase{}
	default:
		return CustomAction{Tag: code, Params: decodePairs(params)}
	}
}

// encodePairs renders a key=value map with deterministic key order.
func encodePairs(kv map[string]string) string {
	if len(kv) == 0 {
		return ""
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + kv[k]
	}
	return strings.Join(pairs, ",")
}

func decodePairs(s string) map[string]string {
	if s == "" {
		return nil
	}
	kv := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, _ := strings.Cut(pair, "=")
		kv[k] = v
	}
	return kv
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func atoiOrZero(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
