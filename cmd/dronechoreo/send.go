package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dronechoreo/internal/wire"
)

var (
	sendEvent    string
	sendCommand  string
	sendVehicle  int
	sendDuration string
	sendPos      string
	sendExtra    string
	sendTargets  string
	sendParams   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Build wire frames",
	Long:  "send renders a notification or command frame, validated and canonicalized, for piping into watch or POSTing to the admin endpoint.",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case sendEvent != "" && sendCommand != "":
			return fmt.Errorf("--event and --command are mutually exclusive")
		case sendEvent != "":
			frame, err := buildEventFrame(sendVehicle, sendEvent, sendDuration, sendPos, sendExtra)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), frame)
			return nil
		case sendCommand != "":
			frame, err := buildCommandFrame(sendTargets, sendCommand, sendParams)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), frame)
			return nil
		default:
			return fmt.Errorf("one of --event or --command is required")
		}
	},
}

// buildEventFrame assembles an EVT frame from the flag values and runs it
// through the codec so a malformed field fails here, not at the receiver.
func buildEventFrame(vehicle int, code, duration, pos, extra string) (string, error) {
	x, y, z, err := parsePos(pos)
	if err != nil {
		return "", err
	}
	raw := strings.Join([]string{
		"EVT", strconv.Itoa(vehicle), strings.ToUpper(code), strings.ToUpper(duration),
		x, y, z, extra,
	}, "|")
	n, err := wire.DecodeNotification(raw)
	if err != nil {
		return "", err
	}
	return wire.EncodeNotification(n), nil
}

// buildCommandFrame assembles a CMD frame the same way.
func buildCommandFrame(targets, code, params string) (string, error) {
	if targets == "" {
		targets = "*"
	}
	raw := strings.Join([]string{"CMD", targets, strings.ToUpper(code), params}, "|")
	c, err := wire.DecodeCommand(raw)
	if err != nil {
		return "", err
	}
	return wire.EncodeCommand(c), nil
}

func parsePos(pos string) (x, y, z string, err error) {
	parts := strings.Split(pos, ",")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("position %q is not x,y,z", pos)
	}
	for i, p := range parts {
		if _, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return "", "", "", fmt.Errorf("coordinate %q is not a number", p)
		}
		parts[i] = strings.TrimSpace(p)
	}
	return parts[0], parts[1], parts[2], nil
}

func init() {
	sendCmd.Flags().StringVar(&sendEvent, "event", "", "Event code (BAT_LOW, POI, SENSOR_FAULT, ...)")
	sendCmd.Flags().StringVar(&sendCommand, "command", "", "Command code (HOLD, RESUME, LAND, RTB)")
	sendCmd.Flags().IntVar(&sendVehicle, "vehicle", 0, "Reporting vehicle id")
	sendCmd.Flags().StringVar(&sendDuration, "duration", "X", "Duration code (M<seconds>, B<seconds>, or X)")
	sendCmd.Flags().StringVar(&sendPos, "pos", "0,0,0", "Vehicle position as x,y,z")
	sendCmd.Flags().StringVar(&sendExtra, "extra", "", "Event payload (battery percent, POI label, ...)")
	sendCmd.Flags().StringVar(&sendTargets, "targets", "*", "Command targets: comma-separated ids or * for broadcast")
	sendCmd.Flags().StringVar(&sendParams, "params", "", "Command parameters (hold seconds)")
}
