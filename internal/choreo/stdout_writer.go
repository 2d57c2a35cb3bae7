package choreo

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"dronechoreo/internal/telemetry"
)

// JSONStdoutWriter prints show rows as JSON lines to STDOUT.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// WriteTransition outputs a transition leg in JSON format.
func (w *JSONStdoutWriter) WriteTransition(row telemetry.TransitionRow) error {
	data, _ := json.Marshal(row)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteTransitions outputs multiple transition legs in JSON format.
func (w *JSONStdoutWriter) WriteTransitions(rows []telemetry.TransitionRow) error {
	for _, r := range rows {
		_ = w.WriteTransition(r)
	}
	return nil
}

// WriteAdaptation outputs a replan summary in JSON format.
func (w *JSONStdoutWriter) WriteAdaptation(row telemetry.AdaptationRow) error {
	data, _ := json.Marshal(row)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteVehicleState outputs a vehicle lifecycle row in JSON format.
func (w *JSONStdoutWriter) WriteVehicleState(row telemetry.VehicleStateRow) error {
	data, _ := json.Marshal(row)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteVehicleStates outputs multiple vehicle lifecycle rows in JSON format.
func (w *JSONStdoutWriter) WriteVehicleStates(rows []telemetry.VehicleStateRow) error {
	for _, r := range rows {
		_ = w.WriteVehicleState(r)
	}
	return nil
}

// WriteCommand outputs an issued command in JSON format.
func (w *JSONStdoutWriter) WriteCommand(row telemetry.CommandRow) error {
	data, _ := json.Marshal(row)
	fmt.Fprintln(w.out, string(data))
	return nil
}
