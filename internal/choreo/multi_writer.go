package choreo

import "dronechoreo/internal/telemetry"

// MultiWriter fans show rows out to multiple writers.
type MultiWriter struct {
	writers []RowWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(writers ...RowWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteTransition sends a transition leg to all writers.
func (mw *MultiWriter) WriteTransition(row telemetry.TransitionRow) error {
	for _, w := range mw.writers {
		if err := w.WriteTransition(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteTransitions sends multiple transition legs to all writers, using
// batch mode where supported.
func (mw *MultiWriter) WriteTransitions(rows []telemetry.TransitionRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchTransitionWriter); ok {
			if err := bw.WriteTransitions(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteTransition(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAdaptation sends a replan summary to all writers.
func (mw *MultiWriter) WriteAdaptation(row telemetry.AdaptationRow) error {
	for _, w := range mw.writers {
		if err := w.WriteAdaptation(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteVehicleState sends a vehicle lifecycle row to all writers.
func (mw *MultiWriter) WriteVehicleState(row telemetry.VehicleStateRow) error {
	for _, w := range mw.writers {
		if err := w.WriteVehicleState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteVehicleStates sends multiple vehicle lifecycle rows to all writers,
// using batch mode where supported.
func (mw *MultiWriter) WriteVehicleStates(rows []telemetry.VehicleStateRow) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchStateWriter); ok {
			if err := bw.WriteVehicleStates(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteVehicleState(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteCommand sends an issued command row to all writers.
func (mw *MultiWriter) WriteCommand(row telemetry.CommandRow) error {
	for _, w := range mw.writers {
		if err := w.WriteCommand(row); err != nil {
			return err
		}
	}
	return nil
}

// SetAdminStatus forwards the admin listening state to writers that show it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}
