package choreo

import (
	"encoding/json"
	"os"

	"dronechoreo/internal/telemetry"
)

// FileWriter writes show rows to JSONL files, one file per row kind.
type FileWriter struct {
	transFile *os.File
	adaptFile *os.File
	stateFile *os.File
	cmdFile   *os.File
	transEnc  *json.Encoder
	adaptEnc  *json.Encoder
	stateEnc  *json.Encoder
	cmdEnc    *json.Encoder
}

// NewFileWriter creates a FileWriter. adaptationPath, statePath, or
// commandPath may be empty to skip those logs.
func NewFileWriter(transitionPath, adaptationPath, statePath, commandPath string) (*FileWriter, error) {
	tf, err := os.Create(transitionPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{transFile: tf, transEnc: json.NewEncoder(tf)}
	if adaptationPath != "" {
		af, err := os.Create(adaptationPath)
		if err != nil {
			tf.Close()
			return nil, err
		}
		fw.adaptFile = af
		fw.adaptEnc = json.NewEncoder(af)
	}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			if fw.adaptFile != nil {
				fw.adaptFile.Close()
			}
			tf.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	if commandPath != "" {
		cf, err := os.Create(commandPath)
		if err != nil {
			if fw.adaptFile != nil {
				fw.adaptFile.Close()
			}
			if fw.stateFile != nil {
				fw.stateFile.Close()
			}
			tf.Close()
			return nil, err
		}
		fw.cmdFile = cf
		fw.cmdEnc = json.NewEncoder(cf)
	}
	return fw, nil
}

// WriteTransition logs a single transition leg.
func (f *FileWriter) WriteTransition(row telemetry.TransitionRow) error {
	return f.transEnc.Encode(row)
}

// WriteTransitions logs multiple transition legs.
func (f *FileWriter) WriteTransitions(rows []telemetry.TransitionRow) error {
	for _, r := range rows {
		if err := f.WriteTransition(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAdaptation logs a replan summary row, if enabled.
func (f *FileWriter) WriteAdaptation(row telemetry.AdaptationRow) error {
	if f.adaptEnc == nil {
		return nil
	}
	return f.adaptEnc.Encode(row)
}

// WriteVehicleState logs a vehicle lifecycle row, if enabled.
func (f *FileWriter) WriteVehicleState(row telemetry.VehicleStateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// WriteVehicleStates logs multiple vehicle lifecycle rows.
func (f *FileWriter) WriteVehicleStates(rows []telemetry.VehicleStateRow) error {
	for _, r := range rows {
		if err := f.WriteVehicleState(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteCommand logs an issued command row, if enabled.
func (f *FileWriter) WriteCommand(row telemetry.CommandRow) error {
	if f.cmdEnc == nil {
		return nil
	}
	return f.cmdEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.transFile != nil {
		if e := f.transFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.adaptFile != nil {
		if e := f.adaptFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.stateFile != nil {
		if e := f.stateFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.cmdFile != nil {
		if e := f.cmdFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
