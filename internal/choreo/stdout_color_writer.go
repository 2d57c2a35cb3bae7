// ColorStdoutWriter prints human-friendly, colorized show rows to STDOUT.
package choreo

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"dronechoreo/internal/config"
	"dronechoreo/internal/swarm"
	"dronechoreo/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints show rows using ANSI colors.
type ColorStdoutWriter struct {
	cfg             *config.MissionConfig
	out             io.Writer
	once            sync.Once
	formationColors map[string]string
	colorIdx        int
}

var formationPalette = []string{colorRed, colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.MissionConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{
		cfg:             cfg,
		out:             os.Stdout,
		formationColors: make(map[string]string),
	}
}

func (w *ColorStdoutWriter) getFormationColor(name string) string {
	if c, ok := w.formationColors[name]; ok {
		return c
	}
	c := formationPalette[w.colorIdx%len(formationPalette)]
	w.formationColors[name] = c
	w.colorIdx++
	return c
}

func phaseColor(phase string) string {
	switch phase {
	case string(swarm.Active):
		return colorGreen
	case string(swarm.Holding):
		return colorYellow
	case string(swarm.Departed):
		return colorRed
	case string(swarm.Returning):
		return colorCyan
	default:
		return colorGray
	}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintf(w.out, "Mission: %s\n", w.cfg.Name)
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Roster Size:\t%d\n", w.cfg.RosterSize())
	cons := w.cfg.Constraints()
	fmt.Fprintf(tw, "Separation (m):\t%.1f\n", cons.MinSeparation)
	fmt.Fprintf(tw, "Max Velocity (m/s):\t%.1f\n", cons.MaxVelocity)
	fmt.Fprintf(tw, "Delay Steps:\t%d\n", cons.DelaySteps)
	if ceiling, err := w.cfg.HoldCeilingDuration(); err == nil && ceiling > 0 {
		fmt.Fprintf(tw, "Hold Ceiling:\t%s\n", ceiling)
	}
	tw.Flush()

	if seq, err := w.cfg.ShowSequence(); err == nil && len(seq) > 0 {
		names := make([]string, len(seq))
		for i, s := range seq {
			names[i] = s.Name
		}
		fmt.Fprintf(w.out, "\nShow: %s\n", strings.Join(names, " -> "))
	}

	if len(w.cfg.Formations) > 0 {
		fmt.Fprintln(w.out, "\nFormations:")
		tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Name\tShape\tSlots\n")
		for _, f := range w.cfg.Formations {
			resolved, err := f.Resolve(w.cfg.RosterSize())
			if err != nil {
				continue
			}
			shape := f.Builtin
			if len(f.Slots) > 0 {
				shape = "custom"
			} else if shape == "" {
				shape = f.Name
			}
			col := w.getFormationColor(f.Name)
			fmt.Fprintf(tw, "%s%s%s\t%s\t%d\n", col, f.Name, colorReset, shape, len(resolved.Slots))
		}
		tw.Flush()
	}
	fmt.Fprintln(w.out)
}

// WriteTransition outputs a single transition leg in colorized format.
func (w *ColorStdoutWriter) WriteTransition(row telemetry.TransitionRow) error {
	w.once.Do(w.printOverview)

	fColor := w.getFormationColor(row.Formation)
	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sformation=%s%s ", fColor, row.Formation, colorReset)
	fmt.Fprintf(w.out, "%sgen=%d%s ", colorBlue, row.Generation, colorReset)
	fmt.Fprintf(w.out, "%svehicle=%d%s ", colorWhite, row.Vehicle, colorReset)
	fmt.Fprintf(w.out, "%sslot=%d%s ", colorGreen, row.Slot, colorReset)
	fmt.Fprintf(w.out, "%sdelay=%.2f%s ", colorYellow, row.Delay, colorReset)
	fmt.Fprintf(w.out, "%smove=%.2f%s ", colorCyan, row.MoveDuration, colorReset)
	fmt.Fprintf(w.out, "%sfrom=(%.1f,%.1f,%.1f)%s ", colorGray, row.FromX, row.FromY, row.FromZ, colorReset)
	fmt.Fprintf(w.out, "%sto=(%.1f,%.1f,%.1f)%s ", colorMagenta, row.ToX, row.ToY, row.ToZ, colorReset)
	fmt.Fprintf(w.out, "%smethod=%s%s", colorBlue, row.Method, colorReset)
	fmt.Fprintln(w.out)
	return nil
}

// WriteTransitions outputs multiple transition legs.
func (w *ColorStdoutWriter) WriteTransitions(rows []telemetry.TransitionRow) error {
	for _, r := range rows {
		_ = w.WriteTransition(r)
	}
	return nil
}

// WriteAdaptation prints a replan summary to STDOUT.
func (w *ColorStdoutWriter) WriteAdaptation(row telemetry.AdaptationRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sADAPT%s gen=%d trigger=%s cause=%s method=%s active=%d holding=%d departed=%d elapsed=%.1fms",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorCyan, colorReset, row.Generation, row.Trigger, row.Cause,
		row.Method, row.ActiveCount, row.HoldingCount, row.DepartedCount, row.ElapsedMS)
	if row.UsedOracle {
		fmt.Fprintf(w.out, " %soracle%s", colorMagenta, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteVehicleState prints a vehicle lifecycle row to STDOUT.
func (w *ColorStdoutWriter) WriteVehicleState(row telemetry.VehicleStateRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sVEHICLE%s vehicle=%d gen=%d %sphase=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Vehicle, row.Generation,
		phaseColor(row.Phase), row.Phase, colorReset)
	if row.Cause != "" {
		fmt.Fprintf(w.out, " cause=%s", row.Cause)
	}
	if row.Priority != "" {
		fmt.Fprintf(w.out, " prio=%s", row.Priority)
	}
	fmt.Fprintf(w.out, " pos=(%.1f,%.1f,%.1f)\n", row.X, row.Y, row.Z)
	return nil
}

// WriteVehicleStates prints multiple vehicle lifecycle rows.
func (w *ColorStdoutWriter) WriteVehicleStates(rows []telemetry.VehicleStateRow) error {
	for _, r := range rows {
		_ = w.WriteVehicleState(r)
	}
	return nil
}

// WriteCommand prints an issued command to STDOUT.
func (w *ColorStdoutWriter) WriteCommand(row telemetry.CommandRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sCOMMAND%s targets=%s code=%s frame=%s\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, row.Targets, row.Code, row.Frame)
	return nil
}
