package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"dronechoreo/internal/choreo"
	"dronechoreo/internal/config"
	"dronechoreo/internal/logging"
	"dronechoreo/internal/planner"
	"dronechoreo/internal/swarm"
	"dronechoreo/internal/telemetry"
)

var (
	planConfigPath string
	planSchemaPath string
	planFrom       string
	planTo         string
	planOutput     string
	planPrintOnly  bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan one formation transition",
	Long:  "plan solves the slot assignment and collision staggering for a single transition and exports the legs as rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(planConfigPath, planSchemaPath)
		if err != nil {
			return err
		}
		ctx := logging.NewContext(context.Background(), slog.Default())

		show, err := cfg.ShowSequence()
		if err != nil {
			return err
		}
		target := show[0]
		if planTo != "" {
			if target, err = resolveFormation(cfg, planTo); err != nil {
				return err
			}
		}
		fleet := cfg.Fleet()
		if planFrom != "" {
			from, err := resolveFormation(cfg, planFrom)
			if err != nil {
				return err
			}
			fleet = fleetAt(fleet, from)
		}

		writer, _, cleanup, err := newWriters(cfg, planPrintOnly, planOutput, false)
		if err != nil {
			return err
		}
		defer cleanup()

		oracle := newOracle(cfg)
		opts, err := cfg.SolverOptions()
		if err != nil {
			return err
		}
		cons := cfg.Constraints()

		coord := swarm.NewCoordinator(fleet, target, cons, oracle, opts, 0, nil)
		res := coord.Replan(ctx)
		plan, err := choreo.PlanAdaptation(ctx, oracle, coord.State(), target, res, cons, opts)
		if err != nil {
			return err
		}
		if plan == nil {
			return fmt.Errorf("nothing to plan: the roster is empty")
		}

		now := time.Now()
		session := telemetry.NewSessionID()
		if err := writer.WriteAdaptation(telemetry.NewAdaptationRow(session, telemetry.TriggerOperator, target.Name, res, now)); err != nil {
			return err
		}
		for _, row := range telemetry.TransitionRows(session, res.Generation, target.Name, plan, now) {
			if err := writer.WriteTransition(row); err != nil {
				return err
			}
		}
		logging.FromContext(ctx).Info("transition planned",
			"formation", target.Name, "legs", len(plan.Paths), "method", plan.Method,
			"min_separation", plan.MinSeparation, "duration", plan.Duration,
			"assignment_method", res.Method, "oracle", plan.Solve.UsedOracle)
		return nil
	},
}

// resolveFormation looks a name up among the mission's formations, falling
// back to the built-in generators the way the show sequence does.
func resolveFormation(cfg *config.MissionConfig, name string) (planner.Formation, error) {
	for _, f := range cfg.Formations {
		if f.Name == name {
			return f.Resolve(cfg.RosterSize())
		}
	}
	return config.FormationConfig{Name: name}.Resolve(cfg.RosterSize())
}

// fleetAt re-seats the fleet on a formation's slots, keeping ids and
// profiles where the roster covers them.
func fleetAt(fleet []swarm.Vehicle, f planner.Formation) []swarm.Vehicle {
	out := make([]swarm.Vehicle, len(f.Slots))
	for i := range out {
		out[i] = swarm.Vehicle{ID: i, Position: f.Slots[i]}
		if i < len(fleet) {
			out[i].ID = fleet[i].ID
			out[i].Profile = fleet[i].Profile
		}
	}
	return out
}

func init() {
	planCmd.Flags().StringVar(&planConfigPath, "config", "config/mission.yaml", "Path to mission configuration YAML")
	planCmd.Flags().StringVar(&planSchemaPath, "schema", "schemas/mission.cue", "Path to CUE schema file")
	planCmd.Flags().StringVar(&planFrom, "from", "", "Start formation (defaults to the roster's positions)")
	planCmd.Flags().StringVar(&planTo, "to", "", "Target formation (defaults to the first show step)")
	planCmd.Flags().StringVar(&planOutput, "output", "", "Path to export plan rows (JSONL)")
	planCmd.Flags().BoolVar(&planPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
}
