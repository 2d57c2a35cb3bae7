// Package config loads mission definitions from YAML, validated against a
// CUE schema before decoding.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dronechoreo/internal/geometry"
	"dronechoreo/internal/planner"
	"dronechoreo/internal/solver"
	"dronechoreo/internal/swarm"
)

// Defaults applied when a mission file leaves a knob unset.
const (
	DefaultSpacingM  = 5.0
	DefaultAltitudeM = 20.0
)

// VehicleConfig is one roster entry. Profile fields left zero inherit the
// swarm defaults.
type VehicleConfig struct {
	ID       int                 `yaml:"id"`
	Position geometry.Position3D `yaml:"position"`
	Profile  swarm.Profile       `yaml:"profile"`
}

// PlanningConfig overrides the planner's default constraints. Zero fields
// keep the defaults.
type PlanningConfig struct {
	SeparationM    float64 `yaml:"separation_m"`
	MaxVelocityMPS float64 `yaml:"max_velocity_mps"`
	DelaySteps     int     `yaml:"delay_steps"`
	Samples        int     `yaml:"samples"`
}

// SolverConfig tunes the solve orchestrator and the optional sampling
// oracle. TimeBudget is a Go duration string ("250ms").
type SolverConfig struct {
	VariableCeiling int    `yaml:"variable_ceiling"`
	TimeBudget      string `yaml:"time_budget"`
	Samples         int    `yaml:"samples"`
	Annealer        bool   `yaml:"annealer"`
	Seed            int64  `yaml:"seed"`
}

// FormationConfig names one formation of the show. Either Slots lists the
// targets explicitly, or Builtin (defaulting to Name) picks a generator
// from the built-in library.
type FormationConfig struct {
	Name      string                `yaml:"name"`
	Builtin   string                `yaml:"builtin"`
	Count     int                   `yaml:"count"`
	SpacingM  float64               `yaml:"spacing_m"`
	AltitudeM float64               `yaml:"altitude_m"`
	Slots     []geometry.Position3D `yaml:"slots"`
}

// MissionConfig is the root mission definition: the roster, the planning
// and solver knobs, and the show's formation sequence.
type MissionConfig struct {
	Name        string            `yaml:"name"`
	Vehicles    []VehicleConfig   `yaml:"vehicles"`
	FleetSize   int               `yaml:"fleet_size"`
	Planning    PlanningConfig    `yaml:"planning"`
	Solver      SolverConfig      `yaml:"solver"`
	HoldCeiling string            `yaml:"hold_ceiling"`
	Formations  []FormationConfig `yaml:"formations"`
	Show        []string          `yaml:"show"`
}

// Load reads a mission YAML file, validates it against the CUE schema, and
// decodes it.
func Load(configPath, cueSchemaPath string) (*MissionConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg MissionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal mission config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules the CUE schema cannot express:
// unique vehicle ids, resolvable formations, a show that references only
// defined formations, parseable durations.
func (cfg *MissionConfig) Validate() error {
	if len(cfg.Vehicles) == 0 && cfg.FleetSize <= 0 {
		return fmt.Errorf("mission %q has no vehicles and no fleet_size", cfg.Name)
	}
	seen := make(map[int]bool, len(cfg.Vehicles))
	for _, v := range cfg.Vehicles {
		if seen[v.ID] {
			return fmt.Errorf("duplicate vehicle id %d", v.ID)
		}
		seen[v.ID] = true
	}
	if cfg.Planning.DelaySteps == 1 {
		return fmt.Errorf("planning.delay_steps 1 cannot stagger anything; use 0 for the default or at least 2")
	}
	if err := cfg.Constraints().Validate(); err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	if _, err := cfg.SolverOptions(); err != nil {
		return err
	}
	if _, err := cfg.HoldCeilingDuration(); err != nil {
		return err
	}

	names := make(map[string]bool, len(cfg.Formations))
	for _, f := range cfg.Formations {
		if f.Name == "" {
			return fmt.Errorf("formation without a name")
		}
		if names[f.Name] {
			return fmt.Errorf("duplicate formation %q", f.Name)
		}
		names[f.Name] = true
		if _, err := f.Resolve(cfg.RosterSize()); err != nil {
			return err
		}
	}
	for _, s := range cfg.Show {
		if !names[s] {
			if _, ok := BuiltIn()[s]; !ok {
				return fmt.Errorf("show step %q is neither a defined formation nor a built-in", s)
			}
		}
	}
	return nil
}

// RosterSize is the number of vehicles the mission starts with.
func (cfg *MissionConfig) RosterSize() int {
	if len(cfg.Vehicles) > 0 {
		return len(cfg.Vehicles)
	}
	return cfg.FleetSize
}

// Fleet builds the swarm roster. With no explicit vehicles the fleet starts
// as a ground line of fleet_size vehicles.
func (cfg *MissionConfig) Fleet() []swarm.Vehicle {
	if len(cfg.Vehicles) > 0 {
		fleet := make([]swarm.Vehicle, len(cfg.Vehicles))
		for i, v := range cfg.Vehicles {
			fleet[i] = swarm.Vehicle{ID: v.ID, Position: v.Position, Profile: v.Profile}
		}
		return fleet
	}
	slots := Line(cfg.FleetSize, DefaultSpacingM, 0)
	fleet := make([]swarm.Vehicle, cfg.FleetSize)
	for i := range fleet {
		fleet[i] = swarm.Vehicle{ID: i, Position: slots[i]}
	}
	return fleet
}

// Constraints merges the planning overrides onto the planner defaults.
func (cfg *MissionConfig) Constraints() planner.Constraints {
	c := planner.DefaultConstraints()
	if cfg.Planning.SeparationM > 0 {
		c = c.WithSeparation(cfg.Planning.SeparationM)
	}
	if cfg.Planning.MaxVelocityMPS > 0 {
		c = c.WithMaxVelocity(cfg.Planning.MaxVelocityMPS)
	}
	if cfg.Planning.DelaySteps > 0 {
		c = c.WithDelaySteps(cfg.Planning.DelaySteps)
	}
	if cfg.Planning.Samples > 0 {
		c = c.WithSamples(cfg.Planning.Samples)
	}
	return c
}

// SolverOptions merges the solver overrides onto the orchestrator defaults.
func (cfg *MissionConfig) SolverOptions() (solver.Options, error) {
	opts := solver.Options{
		VariableCeiling: cfg.Solver.VariableCeiling,
		Samples:         cfg.Solver.Samples,
	}
	if cfg.Solver.TimeBudget != "" {
		d, err := time.ParseDuration(cfg.Solver.TimeBudget)
		if err != nil {
			return opts, fmt.Errorf("solver.time_budget: %w", err)
		}
		opts.TimeBudget = d
	}
	return opts, nil
}

// HoldCeilingDuration parses the hold ceiling; zero means the swarm default.
func (cfg *MissionConfig) HoldCeilingDuration() (time.Duration, error) {
	if cfg.HoldCeiling == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(cfg.HoldCeiling)
	if err != nil {
		return 0, fmt.Errorf("hold_ceiling: %w", err)
	}
	return d, nil
}

// Resolve turns the formation config into slot positions. defaultCount is
// used when Count is unset, so generated formations match the roster.
func (f FormationConfig) Resolve(defaultCount int) (planner.Formation, error) {
	if len(f.Slots) > 0 {
		return planner.Formation{Name: f.Name, Slots: f.Slots}, nil
	}
	key := f.Builtin
	if key == "" {
		key = f.Name
	}
	gen, ok := BuiltIn()[key]
	if !ok {
		return planner.Formation{}, fmt.Errorf("formation %q: no built-in generator %q", f.Name, key)
	}
	count := f.Count
	if count <= 0 {
		count = defaultCount
	}
	if count <= 0 {
		return planner.Formation{}, fmt.Errorf("formation %q: vehicle count unknown", f.Name)
	}
	spacing := f.SpacingM
	if spacing <= 0 {
		spacing = DefaultSpacingM
	}
	altitude := f.AltitudeM
	if altitude == 0 {
		altitude = DefaultAltitudeM
	}
	return planner.Formation{Name: f.Name, Slots: gen(count, spacing, altitude)}, nil
}

// ShowSequence resolves the show into concrete formations, in order. An
// empty show plays every defined formation once; a mission with neither
// plays the default built-in show.
func (cfg *MissionConfig) ShowSequence() ([]planner.Formation, error) {
	count := cfg.RosterSize()

	byName := make(map[string]FormationConfig, len(cfg.Formations))
	for _, f := range cfg.Formations {
		byName[f.Name] = f
	}
	order := cfg.Show
	if len(order) == 0 {
		for _, f := range cfg.Formations {
			order = append(order, f.Name)
		}
	}
	if len(order) == 0 {
		order = DefaultShow()
	}

	seq := make([]planner.Formation, 0, len(order))
	for _, name := range order {
		fc, ok := byName[name]
		if !ok {
			fc = FormationConfig{Name: name}
		}
		f, err := fc.Resolve(count)
		if err != nil {
			return nil, err
		}
		seq = append(seq, f)
	}
	return seq, nil
}
