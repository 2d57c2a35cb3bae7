package choreo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"dronechoreo/internal/telemetry"
)

// greptimeClient is the slice of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter exports show rows to GreptimeDB via the ingester client.
// Tables are created on first write.
type GreptimeDBWriter struct {
	client     greptimeClient
	transTable string
	adaptTable string
	stateTable string
	cmdTable   string
}

// NewGreptimeDBWriter connects to a GreptimeDB endpoint, given as "host" or
// "host:port", and database.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host := endpoint
	port := 0
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:     client,
		transTable: telemetry.TransitionTableName,
		adaptTable: telemetry.AdaptationTableName,
		stateTable: telemetry.VehicleStateTableName,
		cmdTable:   telemetry.CommandTableName,
	}, nil
}

// WriteTransition inserts a single transition leg.
func (w *GreptimeDBWriter) WriteTransition(row telemetry.TransitionRow) error {
	return w.WriteTransitions([]telemetry.TransitionRow{row})
}

// WriteTransitions inserts multiple transition legs.
func (w *GreptimeDBWriter) WriteTransitions(rows []telemetry.TransitionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.transTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("session_id", types.STRING),
		tbl.AddTagColumn("formation", types.STRING),
		tbl.AddTagColumn("vehicle", types.INT64),
		tbl.AddFieldColumn("generation", types.UINT64),
		tbl.AddFieldColumn("slot", types.INT64),
		tbl.AddFieldColumn("method", types.STRING),
		tbl.AddFieldColumn("delay", types.FLOAT64),
		tbl.AddFieldColumn("move_duration", types.FLOAT64),
		tbl.AddFieldColumn("from_x", types.FLOAT64),
		tbl.AddFieldColumn("from_y", types.FLOAT64),
		tbl.AddFieldColumn("from_z", types.FLOAT64),
		tbl.AddFieldColumn("to_x", types.FLOAT64),
		tbl.AddFieldColumn("to_y", types.FLOAT64),
		tbl.AddFieldColumn("to_z", types.FLOAT64),
		tbl.AddFieldColumn("min_separation", types.FLOAT64),
		tbl.AddFieldColumn("duration_s", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.SessionID, r.Formation, int64(r.Vehicle),
			r.Generation, int64(r.Slot), r.Method,
			r.Delay, r.MoveDuration,
			r.FromX, r.FromY, r.FromZ,
			r.ToX, r.ToY, r.ToZ,
			r.MinSeparation, r.DurationS, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteAdaptation inserts a replan summary. The active roster lands in a
// JSON column.
func (w *GreptimeDBWriter) WriteAdaptation(row telemetry.AdaptationRow) error {
	tbl, err := table.New(w.adaptTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("session_id", types.STRING),
		tbl.AddTagColumn("trigger", types.STRING),
		tbl.AddFieldColumn("generation", types.UINT64),
		tbl.AddFieldColumn("cause", types.STRING),
		tbl.AddFieldColumn("method", types.STRING),
		tbl.AddFieldColumn("used_oracle", types.BOOLEAN),
		tbl.AddFieldColumn("active_count", types.INT64),
		tbl.AddFieldColumn("holding_count", types.INT64),
		tbl.AddFieldColumn("departed_count", types.INT64),
		tbl.AddFieldColumn("assigned_count", types.INT64),
		tbl.AddFieldColumn("active_ids", types.JSON),
		tbl.AddFieldColumn("elapsed_ms", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	ids, _ := json.Marshal(row.ActiveIDs)
	if err := tbl.AddRow(
		row.SessionID, row.Trigger,
		row.Generation, row.Cause, row.Method, row.UsedOracle,
		int64(row.ActiveCount), int64(row.HoldingCount),
		int64(row.DepartedCount), int64(row.AssignedCount),
		string(ids), row.ElapsedMS, row.Timestamp,
	); err != nil {
		return err
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteVehicleState inserts a single vehicle lifecycle row.
func (w *GreptimeDBWriter) WriteVehicleState(row telemetry.VehicleStateRow) error {
	return w.WriteVehicleStates([]telemetry.VehicleStateRow{row})
}

// WriteVehicleStates inserts multiple vehicle lifecycle rows.
func (w *GreptimeDBWriter) WriteVehicleStates(rows []telemetry.VehicleStateRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("session_id", types.STRING),
		tbl.AddTagColumn("vehicle", types.INT64),
		tbl.AddFieldColumn("generation", types.UINT64),
		tbl.AddFieldColumn("phase", types.STRING),
		tbl.AddFieldColumn("cause", types.STRING),
		tbl.AddFieldColumn("priority", types.STRING),
		tbl.AddFieldColumn("x", types.FLOAT64),
		tbl.AddFieldColumn("y", types.FLOAT64),
		tbl.AddFieldColumn("z", types.FLOAT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.SessionID, int64(r.Vehicle),
			r.Generation, r.Phase, r.Cause, r.Priority,
			r.X, r.Y, r.Z, r.Timestamp,
		); err != nil {
			return err
		}
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteCommand inserts an issued command row.
func (w *GreptimeDBWriter) WriteCommand(row telemetry.CommandRow) error {
	tbl, err := table.New(w.cmdTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("session_id", types.STRING),
		tbl.AddFieldColumn("targets", types.STRING),
		tbl.AddFieldColumn("code", types.STRING),
		tbl.AddFieldColumn("frame", types.STRING),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	if err := tbl.AddRow(row.SessionID, row.Targets, row.Code, row.Frame, row.Timestamp); err != nil {
		return err
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}
