package telemetry

import (
	"os"
	"time"

	"dronechoreo/internal/swarm"
)

// Adaptation triggers recorded on rows.
const (
	TriggerEvent    = "event"
	TriggerShowStep = "show_step"
	TriggerOperator = "operator"
)

// AdaptationRow summarizes one replanning pass of the swarm.
type AdaptationRow struct {
	SessionID     string    `json:"session_id"` // TAG
	Trigger       string    `json:"trigger"`    // TAG
	Generation    uint64    `json:"generation"`
	Cause         string    `json:"cause,omitempty"`
	Method        string    `json:"method"`
	UsedOracle    bool      `json:"used_oracle"`
	ActiveCount   int       `json:"active_count"`
	HoldingCount  int       `json:"holding_count"`
	DepartedCount int       `json:"departed_count"`
	AssignedCount int       `json:"assigned_count"`
	ActiveIDs     []int64   `json:"active_ids"` // JSON
	ElapsedMS     float64   `json:"elapsed_ms"`
	Timestamp     time.Time `json:"ts"` // TIME INDEX
}

// AdaptationTableName holds the table name for adaptation rows. Override
// with the CHOREO_ADAPTATION_TABLE environment variable.
var AdaptationTableName = func() string {
	if env := os.Getenv("CHOREO_ADAPTATION_TABLE"); env != "" {
		return env
	}
	return "choreo_adaptations"
}()

func (AdaptationRow) TableName() string {
	return AdaptationTableName
}

// NewAdaptationRow captures a replan result. cause carries the event code
// for event-triggered replans and the formation name for show steps.
func NewAdaptationRow(session, trigger, cause string, res *swarm.AdaptationResult, at time.Time) AdaptationRow {
	ids := make([]int64, len(res.Active))
	for i, id := range res.Active {
		ids[i] = int64(id)
	}
	return AdaptationRow{
		SessionID:     session,
		Trigger:       trigger,
		Generation:    res.Generation,
		Cause:         cause,
		Method:        res.Method,
		UsedOracle:    res.UsedOracle,
		ActiveCount:   len(res.Active),
		HoldingCount:  len(res.Holding),
		DepartedCount: len(res.Departed),
		AssignedCount: len(res.Assignments),
		ActiveIDs:     ids,
		ElapsedMS:     float64(res.Elapsed.Microseconds()) / 1000,
		Timestamp:     at,
	}
}
