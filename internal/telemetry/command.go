package telemetry

import (
	"os"
	"strconv"
	"strings"
	"time"

	"dronechoreo/internal/wire"
)

// CommandRow records one command issued to the swarm, with the frame as it
// went over the wire.
type CommandRow struct {
	SessionID string    `json:"session_id"` // TAG
	Targets   string    `json:"targets"`
	Code      string    `json:"code"`
	Frame     string    `json:"frame"`
	Timestamp time.Time `json:"ts"` // TIME INDEX
}

// CommandTableName holds the table name for command rows. Override with the
// CHOREO_COMMAND_TABLE environment variable.
var CommandTableName = func() string {
	if env := os.Getenv("CHOREO_COMMAND_TABLE"); env != "" {
		return env
	}
	return "choreo_commands"
}()

func (CommandRow) TableName() string {
	return CommandTableName
}

// NewCommandRow records an issued command.
func NewCommandRow(session string, cmd wire.Command, at time.Time) CommandRow {
	targets := "*"
	if !cmd.Broadcast() {
		parts := make([]string, len(cmd.Targets))
		for i, id := range cmd.Targets {
			parts[i] = strconv.Itoa(id)
		}
		targets = strings.Join(parts, ",")
	}
	code := ""
	if cmd.Action != nil {
		code = cmd.Action.Code()
	}
	return CommandRow{
		SessionID: session,
		Targets:   targets,
		Code:      code,
		Frame:     wire.EncodeCommand(cmd),
		Timestamp: at,
	}
}
