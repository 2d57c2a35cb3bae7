// Package dashboard renders the Grafana dashboard shipped with the show
// telemetry tables.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"dronechoreo/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// data feeds the dashboard templates: the Grafana datasource UID plus the
// table names the writers export to, so env overrides carry through.
type data struct {
	DatasourceUID   string
	TransitionTable string
	AdaptationTable string
	StateTable      string
	CommandTable    string
}

// Render writes the rendered dashboard JSON files to outDir. The target
// datasource comes from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir string) error {
	uid := os.Getenv("GREPTIMEDB_DATASOURCE_UID")
	if uid == "" {
		return fmt.Errorf("environment variable GREPTIMEDB_DATASOURCE_UID not set")
	}
	d := data{
		DatasourceUID:   uid,
		TransitionTable: telemetry.TransitionTableName,
		AdaptationTable: telemetry.AdaptationTableName,
		StateTable:      telemetry.VehicleStateTableName,
		CommandTable:    telemetry.CommandTableName,
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	entries, err := templates.ReadDir("templates")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		t, err := template.ParseFS(templates, "templates/"+entry.Name())
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(entry.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, d); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
