// Package dashboard renders Grafana dashboards for benchmark runs stored in
// GreptimeDB.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"storebench/internal/output"
)

// DatasourceEnv names the variable holding the Grafana datasource UID.
const DatasourceEnv = "GREPTIMEDB_DATASOURCE_UID"

//go:embed templates/*.tmpl
var templates embed.FS

var templateFiles = []string{
	"storebench-runs.json.tmpl",
}

// Tables names the GreptimeDB tables the dashboard queries.
type Tables struct {
	Runs   string
	Phases string
}

// DefaultTables returns the tables the GreptimeDB writer creates by default.
func DefaultTables() Tables {
	return Tables{Runs: output.DefaultRunsTable, Phases: output.DefaultPhasesTable}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// An empty Phases table drops the phase panels.
func Render(outDir string, tables Tables) error {
	if tables.Runs == "" {
		tables.Runs = output.DefaultRunsTable
	}
	if tables.Phases == "-" {
		tables.Phases = ""
	}
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tplName := range templateFiles {
		t, err := template.New(tplName).Funcs(funcMap).ParseFS(templates, "templates/"+tplName)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(tplName, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, tables); err != nil {
			f.Close()
			os.Remove(outPath)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
