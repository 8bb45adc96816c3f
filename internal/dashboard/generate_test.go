package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv(DatasourceEnv, "")
	dir := t.TempDir()
	if err := Render(dir, DefaultTables()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
	if _, err := os.Stat(filepath.Join(dir, "storebench-runs.json")); !os.IsNotExist(err) {
		t.Fatalf("partial dashboard left behind: %v", err)
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv(DatasourceEnv, "uid1")

	dir := t.TempDir()
	if err := Render(dir, Tables{Runs: "bench_runs", Phases: "bench_phases"}); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "storebench-runs.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	var doc struct {
		Panels []struct {
			Title string `json:"title"`
		} `json:"panels"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("dashboard is not valid JSON: %v", err)
	}
	if len(doc.Panels) != 6 {
		t.Fatalf("got %d panels, want 6", len(doc.Panels))
	}
	s := string(b)
	for _, want := range []string{"uid1", "FROM bench_runs", "FROM bench_phases"} {
		if !strings.Contains(s, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestRenderWithoutPhases(t *testing.T) {
	t.Setenv(DatasourceEnv, "uid1")
	dir := t.TempDir()
	if err := Render(dir, Tables{Phases: "-"}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "storebench-runs.json"))
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("dashboard is not valid JSON: %v", err)
	}
	if got := len(doc["panels"].([]any)); got != 5 {
		t.Fatalf("got %d panels, want 5", got)
	}
	if !strings.Contains(string(b), "FROM storebench_runs") {
		t.Fatalf("default runs table not used")
	}
}
