package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rekrutacje/internal/core"
)

const seedYAML = `records:
  - reference_id: R-1
    department: IT
    division: Tech
    position: Developer
    location: Krakow
    hiring_manager: A. Nowak
    collar_type: White
    reason: New Position
    opened_date: 2024-01-01
    hired_date: 2024-01-31
    closed_date: 2024-02-05
    cv_received: 10
    recruiter_meetings: 4
    offers_extended: 1
    hired_count: 1
  - reference_id: R-2
    department: Production
    division: Ops
    position: Operator
    location: Gliwice
    hiring_manager: B. Kowalski
    collar_type: Blue
    reason: Replacement
    opened_date: 2024-02-01
    cv_received: 5
    recruiter_meetings: 1
`

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flags = sourceFlags{}
	statsCriteria = core.FilterCriteria{}
	statsJSON = false
	exportOut = ""
	importFromSheets = false
	clearConfirmed = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(seedYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStatsFromSeedFile(t *testing.T) {
	seed := writeSeed(t)

	out, err := execute(t, "stats", "--file", seed)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Requisitions", "1 / 1 / 1", "30.0 days", "Production"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "stats", "--file", seed, "--department", "Legal")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "No data") {
		t.Errorf("expected the no-data message, got %q", out)
	}

	if _, err := execute(t, "stats", "--file", seed, "--date-from", "2024/01/01"); err == nil {
		t.Error("expected an error for a malformed date")
	}
}

func TestSourcesAreExclusive(t *testing.T) {
	if _, err := execute(t, "stats", "--file", "a.yaml", "--db", "b.db"); err == nil {
		t.Fatal("expected an error when two sources are given")
	}
}

func TestExportThenImport(t *testing.T) {
	dir := t.TempDir()
	seed := writeSeed(t)
	backup := filepath.Join(dir, "backup.json")
	store := filepath.Join(dir, "local_store.json")

	if _, err := execute(t, "export", "--file", seed, "--out", backup); err != nil {
		t.Fatalf("export: %v", err)
	}

	out, err := execute(t, "import", backup, "--file", store)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported: 2") {
		t.Errorf("unexpected import output: %s", out)
	}

	out, err = execute(t, "import", backup, "--file", store)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !strings.Contains(out, "Skipped:  2") {
		t.Errorf("re-import should skip existing references: %s", out)
	}

	out, err = execute(t, "stats", "--file", store, "--json")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, `"total": 2`) {
		t.Errorf("unexpected stats JSON: %s", out)
	}
}

func TestClearLocalStore(t *testing.T) {
	dir := t.TempDir()
	seed := writeSeed(t)
	backup := filepath.Join(dir, "backup.json")
	store := filepath.Join(dir, "local_store.json")

	if _, err := execute(t, "export", "--file", seed, "--out", backup); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := execute(t, "import", backup, "--file", store); err != nil {
		t.Fatalf("import: %v", err)
	}

	if _, err := execute(t, "clear", "--file", store); err == nil {
		t.Fatal("clear without --yes must fail")
	}
	if _, err := execute(t, "clear", "--file", seed, "--yes"); err == nil {
		t.Fatal("seed files must not be cleared")
	}
	if _, err := execute(t, "clear", "--db", filepath.Join(dir, "r.db"), "--yes"); err == nil {
		t.Fatal("databases must not be cleared")
	}

	out, err := execute(t, "clear", "--file", store, "--yes")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !strings.Contains(out, "Deleted 2 records") {
		t.Errorf("unexpected clear output: %s", out)
	}

	out, err = execute(t, "export", "--file", store)
	if err != nil {
		t.Fatalf("export after clear: %v", err)
	}
	if !strings.Contains(out, `"records": []`) {
		t.Errorf("store should be empty after clear: %s", out)
	}
}
