package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"threephase/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "threephase", "config.toml")

	out, _, err := runCLI(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration to "+path) {
		t.Fatalf("unexpected init output %q", out)
	}
	if _, _, err := runCLI(t, "config", "init", "--path", path); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing-file error, got %v", err)
	}

	out, _, err = runCLI(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Config path: "+path) || !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", out)
	}
}

func TestWriteRecordsFilesWrittenSession(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubOptions{Sensors: 2, Steps: 4})

	out, _, err := env.run(t, append([]string{"write", "--json"}, env.recipeArgs("office")...)...)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	var session sessionOutput
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("decode write output: %v\n%s", err, out)
	}
	if session.State != "files_written" || session.Project != "office" {
		t.Fatalf("unexpected session %#v", session)
	}
	if len(session.Stages) != 4 {
		t.Fatalf("expected 4 stages, got %v", session.Stages)
	}
	if _, err := os.Stat(session.Script); err != nil {
		t.Fatalf("script missing: %v", err)
	}

	out, _, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var runs []runOutput
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].ID != session.ID || runs[0].State != "files_written" {
		t.Fatalf("unexpected runs %#v", runs)
	}
}

func TestRunImportsAndExportsResults(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubOptions{Sensors: 2, Steps: 3})

	args := append([]string{"run", "--import", "--json"}, env.recipeArgs("office")...)
	out, _, err := env.run(t, args...)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var session sessionOutput
	if err := json.Unmarshal([]byte(out), &session); err != nil {
		t.Fatalf("decode run output: %v\n%s", err, out)
	}
	if session.State != "calculated" || session.ResultFile == "" {
		t.Fatalf("unexpected session %#v", session)
	}

	out, _, err = env.run(t, "results", "office", "--json", "--threshold", "50")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	var summary resultsOutput
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode results: %v\n%s", err, out)
	}
	if summary.RunID != session.ID || summary.Sensors != 2 || summary.Steps != 3 {
		t.Fatalf("unexpected summary %#v", summary)
	}
	// sensor 0 reads 47.4 lx and sensor 1 reads 94.8 lx at every step
	if summary.Summary[0].StepsAbove != 0 || summary.Summary[1].StepsAbove != 3 {
		t.Fatalf("unexpected threshold counts %#v", summary.Summary)
	}

	out, _, err = env.run(t, "results", "series", session.ID, "1", "--stored")
	if err != nil {
		t.Fatalf("results series: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || lines[0] != "0\t94.8" {
		t.Fatalf("unexpected stored series %q", out)
	}

	dest := t.TempDir()
	if _, _, err := env.run(t, "results", "export", "office", dest); err != nil {
		t.Fatalf("results export: %v", err)
	}
	entries, err := os.ReadDir(dest)
	if err != nil || len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".ill") {
		t.Fatalf("expected one exported .ill file, got %v (%v)", entries, err)
	}
}

func TestRunFailureLeavesSessionWritten(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubOptions{Sensors: 1, Steps: 2, DctimestepExit: 3})

	if _, _, err := env.run(t, append([]string{"run", "--skip-checks"}, env.recipeArgs("office")...)...); err == nil {
		t.Fatal("expected run to fail")
	}

	out, _, err := env.run(t, "status", "--json", "office")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var runs []runOutput
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %#v", runs)
	}
	if runs[0].State != "files_written" || runs[0].ExitCode != 3 || runs[0].ErrorMessage == "" {
		t.Fatalf("unexpected failed run %#v", runs[0])
	}

	if _, _, err := env.run(t, "results", "office"); err == nil {
		t.Fatal("expected results to refuse an uncalculated run")
	}
}

func TestBatchRunsEveryJob(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubOptions{Sensors: 1, Steps: 2})
	jobs := `jobs:
  - project: office
    scene: office.yaml
    weather: boston.epw
    points: office.pts
  - project: lobby
    scene: office.yaml
    weather: boston.epw
    points: office.pts
`
	jobsPath := filepath.Join(env.modelDir, "jobs.yaml")
	if err := os.WriteFile(jobsPath, []byte(jobs), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := env.run(t, "batch", jobsPath, "--parallel", "2", "--json")
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	var outcomes []batchOutcome
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("decode batch: %v\n%s", err, out)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %#v", outcomes)
	}
	for i, project := range []string{"office", "lobby"} {
		outcome := outcomes[i]
		if outcome.Project != project || outcome.Error != "" || outcome.Session == nil || outcome.Session.State != "calculated" {
			t.Fatalf("unexpected outcome %d: %#v", i, outcome)
		}
	}

	out, _, err = env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "office") || !strings.Contains(out, "lobby") {
		t.Fatalf("status table missing projects:\n%s", out)
	}
}

func TestCheckPassesWithStubbedRadiance(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubOptions{})
	out, _, err := env.run(t, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	for _, want := range []string{"== Preflight ==", "rfluxmtx:", "[OK]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("check output missing %q:\n%s", want, out)
		}
	}
}

func TestArchiveRequiresEnabledArchive(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubOptions{Sensors: 1, Steps: 1})
	if _, _, err := env.run(t, append([]string{"run", "--skip-checks"}, env.recipeArgs("office")...)...); err != nil {
		t.Fatalf("run: %v", err)
	}
	_, _, err := env.run(t, "archive", "office")
	if err == nil || !strings.Contains(err.Error(), "archive is disabled") {
		t.Fatalf("expected disabled archive error, got %v", err)
	}
}

func TestUnknownRunReference(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.StubOptions{})
	_, _, err := env.run(t, "results", "nowhere")
	if err == nil || !strings.Contains(err.Error(), `no run or project named "nowhere"`) {
		t.Fatalf("expected unknown run error, got %v", err)
	}
}
