package deps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"threephase/internal/rad"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: " ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestRadianceRequirementsUseBinDir(t *testing.T) {
	reqs := RadianceRequirements("/opt/radiance/bin")
	if len(reqs) != 6 {
		t.Fatalf("expected 6 tools, got %d", len(reqs))
	}
	for _, req := range reqs {
		if filepath.Dir(req.Command) != "/opt/radiance/bin" || filepath.Base(req.Command) != req.Name {
			t.Fatalf("unexpected command %q for %s", req.Command, req.Name)
		}
	}
	if got := RadianceRequirements("")[0].Command; got != "rfluxmtx" {
		t.Fatalf("expected bare command without bin dir, got %q", got)
	}
}

func TestCalRequirements(t *testing.T) {
	names := func(reqs []Requirement) []string {
		out := make([]string, 0, len(reqs))
		for _, req := range reqs {
			out = append(out, req.Command)
		}
		return out
	}
	got := names(CalRequirements(rad.KlemsFull, rad.Reinhart(1), rad.Reinhart(4), rad.Uniform, rad.HemisphereType("sc2")))
	want := []string{"klems_full.cal", "reinhartb.cal", "disk2square.cal"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected cal files (-want +got):\n%s", diff)
	}
}

func TestCheckFilesSearchesDirectories(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(second, "reinhartb.cal"), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	results := CheckFiles([]Requirement{
		{Name: "reinhartb.cal", Command: "reinhartb.cal"},
		{Name: "klems_full.cal", Command: "klems_full.cal"},
	}, []string{first, second})
	if !results[0].Available || results[0].Detail != filepath.Join(second, "reinhartb.cal") {
		t.Fatalf("expected file found in second dir, got %#v", results[0])
	}
	if results[1].Available {
		t.Fatalf("expected missing file, got %#v", results[1])
	}
}

func TestRaySearchPath(t *testing.T) {
	t.Setenv("RAYPATH", ".:/usr/local/lib/ray::/opt/ray")
	got := RaySearchPath("/opt/radiance/lib")
	want := []string{"/opt/radiance/lib", "/usr/local/lib/ray", "/opt/ray"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected search path (-want +got):\n%s", diff)
	}
}
