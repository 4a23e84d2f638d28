package sky_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"threephase/internal/services"
	"threephase/internal/sky"
)

type call struct {
	Dir    string
	Binary string
	Args   []string
}

type fakeRunner struct {
	calls  []call
	output string
	failOn string
}

func (f *fakeRunner) RunTool(_ context.Context, dir, binary string, args []string, stdout io.Writer) error {
	f.calls = append(f.calls, call{Dir: dir, Binary: binary, Args: args})
	if binary == f.failOn {
		return errors.New("boom")
	}
	if stdout != nil {
		_, _ = io.WriteString(stdout, f.output)
	}
	return nil
}

func TestNewMatrixValidation(t *testing.T) {
	runner := &fakeRunner{}
	tests := []struct {
		name    string
		weather string
		density int
	}{
		{"not epw", "boston.wea", 1},
		{"zero density", "boston.epw", 0},
		{"negative density", "boston.epw", -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sky.NewMatrix(tt.weather, tt.density, runner); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
	if _, err := sky.NewMatrix("boston.EPW", 1, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without runner, got %v", err)
	}
}

func TestSkyType(t *testing.T) {
	m, err := sky.NewMatrix("/weather/USA_MA_Boston.epw", 4, &fakeRunner{})
	if err != nil {
		t.Fatal(err)
	}
	if m.SkyType() != "r4" || m.Density() != 4 {
		t.Fatalf("unexpected sky type %q density %d", m.SkyType(), m.Density())
	}
	if got := m.VectorPath("/out"); got != "/out/USA_MA_Boston_r4.smx" {
		t.Fatalf("unexpected vector path %q", got)
	}
}

func TestExecuteRunsToolsInOrder(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{output: "#?RADIANCE\n"}
	m, err := sky.NewMatrix("/weather/boston.epw", 1, runner)
	if err != nil {
		t.Fatal(err)
	}

	path, err := m.Execute(context.Background(), dir)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if path != filepath.Join(dir, "boston_r1.smx") {
		t.Fatalf("unexpected sky vector path %q", path)
	}
	want := []call{
		{Dir: dir, Binary: "epw2wea", Args: []string{"/weather/boston.epw", filepath.Join(dir, "boston.wea")}},
		{Dir: dir, Binary: "gendaymtx", Args: []string{"-m", "1", filepath.Join(dir, "boston.wea")}},
	}
	if diff := cmp.Diff(want, runner.calls); diff != "" {
		t.Fatalf("unexpected calls (-want +got):\n%s", diff)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "#?RADIANCE\n" {
		t.Fatalf("expected gendaymtx stdout in sky vector, got %q", data)
	}
}

func TestExecuteRemovesPartialVector(t *testing.T) {
	dir := t.TempDir()
	m, err := sky.NewMatrix("boston.epw", 1, &fakeRunner{failOn: "gendaymtx"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Execute(context.Background(), dir); err == nil {
		t.Fatal("expected gendaymtx failure")
	}
	if _, err := os.Stat(m.VectorPath(dir)); !os.IsNotExist(err) {
		t.Fatalf("expected partial sky vector to be removed, stat err=%v", err)
	}
}
