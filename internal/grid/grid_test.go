package grid_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"threephase/internal/grid"
	"threephase/internal/services"
)

func TestNewDefaultsVectorsToUp(t *testing.T) {
	g, err := grid.New("office", []grid.Point{{X: 1}, {X: 2}}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i, s := range g.Sensors() {
		if s.Direction != grid.Up {
			t.Fatalf("sensor %d: expected up direction, got %+v", i, s.Direction)
		}
	}
	if g.Len() != 2 || g.Name() != "office" {
		t.Fatalf("unexpected grid %q with %d sensors", g.Name(), g.Len())
	}
}

func TestNewRejectsMismatchedVectors(t *testing.T) {
	_, err := grid.New("office", []grid.Point{{}, {}}, []grid.Vector{{Z: 1}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewRejectsEmptyGrid(t *testing.T) {
	if _, err := grid.New("empty", nil, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSensorsReturnsCopy(t *testing.T) {
	g, err := grid.New("copy", []grid.Point{{X: 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	sensors := g.Sensors()
	sensors[0].Position.X = 99
	if s, _ := g.Sensor(0); s.Position.X != 1 {
		t.Fatal("grid mutated through returned slice")
	}
	if _, ok := g.Sensor(5); ok {
		t.Fatal("expected out of range lookup to fail")
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	points := []grid.Point{{X: 0.5, Y: 1, Z: 0.8}, {X: -2.25, Y: 3, Z: 0.8}, {X: 1e-3, Y: 12.5, Z: 0}, {X: 4, Y: 4, Z: 4}}
	vectors := []grid.Vector{{Z: 1}, {X: 1}, {Y: -1}, {X: 0.5, Y: 0.5, Z: 0.7071}}
	g, err := grid.New("round", points, vectors)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "round.pts")
	if err := g.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "0.5 1 0.8 0 0 1" {
		t.Fatalf("unexpected first row %q", lines[0])
	}

	parsed, err := grid.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if diff := cmp.Diff(g.Sensors(), parsed.Sensors()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSkipsCommentsAndDefaultsDirection(t *testing.T) {
	input := "# sensors\n\n1 2 3\n4 5 6 1 0 0\n"
	g, err := grid.Parse("inline", strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []grid.Sensor{
		{Position: grid.Point{X: 1, Y: 2, Z: 3}, Direction: grid.Up},
		{Position: grid.Point{X: 4, Y: 5, Z: 6}, Direction: grid.Vector{X: 1}},
	}
	if diff := cmp.Diff(want, g.Sensors()); diff != "" {
		t.Fatalf("unexpected sensors (-want +got):\n%s", diff)
	}
}

func TestParseReportsMalformedLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"field count", "1 2 3\n1 2\n", "line 2"},
		{"not a number", "1 2 3 0 0 1\n1 x 3\n", `invalid number "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grid.Parse("bad.pts", strings.NewReader(tt.input))
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := grid.ParseFile(filepath.Join(t.TempDir(), "missing.pts"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
