package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"threephase/internal/grid"
	"threephase/internal/scene"
)

// OfficeScene writes a BSDF file and a weather file into dir and returns a
// small room with one switchable aperture, plus the weather file path.
func OfficeScene(t testing.TB, dir string) ([]scene.Surface, string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir scene dir: %v", err)
	}
	bsdf := filepath.Join(dir, "clear.xml")
	if err := os.WriteFile(bsdf, []byte("<WindowElement/>\n"), 0o644); err != nil {
		t.Fatalf("write bsdf: %v", err)
	}
	weather := filepath.Join(dir, "boston.epw")
	if err := os.WriteFile(weather, []byte("LOCATION,Boston\n"), 0o644); err != nil {
		t.Fatalf("write weather: %v", err)
	}

	wall := scene.Material{Kind: scene.Plastic, Name: "wall", Values: []float64{0.5, 0.5, 0.5, 0, 0}}
	glazing := scene.Material{Kind: scene.BSDF, Name: "glazing", BSDF: &scene.TransmissionSpec{File: bsdf, Up: grid.Up}}
	return []scene.Surface{
		{Name: "floor", Material: wall, Vertices: []grid.Point{{X: 0, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 0}, {X: 4, Y: 4, Z: 0}, {X: 0, Y: 4, Z: 0}}},
		{Name: "south_wall", Material: wall, Vertices: []grid.Point{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 3}, {X: 4, Y: 0, Z: 3}, {X: 4, Y: 0, Z: 0}}},
		{Name: "south_window", Material: glazing, Vertices: []grid.Point{{X: 1, Y: 0, Z: 1}, {X: 3, Y: 0, Z: 1}, {X: 3, Y: 0, Z: 2}, {X: 1, Y: 0, Z: 2}}},
	}, weather
}

// SensorPoints returns n points along the room's centre line at desk height.
func SensorPoints(n int) []grid.Point {
	points := make([]grid.Point, n)
	for i := range points {
		points[i] = grid.Point{X: 2, Y: 0.5 + float64(i), Z: 0.8}
	}
	return points
}
