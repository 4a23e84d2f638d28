package scene_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"threephase/internal/grid"
	"threephase/internal/scene"
	"threephase/internal/services"
)

const sampleManifest = `
materials:
  - name: wall
    type: plastic
    values: [0.5, 0.5, 0.5, 0, 0]
  - name: glazing bsdf
    type: bsdf
    bsdf:
      file: bsdf/clear.xml
      thickness: 0
      up: [0, 0, 1]
surfaces:
  - name: floor
    material: wall
    vertices: [[0, 0, 0], [4, 0, 0], [4, 4, 0], [0, 4, 0]]
  - name: south window
    material: glazing bsdf
    vertices: [[0, 0, 1], [2, 0, 1], [2, 0, 2], [0, 0, 2]]
`

func TestParseManifestResolvesSurfaces(t *testing.T) {
	surfaces, err := scene.ParseManifest([]byte(sampleManifest), "/models/office")
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(surfaces) != 2 {
		t.Fatalf("expected 2 surfaces, got %d", len(surfaces))
	}
	if surfaces[0].IsAperture() {
		t.Fatal("plastic surface must not be an aperture")
	}
	spec, ok := surfaces[1].Material.Transmission()
	if !ok {
		t.Fatal("expected BSDF surface to expose a transmission spec")
	}
	if spec.File != "/models/office/bsdf/clear.xml" {
		t.Fatalf("expected relative BSDF path to resolve against manifest dir, got %q", spec.File)
	}
	if apertures := scene.Apertures(surfaces); len(apertures) != 1 || apertures[0].Name != "south window" {
		t.Fatalf("unexpected apertures %+v", apertures)
	}
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     string
	}{
		{"empty", "  \n", "empty"},
		{"unknown kind", "materials:\n  - {name: m, type: mirror, values: [1, 1, 1]}\n", "unsupported material type"},
		{"value count", "materials:\n  - {name: m, type: glass, values: [1, 1]}\n", "glass takes 3 values"},
		{"missing material", "surfaces:\n  - {name: s, material: nope, vertices: [[0,0,0],[1,0,0],[1,1,0]]}\n", "unknown material"},
		{"bad vertex", "materials:\n  - {name: m, type: glass, values: [1, 1, 1]}\nsurfaces:\n  - {name: s, material: m, vertices: [[0,0],[1,0,0],[1,1,0]]}\n", "3 coordinates"},
		{"too few vertices", "materials:\n  - {name: m, type: glass, values: [1, 1, 1]}\nsurfaces:\n  - {name: s, material: m, vertices: [[0,0,0],[1,0,0]]}\n", "at least 3 vertices"},
		{"unknown field", "materials:\n  - {name: m, type: glass, values: [1, 1, 1], colour: red}\n", "decode"},
		{"bsdf without file", "materials:\n  - {name: m, type: bsdf, bsdf: {thickness: 0}}\n", "transmission file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scene.ParseManifest([]byte(tt.manifest), "")
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestMaterialTransmissionRequiresBSDFKind(t *testing.T) {
	glass := scene.Material{Kind: scene.Glass, Name: "g", Values: []float64{0.9, 0.9, 0.9}, BSDF: &scene.TransmissionSpec{File: "x.xml"}}
	if _, ok := glass.Transmission(); ok {
		t.Fatal("only BSDF materials expose transmission specs")
	}
}

func TestSurfaceRadString(t *testing.T) {
	s := scene.Surface{
		Name: "south window",
		Material: scene.Material{
			Kind: scene.BSDF,
			Name: "glazing bsdf",
			BSDF: &scene.TransmissionSpec{File: "/bsdf/clear.xml"},
		},
		Vertices: []grid.Point{{X: 0, Y: 0, Z: 1}, {X: 2, Y: 0, Z: 1}, {X: 2, Y: 0, Z: 2}},
	}
	want := "void BSDF glazing_bsdf\n6 0 /bsdf/clear.xml 0 0 1 .\n0\n0\n\n" +
		"glazing_bsdf polygon south_window\n0\n0\n9\n    0 0 1\n    2 0 1\n    2 0 2\n"
	if got := s.RadString(); got != want {
		t.Fatalf("unexpected rad string:\n%s\nwant:\n%s", got, want)
	}
}

func TestRadExporterSkipsApertures(t *testing.T) {
	surfaces, err := scene.ParseManifest([]byte(sampleManifest), "/models")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	matFile, geoFile, err := scene.RadExporter{}.Export(dir, "office", surfaces)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if matFile != filepath.Join(dir, "office.mat") || geoFile != filepath.Join(dir, "office.rad") {
		t.Fatalf("unexpected export paths %q %q", matFile, geoFile)
	}
	mat, _ := os.ReadFile(matFile)
	geo, _ := os.ReadFile(geoFile)
	if !strings.Contains(string(mat), "void plastic wall") {
		t.Fatalf("expected wall material, got %q", mat)
	}
	if strings.Contains(string(mat), "BSDF") || strings.Contains(string(geo), "south_window") {
		t.Fatal("apertures must not be exported with the scene")
	}
	if !strings.Contains(string(geo), "wall polygon floor") {
		t.Fatalf("expected floor polygon, got %q", geo)
	}
}

func TestLoadManifestFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	surfaces, err := scene.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	spec, _ := surfaces[1].Material.Transmission()
	if spec.File != filepath.Join(dir, "bsdf", "clear.xml") {
		t.Fatalf("unexpected BSDF path %q", spec.File)
	}
}

func TestLoadManifestByRelativePathGivesAbsoluteBSDF(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "office.yaml"), []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	surfaces, err := scene.LoadManifest("office.yaml")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	spec, ok := surfaces[1].Material.Transmission()
	if !ok {
		t.Fatal("expected transmission spec")
	}
	want := filepath.Join(dir, "bsdf", "clear.xml")
	if spec.File != want {
		t.Fatalf("expected %q, got %q", want, spec.File)
	}
}
