package scene

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"threephase/internal/grid"
	"threephase/internal/services"
)

// Manifest is the YAML description of a scene.
//
//	materials:
//	  - name: wall
//	    type: plastic
//	    values: [0.5, 0.5, 0.5, 0, 0]
//	  - name: glazing
//	    type: bsdf
//	    bsdf: {file: clear.xml, thickness: 0, up: [0, 0, 1]}
//	surfaces:
//	  - name: south_window
//	    material: glazing
//	    vertices: [[0, 0, 1], [2, 0, 1], [2, 0, 2], [0, 0, 2]]
type Manifest struct {
	Materials []manifestMaterial `yaml:"materials"`
	Surfaces  []manifestSurface  `yaml:"surfaces"`
}

type manifestMaterial struct {
	Name   string        `yaml:"name"`
	Type   string        `yaml:"type"`
	Values []float64     `yaml:"values"`
	BSDF   *manifestBSDF `yaml:"bsdf"`
}

type manifestBSDF struct {
	File      string    `yaml:"file"`
	Thickness float64   `yaml:"thickness"`
	Up        []float64 `yaml:"up"`
}

type manifestSurface struct {
	Name     string      `yaml:"name"`
	Material string      `yaml:"material"`
	Vertices [][]float64 `yaml:"vertices"`
}

// ParseManifest decodes a manifest and resolves it into surfaces. Relative
// BSDF paths are resolved against baseDir.
func ParseManifest(data []byte, baseDir string) ([]Surface, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "manifest", "manifest is empty", nil)
	}
	var manifest Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&manifest); err != nil && err != io.EOF {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "manifest", "decode", err)
	}
	return manifest.resolve(baseDir)
}

// LoadManifest reads a manifest file. Relative BSDF paths are resolved
// against the manifest's directory and made absolute.
func LoadManifest(path string) ([]Surface, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "manifest", "read "+path, err)
	}
	baseDir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "manifest", "resolve "+path, err)
	}
	surfaces, err := ParseManifest(data, baseDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return surfaces, nil
}

func (m Manifest) resolve(baseDir string) ([]Surface, error) {
	materials := make(map[string]Material, len(m.Materials))
	for _, raw := range m.Materials {
		mat, err := raw.material(baseDir)
		if err != nil {
			return nil, err
		}
		if _, dup := materials[mat.Name]; dup {
			return nil, services.Wrap(services.ErrConfiguration, "scene", "manifest", fmt.Sprintf("duplicate material %q", mat.Name), nil)
		}
		materials[mat.Name] = mat
	}

	surfaces := make([]Surface, 0, len(m.Surfaces))
	for i, raw := range m.Surfaces {
		mat, ok := materials[strings.TrimSpace(raw.Material)]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "scene", "manifest",
				fmt.Sprintf("surface %q references unknown material %q", raw.Name, raw.Material), nil)
		}
		vertices := make([]grid.Point, 0, len(raw.Vertices))
		for _, v := range raw.Vertices {
			if len(v) != 3 {
				return nil, services.Wrap(services.ErrConfiguration, "scene", "manifest",
					fmt.Sprintf("surface %q: vertex needs 3 coordinates, got %d", raw.Name, len(v)), nil)
			}
			vertices = append(vertices, grid.Point{X: v[0], Y: v[1], Z: v[2]})
		}
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			name = fmt.Sprintf("surface_%d", i)
		}
		surface := Surface{Name: name, Material: mat, Vertices: vertices}
		if err := surface.Validate(); err != nil {
			return nil, err
		}
		surfaces = append(surfaces, surface)
	}
	return surfaces, nil
}

func (raw manifestMaterial) material(baseDir string) (Material, error) {
	kind, err := ParseMaterialKind(raw.Type)
	if err != nil {
		return Material{}, err
	}
	mat := Material{Kind: kind, Name: strings.TrimSpace(raw.Name), Values: raw.Values}
	if kind == BSDF {
		if raw.BSDF == nil {
			return Material{}, services.Wrap(services.ErrConfiguration, "scene", "manifest", mat.Name+": bsdf block required", nil)
		}
		spec := TransmissionSpec{File: strings.TrimSpace(raw.BSDF.File), Thickness: raw.BSDF.Thickness, Up: grid.Up}
		if spec.File != "" && !filepath.IsAbs(spec.File) && baseDir != "" {
			spec.File = filepath.Join(baseDir, spec.File)
		}
		switch len(raw.BSDF.Up) {
		case 0:
		case 3:
			spec.Up = grid.Vector{X: raw.BSDF.Up[0], Y: raw.BSDF.Up[1], Z: raw.BSDF.Up[2]}
		default:
			return Material{}, services.Wrap(services.ErrConfiguration, "scene", "manifest", mat.Name+": bsdf up needs 3 components", nil)
		}
		mat.BSDF = &spec
		mat.Values = nil
	}
	if err := mat.Validate(); err != nil {
		return Material{}, err
	}
	return mat, nil
}
