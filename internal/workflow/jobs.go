package workflow

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"threephase/internal/recipe"
	"threephase/internal/scene"
	"threephase/internal/services"
)

// JobSpec is one entry of a jobs file.
//
//	jobs:
//	  - project: office
//	    scene: office.yaml
//	    weather: boston.epw
//	    points: office.pts
//	    sky_density: 1
type JobSpec struct {
	Project    string `yaml:"project"`
	Scene      string `yaml:"scene"`
	Weather    string `yaml:"weather"`
	Points     string `yaml:"points"`
	SkyDensity int    `yaml:"sky_density"`
	// Target overrides the configured output directory.
	Target string `yaml:"target"`
}

type jobsFile struct {
	Jobs []JobSpec `yaml:"jobs"`
}

// ParseJobs decodes a jobs file. Relative paths are resolved against baseDir.
func ParseJobs(data []byte, baseDir string) ([]JobSpec, error) {
	var file jobsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && err != io.EOF {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "jobs", "decode", err)
	}
	if len(file.Jobs) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "jobs", "no jobs defined", nil)
	}
	for i := range file.Jobs {
		spec := &file.Jobs[i]
		spec.Project = strings.TrimSpace(spec.Project)
		if spec.Project == "" {
			return nil, services.Wrap(services.ErrConfiguration, "workflow", "jobs", fmt.Sprintf("job %d has no project", i), nil)
		}
		for _, field := range []struct {
			name  string
			value *string
		}{
			{"scene", &spec.Scene},
			{"weather", &spec.Weather},
			{"points", &spec.Points},
		} {
			if strings.TrimSpace(*field.value) == "" {
				return nil, services.Wrap(services.ErrConfiguration, "workflow", "jobs",
					fmt.Sprintf("job %q has no %s", spec.Project, field.name), nil)
			}
			*field.value = resolve(baseDir, *field.value)
		}
		if spec.Target != "" {
			spec.Target = resolve(baseDir, spec.Target)
		}
	}
	return file.Jobs, nil
}

// LoadJobs reads a jobs file.
func LoadJobs(path string) ([]JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "jobs", "read "+path, err)
	}
	specs, err := ParseJobs(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specs, nil
}

// Build loads the job's scene and points and constructs its recipe. A zero
// sky density falls back to defaultDensity; an empty target to defaultTarget.
func (s JobSpec) Build(defaultTarget string, defaultDensity int, opts recipe.Options) (Job, error) {
	surfaces, err := scene.LoadManifest(s.Scene)
	if err != nil {
		return Job{}, err
	}
	density := s.SkyDensity
	if density == 0 {
		density = defaultDensity
	}
	r, err := recipe.FromPointsFile(s.Weather, s.Points, density, surfaces, opts)
	if err != nil {
		return Job{}, fmt.Errorf("job %s: %w", s.Project, err)
	}
	target := s.Target
	if target == "" {
		target = defaultTarget
	}
	return Job{Project: s.Project, Target: target, Recipe: r}, nil
}

func resolve(baseDir, path string) string {
	path = strings.TrimSpace(path)
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
