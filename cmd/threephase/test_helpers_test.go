package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"threephase/internal/config"
	"threephase/internal/testsupport"
)

const officeManifest = `materials:
  - name: wall
    type: plastic
    values: [0.5, 0.5, 0.5, 0, 0]
  - name: glazing
    type: bsdf
    bsdf: {file: clear.xml, up: [0, 0, 1]}
surfaces:
  - name: floor
    material: wall
    vertices: [[0, 0, 0], [4, 0, 0], [4, 4, 0], [0, 4, 0]]
  - name: south_window
    material: glazing
    vertices: [[1, 0, 1], [3, 0, 1], [3, 0, 2], [1, 0, 2]]
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	modelDir   string
}

func setupCLITestEnv(t *testing.T, stubs testsupport.StubOptions) *cliTestEnv {
	t.Helper()
	t.Setenv("RAYPATH", "")
	t.Setenv("HOME", t.TempDir())

	cfg := testsupport.NewConfig(t, testsupport.WithRadianceStubs(stubs))
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	modelDir := filepath.Join(base, "model")
	writeModel(t, modelDir, stubs.Sensors)
	return &cliTestEnv{cfg: cfg, configPath: configPath, modelDir: modelDir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeModel(t *testing.T, dir string, sensors int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	var pts strings.Builder
	for range max(sensors, 1) {
		pts.WriteString("2 1 0.8 0 0 1\n")
	}
	files := map[string]string{
		"office.yaml": officeManifest,
		"clear.xml":   "<WindowElement/>\n",
		"boston.epw":  "LOCATION,Boston\n",
		"office.pts":  pts.String(),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// recipeArgs returns the model flags shared by write and run.
func (env *cliTestEnv) recipeArgs(project string) []string {
	return []string{
		"--scene", filepath.Join(env.modelDir, "office.yaml"),
		"--weather", filepath.Join(env.modelDir, "boston.epw"),
		"--points", filepath.Join(env.modelDir, "office.pts"),
		"--project", project,
	}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", env.configPath}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
