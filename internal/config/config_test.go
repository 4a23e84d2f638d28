package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"threephase/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("RAYPATH", ".:/usr/local/lib/ray")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, "threephase"); cfg.Paths.OutputDir != want {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "threephase"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if cfg.Radiance.LibDir != "/usr/local/lib/ray" {
		t.Fatalf("expected lib dir from RAYPATH, got %q", cfg.Radiance.LibDir)
	}
	if cfg.Recipe.SkyDensity != 1 || cfg.Recipe.Hemisphere != "kf" || cfg.Recipe.UpDirection != "+Z" {
		t.Fatalf("unexpected recipe defaults: %+v", cfg.Recipe)
	}
	if cfg.Recipe.TolerateExitStatus {
		t.Fatal("expected non-zero exits to fail by default")
	}
	if cfg.ViewMatrix.AmbientDivisions <= cfg.DaylightMatrix.AmbientDivisions {
		t.Fatalf("expected view matrix to carry more ambient divisions: %+v vs %+v", cfg.ViewMatrix, cfg.DaylightMatrix)
	}
	if !cfg.ViewMatrix.Irradiance || cfg.DaylightMatrix.Irradiance {
		t.Fatal("expected irradiance mode on the view matrix only")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
	if got := cfg.DatabasePath(); got != filepath.Join(cfg.Paths.StateDir, "threephase.db") {
		t.Fatalf("unexpected database path %q", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "threephase.toml")

	type payload struct {
		Recipe struct {
			SkyDensity int    `toml:"sky_density"`
			Hemisphere string `toml:"hemisphere"`
		} `toml:"recipe"`
		Radiance struct {
			BinDir string `toml:"bin_dir"`
		} `toml:"radiance"`
		Workflow struct {
			MaxParallelRecipes int `toml:"max_parallel_recipes"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Recipe.SkyDensity = 4
	custom.Recipe.Hemisphere = " KH "
	custom.Radiance.BinDir = "/opt/radiance/bin"
	custom.Workflow.MaxParallelRecipes = 6
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Recipe.SkyDensity != 4 {
		t.Fatalf("expected sky density 4, got %d", cfg.Recipe.SkyDensity)
	}
	if cfg.Recipe.Hemisphere != "kh" {
		t.Fatalf("expected normalized hemisphere, got %q", cfg.Recipe.Hemisphere)
	}
	if cfg.Binary("rfluxmtx") != "/opt/radiance/bin/rfluxmtx" {
		t.Fatalf("unexpected binary path %q", cfg.Binary("rfluxmtx"))
	}
	if cfg.Workflow.MaxParallelRecipes != 6 {
		t.Fatalf("unexpected parallelism %d", cfg.Workflow.MaxParallelRecipes)
	}
	// untouched sections keep defaults
	if cfg.Recipe.SamplingRays != config.Default().Recipe.SamplingRays {
		t.Fatalf("unexpected sampling rays %d", cfg.Recipe.SamplingRays)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"sky density", func(c *config.Config) { c.Recipe.SkyDensity = 0 }, "sky_density"},
		{"hemisphere", func(c *config.Config) { c.Recipe.Hemisphere = "klems" }, "hemisphere"},
		{"up direction", func(c *config.Config) { c.Recipe.UpDirection = "north" }, "up_direction"},
		{"sub folder", func(c *config.Config) { c.Recipe.SubFolder = "a/b" }, "sub_folder"},
		{"ambient divisions", func(c *config.Config) { c.ViewMatrix.AmbientDivisions = 0 }, "view_matrix.ambient_divisions"},
		{"parallelism", func(c *config.Config) { c.Workflow.MaxParallelRecipes = 0 }, "max_parallel_recipes"},
		{"archive endpoint", func(c *config.Config) {
			c.Archive.Enabled = true
			c.Archive.Endpoint = "http://localhost:9000"
			c.Archive.Bucket = "daylight"
			c.Archive.AccessKey = "a"
			c.Archive.SecretKey = "b"
		}, "scheme"},
		{"archive credentials", func(c *config.Config) {
			c.Archive.Enabled = true
			c.Archive.Endpoint = "localhost:9000"
			c.Archive.Bucket = "daylight"
		}, "credentials"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error %q", tt.want, err.Error())
			}
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[recipe]\nsky_densty = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error for unknown field")
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Archive.Enabled {
		t.Fatal("sample config must keep archive disabled")
	}
}
