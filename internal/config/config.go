package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Radiance locates the ray-tracing engine.
type Radiance struct {
	BinDir string `toml:"bin_dir"`
	LibDir string `toml:"lib_dir"`
	Shell  string `toml:"shell"`
}

// Recipe contains defaults applied to every three-phase recipe.
type Recipe struct {
	SubFolder           string `toml:"sub_folder"`
	SkyDensity          int    `toml:"sky_density"`
	Hemisphere          string `toml:"hemisphere"`
	UpDirection         string `toml:"up_direction"`
	SamplingRays        int    `toml:"sampling_rays"`
	ReuseDaylightMatrix bool   `toml:"reuse_daylight_matrix"`
	// TolerateExitStatus marks a run calculated even when the batch script
	// exits non-zero.
	TolerateExitStatus bool `toml:"tolerate_exit_status"`
	MinFreeSpaceMiB    int  `toml:"min_free_space_mib"`
}

// MatrixParameters overrides the ambient settings of one matrix stage.
type MatrixParameters struct {
	AmbientAccuracy  float64 `toml:"ambient_accuracy"`
	AmbientBounces   int     `toml:"ambient_bounces"`
	AmbientDivisions int     `toml:"ambient_divisions"`
	LimitWeight      float64 `toml:"limit_weight"`
	Irradiance       bool    `toml:"irradiance"`
}

// Workflow contains configuration for running several recipes.
type Workflow struct {
	MaxParallelRecipes int `toml:"max_parallel_recipes"`
}

// Archive contains S3-compatible storage settings for run artifacts.
type Archive struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for threephase.
//
// Configuration sections by subsystem:
//   - Paths: output, state database, and log directories
//   - Radiance: engine binaries, library path, and script shell
//   - Recipe: sky density, aperture basis, and run policy defaults
//   - ViewMatrix / DaylightMatrix: per-stage ambient parameters
//   - Workflow: concurrency for batches of independent recipes
//   - Archive: optional artifact upload
//   - Logging: log format, level, and retention
type Config struct {
	Paths          Paths            `toml:"paths"`
	Radiance       Radiance         `toml:"radiance"`
	Recipe         Recipe           `toml:"recipe"`
	ViewMatrix     MatrixParameters `toml:"view_matrix"`
	DaylightMatrix MatrixParameters `toml:"daylight_matrix"`
	Workflow       Workflow         `toml:"workflow"`
	Archive        Archive          `toml:"archive"`
	Logging        Logging          `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/threephase/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("threephase.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The output
// directory is created per recipe when files are written.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the run database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "threephase.db")
}

// Binary returns the path used to invoke a Radiance tool.
func (c *Config) Binary(name string) string {
	if strings.TrimSpace(c.Radiance.BinDir) == "" {
		return name
	}
	return filepath.Join(c.Radiance.BinDir, name)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
