package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRadiance(); err != nil {
		return err
	}
	c.normalizeRecipe()
	c.normalizeArchive()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRadiance() error {
	var err error
	if strings.TrimSpace(c.Radiance.BinDir) == "" {
		if value, ok := os.LookupEnv("THREEPHASE_RADIANCE_BIN"); ok {
			c.Radiance.BinDir = strings.TrimSpace(value)
		}
	}
	if c.Radiance.BinDir, err = expandPath(strings.TrimSpace(c.Radiance.BinDir)); err != nil {
		return fmt.Errorf("radiance.bin_dir: %w", err)
	}
	if strings.TrimSpace(c.Radiance.LibDir) == "" {
		if value, ok := os.LookupEnv("RAYPATH"); ok {
			c.Radiance.LibDir = firstPathEntry(value)
		}
	}
	if c.Radiance.LibDir, err = expandPath(strings.TrimSpace(c.Radiance.LibDir)); err != nil {
		return fmt.Errorf("radiance.lib_dir: %w", err)
	}
	c.Radiance.Shell = strings.TrimSpace(c.Radiance.Shell)
	if c.Radiance.Shell == "" {
		c.Radiance.Shell = defaultShell
	}
	return nil
}

// firstPathEntry returns the first RAYPATH entry that is not the current
// directory.
func firstPathEntry(value string) string {
	for _, entry := range strings.Split(value, string(os.PathListSeparator)) {
		entry = strings.TrimSpace(entry)
		if entry != "" && entry != "." {
			return entry
		}
	}
	return ""
}

func (c *Config) normalizeRecipe() {
	c.Recipe.SubFolder = strings.TrimSpace(c.Recipe.SubFolder)
	if c.Recipe.SubFolder == "" {
		c.Recipe.SubFolder = defaultSubFolder
	}
	c.Recipe.Hemisphere = strings.ToLower(strings.TrimSpace(c.Recipe.Hemisphere))
	if c.Recipe.Hemisphere == "" {
		c.Recipe.Hemisphere = defaultHemisphere
	}
	c.Recipe.UpDirection = strings.ToUpper(strings.TrimSpace(c.Recipe.UpDirection))
	if c.Recipe.UpDirection == "" {
		c.Recipe.UpDirection = defaultUpDirection
	}
	if c.Recipe.SamplingRays <= 0 {
		c.Recipe.SamplingRays = defaultSamplingRays
	}
	if c.Workflow.MaxParallelRecipes <= 0 {
		c.Workflow.MaxParallelRecipes = defaultMaxParallelRecipes
	}
}

func (c *Config) normalizeArchive() {
	if c.Archive.AccessKey == "" {
		if value, ok := os.LookupEnv("THREEPHASE_ARCHIVE_ACCESS_KEY"); ok {
			c.Archive.AccessKey = value
		}
	}
	if c.Archive.SecretKey == "" {
		if value, ok := os.LookupEnv("THREEPHASE_ARCHIVE_SECRET_KEY"); ok {
			c.Archive.SecretKey = value
		}
	}
	c.Archive.Endpoint = strings.TrimSpace(c.Archive.Endpoint)
	c.Archive.AccessKey = strings.TrimSpace(c.Archive.AccessKey)
	c.Archive.SecretKey = strings.TrimSpace(c.Archive.SecretKey)
	c.Archive.Bucket = strings.TrimSpace(c.Archive.Bucket)
	c.Archive.Prefix = strings.Trim(strings.TrimSpace(c.Archive.Prefix), "/")
	if strings.TrimSpace(c.Archive.Region) == "" {
		c.Archive.Region = defaultArchiveRegion
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
