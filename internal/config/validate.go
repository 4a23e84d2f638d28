package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	hemispherePattern = regexp.MustCompile(`^(kf|kh|kq|u|r[0-9]*|sc[0-9]+)$`)
	upAxisPattern     = regexp.MustCompile(`^[+-]?[XYZ]$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecipe(); err != nil {
		return err
	}
	if err := validateMatrix("view_matrix", c.ViewMatrix); err != nil {
		return err
	}
	if err := validateMatrix("daylight_matrix", c.DaylightMatrix); err != nil {
		return err
	}
	if c.Workflow.MaxParallelRecipes < 1 {
		return errors.New("workflow.max_parallel_recipes must be at least 1")
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRecipe() error {
	if strings.ContainsAny(c.Recipe.SubFolder, `/\`) || c.Recipe.SubFolder == ".." {
		return fmt.Errorf("recipe.sub_folder must be a single directory name, got %q", c.Recipe.SubFolder)
	}
	if c.Recipe.SkyDensity < 1 {
		return errors.New("recipe.sky_density must be a positive integer")
	}
	if !hemispherePattern.MatchString(c.Recipe.Hemisphere) {
		return fmt.Errorf("recipe.hemisphere: unsupported basis %q (use kf, kh, kq, u, rN, or scN)", c.Recipe.Hemisphere)
	}
	if !upAxisPattern.MatchString(c.Recipe.UpDirection) && strings.Count(c.Recipe.UpDirection, ",") != 2 {
		return fmt.Errorf("recipe.up_direction: expected an axis like +Z or a vector x,y,z, got %q", c.Recipe.UpDirection)
	}
	if c.Recipe.MinFreeSpaceMiB < 0 {
		return errors.New("recipe.min_free_space_mib must not be negative")
	}
	return nil
}

func validateMatrix(section string, m MatrixParameters) error {
	if m.AmbientAccuracy < 0 {
		return fmt.Errorf("%s.ambient_accuracy must not be negative", section)
	}
	if m.AmbientBounces < 0 {
		return fmt.Errorf("%s.ambient_bounces must not be negative", section)
	}
	if m.AmbientDivisions <= 0 {
		return fmt.Errorf("%s.ambient_divisions must be positive", section)
	}
	if m.LimitWeight < 0 {
		return fmt.Errorf("%s.limit_weight must not be negative", section)
	}
	return nil
}

func (c *Config) validateArchive() error {
	if !c.Archive.Enabled {
		return nil
	}
	if c.Archive.Endpoint == "" {
		return errors.New("archive.endpoint must be set when archive.enabled is true")
	}
	if strings.Contains(c.Archive.Endpoint, "://") {
		return fmt.Errorf("archive.endpoint must not include a scheme: %q", c.Archive.Endpoint)
	}
	if c.Archive.Bucket == "" {
		return errors.New("archive.bucket must be set when archive.enabled is true")
	}
	if c.Archive.AccessKey == "" || c.Archive.SecretKey == "" {
		return errors.New("archive credentials missing; set archive.access_key/secret_key or THREEPHASE_ARCHIVE_ACCESS_KEY/THREEPHASE_ARCHIVE_SECRET_KEY")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
