package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"threephase/internal/config"
	"threephase/internal/logging"
	"threephase/internal/recipe"
	"threephase/internal/services/engine"
	"threephase/internal/store"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	storeOnce sync.Once
	store     *store.Store
	storeErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// log returns the configured logger, falling back to a no-op logger when it
// cannot be built.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err == nil {
			c.logger, err = logging.NewFromConfig(cfg)
		}
		if err != nil || c.logger == nil {
			c.logger = logging.NewNop()
			return
		}
		logging.CleanupOldLogs(c.logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "threephase*.log", logging.LogPath(cfg))
	})
	return c.logger
}

func (c *commandContext) openStore() (*store.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = store.Open(cfg)
	})
	return c.store, c.storeErr
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

// recipeOptions builds recipe options from the config with an engine runner
// attached. Debug runs forward the terminal's stdin so the pause line can
// read from it.
func (c *commandContext) recipeOptions(cmd *cobra.Command, debug bool) (recipe.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return recipe.Options{}, err
	}
	opts, err := recipe.OptionsFromConfig(cfg)
	if err != nil {
		return recipe.Options{}, fmt.Errorf("recipe options: %w", err)
	}
	logger := c.log()
	runnerOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithBinDir(cfg.Radiance.BinDir),
	}
	if cfg.Radiance.LibDir != "" {
		runnerOpts = append(runnerOpts, engine.WithEnv("RAYPATH=.:"+cfg.Radiance.LibDir))
	}
	if debug {
		runnerOpts = append(runnerOpts, engine.WithStdin(cmd.InOrStdin()))
	}
	opts.Runner = engine.NewRunner(runnerOpts...)
	opts.Logger = logger
	return opts, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
