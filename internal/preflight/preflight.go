package preflight

import (
	"context"
	"fmt"

	"threephase/internal/archive"
	"threephase/internal/config"
	"threephase/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckOutputDirectory("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	if cfg.Recipe.MinFreeSpaceMiB > 0 {
		results = append(results, CheckFreeSpace("Free space", existingAncestor(cfg.Paths.OutputDir), int64(cfg.Recipe.MinFreeSpaceMiB)))
	}

	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}

	if cfg.Archive.Enabled {
		results = append(results, CheckArchive(ctx, archive.FromConfig(cfg.Archive)))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

func fromStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Detail}
	if result.Detail == "" {
		result.Detail = status.Command
	}
	if !status.Available && status.Optional {
		result.Detail = fmt.Sprintf("%s (optional)", result.Detail)
	}
	return result
}
