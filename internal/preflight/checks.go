package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"threephase/internal/archive"
	"threephase/internal/config"
	"threephase/internal/deps"
	"threephase/internal/rad"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputDirectory checks path, or its nearest existing parent when path
// has not been created yet.
func CheckOutputDirectory(name, path string) Result {
	probe := existingAncestor(path)
	result := CheckDirectoryAccess(name, probe)
	if result.Passed && probe != path {
		result.Detail = fmt.Sprintf("%s (will be created under %s)", path, probe)
	}
	return result
}

func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minMiB mebibytes available.
func CheckFreeSpace(name, path string, minMiB int64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	required := uint64(minMiB) * 1024 * 1024
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)
	if free < required {
		return Result{Name: name, Detail: fmt.Sprintf("%s, need %s", detail, humanize.IBytes(required))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckArchive verifies that the archive bucket is reachable.
func CheckArchive(ctx context.Context, cfg archive.Config) Result {
	const name = "Archive bucket"

	store, err := archive.NewMinioStore(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	uploader, err := archive.NewUploader(cfg, store, nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := uploader.Check(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s/%s reachable", cfg.Endpoint, cfg.Bucket)}
}

// CheckSystemDeps evaluates the engine programs and the .cal files the
// configured hemisphere bases need. Both the check command and RunAll use it.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries(deps.RadianceRequirements(cfg.Radiance.BinDir))
	bases := []rad.HemisphereType{rad.Reinhart(cfg.Recipe.SkyDensity)}
	if basis, err := rad.ParseHemisphereType(cfg.Recipe.Hemisphere); err == nil {
		bases = append(bases, basis)
	}
	search := deps.RaySearchPath(cfg.Radiance.LibDir)
	if len(search) > 0 {
		statuses = append(statuses, deps.CheckFiles(deps.CalRequirements(bases...), search)...)
	}
	return statuses
}
