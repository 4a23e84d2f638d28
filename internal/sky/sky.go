// Package sky generates annual sky vectors from EnergyPlus weather files with
// epw2wea and gendaymtx.
package sky

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"threephase/internal/services"
)

// ToolRunner runs one engine binary. *engine.Runner satisfies it.
type ToolRunner interface {
	RunTool(ctx context.Context, dir, binary string, args []string, stdout io.Writer) error
}

// Source is the sky collaborator consumed by recipes.
type Source interface {
	Density() int
	SkyType() string
	// Execute generates the sky vector in dir and returns its path.
	Execute(ctx context.Context, dir string) (string, error)
}

// Matrix is an annual sky matrix derived from a weather file. Density is fixed
// at construction: 1 is a Tregenza sky, 2 a Reinhart sky, and so on.
type Matrix struct {
	weatherFile string
	density     int
	runner      ToolRunner
}

// NewMatrix validates the weather file name and density.
func NewMatrix(weatherFile string, density int, runner ToolRunner) (*Matrix, error) {
	weatherFile = strings.TrimSpace(weatherFile)
	if !strings.EqualFold(filepath.Ext(weatherFile), ".epw") {
		return nil, services.Wrap(services.ErrConfiguration, "sky", "new", fmt.Sprintf("%q is not an EnergyPlus weather file", weatherFile), nil)
	}
	if density < 1 {
		return nil, services.Wrap(services.ErrConfiguration, "sky", "new", fmt.Sprintf("sky density must be at least 1, got %d", density), nil)
	}
	if runner == nil {
		return nil, services.Wrap(services.ErrConfiguration, "sky", "new", "tool runner required", nil)
	}
	if abs, err := filepath.Abs(weatherFile); err == nil {
		weatherFile = abs
	}
	return &Matrix{weatherFile: weatherFile, density: density, runner: runner}, nil
}

// WeatherFile returns the weather file path.
func (m *Matrix) WeatherFile() string { return m.weatherFile }

// Density returns the sky subdivision.
func (m *Matrix) Density() int { return m.density }

// SkyType returns the receiver basis for the sky, e.g. r1.
func (m *Matrix) SkyType() string { return "r" + strconv.Itoa(m.density) }

// WeaPath returns the path of the intermediate .wea file in dir.
func (m *Matrix) WeaPath(dir string) string {
	return filepath.Join(dir, m.base()+".wea")
}

// VectorPath returns the sky vector path in dir.
func (m *Matrix) VectorPath(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.smx", m.base(), m.SkyType()))
}

// Execute converts the weather file to .wea and runs gendaymtx on it.
func (m *Matrix) Execute(ctx context.Context, dir string) (string, error) {
	ctx = services.WithStage(ctx, "sky")
	wea := m.WeaPath(dir)
	if err := m.runner.RunTool(ctx, dir, "epw2wea", []string{m.weatherFile, wea}, nil); err != nil {
		return "", fmt.Errorf("epw2wea: %w", err)
	}

	smx := m.VectorPath(dir)
	out, err := os.Create(smx)
	if err != nil {
		return "", services.Wrap(services.ErrDirectory, "sky", "create sky vector", smx, err)
	}
	runErr := m.runner.RunTool(ctx, dir, "gendaymtx", []string{"-m", strconv.Itoa(m.density), wea}, out)
	closeErr := out.Close()
	if runErr != nil {
		_ = os.Remove(smx)
		return "", fmt.Errorf("gendaymtx: %w", runErr)
	}
	if closeErr != nil {
		return "", services.Wrap(services.ErrDirectory, "sky", "close sky vector", smx, closeErr)
	}
	return smx, nil
}

func (m *Matrix) base() string {
	return strings.TrimSuffix(filepath.Base(m.weatherFile), filepath.Ext(m.weatherFile))
}
