package recipe

import (
	"context"
	"log/slog"
	"strings"

	"threephase/internal/config"
	"threephase/internal/grid"
	"threephase/internal/logging"
	"threephase/internal/rad"
	"threephase/internal/scene"
	"threephase/internal/services"
	"threephase/internal/sky"
)

// Runner executes engine tools and batch scripts. *engine.Runner satisfies it.
type Runner interface {
	sky.ToolRunner
	RunScript(ctx context.Context, shell, script string) error
}

// Options are the settings and collaborators of a recipe.
type Options struct {
	SubFolder      string
	Hemisphere     rad.HemisphereType
	Up             string
	SamplingRays   int
	ViewParams     rad.Parameters
	DaylightParams rad.Parameters
	// ReuseDaylightMatrix omits the daylight stage when the recipe directory
	// already holds a daylight matrix.
	ReuseDaylightMatrix bool
	// TolerateExitStatus marks a run calculated even when the script exits
	// non-zero.
	TolerateExitStatus bool
	// ExtraSceneFiles are added to the scene of both matrix stages.
	ExtraSceneFiles []string
	Environment     Environment
	Shell           string

	Exporter scene.Exporter
	Runner   Runner
	Logger   *slog.Logger
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		SubFolder:      "threephase",
		Hemisphere:     rad.KlemsFull,
		Up:             "+Z",
		SamplingRays:   1000,
		ViewParams:     rad.ViewMatrixParameters(),
		DaylightParams: rad.DaylightMatrixParameters(),
		Shell:          "sh",
	}
}

// OptionsFromConfig maps configuration onto recipe options. Collaborators are
// left for the caller to set.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	opts := DefaultOptions()
	if cfg == nil {
		return opts, nil
	}
	basis, err := rad.ParseHemisphereType(cfg.Recipe.Hemisphere)
	if err != nil {
		return Options{}, err
	}
	opts.SubFolder = cfg.Recipe.SubFolder
	opts.Hemisphere = basis
	opts.Up = cfg.Recipe.UpDirection
	opts.SamplingRays = cfg.Recipe.SamplingRays
	opts.ViewParams = parametersFromConfig(cfg.ViewMatrix)
	opts.DaylightParams = parametersFromConfig(cfg.DaylightMatrix)
	opts.ReuseDaylightMatrix = cfg.Recipe.ReuseDaylightMatrix
	opts.TolerateExitStatus = cfg.Recipe.TolerateExitStatus
	opts.Environment = Environment{BinDir: cfg.Radiance.BinDir, LibDir: cfg.Radiance.LibDir}
	opts.Shell = cfg.Radiance.Shell
	return opts, nil
}

func parametersFromConfig(m config.MatrixParameters) rad.Parameters {
	return rad.Parameters{
		AmbientAccuracy:  m.AmbientAccuracy,
		AmbientBounces:   m.AmbientBounces,
		AmbientDivisions: m.AmbientDivisions,
		LimitWeight:      m.LimitWeight,
		Irradiance:       m.Irradiance,
	}
}

// Recipe is a configured three-phase simulation. It is immutable; lifecycle
// state lives in Session values.
type Recipe struct {
	grid     *grid.Grid
	sky      sky.Source
	surfaces []scene.Surface
	aperture Aperture
	opts     Options
	logger   *slog.Logger
}

// New validates the inputs and resolves the aperture.
func New(g *grid.Grid, source sky.Source, surfaces []scene.Surface, opts Options) (*Recipe, error) {
	if g == nil || g.Len() == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "recipe", "new", "analysis grid required", nil)
	}
	if source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "recipe", "new", "sky source required", nil)
	}
	if source.Density() < 1 {
		return nil, services.Wrap(services.ErrConfiguration, "recipe", "new", "sky density must be at least 1", nil)
	}
	aperture, err := ResolveAperture(surfaces)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(opts.SubFolder) == "" {
		opts.SubFolder = DefaultOptions().SubFolder
	}
	if opts.Hemisphere == "" {
		opts.Hemisphere = rad.KlemsFull
	}
	if strings.TrimSpace(opts.Up) == "" {
		opts.Up = "+Z"
	}
	if err := (rad.ControlParameters{Hemisphere: opts.Hemisphere, Up: opts.Up}).Validate(); err != nil {
		return nil, err
	}
	if opts.SamplingRays <= 0 {
		opts.SamplingRays = DefaultOptions().SamplingRays
	}
	if opts.Exporter == nil {
		opts.Exporter = scene.RadExporter{}
	}
	if strings.TrimSpace(opts.Shell) == "" {
		opts.Shell = "sh"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.ExtraSceneFiles = append([]string(nil), opts.ExtraSceneFiles...)

	return &Recipe{
		grid:     g,
		sky:      source,
		surfaces: append([]scene.Surface(nil), surfaces...),
		aperture: aperture,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "recipe"),
	}, nil
}

// FromWeatherFilePointsAndVectors builds the sky matrix from an EnergyPlus
// weather file and the grid from points and optional vectors.
func FromWeatherFilePointsAndVectors(weatherFile string, points []grid.Point, vectors []grid.Vector, skyDensity int, surfaces []scene.Surface, opts Options) (*Recipe, error) {
	var tools sky.ToolRunner
	if opts.Runner != nil {
		tools = opts.Runner
	}
	source, err := sky.NewMatrix(weatherFile, skyDensity, tools)
	if err != nil {
		return nil, err
	}
	g, err := grid.New("", points, vectors)
	if err != nil {
		return nil, err
	}
	return New(g, source, surfaces, opts)
}

// FromPointsFile reads the grid from a points file.
func FromPointsFile(weatherFile, pointsFile string, skyDensity int, surfaces []scene.Surface, opts Options) (*Recipe, error) {
	g, err := grid.ParseFile(pointsFile)
	if err != nil {
		return nil, err
	}
	sensors := g.Sensors()
	points := make([]grid.Point, len(sensors))
	vectors := make([]grid.Vector, len(sensors))
	for i, s := range sensors {
		points[i] = s.Position
		vectors[i] = s.Direction
	}
	return FromWeatherFilePointsAndVectors(weatherFile, points, vectors, skyDensity, surfaces, opts)
}

// Grid returns the analysis grid.
func (r *Recipe) Grid() *grid.Grid { return r.grid }

// Sky returns the sky source.
func (r *Recipe) Sky() sky.Source { return r.sky }

// Aperture returns the resolved aperture.
func (r *Recipe) Aperture() Aperture { return r.aperture }

// Options returns a copy of the recipe options.
func (r *Recipe) Options() Options {
	opts := r.opts
	opts.ExtraSceneFiles = append([]string(nil), r.opts.ExtraSceneFiles...)
	return opts
}
