package config

const (
	defaultOutputDir          = "~/threephase"
	defaultStateDir           = "~/.local/share/threephase"
	defaultLogDir             = "~/.local/share/threephase/logs"
	defaultShell              = "sh"
	defaultSubFolder          = "threephase"
	defaultSkyDensity         = 1
	defaultHemisphere         = "kf"
	defaultUpDirection        = "+Z"
	defaultSamplingRays       = 1000
	defaultMinFreeSpaceMiB    = 512
	defaultMaxParallelRecipes = 2
	defaultArchiveRegion      = "us-east-1"
	defaultArchivePrefix      = "threephase"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Radiance: Radiance{
			Shell: defaultShell,
		},
		Recipe: Recipe{
			SubFolder:       defaultSubFolder,
			SkyDensity:      defaultSkyDensity,
			Hemisphere:      defaultHemisphere,
			UpDirection:     defaultUpDirection,
			SamplingRays:    defaultSamplingRays,
			MinFreeSpaceMiB: defaultMinFreeSpaceMiB,
		},
		// The view matrix resolves sensor-to-aperture visibility, so it
		// carries far more ambient divisions than the daylight matrix.
		ViewMatrix: MatrixParameters{
			AmbientAccuracy:  0.1,
			AmbientBounces:   10,
			AmbientDivisions: 65536,
			LimitWeight:      1e-5,
			Irradiance:       true,
		},
		DaylightMatrix: MatrixParameters{
			AmbientAccuracy:  0.1,
			AmbientBounces:   2,
			AmbientDivisions: 1024,
			LimitWeight:      1e-7,
		},
		Workflow: Workflow{
			MaxParallelRecipes: defaultMaxParallelRecipes,
		},
		Archive: Archive{
			Region: defaultArchiveRegion,
			Prefix: defaultArchivePrefix,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
