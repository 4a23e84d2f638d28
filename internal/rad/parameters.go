package rad

import (
	"strconv"
)

// Parameters holds the ambient calculation settings passed to rfluxmtx.
type Parameters struct {
	AmbientAccuracy  float64
	AmbientBounces   int
	AmbientDivisions int
	LimitWeight      float64
	Irradiance       bool
}

// ViewMatrixParameters returns the settings for the sensor to aperture stage.
// Aperture sub-patches need tens of thousands of ambient divisions.
func ViewMatrixParameters() Parameters {
	return Parameters{
		AmbientAccuracy:  0.1,
		AmbientBounces:   10,
		AmbientDivisions: 65536,
		LimitWeight:      1e-5,
		Irradiance:       true,
	}
}

// DaylightMatrixParameters returns the settings for the aperture to sky stage.
func DaylightMatrixParameters() Parameters {
	return Parameters{
		AmbientAccuracy:  0.1,
		AmbientBounces:   2,
		AmbientDivisions: 1024,
		LimitWeight:      1e-7,
	}
}

// Args renders the parameters as command-line flags.
func (p Parameters) Args() []string {
	args := []string{
		"-aa", formatFloat(p.AmbientAccuracy),
		"-ab", strconv.Itoa(p.AmbientBounces),
		"-ad", strconv.Itoa(p.AmbientDivisions),
		"-lw", formatFloat(p.LimitWeight),
	}
	if p.Irradiance {
		args = append(args, "-I")
	}
	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
