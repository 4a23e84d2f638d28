package recipe

import (
	"fmt"
	"path/filepath"
	"strings"

	"threephase/internal/rad"
	"threephase/internal/scene"
	"threephase/internal/services"
)

// Aperture is the switchable glazing surface and its BSDF data.
type Aperture struct {
	Surface      scene.Surface
	Transmission scene.TransmissionSpec
}

// ResolveAperture returns the single surface whose material carries a
// transmission spec. Zero or several matches are configuration errors.
func ResolveAperture(surfaces []scene.Surface) (Aperture, error) {
	apertures := scene.Apertures(surfaces)
	switch len(apertures) {
	case 0:
		return Aperture{}, services.Wrap(services.ErrConfiguration, "recipe", "resolve aperture",
			"no surface has a BSDF material; the three-phase method needs exactly one aperture", nil)
	case 1:
		spec, _ := apertures[0].Material.Transmission()
		return Aperture{Surface: apertures[0], Transmission: spec}, nil
	default:
		names := make([]string, len(apertures))
		for i, a := range apertures {
			names[i] = a.Name
		}
		return Aperture{}, services.Wrap(services.ErrConfiguration, "recipe", "resolve aperture",
			fmt.Sprintf("%d surfaces have BSDF materials (%s); the three-phase method needs exactly one aperture",
				len(apertures), strings.Join(names, ", ")), nil)
	}
}

// WriteAperture writes the aperture to its own file and returns the transform
// stage that produces the inverted copy, plus the transmission matrix file.
// The script runs from the recipe directory, so the BSDF path is made
// absolute in both the aperture file and the returned path.
func WriteAperture(a Aperture, paths ArtifactPaths) (rad.Xform, string, error) {
	a, err := a.absolute()
	if err != nil {
		return rad.Xform{}, "", err
	}
	if err := a.Surface.WriteFile(paths.Aperture); err != nil {
		return rad.Xform{}, "", err
	}
	xform := rad.Xform{
		Input:       paths.Rel(paths.Aperture),
		OutputFile:  paths.Rel(paths.InvertedAperture),
		InvertFaces: true,
	}
	return xform, a.Transmission.File, nil
}

func (a Aperture) absolute() (Aperture, error) {
	file, err := filepath.Abs(a.Transmission.File)
	if err != nil {
		return a, services.Wrap(services.ErrConfiguration, "recipe", "aperture", "resolve "+a.Transmission.File, err)
	}
	a.Transmission.File = file
	if bsdf := a.Surface.Material.BSDF; bsdf != nil {
		spec := *bsdf
		spec.File = file
		a.Surface.Material.BSDF = &spec
	}
	return a, nil
}
