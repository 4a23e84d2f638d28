package recipe

import (
	"fmt"
	"path/filepath"
	"strings"

	"threephase/internal/services"
)

// Fixed artifact names inside a recipe directory.
const (
	ApertureFile         = "glazing.rad"
	ApertureReceiverFile = "glazing.rad_m"
	InvertedApertureFile = "glazingI.rad"
	InvertedSenderFile   = "glazingI.rad_m"
	SkyHemisphereFile    = "rfluxSky.rad"
	ResultFile           = "illuminance.ill"
	LockFile             = ".threephase.lock"
)

// ArtifactPaths names every file a recipe writes or reads in its directory.
type ArtifactPaths struct {
	Dir              string
	Project          string
	Points           string
	Material         string
	Geometry         string
	Aperture         string
	ApertureReceiver string
	InvertedAperture string
	InvertedSender   string
	SkyHemisphere    string
	ViewMatrix       string
	DaylightMatrix   string
	Result           string
	Script           string
	Lock             string
}

// NewArtifactPaths resolves <target>/<project>/<subFolder>/ and the files in it.
func NewArtifactPaths(target, project, subFolder string) (ArtifactPaths, error) {
	project = strings.TrimSpace(project)
	subFolder = strings.TrimSpace(subFolder)
	if err := checkSegment("project", project); err != nil {
		return ArtifactPaths{}, err
	}
	if err := checkSegment("sub folder", subFolder); err != nil {
		return ArtifactPaths{}, err
	}
	if strings.TrimSpace(target) == "" {
		return ArtifactPaths{}, services.Wrap(services.ErrConfiguration, "recipe", "paths", "target folder required", nil)
	}
	root, err := filepath.Abs(target)
	if err != nil {
		return ArtifactPaths{}, services.Wrap(services.ErrDirectory, "recipe", "paths", target, err)
	}
	dir := filepath.Join(root, project, subFolder)
	in := func(name string) string { return filepath.Join(dir, name) }
	return ArtifactPaths{
		Dir:              dir,
		Project:          project,
		Points:           in(project + ".pts"),
		Material:         in(project + ".mat"),
		Geometry:         in(project + ".rad"),
		Aperture:         in(ApertureFile),
		ApertureReceiver: in(ApertureReceiverFile),
		InvertedAperture: in(InvertedApertureFile),
		InvertedSender:   in(InvertedSenderFile),
		SkyHemisphere:    in(SkyHemisphereFile),
		ViewMatrix:       in(project + ".vmx"),
		DaylightMatrix:   in(project + ".dmx"),
		Result:           in(ResultFile),
		Script:           in(project + ".sh"),
		Lock:             in(LockFile),
	}, nil
}

// Rel returns path relative to the recipe directory when it lives inside it,
// and path unchanged otherwise.
func (p ArtifactPaths) Rel(path string) string {
	rel, err := filepath.Rel(p.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func checkSegment(label, value string) error {
	if value == "" || value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return services.Wrap(services.ErrConfiguration, "recipe", "paths", fmt.Sprintf("invalid %s name %q", label, value), nil)
	}
	return nil
}

// ArtifactPathsIn rebuilds the paths of a recipe whose directory is already
// known, as recorded for an earlier session.
func ArtifactPathsIn(dir, project string) (ArtifactPaths, error) {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if filepath.Base(parent) != project {
		return ArtifactPaths{}, services.Wrap(services.ErrConfiguration, "recipe", "paths",
			fmt.Sprintf("%s is not a directory of project %q", dir, project), nil)
	}
	return NewArtifactPaths(filepath.Dir(parent), project, filepath.Base(dir))
}
