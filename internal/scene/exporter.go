package scene

import (
	"path/filepath"
	"strings"

	"threephase/internal/fileutil"
	"threephase/internal/services"
)

// Exporter serializes scene surfaces into a material file and a geometry file.
type Exporter interface {
	Export(dir, project string, surfaces []Surface) (matFile, geoFile string, err error)
}

// RadExporter writes <project>.mat and <project>.rad. Apertures are skipped.
type RadExporter struct{}

// Export implements Exporter. Both files are written even when the scene has
// no opaque surfaces so the matrix stages can always reference them.
func (RadExporter) Export(dir, project string, surfaces []Surface) (string, string, error) {
	matFile := filepath.Join(dir, project+".mat")
	geoFile := filepath.Join(dir, project+".rad")

	var mats, geo strings.Builder
	seen := make(map[string]struct{})
	for _, s := range surfaces {
		if s.IsAperture() {
			continue
		}
		if _, ok := seen[s.Material.Name]; !ok {
			seen[s.Material.Name] = struct{}{}
			mats.WriteString(s.Material.RadString())
			mats.WriteString("\n")
		}
		geo.WriteString(s.GeometryString())
		geo.WriteString("\n")
	}

	if err := fileutil.WriteFileAtomic(matFile, []byte(mats.String()), 0o644); err != nil {
		return "", "", services.Wrap(services.ErrDirectory, "scene", "export materials", matFile, err)
	}
	if err := fileutil.WriteFileAtomic(geoFile, []byte(geo.String()), 0o644); err != nil {
		return "", "", services.Wrap(services.ErrDirectory, "scene", "export geometry", geoFile, err)
	}
	return matFile, geoFile, nil
}
