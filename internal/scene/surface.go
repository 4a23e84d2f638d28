package scene

import (
	"fmt"
	"strings"

	"threephase/internal/fileutil"
	"threephase/internal/grid"
	"threephase/internal/services"
)

// Surface is a planar polygon with a material.
type Surface struct {
	Name     string
	Material Material
	Vertices []grid.Point
}

// IsAperture reports whether the surface's material carries a transmission spec.
func (s Surface) IsAperture() bool {
	_, ok := s.Material.Transmission()
	return ok
}

// Validate checks the polygon and its material.
func (s Surface) Validate() error {
	if len(s.Vertices) < 3 {
		return services.Wrap(services.ErrConfiguration, "scene", "surface",
			fmt.Sprintf("%s: polygon needs at least 3 vertices, got %d", s.Name, len(s.Vertices)), nil)
	}
	return s.Material.Validate()
}

// GeometryString renders only the polygon primitive.
func (s Surface) GeometryString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s polygon %s\n0\n0\n%d", Identifier(s.Material.Name), Identifier(s.Name), len(s.Vertices)*3)
	for _, v := range s.Vertices {
		fmt.Fprintf(&b, "\n    %s %s %s", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
	}
	b.WriteString("\n")
	return b.String()
}

// RadString renders the material followed by the polygon.
func (s Surface) RadString() string {
	return s.Material.RadString() + "\n" + s.GeometryString()
}

// WriteFile writes the surface with its material to path.
func (s Surface) WriteFile(path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(s.RadString()), 0o644); err != nil {
		return services.Wrap(services.ErrDirectory, "scene", "write surface", path, err)
	}
	return nil
}

// Apertures returns the surfaces that carry a transmission spec, in order.
func Apertures(surfaces []Surface) []Surface {
	var out []Surface
	for _, s := range surfaces {
		if s.IsAperture() {
			out = append(out, s)
		}
	}
	return out
}
