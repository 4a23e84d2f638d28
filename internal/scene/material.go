package scene

import (
	"fmt"
	"strconv"
	"strings"

	"threephase/internal/grid"
	"threephase/internal/services"
)

// MaterialKind enumerates the Radiance material primitives supported in scenes.
type MaterialKind string

const (
	Plastic MaterialKind = "plastic"
	Glass   MaterialKind = "glass"
	Trans   MaterialKind = "trans"
	Metal   MaterialKind = "metal"
	BSDF    MaterialKind = "BSDF"
)

// ParseMaterialKind maps a manifest type name onto a MaterialKind.
func ParseMaterialKind(value string) (MaterialKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "plastic":
		return Plastic, nil
	case "glass":
		return Glass, nil
	case "trans":
		return Trans, nil
	case "metal":
		return Metal, nil
	case "bsdf":
		return BSDF, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "scene", "material kind", fmt.Sprintf("unsupported material type %q", value), nil)
	}
}

// realArgs is the number of real arguments each non-BSDF primitive takes.
var realArgs = map[MaterialKind]int{
	Plastic: 5,
	Glass:   3,
	Trans:   7,
	Metal:   5,
}

// TransmissionSpec references the BSDF data of a switchable aperture.
type TransmissionSpec struct {
	File      string
	Thickness float64
	Up        grid.Vector
}

// Material is a Radiance material definition.
type Material struct {
	Kind   MaterialKind
	Name   string
	Values []float64
	BSDF   *TransmissionSpec
}

// Transmission reports the material's BSDF specification, if it has one.
func (m Material) Transmission() (TransmissionSpec, bool) {
	if m.Kind != BSDF || m.BSDF == nil || strings.TrimSpace(m.BSDF.File) == "" {
		return TransmissionSpec{}, false
	}
	return *m.BSDF, true
}

// Validate checks the argument count for the material kind.
func (m Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return services.Wrap(services.ErrConfiguration, "scene", "material", "material name required", nil)
	}
	if m.Kind == BSDF {
		if _, ok := m.Transmission(); !ok {
			return services.Wrap(services.ErrConfiguration, "scene", "material", m.Name+": BSDF material requires a transmission file", nil)
		}
		return nil
	}
	want, ok := realArgs[m.Kind]
	if !ok {
		return services.Wrap(services.ErrConfiguration, "scene", "material", fmt.Sprintf("%s: unsupported kind %q", m.Name, m.Kind), nil)
	}
	if len(m.Values) != want {
		return services.Wrap(services.ErrConfiguration, "scene", "material",
			fmt.Sprintf("%s: %s takes %d values, got %d", m.Name, m.Kind, want, len(m.Values)), nil)
	}
	return nil
}

// RadString renders the material primitive.
func (m Material) RadString() string {
	name := Identifier(m.Name)
	if spec, ok := m.Transmission(); ok {
		up := spec.Up
		if up == (grid.Vector{}) {
			up = grid.Up
		}
		return fmt.Sprintf("void BSDF %s\n6 %s %s %s .\n0\n0\n",
			name, formatFloat(spec.Thickness), spec.File, up.String())
	}
	values := make([]string, len(m.Values))
	for i, v := range m.Values {
		values[i] = formatFloat(v)
	}
	return fmt.Sprintf("void %s %s\n0\n0\n%d %s\n", m.Kind, name, len(values), strings.Join(values, " "))
}

// Identifier converts a name into a Radiance identifier. Radiance splits
// primitives on whitespace, so spaces become underscores.
func Identifier(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "unnamed"
	}
	return strings.Join(fields, "_")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
