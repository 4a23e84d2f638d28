package recipe

import (
	"threephase/internal/rad"
	"threephase/internal/scene"
	"threephase/internal/services"
)

// DeriveControl builds the receiver control block for the aperture material,
// keyed by the material's Radiance identifier. The caller picks basis and up
// direction to match the aperture's orientation; nothing is inferred from the
// surface normal.
func DeriveControl(material scene.Material, basis rad.HemisphereType, up string) (map[string]rad.ControlParameters, error) {
	if _, ok := material.Transmission(); !ok {
		return nil, services.Wrap(services.ErrConfiguration, "recipe", "derive control",
			material.Name+" has no transmission spec", nil)
	}
	ctrl := rad.ControlParameters{Hemisphere: basis, Up: up}
	if err := ctrl.Validate(); err != nil {
		return nil, err
	}
	return map[string]rad.ControlParameters{scene.Identifier(material.Name): ctrl}, nil
}
