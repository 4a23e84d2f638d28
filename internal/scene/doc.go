// Package scene describes the surfaces and materials of a daylighting model
// and serializes them to Radiance scene files.
//
// Materials are a tagged variant over Radiance material kinds. Only BSDF
// materials carry a TransmissionSpec, queried through Material.Transmission,
// and a surface with such a material is the switchable aperture of a
// three-phase recipe. RadExporter writes everything except the aperture,
// which the recipe writes to its own file.
package scene
