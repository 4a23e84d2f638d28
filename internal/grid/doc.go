// Package grid models the ordered sensor points of an analysis grid and the
// Radiance points file that feeds them to rfluxmtx.
//
// Grids are immutable after construction. Row i of every matrix produced for
// a grid corresponds to Sensors()[i], so the points file preserves insertion
// order.
package grid
