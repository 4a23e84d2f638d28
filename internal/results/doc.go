// Package results reads the illuminance matrix written by dctimestep.
//
// The file holds one row per sensor, in points-file order, and one column per
// time step. RGB rows (NCOMP=3) are converted to illuminance. Open indexes row
// offsets and validates every value; series are then read lazily and can be
// iterated any number of times.
package results
