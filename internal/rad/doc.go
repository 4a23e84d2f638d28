// Package rad renders Radiance invocations and the auxiliary scene files the
// matrix stages read.
//
// Every stage descriptor implements Command: it declares its input files and
// its single output, and renders to exactly one shell line. Parameters and
// ControlParameters are plain values; each stage receives its own copy.
package rad
