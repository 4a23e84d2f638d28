// Package preflight provides readiness checks for the filesystem paths,
// engine programs and archive endpoint a recipe run depends on.
//
// The CLI "check" command prints every result; "run" and "batch" call RunAll
// first and refuse to start when a required check fails, so a long matrix
// calculation is not started against a missing tool or a full disk.
//
// Each optional check is gated by its config setting.
package preflight
