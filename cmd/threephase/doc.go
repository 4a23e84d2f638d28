// Package main hosts the threephase CLI entrypoint and command graph.
//
// The Cobra-based command tree writes and runs three-phase recipes, loads and
// exports their illuminance results, lists recorded runs, runs YAML batches,
// archives calculated runs and reports preflight checks. It centralizes
// configuration resolution, logger setup and store access so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
