// Package store persists recipe runs and their loaded results in SQLite.
//
// A run row mirrors a recipe.Session: its directory, script, sky vector, stage
// lines and lifecycle state. SaveSession and Transition only move a run along
// built -> files_written -> calculated; rewriting files resets a calculated
// run to files_written. ImportResults copies a calculated run's illuminance
// matrix into the sensors and results tables so series can be queried without
// the run directory.
//
// Schema changes bump schemaVersion in schema.go; an existing database with a
// different version is rejected and must be deleted.
package store
