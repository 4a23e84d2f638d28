// Package logging assembles structured slog loggers used across threephase.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so recipe code can tag log lines
// with run IDs, project names, and pipeline stages. NewNop is available for
// tests and wiring code that cannot fail.
package logging
