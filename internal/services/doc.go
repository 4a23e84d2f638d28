// Package services defines shared utilities consumed by the recipe stages and
// the external engine integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, project names, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     configuration, directory, state, execution, or external tool errors.
//
// The engine subpackage wraps process execution so stages stay testable.
package services
