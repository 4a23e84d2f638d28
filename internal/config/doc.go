// Package config loads, normalizes, and validates threephase configuration.
//
// Configuration lives in TOML (default ~/.config/threephase/config.toml, then
// ./threephase.toml). Defaults cover every field, so a missing file is valid.
// Normalization expands paths and applies environment overrides before
// Validate runs.
package config
