// Package textutil provides naming helpers shared by recipes, the run store,
// and CLI output.
//
// SanitizeToken turns project names into directory and object-key safe tokens.
// DisplayName renders stage and project identifiers for humans.
package textutil
