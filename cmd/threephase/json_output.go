package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON writes v to the command's stdout as indented JSON without HTML
// escaping, so shell pipelines in stage lines survive intact.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
