package recipe

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"threephase/internal/fileutil"
	"threephase/internal/rad"
	"threephase/internal/services"
)

// PauseLine is appended to a script in debug mode so a terminal stays open
// for inspection.
const PauseLine = `printf 'Press Enter to continue...' && read -r _ || true`

// Environment is the tool search path written at the top of a script.
type Environment struct {
	BinDir string
	LibDir string
}

// BatchScript is the ordered text of a recipe's shell script.
type BatchScript struct {
	Lines []string
	// Stages is the number of trailing lines that are stage invocations.
	Stages int
}

// AssembleScript orders environment setup, the directory change, and the
// rendered stages. Two stages may not write the same file, and no stage may
// read a file written by a stage after it.
func AssembleScript(env Environment, dir string, stages []rad.Command) (BatchScript, error) {
	if len(stages) == 0 {
		return BatchScript{}, services.Wrap(services.ErrConfiguration, "recipe", "assemble script", "no stages", nil)
	}
	producer := make(map[string]int, len(stages))
	for i, stage := range stages {
		out := stage.Output()
		if out == "" {
			return BatchScript{}, services.Wrap(services.ErrConfiguration, "recipe", "assemble script",
				fmt.Sprintf("stage %d (%s) declares no output", i, stage.Name()), nil)
		}
		if prev, dup := producer[out]; dup {
			return BatchScript{}, services.Wrap(services.ErrConfiguration, "recipe", "assemble script",
				fmt.Sprintf("stages %d and %d both write %s", prev, i, out), nil)
		}
		producer[out] = i
	}
	for i, stage := range stages {
		for _, in := range stage.Inputs() {
			if j, ok := producer[in]; ok && j >= i {
				return BatchScript{}, services.Wrap(services.ErrConfiguration, "recipe", "assemble script",
					fmt.Sprintf("stage %d (%s) reads %s before stage %d writes it", i, stage.Name(), in, j), nil)
			}
		}
	}

	lines := []string{"#!/bin/sh", "set -e"}
	if env.BinDir != "" {
		lines = append(lines, fmt.Sprintf(`export PATH=%s:"$PATH"`, shellQuote(env.BinDir)))
	}
	if env.LibDir != "" {
		lines = append(lines, fmt.Sprintf(`export RAYPATH=.:%s`, shellQuote(env.LibDir)))
	}
	lines = append(lines, "cd "+shellQuote(dir))
	for _, stage := range stages {
		lines = append(lines, stage.Render())
	}
	return BatchScript{Lines: lines, Stages: len(stages)}, nil
}

// StageLines returns the rendered stage invocations.
func (s BatchScript) StageLines() []string {
	return s.Lines[len(s.Lines)-s.Stages:]
}

// String returns the script text.
func (s BatchScript) String() string {
	return strings.Join(s.Lines, "\n") + "\n"
}

// Write persists the script as an executable file.
func (s BatchScript) Write(path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(s.String()), 0o755); err != nil {
		return services.Wrap(services.ErrDirectory, "recipe", "write script", path, err)
	}
	return nil
}

// appendPause adds PauseLine to the script at path unless it is already the
// final line.
func appendPause(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Wrap(services.ErrExecution, "recipe", "debug pause", path, err)
	}
	text := strings.TrimRight(string(data), "\n")
	if strings.HasSuffix(text, "\n"+PauseLine) {
		return nil
	}
	text += "\n" + PauseLine + "\n"
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o755); err != nil {
		return services.Wrap(services.ErrExecution, "recipe", "debug pause", path, err)
	}
	return nil
}

var shellSafe = regexp.MustCompile(`^[A-Za-z0-9_./+,:=@%-]+$`)

func shellQuote(value string) string {
	if shellSafe.MatchString(value) {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
