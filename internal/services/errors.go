package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid inputs detected while building a recipe:
	// non-weather-file input, missing or ambiguous aperture, malformed points.
	ErrConfiguration = errors.New("configuration error")
	// ErrDirectory marks output directories that could not be created.
	ErrDirectory = errors.New("directory error")
	// ErrState marks operations invoked out of sequence.
	ErrState = errors.New("state error")
	// ErrExecution marks external processes that could not be started.
	ErrExecution = errors.New("execution error")
	// ErrExternalTool marks external processes that started but failed.
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks artifacts that exist but do not have the expected shape.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind classifies err against the sentinel markers. Unknown errors report
// "unknown"; nil reports "".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrDirectory):
		return "directory"
	case errors.Is(err, ErrState):
		return "state"
	case errors.Is(err, ErrExecution):
		return "execution"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "recipe failure"
	}
	return strings.Join(parts, ": ")
}
