package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement defines an external program or support file a recipe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := newStatus(req)
		if status.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(status.Command)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", status.Command)
			results = append(results, status)
			continue
		}
		status.Available = true
		if resolved != status.Command {
			status.Detail = resolved
		}
		results = append(results, status)
	}
	return results
}

// CheckFiles reports whether each requirement's Command names a file in one of
// the search directories. Absolute commands are checked as given.
func CheckFiles(requirements []Requirement, search []string) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := newStatus(req)
		candidates := []string{status.Command}
		if !filepath.IsAbs(status.Command) {
			candidates = candidates[:0]
			for _, dir := range search {
				candidates = append(candidates, filepath.Join(dir, status.Command))
			}
		}
		for _, candidate := range candidates {
			if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
				status.Available = true
				status.Detail = candidate
				break
			}
		}
		if !status.Available {
			status.Detail = fmt.Sprintf("%s not found in %s", status.Command, strings.Join(search, string(os.PathListSeparator)))
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the statuses of required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

func newStatus(req Requirement) Status {
	return Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
}
