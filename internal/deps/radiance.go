package deps

import (
	"os"
	"path/filepath"
	"strings"

	"threephase/internal/rad"
)

// RadianceRequirements lists the engine programs a recipe runs. Commands are
// placed under binDir when it is set.
func RadianceRequirements(binDir string) []Requirement {
	tools := []struct{ name, description string }{
		{"rfluxmtx", "Computes the view and daylight matrices"},
		{"rcontrib", "Ray tracer rfluxmtx drives"},
		{"xform", "Reverses the aperture geometry"},
		{"dctimestep", "Combines the matrices into illuminance"},
		{"epw2wea", "Converts the weather file"},
		{"gendaymtx", "Generates the sky matrix"},
	}
	requirements := make([]Requirement, 0, len(tools))
	for _, tool := range tools {
		command := tool.name
		if strings.TrimSpace(binDir) != "" {
			command = filepath.Join(binDir, tool.name)
		}
		requirements = append(requirements, Requirement{Name: tool.name, Command: command, Description: tool.description})
	}
	return requirements
}

var klemsCal = map[rad.HemisphereType]string{
	rad.KlemsFull:    "klems_full.cal",
	rad.KlemsHalf:    "klems_half.cal",
	rad.KlemsQuarter: "klems_quarter.cal",
}

// CalRequirements lists the .cal files rfluxmtx loads for the given bases.
func CalRequirements(bases ...rad.HemisphereType) []Requirement {
	seen := map[string]bool{}
	var requirements []Requirement
	add := func(file, description string) {
		if seen[file] {
			return
		}
		seen[file] = true
		requirements = append(requirements, Requirement{Name: file, Command: file, Description: description})
	}
	for _, basis := range bases {
		value := string(basis)
		switch {
		case basis.IsKlems():
			add(klemsCal[basis], "Klems patch definitions")
		case strings.HasPrefix(value, "r"):
			add("reinhartb.cal", "Reinhart sky patch definitions")
		case strings.HasPrefix(value, "sc"):
			add("disk2square.cal", "Shirley-Chiu square mapping")
		}
	}
	return requirements
}

// RaySearchPath returns the directories Radiance searches for support files:
// libDir when set, then the RAYPATH entries.
func RaySearchPath(libDir string) []string {
	var dirs []string
	if strings.TrimSpace(libDir) != "" {
		dirs = append(dirs, libDir)
	}
	for _, dir := range filepath.SplitList(os.Getenv("RAYPATH")) {
		if dir = strings.TrimSpace(dir); dir != "" && dir != "." {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
