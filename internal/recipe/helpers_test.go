package recipe_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"threephase/internal/grid"
	"threephase/internal/recipe"
	"threephase/internal/scene"
	"threephase/internal/testsupport"
)

type fakeSky struct {
	density int
	calls   int
}

func (f *fakeSky) Density() int    { return f.density }
func (f *fakeSky) SkyType() string { return fmt.Sprintf("r%d", f.density) }

func (f *fakeSky) Execute(_ context.Context, dir string) (string, error) {
	f.calls++
	path := filepath.Join(dir, fmt.Sprintf("boston_r%d.smx", f.density))
	return path, os.WriteFile(path, []byte("#?RADIANCE\n"), 0o644)
}

type fakeRunner struct {
	scripts []string
	err     error
	sensors int
	steps   int
}

func (f *fakeRunner) RunTool(context.Context, string, string, []string, io.Writer) error {
	return nil
}

func (f *fakeRunner) RunScript(_ context.Context, _ string, script string) error {
	data, err := os.ReadFile(script)
	if err != nil {
		return err
	}
	f.scripts = append(f.scripts, string(data))
	if f.sensors > 0 {
		var b strings.Builder
		b.WriteString("#?RADIANCE\nNCOMP=3\nFORMAT=ascii\n\n")
		for range f.sensors {
			for c := range f.steps {
				if c > 0 {
					b.WriteString("\t")
				}
				b.WriteString("1 1 1")
			}
			b.WriteString("\n")
		}
		if err := os.WriteFile(filepath.Join(filepath.Dir(script), recipe.ResultFile), []byte(b.String()), 0o644); err != nil {
			return err
		}
	}
	return f.err
}

type fixture struct {
	recipe   *recipe.Recipe
	runner   *fakeRunner
	sky      *fakeSky
	surfaces []scene.Surface
	target   string
}

func newFixture(t *testing.T, mutate func(*recipe.Options)) fixture {
	t.Helper()
	base := t.TempDir()
	surfaces, _ := testsupport.OfficeScene(t, filepath.Join(base, "model"))
	g, err := grid.New("desk", testsupport.SensorPoints(4), nil)
	if err != nil {
		t.Fatal(err)
	}
	runner := &fakeRunner{sensors: 4, steps: 24}
	source := &fakeSky{density: 1}
	opts := recipe.DefaultOptions()
	opts.Runner = runner
	if mutate != nil {
		mutate(&opts)
	}
	r, err := recipe.New(g, source, surfaces, opts)
	if err != nil {
		t.Fatalf("recipe.New: %v", err)
	}
	return fixture{recipe: r, runner: runner, sky: source, surfaces: surfaces, target: filepath.Join(base, "out")}
}
