package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"threephase/internal/config"
	"threephase/internal/recipe"
	"threephase/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSession returns a files-written session for project rooted in the
// config's output directory, without writing any artifacts.
func NewSession(t testing.TB, cfg *config.Config, project string) recipe.Session {
	t.Helper()

	paths, err := recipe.NewArtifactPaths(cfg.Paths.OutputDir, project, cfg.Recipe.SubFolder)
	if err != nil {
		t.Fatalf("recipe.NewArtifactPaths: %v", err)
	}
	return recipe.Session{
		ID:        uuid.NewString(),
		Project:   project,
		State:     recipe.FilesWritten,
		Paths:     paths,
		SkyVector: filepath.Join(paths.Dir, "boston_r1.smx"),
		Script:    paths.Script,
		Stages:    []string{"xform -I glazing.rad > glazingI.rad"},
		WrittenAt: time.Now().UTC(),
	}
}

// SaveSession stores session and fails the test on error.
func SaveSession(t testing.TB, st *store.Store, session recipe.Session) {
	t.Helper()

	if err := st.SaveSession(context.Background(), session); err != nil {
		t.Fatalf("store.SaveSession: %v", err)
	}
}
