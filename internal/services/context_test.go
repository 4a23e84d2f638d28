package services_test

import (
	"context"
	"testing"

	"threephase/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithProject(ctx, "office")
	ctx = services.WithStage(ctx, "view-matrix")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if project, ok := services.ProjectFromContext(ctx); !ok || project != "office" {
		t.Fatalf("unexpected project: %v %v", project, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "view-matrix" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithProject(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.ProjectFromContext(ctx); ok {
		t.Fatal("expected no project value")
	}
}
