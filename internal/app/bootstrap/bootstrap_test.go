package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/platform/config"
	"codeforge_arena/internal/platform/database"
)

func TestLoadCatalogSeedsSQL(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(config.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatal("Error:", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatal("Error:", err)
	}

	repo, err := LoadCatalog(ctx, db, config.CatalogSourceSQL, "")
	if err != nil {
		t.Fatal("Error:", err)
	}
	problems, err := repo.ListProblems(ctx, "")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(problems) == 0 || problems[0].ID != "p1" {
		t.Fatalf("Expected catalog order starting at p1, got %v", problems)
	}
	p, err := repo.FindProblemBySlug(ctx, "graph-city")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if p.ID != "p2" {
		t.Fatalf("Expected p2, got %s", p.ID)
	}

	// Seeding twice keeps a single copy of each problem.
	if _, err := LoadCatalog(ctx, db, config.CatalogSourceSQL, ""); err != nil {
		t.Fatal("Error:", err)
	}
	again, err := repo.ListProblems(ctx, "")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if len(again) != len(problems) {
		t.Fatalf("Expected %d problems after reseeding, got %d", len(problems), len(again))
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	catalog := `
[[problems]]
id = "x1"
title = "Bridges"
topic = "Graph"
difficulty = "Hard"
solved_by = 10
tags = ["dfs"]
`
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatal("Error:", err)
	}
	repo, err := LoadCatalog(context.Background(), nil, config.CatalogSourceTOML, path)
	if err != nil {
		t.Fatal("Error:", err)
	}
	p, err := repo.FindProblemByID(context.Background(), "x1")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if p.Slug != "bridges" {
		t.Fatalf("Expected generated slug, got %q", p.Slug)
	}
	if _, err := repo.FindProblemByID(context.Background(), "p1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for the built-in catalog, got %v", err)
	}
}

func TestLoadCatalogUnknownSource(t *testing.T) {
	if _, err := LoadCatalog(context.Background(), nil, "yaml", ""); err == nil {
		t.Fatal("Expected error for unknown source")
	}
}
