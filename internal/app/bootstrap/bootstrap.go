// Package bootstrap assembles the stores and services shared by the server and worker binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/domain/repository"
	"codeforge_arena/internal/platform/config"

	log "github.com/sirupsen/logrus"
)

// Stores holds the repositories and the topic stat service built on them.
type Stores struct {
	Problems    repository.ProblemRepository
	Submissions repository.SubmissionRepository
	TopicStats  *service.TopicStatService
}

// LoadCatalog reads the TOML catalog (catalogFile, or the built-in one) and, for the sql
// source, seeds it into the problems table and serves it from there.
func LoadCatalog(ctx context.Context, db *sql.DB, source, catalogFile string) (repository.ProblemRepository, error) {
	tomlRepo, err := repository.NewTOMLProblemRepository(catalogFile)
	if err != nil {
		return nil, err
	}
	switch source {
	case "", config.CatalogSourceTOML:
		return tomlRepo, nil
	case config.CatalogSourceSQL:
	default:
		return nil, fmt.Errorf("unknown catalog source %q", source)
	}

	problems, err := tomlRepo.ListProblems(ctx, "")
	if err != nil {
		return nil, err
	}
	sqlRepo := repository.NewSQLProblemRepository(db)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin catalog transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed
	if err := sqlRepo.UpsertProblems(ctx, tx, problems); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit catalog: %w", err)
	}
	log.Infof("Seeded %d catalog problems into the database.", len(problems))
	return sqlRepo, nil
}

func NewStores(ctx context.Context, db *sql.DB, cfg *config.Config) (*Stores, error) {
	problems, err := LoadCatalog(ctx, db, cfg.CatalogSource, cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	submissions := repository.NewSQLSubmissionRepository(db)
	return &Stores{
		Problems:    problems,
		Submissions: submissions,
		TopicStats:  service.NewTopicStatService(problems, submissions, repository.NewSQLTopicStatRepository(db)),
	}, nil
}
