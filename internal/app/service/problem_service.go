package service

import (
	"context"
	"errors"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"
	"codeforge_arena/internal/domain/repository"
)

// DefaultDuelProblemID is the starter problem used when a duel names none.
const DefaultDuelProblemID = "j1"

type ProblemService struct {
	problemRepo repository.ProblemRepository
}

func NewProblemService(problemRepo repository.ProblemRepository) *ProblemService {
	return &ProblemService{problemRepo: problemRepo}
}

// ListCatalog returns the catalog, optionally filtered by topic and tag, with community-adjusted
// difficulty. The adjustment is relative to the whole catalog, not the filtered subset.
func (s *ProblemService) ListCatalog(ctx context.Context, topic, tag string) ([]model.CatalogEntry, error) {
	all, err := s.problemRepo.ListProblems(ctx, "")
	if err != nil {
		return nil, common.Errorf("failed to list problems: %w", err)
	}
	maxSolved := model.MaxSolvedBy(all)

	entries := []model.CatalogEntry{}
	for _, p := range all {
		if topic != "" && p.Topic != topic {
			continue
		}
		if tag != "" && !p.HasTag(tag) {
			continue
		}
		entries = append(entries, model.CatalogEntry{Problem: p, PerceivedDifficulty: model.PerceivedDifficulty(p, maxSolved)})
	}
	return entries, nil
}

func (s *ProblemService) GetProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	p, err := s.problemRepo.FindProblemBySlug(ctx, slug)
	if err != nil {
		return nil, common.Errorf("problem %q: %w", slug, err)
	}
	return p, nil
}

func (s *ProblemService) GetProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	p, err := s.problemRepo.FindProblemByID(ctx, id)
	if err != nil {
		return nil, common.Errorf("problem %q: %w", id, err)
	}
	return p, nil
}

// DuelProblem resolves the problem for a new duel: the requested id, else the starter, else the first Easy problem.
func (s *ProblemService) DuelProblem(ctx context.Context, id string) (*model.Problem, error) {
	if id != "" {
		return s.GetProblemByID(ctx, id)
	}
	p, err := s.problemRepo.FindProblemByID(ctx, DefaultDuelProblemID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, common.Errorf("failed to load starter problem: %w", err)
	}
	all, err := s.problemRepo.ListProblems(ctx, "")
	if err != nil {
		return nil, common.Errorf("failed to list problems: %w", err)
	}
	for i := range all {
		if all[i].Difficulty == model.DifficultyEasy {
			return &all[i], nil
		}
	}
	return nil, common.Errorf("no easy problem available for a duel: %w", common.ErrNotFound)
}
