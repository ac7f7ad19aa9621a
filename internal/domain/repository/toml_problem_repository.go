package repository

import (
	"context"
	_ "embed"
	"fmt"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"

	"github.com/BurntSushi/toml"
)

//go:embed catalog/default.toml
var defaultCatalog string

type catalogFile struct {
	Problems []model.Problem `toml:"problems"`
}

// tomlProblemRepository serves an immutable catalog loaded once from TOML.
type tomlProblemRepository struct {
	problems []model.Problem
	byID     map[string]int
	bySlug   map[string]int
}

// NewTOMLProblemRepository loads the catalog from path, or the built-in catalog when path is empty.
func NewTOMLProblemRepository(path string) (ProblemRepository, error) {
	var file catalogFile
	var err error
	if path != "" {
		_, err = toml.DecodeFile(path, &file)
	} else {
		_, err = toml.Decode(defaultCatalog, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog %q: %w", path, err)
	}
	r, err := newCatalog(file.Problems)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DefaultCatalog returns the built-in problems in catalog order.
func DefaultCatalog() ([]model.Problem, error) {
	var file catalogFile
	if _, err := toml.Decode(defaultCatalog, &file); err != nil {
		return nil, fmt.Errorf("decode default catalog: %w", err)
	}
	for i := range file.Problems {
		file.Problems[i].EnsureSlug()
	}
	return file.Problems, nil
}

func newCatalog(problems []model.Problem) (*tomlProblemRepository, error) {
	r := &tomlProblemRepository{
		problems: make([]model.Problem, 0, len(problems)),
		byID:     make(map[string]int, len(problems)),
		bySlug:   make(map[string]int, len(problems)),
	}
	for _, p := range problems {
		p.EnsureSlug()
		if p.ID == "" {
			return nil, common.Errorf("catalog problem %q has no id: %w", p.Title, common.ErrValidation)
		}
		if !p.Difficulty.Valid() {
			return nil, common.Errorf("catalog problem %s has difficulty %q: %w", p.ID, p.Difficulty, common.ErrValidation)
		}
		if p.SolvedBy < 0 {
			return nil, common.Errorf("catalog problem %s has negative solved_by: %w", p.ID, common.ErrValidation)
		}
		if _, ok := r.byID[p.ID]; ok {
			return nil, common.Errorf("duplicate catalog id %s: %w", p.ID, common.ErrConflict)
		}
		if _, ok := r.bySlug[p.Slug]; ok {
			return nil, common.Errorf("duplicate catalog slug %s: %w", p.Slug, common.ErrConflict)
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		r.byID[p.ID] = len(r.problems)
		r.bySlug[p.Slug] = len(r.problems)
		r.problems = append(r.problems, p)
	}
	return r, nil
}

func (r *tomlProblemRepository) ListProblems(_ context.Context, topic string) ([]model.Problem, error) {
	problems := []model.Problem{}
	for _, p := range r.problems {
		if topic == "" || p.Topic == topic {
			problems = append(problems, cloneProblem(p))
		}
	}
	return problems, nil
}

func (r *tomlProblemRepository) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	i, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	p := cloneProblem(r.problems[i])
	return &p, nil
}

func (r *tomlProblemRepository) FindProblemBySlug(_ context.Context, slug string) (*model.Problem, error) {
	i, ok := r.bySlug[slug]
	if !ok {
		return nil, common.ErrNotFound
	}
	p := cloneProblem(r.problems[i])
	return &p, nil
}

func cloneProblem(p model.Problem) model.Problem {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	p.Tags = tags
	return p
}
