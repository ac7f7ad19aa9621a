package model

import (
	"github.com/gosimple/slug"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "Easy"
	DifficultyMedium ProblemDifficulty = "Medium"
	DifficultyHard   ProblemDifficulty = "Hard"
	DifficultyExpert ProblemDifficulty = "Expert"
)

// difficultyLadder orders difficulties from easiest to hardest.
var difficultyLadder = []ProblemDifficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert}

func (d ProblemDifficulty) Valid() bool {
	return d.rank() >= 0
}

func (d ProblemDifficulty) rank() int {
	for i, v := range difficultyLadder {
		if v == d {
			return i
		}
	}
	return -1
}

// Problem is a static catalog entry.
type Problem struct {
	ID         string            `json:"id" toml:"id"`
	Title      string            `json:"title" toml:"title"`
	Slug       string            `json:"slug" toml:"slug"`
	Topic      string            `json:"topic" toml:"topic"`
	Difficulty ProblemDifficulty `json:"difficulty" toml:"difficulty"`
	SolvedBy   int               `json:"solved_by" toml:"solved_by"`
	Tags       []string          `json:"tags" toml:"tags"`
	Statement  string            `json:"statement,omitempty" toml:"statement"`
}

// EnsureSlug fills Slug from Title when it is empty.
func (p *Problem) EnsureSlug() {
	if p.Slug == "" {
		p.Slug = slug.Make(p.Title)
	}
}

// HasTag reports whether tag is in the problem's tag set.
func (p Problem) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// PerceivedDifficulty downgrades a problem by one level when its community solve count
// reaches half of the most-solved problem's count. Easy problems stay Easy.
func PerceivedDifficulty(p Problem, maxSolvedBy int) ProblemDifficulty {
	r := p.Difficulty.rank()
	if r <= 0 || maxSolvedBy <= 0 {
		return p.Difficulty
	}
	if p.SolvedBy*2 >= maxSolvedBy {
		return difficultyLadder[r-1]
	}
	return p.Difficulty
}

// MaxSolvedBy returns the largest SolvedBy in the catalog.
func MaxSolvedBy(catalog []Problem) int {
	maxSolved := 0
	for _, p := range catalog {
		if p.SolvedBy > maxSolved {
			maxSolved = p.SolvedBy
		}
	}
	return maxSolved
}

// CatalogEntry is a problem as listed to users, with its community-adjusted difficulty.
type CatalogEntry struct {
	Problem
	PerceivedDifficulty ProblemDifficulty `json:"perceived_difficulty"`
}
