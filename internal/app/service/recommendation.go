package service

import (
	"context"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"
	"codeforge_arena/internal/domain/repository"
)

const DefaultRecommendationLimit = 3

// SelectRecommendations picks non-Expert problems from weak topics plus every Easy problem,
// in catalog order, truncated to limit. A non-positive limit means DefaultRecommendationLimit.
func SelectRecommendations(stats []model.TopicStat, catalog []model.Problem, limit int) []model.Problem {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	weak := make(map[string]bool)
	for _, st := range stats {
		if st.IsWeak() {
			weak[st.Topic] = true
		}
	}

	picked := []model.Problem{}
	for _, p := range catalog {
		if len(picked) == limit {
			break
		}
		fromWeakTopic := weak[p.Topic] && p.Difficulty != model.DifficultyExpert
		if fromWeakTopic || p.Difficulty == model.DifficultyEasy {
			picked = append(picked, p)
		}
	}
	return picked
}

type RecommendationService struct {
	problemRepo repository.ProblemRepository
	stats       *TopicStatService
}

func NewRecommendationService(problemRepo repository.ProblemRepository, stats *TopicStatService) *RecommendationService {
	return &RecommendationService{problemRepo: problemRepo, stats: stats}
}

func (s *RecommendationService) Recommend(ctx context.Context, userID string, limit int) ([]model.Problem, error) {
	stats, err := s.stats.ListTopicStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.problemRepo.ListProblems(ctx, "")
	if err != nil {
		return nil, common.Errorf("failed to load catalog: %w", err)
	}
	return SelectRecommendations(stats, catalog, limit), nil
}
