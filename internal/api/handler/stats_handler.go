package handler

import (
	"net/http"

	"codeforge_arena/internal/api/middleware"
	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

const maxRecommendationLimit = 20

// StatsHandler serves the caller's topic statistics, mistake log and recommendations.
type StatsHandler struct {
	stats           *service.TopicStatService
	recommendations *service.RecommendationService
}

func NewStatsHandler(stats *service.TopicStatService, recs *service.RecommendationService) *StatsHandler {
	return &StatsHandler{stats: stats, recommendations: recs}
}

func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/stats/topics", h.topicStats)
	r.Get("/stats/topics/{topic}", h.topicStat)
	r.Get("/stats/mistakes", h.mistakes)
	r.Get("/recommendations", h.recommend)
}

func (h *StatsHandler) topicStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	stats, err := h.stats.ListTopicStats(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) topicStat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	st, err := h.stats.TopicStat(r.Context(), userID, chi.URLParam(r, "topic"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, st)
}

func (h *StatsHandler) mistakes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	entries, err := h.stats.MistakeLog(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *StatsHandler) recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	limit := parsePositiveInt(r.URL.Query().Get("limit"), service.DefaultRecommendationLimit)
	if limit > maxRecommendationLimit {
		limit = maxRecommendationLimit
	}
	problems, err := h.recommendations.Recommend(r.Context(), userID, limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problems)
}
