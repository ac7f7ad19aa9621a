package handler

import (
	"net/http"

	"codeforge_arena/internal/api/middleware"
	"codeforge_arena/internal/app/duel"
	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/common"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

const maxLeaderboardLimit = 100

type StartDuelRequest struct {
	ProblemID string `json:"problem_id"`
}

type DuelSubmitRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type DuelHandler struct {
	problemService *service.ProblemService
	arena          *duel.Arena
	leaderboard    service.DuelLeaderboard
}

func NewDuelHandler(ps *service.ProblemService, arena *duel.Arena, leaderboard service.DuelLeaderboard) *DuelHandler {
	return &DuelHandler{problemService: ps, arena: arena, leaderboard: leaderboard}
}

func (h *DuelHandler) RegisterRoutes(r chi.Router) {
	r.Get("/leaderboard", h.topTimes) // public

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Post("/", h.start)
		authed.Get("/current", h.current)
		authed.Post("/current/submissions", h.submit)
		authed.Delete("/current", h.exit)
	})
}

func (h *DuelHandler) start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req StartDuelRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	problem, err := h.problemService.DuelProblem(r.Context(), req.ProblemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, h.arena.Start(userID, *problem))
}

func (h *DuelHandler) current(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.arena.Current(userID))
}

// submit hands the code to duel judging and answers immediately; the verdict reaches
// the session through the duel's event loop and shows up on GET /current.
func (h *DuelHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req DuelSubmitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := h.arena.Submit(userID, req.Language, req.Code); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	log.Debugf("Duel submission accepted for user %s", userID)
	common.RespondWithJSON(w, http.StatusAccepted, h.arena.Current(userID))
}

func (h *DuelHandler) exit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.arena.Exit(userID))
}

func (h *DuelHandler) topTimes(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveInt(r.URL.Query().Get("limit"), service.DefaultLeaderboardLimit)
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	entries, err := h.leaderboard.Top(r.Context(), limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}
