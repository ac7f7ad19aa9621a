package handler

import (
	"errors"
	"net/http"

	"codeforge_arena/internal/api/middleware"
	"codeforge_arena/internal/app/judge"
	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmitCodeRequest struct {
	ProblemID string `json:"problem_id"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

type SubmissionHandler struct {
	problemService    *service.ProblemService
	submissionService *service.SubmissionService
	judges            *judge.Registry
}

func NewSubmissionHandler(ps *service.ProblemService, ss *service.SubmissionService, judges *judge.Registry) *SubmissionHandler {
	return &SubmissionHandler{problemService: ps, submissionService: ss, judges: judges}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All submission routes require auth
	r.Post("/", h.submit)
	r.Get("/", h.listSubmissions)
	r.Get("/judge", h.judgeState)
	r.Delete("/judge", h.abandon)
}

// submit judges the code synchronously. Failed evaluations still answer with the
// pipeline snapshot so the client keeps the code for a retry.
func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req SubmitCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProblemID == "" || req.Language == "" {
		common.RespondWithError(w, http.StatusBadRequest, "problem_id and language are required")
		return
	}
	problem, err := h.problemService.GetProblemByID(r.Context(), req.ProblemID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}

	snap, err := h.judges.Pipeline(userID, judge.ModeFull).Submit(r.Context(), *problem, req.Language, req.Code)
	switch {
	case err == nil:
		common.RespondWithJSON(w, http.StatusOK, snap)
	case errors.Is(err, common.ErrMalformedVerdict) || errors.Is(err, common.ErrEvaluationUnavailable):
		common.RespondWithJSON(w, common.HTTPStatusFromError(err), snap)
	default:
		common.RespondWithDomainError(w, err)
	}
}

func (h *SubmissionHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	subs, err := h.submissionService.ListByUser(r.Context(), userID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, subs)
}

func (h *SubmissionHandler) judgeState(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.judges.Pipeline(userID, judge.ModeFull).Snapshot())
}

func (h *SubmissionHandler) abandon(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	common.RespondWithJSON(w, http.StatusOK, h.judges.Pipeline(userID, judge.ModeFull).Abandon())
}
