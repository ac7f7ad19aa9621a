package handler

import (
	"net/http"

	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)            // GET /api/v1/problems?topic=Graph
	r.Get("/{problemSlug}", h.getProblem) // GET /api/v1/problems/a-b-problem
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	entries, err := h.problemService.ListCatalog(r.Context(), r.URL.Query().Get("topic"), r.URL.Query().Get("tag"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetProblemBySlug(r.Context(), chi.URLParam(r, "problemSlug"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}
