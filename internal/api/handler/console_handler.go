package handler

import (
	"net/http"

	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type ConsoleHandler struct {
	console service.ConsoleLog
}

func NewConsoleHandler(console service.ConsoleLog) *ConsoleHandler {
	return &ConsoleHandler{console: console}
}

func (h *ConsoleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.lines) // GET /api/v1/console, most recent first
}

func (h *ConsoleHandler) lines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.console.Lines(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	common.RespondWithJSON(w, http.StatusOK, map[string][]string{"lines": lines})
}
