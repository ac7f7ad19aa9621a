package api

import (
	"net/http"
	"time"

	"codeforge_arena/internal/api/handler"
	"codeforge_arena/internal/app/duel"
	"codeforge_arena/internal/app/judge"
	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	Problems        *service.ProblemService
	Submissions     *service.SubmissionService
	TopicStats      *service.TopicStatService
	Recommendations *service.RecommendationService
	Judges          *judge.Registry
	Arena           *duel.Arena
	Leaderboard     service.DuelLeaderboard
	Console         service.ConsoleLog
}

func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(90 * time.Second))

	// Looks for "Authorization: Bearer T" and puts the verified token in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		problemHandler := handler.NewProblemHandler(s.Problems)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		statsHandler := handler.NewStatsHandler(s.TopicStats, s.Recommendations)
		v1.Group(statsHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(s.Problems, s.Submissions, s.Judges)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		duelHandler := handler.NewDuelHandler(s.Problems, s.Arena, s.Leaderboard)
		v1.Route("/duels", duelHandler.RegisterRoutes)

		consoleHandler := handler.NewConsoleHandler(s.Console)
		v1.Route("/console", consoleHandler.RegisterRoutes)
	})

	return r
}
