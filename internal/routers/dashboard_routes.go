package routers

import (
	"github.com/go-chi/chi/v5"

	"crisp/internal/handlers"
	"crisp/internal/middleware"
	"crisp/internal/models"
)

func AuthRoutes(router *chi.Mux, h *handlers.AuthHandler) {
	router.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.RegisterRequest]()).Post("/register", h.RegisterHandler)
		r.With(middleware.ValidateRequest[*models.LoginRequest]()).Post("/login", h.LoginHandler)
	})
}

func DashboardRoutes(router *chi.Mux, h *handlers.DashboardHandler, jwtSecret string) {
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret, middleware.RoleInterviewer))
		r.Get("/api/v1/candidates", h.ListCandidatesHandler)
		r.Get("/api/v1/candidates/{id}", h.GetCandidateHandler)
		r.Delete("/api/v1/candidates/{id}", h.DeleteCandidateHandler)
		r.With(middleware.ValidateRequest[*models.IssueTokensRequest]()).Post("/api/v1/tokens", h.IssueTokensHandler)
		r.Get("/api/v1/tokens", h.ListTokensHandler)
	})
}

func AdminRoutes(router *chi.Mux, h *handlers.AdminHandler, jwtSecret string) {
	router.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret, middleware.RoleAdmin))
		r.Get("/questions", h.ListQuestionsHandler)
		r.With(middleware.ValidateRequest[*models.CreateQuestionRequest]()).Post("/questions", h.CreateQuestionHandler)
		r.With(middleware.ValidateRequest[*models.GenerateQuestionSetRequest]()).Post("/questions/generate", h.GenerateQuestionSetHandler)
		r.Delete("/questions/{id}", h.DeleteQuestionHandler)
		r.Get("/domains", h.ListDomainsHandler)
		r.With(middleware.ValidateRequest[*models.DomainRequest]()).Post("/domains", h.CreateDomainHandler)
		r.Delete("/domains/{id}", h.DeleteDomainHandler)
	})
}
