package routers

import (
	"github.com/go-chi/chi/v5"

	"crisp/internal/handlers"
	"crisp/internal/middleware"
	"crisp/internal/models"
)

func CandidateRoutes(router *chi.Mux, h *handlers.CandidateHandler, jwtSecret string) {
	router.With(middleware.ValidateRequest[*models.CandidateLoginRequest]()).Post("/api/v1/candidate/login", h.LoginHandler)

	router.Route("/api/v1/interview", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret, middleware.RoleCandidate))
		r.Get("/", h.GetInterviewHandler)
		r.Get("/ws", h.EventsHandler)
		r.With(middleware.ValidateRequest[*models.ProfileRequest]()).Put("/profile", h.ProfileHandler)
		r.With(middleware.ValidateRequest[*models.ResumeRequest]()).Post("/resume", h.ResumeHandler)
		r.Post("/start", h.StartHandler)
		r.With(middleware.ValidateRequest[*models.AnswerRequest]()).Post("/answer", h.AnswerHandler)
		r.Post("/next-question", h.NextQuestionHandler)
		r.Post("/finalize", h.FinalizeHandler)
		r.Post("/start-over", h.StartOverHandler)
		r.Post("/reset", h.ResetHandler)
	})
}
