package routers

import (
	"smartnshine/interview/internal/handlers"
	"smartnshine/interview/internal/middleware"
	"smartnshine/interview/internal/models"

	"github.com/go-chi/chi/v5"
)

func InterviewRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler) {
	router.Route("/api/v1/interview", func(r chi.Router) {
		r.Use(middleware.Authenticate)

		r.Get("/config", interviewHandler.GetConfigHandler)
		r.Get("/history", interviewHandler.GetHistoryHandler)
		r.Get("/stats", interviewHandler.GetStatsHandler)
		r.Get("/results/{sessionId}", interviewHandler.GetResultHandler)

		r.With(middleware.ValidateRequest[*models.CreateSessionRequest]()).Post("/sessions", interviewHandler.CreateSessionHandler)
		r.Get("/sessions/{sessionId}", interviewHandler.GetSessionHandler)
		r.Post("/sessions/{sessionId}/start", interviewHandler.StartSessionHandler)
		r.With(middleware.ValidateRequest[*models.SubmitAnswerRequest]()).Post("/sessions/{sessionId}/answer", interviewHandler.SubmitAnswerHandler)
		r.Post("/sessions/{sessionId}/voice-answer", interviewHandler.SubmitVoiceAnswerHandler)
		r.With(middleware.ValidateRequest[*models.SkipQuestionRequest]()).Post("/sessions/{sessionId}/skip", interviewHandler.SkipQuestionHandler)
		r.Post("/sessions/{sessionId}/complete", interviewHandler.CompleteSessionHandler)
		r.Post("/sessions/{sessionId}/abandon", interviewHandler.AbandonSessionHandler)
	})
}
