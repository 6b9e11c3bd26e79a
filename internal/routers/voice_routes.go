package routers

import (
	"smartnshine/interview/internal/handlers"
	"smartnshine/interview/internal/middleware"
	"smartnshine/interview/internal/models"

	"github.com/go-chi/chi/v5"
)

func VoiceRoutes(router *chi.Mux, voiceHandler *handlers.VoiceHandler) {
	router.Route("/api/v1/voice", func(r chi.Router) {
		// health probes stay public so the client can poll them before login
		r.Get("/transcribe/health", voiceHandler.TranscribeHealthHandler)
		r.Get("/tts/health", voiceHandler.TTSHealthHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate)

			r.Post("/transcribe", voiceHandler.TranscribeHandler)
			r.Get("/tts/voices", voiceHandler.VoicesHandler)
			r.With(middleware.ValidateRequest[*models.SynthesizeRequest]()).Post("/tts/synthesize", voiceHandler.SynthesizeHandler)
			r.With(middleware.ValidateRequest[*models.SynthesizeRequest]()).Post("/tts/synthesize-json", voiceHandler.SynthesizeJSONHandler)
			r.With(middleware.ValidateRequest[*models.TestVoiceRequest]()).Post("/tts/test", voiceHandler.TestVoiceHandler)
		})
	})
}
