package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"smartnshine/interview/internal/middleware"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/quota"
	"smartnshine/interview/internal/utils"
	"smartnshine/interview/internal/voice"
)

// Sample phrases used by the voice-test endpoint.
var presetSamples = map[string]string{
	"greeting":       "Hello, and welcome to your mock interview. I'm glad you're here today.",
	"question":       "Can you walk me through a challenging project you worked on recently",
	"acknowledgment": "Thank you, that's a thoughtful answer",
	"transition":     "Alright, let's move on to the next topic",
	"closing":        "That concludes our interview. Thank you for your time, and best of luck.",
	"warm":           "Take your time. There's no rush, I'm happy to wait while you think it through.",
}

type VoiceHandler struct {
	pipeline *voice.Pipeline
	quota    *quota.Guard
	logger   *zap.Logger
}

func NewVoiceHandler(pipeline *voice.Pipeline, quotaGuard *quota.Guard, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		pipeline: pipeline,
		quota:    quotaGuard,
		logger:   logger,
	}
}

// TranscribeHealthHandler reports whether voice answers are currently possible.
func (h *VoiceHandler) TranscribeHealthHandler(w http.ResponseWriter, r *http.Request) {
	health, err := h.pipeline.CheckSTT(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, health)
}

// TTSHealthHandler reports whether live-voice mode is currently possible.
func (h *VoiceHandler) TTSHealthHandler(w http.ResponseWriter, r *http.Request) {
	health, err := h.pipeline.CheckTTS(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, health)
}

// TranscribeHandler converts audio to text with no evaluation side
// effect. Used for the warm-up and intro phases.
func (h *VoiceHandler) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(voice.MaxAudioBytes); err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_multipart",
			Message: "Expected multipart/form-data with an 'audio' file",
		})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "missing_audio",
			Message: "No audio file provided. Use 'audio' field in multipart/form-data.",
		})
		return
	}
	defer file.Close()

	transcription, err := h.pipeline.Transcribe(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    transcription,
	})
}

// SynthesizeHandler returns binary audio for the given text.
func (h *VoiceHandler) SynthesizeHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SynthesizeRequest](r)

	if err := h.reserveSynthesis(r); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	audio, contentType, err := h.pipeline.Synthesize(r.Context(), req.Text, req.VoiceID, req.Preset)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

// SynthesizeJSONHandler is the base64 fallback for clients that cannot
// stream binary responses.
func (h *VoiceHandler) SynthesizeJSONHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SynthesizeRequest](r)

	if err := h.reserveSynthesis(r); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	response, err := h.pipeline.SynthesizeBase64(r.Context(), req.Text, req.VoiceID, req.Preset)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, response)
}

// VoicesHandler lists the synthesis service's available voices.
func (h *VoiceHandler) VoicesHandler(w http.ResponseWriter, r *http.Request) {
	voices, err := h.pipeline.Voices(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, voices)
}

// TestVoiceHandler synthesizes a sample phrase so users can preview the
// interviewer's voice before starting a live session.
func (h *VoiceHandler) TestVoiceHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.TestVoiceRequest](r)

	text := req.CustomText
	if text == "" {
		text = presetSamples[req.Preset]
	}

	audio, contentType, err := h.pipeline.Synthesize(r.Context(), text, "", req.Preset)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func (h *VoiceHandler) reserveSynthesis(r *http.Request) error {
	_, err := h.quota.Reserve(r.Context(), middleware.GetUserID(r), models.FeatureSynthesis, middleware.GetTier(r))
	return err
}
