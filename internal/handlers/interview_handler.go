package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"smartnshine/interview/internal/interview"
	"smartnshine/interview/internal/middleware"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/utils"
	"smartnshine/interview/internal/voice"
)

type InterviewHandler struct {
	manager  *interview.Manager
	pipeline *voice.Pipeline
	logger   *zap.Logger
}

func NewInterviewHandler(manager *interview.Manager, pipeline *voice.Pipeline, logger *zap.Logger) *InterviewHandler {
	return &InterviewHandler{
		manager:  manager,
		pipeline: pipeline,
		logger:   logger,
	}
}

func (h *InterviewHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.CreateSessionRequest](r)
	userID := middleware.GetUserID(r)

	response, err := h.manager.Create(r.Context(), userID, middleware.GetTier(r), req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusCreated, response)
}

func (h *InterviewHandler) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	response, err := h.manager.Start(r.Context(), userID, sessionID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, response)
}

func (h *InterviewHandler) SubmitAnswerHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SubmitAnswerRequest](r)
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	response, err := h.manager.SubmitAnswer(r.Context(), userID, sessionID, req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, response)
}

// SubmitVoiceAnswerHandler transcribes the uploaded clip and feeds the
// text through the same path as a typed answer. A transcription failure
// fails only this request; the session stays answerable in text mode.
func (h *InterviewHandler) SubmitVoiceAnswerHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	if err := r.ParseMultipartForm(voice.MaxAudioBytes); err != nil {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_multipart",
			Message: "Expected multipart/form-data with an 'audio' file",
		})
		return
	}

	questionNumber, err := strconv.Atoi(r.FormValue("questionNumber"))
	if err != nil || questionNumber < 1 {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_question_number",
			Message: "questionNumber must be a positive integer",
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

	req := &models.SubmitAnswerRequest{
		Answer:         transcription.Text,
		QuestionNumber: questionNumber,
		AnswerMode:     string(models.ModeVoice),
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	response, err := h.manager.SubmitAnswer(r.Context(), userID, sessionID, req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	response.Transcription = transcription
	utils.JSON(w, http.StatusOK, response)
}

func (h *InterviewHandler) SkipQuestionHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.SkipQuestionRequest](r)
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	response, err := h.manager.Skip(r.Context(), userID, sessionID, req.QuestionNumber)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, response)
}

func (h *InterviewHandler) CompleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	result, err := h.manager.Complete(r.Context(), userID, sessionID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, resultResponse(result))
}

func (h *InterviewHandler) AbandonSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	session, err := h.manager.Abandon(r.Context(), userID, sessionID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"sessionId":            session.SessionID,
		"status":               session.Status,
		"totalDurationSeconds": session.TotalDurationSeconds,
	})
}

func (h *InterviewHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	session, err := h.manager.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, session)
}

func (h *InterviewHandler) GetResultHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	userID := middleware.GetUserID(r)

	result, err := h.manager.GetResult(r.Context(), userID, sessionID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, resultResponse(result))
}

func (h *InterviewHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	status := models.SessionStatus(r.URL.Query().Get("status"))

	if status != "" && status != models.StatusCreated && status != models.StatusInProgress &&
		status != models.StatusCompleted && status != models.StatusAbandoned {
		utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
			Code:    "invalid_status_filter",
			Message: "status must be one of: created, in-progress, completed, abandoned",
		})
		return
	}

	history, err := h.manager.GetHistory(r.Context(), userID, limit, skip, status)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, history)
}

func (h *InterviewHandler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	stats, err := h.manager.GetStats(r.Context(), userID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	utils.JSON(w, http.StatusOK, stats)
}

func (h *InterviewHandler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, models.InterviewConfigResponse{
		InterviewTypes:   models.ValidInterviewTypesList(),
		Modes:            models.ValidInterviewModesList(),
		ExperienceLevels: models.ValidExperienceLevelsList(),
		MinQuestions:     models.MinQuestions,
		MaxQuestions:     models.MaxQuestions,
	})
}

func resultResponse(result *models.InterviewResult) models.ResultResponse {
	return models.ResultResponse{
		SessionID:    result.SessionID,
		OverallScore: result.OverallScore,
		Grade:        result.Grade,
		PerQuestionScores: interview.ParseBreakdown(result.PerQuestionScores),
		ComparisonData: models.ComparisonData{
			Trend:            result.Trend,
			SessionsCompared: result.SessionsCompared,
		},
		GeneratedAt: result.GeneratedAt,
	}
}
