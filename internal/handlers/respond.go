package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"smartnshine/interview/internal/interview"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/quota"
	"smartnshine/interview/internal/utils"
	"smartnshine/interview/internal/voice"
)

// writeDomainError maps the error taxonomy onto distinct client-visible
// signals so callers can branch: retry, show the upgrade prompt, or fall
// back to text mode.
func writeDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var validation *models.ErrorResponse
	if errors.As(err, &validation) {
		utils.JSON(w, http.StatusBadRequest, *validation)
		return
	}

	var exceeded *quota.ExceededError
	if errors.As(err, &exceeded) {
		utils.JSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Code:       "quota_exceeded",
			Message:    exceeded.Error(),
			RetryAfter: exceeded.RetryAfter,
		})
		return
	}

	if errors.Is(err, interview.ErrSessionNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "session_not_found",
			Message: "Interview session not found",
		})
		return
	}
	if errors.Is(err, interview.ErrResultNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
			Code:    "result_not_found",
			Message: "No result available for this session",
		})
		return
	}

	var state *interview.StateError
	if errors.As(err, &state) {
		utils.JSON(w, http.StatusConflict, models.ErrorResponse{
			Code:    "invalid_state_transition",
			Message: state.Error(),
		})
		return
	}

	var aiErr *interview.AIServiceError
	if errors.As(err, &aiErr) {
		logger.Error("AI service error", zap.String("op", aiErr.Op), zap.Error(aiErr))
		utils.JSON(w, http.StatusBadGateway, models.ErrorResponse{
			Code:    "ai_service_error",
			Message: "The AI service is temporarily unavailable. The session is unchanged; please retry.",
		})
		return
	}

	var unavailable *voice.UnavailableError
	if errors.As(err, &unavailable) {
		utils.JSON(w, http.StatusServiceUnavailable, models.ErrorResponse{
			Code:    "voice_service_unavailable",
			Message: "Voice services are temporarily unavailable. The session remains usable in text mode.",
		})
		return
	}

	logger.Error("internal error", zap.Error(err))
	utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
		Code:    "internal_error",
		Message: "Something went wrong",
	})
}
