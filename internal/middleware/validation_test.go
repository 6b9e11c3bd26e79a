package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartnshine/interview/internal/models"
)

func validateCreateSession(t *testing.T, body string) (*httptest.ResponseRecorder, *models.CreateSessionRequest) {
	t.Helper()

	var captured *models.CreateSessionRequest
	handler := ValidateRequest[*models.CreateSessionRequest]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetValidatedRequest[*models.CreateSessionRequest](r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, captured
}

func TestValidateRequestPassesValidBody(t *testing.T) {
	rec, captured := validateCreateSession(t, `{"interviewType":"technical","role":"Backend Engineer"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "technical", captured.InterviewType)
	// defaults applied during validation
	assert.Equal(t, "mid", captured.ExperienceLevel)
	assert.Equal(t, "text", captured.Mode)
	assert.Equal(t, models.DefaultQuestions, captured.TotalQuestions)
}

func TestValidateRequestRejectsMalformedJSON(t *testing.T) {
	rec, _ := validateCreateSession(t, `{not json`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "invalid_json", response.Code)
}

func TestValidateRequestRejectsInvalidPayload(t *testing.T) {
	rec, _ := validateCreateSession(t, `{"interviewType":"astrology","role":"Backend Engineer"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "invalid_interview_type", response.Code)
}

func TestValidateRequestRejectsMissingRole(t *testing.T) {
	rec, _ := validateCreateSession(t, `{"interviewType":"technical"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "missing_role", response.Code)
}
