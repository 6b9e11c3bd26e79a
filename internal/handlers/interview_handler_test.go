package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartnshine/interview/internal/interview"
	"smartnshine/interview/internal/middleware"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/quota"
	"smartnshine/interview/internal/repositories"
	"smartnshine/interview/internal/testhelpers"
	"smartnshine/interview/internal/voice"
)

type fakeAI struct {
	generateErr error
	evaluateErr error
	questions   int
}

func (f *fakeAI) GenerateQuestion(ctx context.Context, session *models.InterviewSession, asked []models.Question) (*interview.GeneratedQuestion, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	f.questions++
	return &interview.GeneratedQuestion{Text: fmt.Sprintf("Generated question %d", f.questions)}, nil
}

func (f *fakeAI) Evaluate(ctx context.Context, session *models.InterviewSession, question *models.Question, answer string) (*models.Evaluation, error) {
	if f.evaluateErr != nil {
		return nil, f.evaluateErr
	}
	return &models.Evaluation{Score: 72, Feedback: "Reasonable"}, nil
}

type testServer struct {
	router *chi.Mux
	ai     *fakeAI
	token  string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testhelpers.SetupTestDB(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zap.NewNop()
	sessions := &repositories.SessionRepository{DB: db}
	results := &repositories.ResultRepository{DB: db}
	guard := quota.NewGuard(client, nil, logger)

	ai := &fakeAI{}
	manager := interview.NewManager(sessions, results, guard, ai, ai, logger)
	// no voice services listening: known-down behavior is part of the tests
	pipeline := voice.NewPipeline("http://localhost:1", "http://localhost:1", time.Second, logger)

	handler := NewInterviewHandler(manager, pipeline, logger)

	router := chi.NewRouter()
	router.Route("/api/v1/interview", func(r chi.Router) {
		r.Use(middleware.Authenticate)
		r.Get("/config", handler.GetConfigHandler)
		r.Get("/history", handler.GetHistoryHandler)
		r.Get("/stats", handler.GetStatsHandler)
		r.Get("/results/{sessionId}", handler.GetResultHandler)
		r.With(middleware.ValidateRequest[*models.CreateSessionRequest]()).Post("/sessions", handler.CreateSessionHandler)
		r.Get("/sessions/{sessionId}", handler.GetSessionHandler)
		r.Post("/sessions/{sessionId}/start", handler.StartSessionHandler)
		r.With(middleware.ValidateRequest[*models.SubmitAnswerRequest]()).Post("/sessions/{sessionId}/answer", handler.SubmitAnswerHandler)
		r.Post("/sessions/{sessionId}/voice-answer", handler.SubmitVoiceAnswerHandler)
		r.With(middleware.ValidateRequest[*models.SkipQuestionRequest]()).Post("/sessions/{sessionId}/skip", handler.SkipQuestionHandler)
		r.Post("/sessions/{sessionId}/complete", handler.CompleteSessionHandler)
		r.Post("/sessions/{sessionId}/abandon", handler.AbandonSessionHandler)
	})

	return &testServer{router: router, ai: ai, token: testToken(t, "user1", models.TierFree)}
}

func testToken(t *testing.T, userID string, tier models.SubscriptionTier) string {
	t.Helper()
	claims := middleware.UserClaims{
		UserID: userID,
		Tier:   string(tier),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	// default development secret; JWT_SECRET is unset under go test
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("your-secret-key"))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createAndStart(t *testing.T) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/interview/sessions", models.CreateSessionRequest{
		InterviewType: "technical",
		Role:          "Backend Engineer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.CreateSessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = s.do(t, http.MethodPost, "/api/v1/interview/sessions/"+created.SessionID+"/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	return created.SessionID
}

func TestCreateSessionEndpoint(t *testing.T) {
	server := setupTestServer(t)

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions", models.CreateSessionRequest{
		InterviewType: "behavioral",
		Role:          "Product Manager",
		Mode:          "text",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var response models.CreateSessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.NotEmpty(t, response.SessionID)
	assert.Equal(t, models.StatusCreated, response.Status)
	assert.Equal(t, 2, response.QuotaRemaining)
}

func TestCreateSessionRequiresAuth(t *testing.T) {
	server := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/sessions", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSessionQuotaExhausted(t *testing.T) {
	server := setupTestServer(t)

	body := models.CreateSessionRequest{InterviewType: "technical", Role: "Backend Engineer"}
	for i := 0; i < 3; i++ {
		rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions", body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "quota_exceeded", response.Code)
	assert.Greater(t, response.RetryAfter, 0)
}

func TestCreateSessionInvalidBody(t *testing.T) {
	server := setupTestServer(t)

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions", models.CreateSessionRequest{
		InterviewType: "technical",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "missing_role", response.Code)
}

func TestAnswerFlowEndpoints(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/answer", models.SubmitAnswerRequest{
		Answer:         "I would add an index and verify with EXPLAIN.",
		QuestionNumber: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var response models.SubmitAnswerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.NotNil(t, response.Evaluation)
	assert.Equal(t, 72, response.Evaluation.Score)
	require.NotNil(t, response.NextQuestion)
	assert.Equal(t, 2, response.NextQuestion.Number)
}

func TestAnswerOutOfOrderConflicts(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/answer", models.SubmitAnswerRequest{
		Answer:         "wrong question",
		QuestionNumber: 4,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "invalid_state_transition", response.Code)
}

func TestAnswerAIFailureReturnsBadGateway(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	server.ai.evaluateErr = &interview.AIServiceError{Op: "evaluate_answer", Err: errors.New("timeout")}
	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/answer", models.SubmitAnswerRequest{
		Answer:         "fine answer",
		QuestionNumber: 1,
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ai_service_error", response.Code)
}

func TestSkipEndpoint(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/skip", models.SkipQuestionRequest{QuestionNumber: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	var response models.SkipQuestionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.NotNil(t, response.NextQuestion)
	assert.Equal(t, 2, response.NextQuestion.Number)
}

func TestVoiceAnswerUnavailableServiceKeepsSessionUsable(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("questionNumber", "1"))
	part, err := writer.CreateFormFile("audio", "answer.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("audio-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/voice-answer", &body)
	req.Header.Set("Authorization", "Bearer "+server.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "voice_service_unavailable", response.Code)

	// the same question remains answerable in text mode
	rec = server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/answer", models.SubmitAnswerRequest{
		Answer:         "typed fallback answer",
		QuestionNumber: 1,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteAndResultEndpoints(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/answer", models.SubmitAnswerRequest{
		Answer:         "only answer",
		QuestionNumber: 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ResultResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 72, result.OverallScore)
	assert.Equal(t, "B", result.Grade)
	require.Len(t, result.PerQuestionScores, 1)

	rec = server.do(t, http.MethodGet, "/api/v1/interview/results/"+sessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestResultBeforeCompletionIsNotFound(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	rec := server.do(t, http.MethodGet, "/api/v1/interview/results/"+sessionID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "result_not_found", response.Code)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	server := setupTestServer(t)

	rec := server.do(t, http.MethodGet, "/api/v1/interview/sessions/no-such-session", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAbandonEndpoint(t *testing.T) {
	server := setupTestServer(t)
	sessionID := server.createAndStart(t)

	rec := server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/abandon", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, string(models.StatusAbandoned), response["status"])

	// terminal: abandoning again conflicts
	rec = server.do(t, http.MethodPost, "/api/v1/interview/sessions/"+sessionID+"/abandon", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	server := setupTestServer(t)
	server.createAndStart(t)

	rec := server.do(t, http.MethodGet, "/api/v1/interview/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history models.HistoryResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&history))
	assert.Equal(t, 1, history.Pagination.Total)

	rec = server.do(t, http.MethodGet, "/api/v1/interview/history?status=paused", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigEndpoint(t *testing.T) {
	server := setupTestServer(t)

	rec := server.do(t, http.MethodGet, "/api/v1/interview/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var config models.InterviewConfigResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&config))
	assert.Contains(t, config.InterviewTypes, "technical")
	assert.Equal(t, 5, config.MinQuestions)
	assert.Equal(t, 15, config.MaxQuestions)
}
