package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartnshine/interview/internal/middleware"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/quota"
	"smartnshine/interview/internal/voice"
)

func fakeTTSService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"chatterbox_available": true,
			"model_type":           "chatterbox",
			"device":               "cpu",
		})
	})
	mux.HandleFunc("/tts/synthesize", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFF-fake-wav"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setupVoiceServer(t *testing.T, ttsURL string) (*chi.Mux, string) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zap.NewNop()
	pipeline := voice.NewPipeline("http://localhost:1", ttsURL, time.Second, logger)
	guard := quota.NewGuard(client, nil, logger)
	handler := NewVoiceHandler(pipeline, guard, logger)

	router := chi.NewRouter()
	router.Route("/api/v1/voice", func(r chi.Router) {
		r.Get("/transcribe/health", handler.TranscribeHealthHandler)
		r.Get("/tts/health", handler.TTSHealthHandler)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate)
			r.With(middleware.ValidateRequest[*models.SynthesizeRequest]()).Post("/tts/synthesize", handler.SynthesizeHandler)
			r.With(middleware.ValidateRequest[*models.SynthesizeRequest]()).Post("/tts/synthesize-json", handler.SynthesizeJSONHandler)
			r.With(middleware.ValidateRequest[*models.TestVoiceRequest]()).Post("/tts/test", handler.TestVoiceHandler)
		})
	})

	return router, testToken(t, "user1", models.TierFree)
}

func postJSON(t *testing.T, router *chi.Mux, token, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTTSHealthEndpoint(t *testing.T) {
	tts := fakeTTSService(t)
	router, _ := setupVoiceServer(t, tts.URL)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/voice/tts/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health voice.TTSHealth
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.True(t, health.Available)
}

func TestTranscribeHealthWhenServiceDown(t *testing.T) {
	router, _ := setupVoiceServer(t, "http://localhost:1")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/voice/transcribe/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var health voice.STTHealth
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.False(t, health.Available)
}

func TestSynthesizeEndpointReturnsAudio(t *testing.T) {
	tts := fakeTTSService(t)
	router, token := setupVoiceServer(t, tts.URL)

	rec := postJSON(t, router, token, "/api/v1/voice/tts/synthesize", models.SynthesizeRequest{Text: "Tell me about yourself"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestSynthesizeJSONEndpoint(t *testing.T) {
	tts := fakeTTSService(t)
	router, token := setupVoiceServer(t, tts.URL)

	rec := postJSON(t, router, token, "/api/v1/voice/tts/synthesize-json", models.SynthesizeRequest{Text: "hello there"})
	require.Equal(t, http.StatusOK, rec.Code)

	var response models.SynthesizeJSONResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.NotEmpty(t, response.AudioBase64)
}

func TestSynthesizeConsumesSynthesisQuota(t *testing.T) {
	tts := fakeTTSService(t)
	router, token := setupVoiceServer(t, tts.URL)

	// free tier allows 20 syntheses per day
	for i := 0; i < 20; i++ {
		rec := postJSON(t, router, token, "/api/v1/voice/tts/synthesize", models.SynthesizeRequest{Text: "hi"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postJSON(t, router, token, "/api/v1/voice/tts/synthesize", models.SynthesizeRequest{Text: "hi"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "quota_exceeded", response.Code)
}

func TestSynthesizeUnavailableService(t *testing.T) {
	router, token := setupVoiceServer(t, "http://localhost:1")

	rec := postJSON(t, router, token, "/api/v1/voice/tts/synthesize", models.SynthesizeRequest{Text: "hello"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response models.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "voice_service_unavailable", response.Code)
}

func TestTestVoiceEndpointUsesPresetSample(t *testing.T) {
	tts := fakeTTSService(t)
	router, token := setupVoiceServer(t, tts.URL)

	rec := postJSON(t, router, token, "/api/v1/voice/tts/test", models.TestVoiceRequest{Preset: "closing"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
}

func TestTestVoiceRejectsUnknownPreset(t *testing.T) {
	tts := fakeTTSService(t)
	router, token := setupVoiceServer(t, tts.URL)

	rec := postJSON(t, router, token, "/api/v1/voice/tts/test", models.TestVoiceRequest{Preset: "operatic"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
