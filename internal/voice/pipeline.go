package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"smartnshine/interview/internal/models"
)

// Limits enforced before any audio leaves the process. Mirrors what the
// transcription service rejects server-side.
const (
	MaxAudioBytes      = 10 << 20 // 10MB
	MaxDurationSeconds = 90
)

var supportedFormats = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".webm": true, ".ogg": true, ".flac": true,
}

// UnavailableError signals that an STT or TTS operation failed because
// the backing service is down. The session itself is unaffected; callers
// fall back to text mode.
type UnavailableError struct {
	Service string // "stt" | "tts"
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return e.Service + " service unavailable: " + e.Err.Error()
	}
	return e.Service + " service unavailable"
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// STTHealth is the transcription service's health report.
type STTHealth struct {
	Available        bool     `json:"available"`
	Model            string   `json:"model,omitempty"`
	MaxDuration      int      `json:"maxDuration"`
	SupportedFormats []string `json:"supportedFormats,omitempty"`
}

// TTSHealth is the synthesis service's health report.
type TTSHealth struct {
	Available bool   `json:"available"`
	ModelType string `json:"modelType,omitempty"`
	Device    string `json:"device,omitempty"`
}

type healthState struct {
	available bool
	probed    bool
	checkedAt time.Time
}

// Pipeline orchestrates the STT and TTS collaborators. Each service is
// health-checked independently; a known-down service fails fast without
// a network round trip until the cached probe expires.
type Pipeline struct {
	sttURL    string
	ttsURL    string
	client    *http.Client
	logger    *zap.Logger
	healthTTL time.Duration
	now       func() time.Time

	mu  sync.RWMutex
	stt healthState
	tts healthState
}

func NewPipeline(sttURL, ttsURL string, timeout time.Duration, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		sttURL:    strings.TrimRight(sttURL, "/"),
		ttsURL:    strings.TrimRight(ttsURL, "/"),
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		healthTTL: 30 * time.Second,
		now:       time.Now,
	}
}

// CheckSTT probes the transcription service and refreshes the cached state.
func (p *Pipeline) CheckSTT(ctx context.Context) (*STTHealth, error) {
	start := p.now()
	health := &STTHealth{MaxDuration: MaxDurationSeconds}

	var raw struct {
		Available        bool     `json:"available"`
		Model            string   `json:"model"`
		MaxDuration      int      `json:"maxDuration"`
		SupportedFormats []string `json:"supportedFormats"`
	}
	err := p.getJSON(ctx, p.sttURL+"/transcribe/health", &raw)
	if err == nil {
		health.Available = raw.Available
		health.Model = raw.Model
		if raw.MaxDuration > 0 {
			health.MaxDuration = raw.MaxDuration
		}
		health.SupportedFormats = raw.SupportedFormats
	}

	p.setHealth(&p.stt, err == nil && raw.Available)
	p.logStage("", "stt_health", start, err == nil && raw.Available)

	if err != nil {
		return health, nil // probe failure means unavailable, not an error to the caller
	}
	return health, nil
}

// CheckTTS probes the synthesis service and refreshes the cached state.
func (p *Pipeline) CheckTTS(ctx context.Context) (*TTSHealth, error) {
	start := p.now()
	health := &TTSHealth{}

	var raw struct {
		ChatterboxAvailable bool   `json:"chatterbox_available"`
		ModelType           string `json:"model_type"`
		Device              string `json:"device"`
	}
	err := p.getJSON(ctx, p.ttsURL+"/health", &raw)
	if err == nil {
		health.Available = raw.ChatterboxAvailable
		health.ModelType = raw.ModelType
		health.Device = raw.Device
	}

	p.setHealth(&p.tts, err == nil && raw.ChatterboxAvailable)
	p.logStage("", "tts_health", start, health.Available)
	return health, nil
}

// Transcribe converts one audio clip to text. Pure transcription, no
// evaluation side effect; used standalone for the warm-up phase.
func (p *Pipeline) Transcribe(ctx context.Context, filename string, audio io.Reader, size int64) (*models.Transcription, error) {
	if err := p.ensureAvailable(ctx, "stt"); err != nil {
		return nil, err
	}

	if size > MaxAudioBytes {
		return nil, &models.ErrorResponse{Code: "audio_too_large", Message: "Audio file too large. Maximum size is 10MB."}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" && !supportedFormats[ext] {
		return nil, &models.ErrorResponse{Code: "unsupported_format", Message: "Unsupported audio format. Allowed: wav, mp3, m4a, webm, ogg, flac"}
	}

	start := p.now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.sttURL+"/transcribe", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		p.setHealth(&p.stt, false)
		p.logStage("", "transcribe", start, false)
		return nil, &UnavailableError{Service: "stt", Err: err}
	}
	defer resp.Body.Close()

	var result struct {
		Success bool                  `json:"success"`
		Data    *models.Transcription `json:"data"`
		Error   string                `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		p.logStage("", "transcribe", start, false)
		return nil, &UnavailableError{Service: "stt", Err: err}
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		p.setHealth(&p.stt, false)
		p.logStage("", "transcribe", start, false)
		return nil, &UnavailableError{Service: "stt"}
	}
	if !result.Success || result.Data == nil {
		p.logStage("", "transcribe", start, false)
		msg := result.Error
		if msg == "" {
			msg = "transcription failed"
		}
		return nil, &models.ErrorResponse{Code: "transcription_failed", Message: msg}
	}

	p.logStage("", "transcribe", start, true)
	return result.Data, nil
}

// Synthesize converts text to speech and returns the raw audio bytes
// together with the response content type.
func (p *Pipeline) Synthesize(ctx context.Context, text, voiceID, preset string) ([]byte, string, error) {
	if err := p.ensureAvailable(ctx, "tts"); err != nil {
		return nil, "", err
	}

	start := p.now()

	payload := map[string]string{"text": applyPreset(text, preset)}
	if voiceID != "" {
		payload["audio_prompt_path"] = voiceID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.ttsURL+"/tts/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.setHealth(&p.tts, false)
		p.logStage("", "synthesize", start, false)
		return nil, "", &UnavailableError{Service: "tts", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		p.setHealth(&p.tts, false)
		p.logStage("", "synthesize", start, false)
		return nil, "", &UnavailableError{Service: "tts"}
	}
	if resp.StatusCode != http.StatusOK {
		p.logStage("", "synthesize", start, false)
		return nil, "", fmt.Errorf("synthesis failed with status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		p.logStage("", "synthesize", start, false)
		return nil, "", &UnavailableError{Service: "tts", Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	p.logStage("", "synthesize", start, true)
	return audio, contentType, nil
}

// SynthesizeBase64 is the same operation encoded as JSON for clients
// that cannot stream binary.
func (p *Pipeline) SynthesizeBase64(ctx context.Context, text, voiceID, preset string) (*models.SynthesizeJSONResponse, error) {
	audio, contentType, err := p.Synthesize(ctx, text, voiceID, preset)
	if err != nil {
		return nil, err
	}

	return &models.SynthesizeJSONResponse{
		AudioBase64:       base64.StdEncoding.EncodeToString(audio),
		ContentType:       contentType,
		EstimatedDuration: estimateSpeechDuration(text),
	}, nil
}

// Voices returns the synthesis service's voice listing verbatim.
func (p *Pipeline) Voices(ctx context.Context) (map[string]interface{}, error) {
	if err := p.ensureAvailable(ctx, "tts"); err != nil {
		return nil, err
	}

	var voices map[string]interface{}
	if err := p.getJSON(ctx, p.ttsURL+"/tts/voices", &voices); err != nil {
		p.setHealth(&p.tts, false)
		return nil, &UnavailableError{Service: "tts", Err: err}
	}
	return voices, nil
}

// ensureAvailable fails fast when the cached probe says the service is
// down. A stale cache triggers a fresh probe first.
func (p *Pipeline) ensureAvailable(ctx context.Context, service string) error {
	p.mu.RLock()
	var state healthState
	if service == "stt" {
		state = p.stt
	} else {
		state = p.tts
	}
	p.mu.RUnlock()

	if state.probed && p.now().Sub(state.checkedAt) < p.healthTTL {
		if !state.available {
			return &UnavailableError{Service: service}
		}
		return nil
	}

	if service == "stt" {
		health, _ := p.CheckSTT(ctx)
		if !health.Available {
			return &UnavailableError{Service: service}
		}
		return nil
	}

	health, _ := p.CheckTTS(ctx)
	if !health.Available {
		return &UnavailableError{Service: service}
	}
	return nil
}

func (p *Pipeline) setHealth(state *healthState, available bool) {
	p.mu.Lock()
	state.available = available
	state.probed = true
	state.checkedAt = p.now()
	p.mu.Unlock()
}

func (p *Pipeline) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *Pipeline) logStage(sessionID, stage string, start time.Time, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	p.logger.Info("voice pipeline stage",
		zap.String("sessionId", sessionID),
		zap.String("stage", stage),
		zap.Int64("latencyMs", p.now().Sub(start).Milliseconds()),
		zap.String("outcome", outcome))
}

// applyPreset nudges delivery for different interview phases. Chatterbox
// has no explicit style controls, so presets shape punctuation and pacing
// in the text itself.
func applyPreset(text, preset string) string {
	switch preset {
	case "greeting", "warm":
		return text
	case "question":
		if !strings.HasSuffix(strings.TrimSpace(text), "?") {
			return strings.TrimSpace(text) + "?"
		}
		return text
	case "acknowledgment", "transition":
		return strings.TrimSpace(text) + "..."
	default:
		return text
	}
}

// estimateSpeechDuration approximates spoken length at ~150 words/min.
func estimateSpeechDuration(text string) float64 {
	words := len(strings.Fields(text))
	return float64(words) / 150.0 * 60.0
}
