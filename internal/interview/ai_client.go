package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartnshine/interview/internal/llm"
	"smartnshine/interview/internal/metrics"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/prompts"
	"smartnshine/interview/internal/utils"
)

// QuestionSource generates the next interview question for a session.
type QuestionSource interface {
	GenerateQuestion(ctx context.Context, session *models.InterviewSession, asked []models.Question) (*GeneratedQuestion, error)
}

// AnswerEvaluator scores a candidate answer against the rubric.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, session *models.InterviewSession, question *models.Question, answer string) (*models.Evaluation, error)
}

// GeneratedQuestion is the parsed output of a question-generation call.
type GeneratedQuestion struct {
	Text         string   `json:"question"`
	TargetSkills []string `json:"targetSkills"`
}

// AIClient implements QuestionSource and AnswerEvaluator over an LLM
// provider. Every call carries an explicit timeout and is retried once
// with backoff; a second failure surfaces AIServiceError with no state
// touched.
type AIClient struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	logger   *zap.Logger
	timeout  time.Duration
	backoff  time.Duration
}

func NewAIClient(provider llm.Provider, promptManager prompts.PromptProvider, timeout time.Duration, logger *zap.Logger) *AIClient {
	return &AIClient{
		provider: provider,
		prompts:  promptManager,
		logger:   logger,
		timeout:  timeout,
		backoff:  2 * time.Second,
	}
}

func (c *AIClient) GenerateQuestion(ctx context.Context, session *models.InterviewSession, asked []models.Question) (*GeneratedQuestion, error) {
	previous := make([]string, 0, len(asked))
	for _, q := range asked {
		previous = append(previous, fmt.Sprintf("%d. %s", q.Number, q.Text))
	}
	if len(previous) == 0 {
		previous = append(previous, "(none)")
	}

	data := map[string]string{
		"Role":              session.Role,
		"ExperienceLevel":   session.ExperienceLevel,
		"QuestionNumber":    strconv.Itoa(session.CurrentQuestionNumber + 1),
		"TotalQuestions":    strconv.Itoa(session.TotalQuestions),
		"PreviousQuestions": strings.Join(previous, "\n"),
		"JobDescription":    session.JobDescription,
		"ResumeSummary":     session.ResumeID,
	}

	prompt, err := c.prompts.BuildPrompt("question", string(session.InterviewType), data)
	if err != nil {
		return nil, &AIServiceError{Op: "generate_question", Err: err}
	}

	content, err := c.callWithRetry(ctx, session.SessionID, "generate_question", prompt)
	if err != nil {
		return nil, &AIServiceError{Op: "generate_question", Err: err}
	}

	var question GeneratedQuestion
	if err := json.Unmarshal([]byte(utils.StripFences(content)), &question); err != nil {
		return nil, &AIServiceError{Op: "generate_question", Err: fmt.Errorf("malformed question payload: %w", err)}
	}
	if strings.TrimSpace(question.Text) == "" {
		return nil, &AIServiceError{Op: "generate_question", Err: fmt.Errorf("empty question generated")}
	}

	return &question, nil
}

func (c *AIClient) Evaluate(ctx context.Context, session *models.InterviewSession, question *models.Question, answer string) (*models.Evaluation, error) {
	data := map[string]string{
		"Role":            session.Role,
		"ExperienceLevel": session.ExperienceLevel,
		"Question":        question.Text,
		"Answer":          answer,
	}

	prompt, err := c.prompts.BuildPrompt("evaluate", "default", data)
	if err != nil {
		return nil, &AIServiceError{Op: "evaluate_answer", Err: err}
	}

	content, err := c.callWithRetry(ctx, session.SessionID, "evaluate_answer", prompt)
	if err != nil {
		return nil, &AIServiceError{Op: "evaluate_answer", Err: err}
	}

	var evaluation models.Evaluation
	if err := json.Unmarshal([]byte(utils.StripFences(content)), &evaluation); err != nil {
		return nil, &AIServiceError{Op: "evaluate_answer", Err: fmt.Errorf("malformed evaluation payload: %w", err)}
	}

	// clamp defensively; the rubric promises [0,100]
	if evaluation.Score < 0 {
		evaluation.Score = 0
	}
	if evaluation.Score > 100 {
		evaluation.Score = 100
	}

	return &evaluation, nil
}

// callWithRetry performs one bounded provider call, retrying once with
// backoff on failure.
func (c *AIClient) callWithRetry(ctx context.Context, sessionID, stage, prompt string) (string, error) {
	requestID := uuid.New().String()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		response, err := c.provider.GenerateContent(callCtx, prompt, requestID)
		cancel()

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.AICallLatency.WithLabelValues(stage, outcome).Observe(time.Since(start).Seconds())
		c.logger.Info("ai pipeline stage",
			zap.String("sessionId", sessionID),
			zap.String("stage", stage),
			zap.Int64("latencyMs", time.Since(start).Milliseconds()),
			zap.String("outcome", outcome),
			zap.Int("attempt", attempt+1))

		if err == nil {
			return response.Content, nil
		}
		lastErr = err
	}

	return "", lastErr
}
