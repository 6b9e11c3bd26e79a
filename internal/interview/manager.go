package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartnshine/interview/internal/metrics"
	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/quota"
	"smartnshine/interview/internal/repositories"
)

// Manager owns the session state machine. All mutation of one session
// goes through its per-session lock; AI calls run outside the lock and
// their results are re-validated against the session before committing,
// so an evaluation finishing after an abandon is discarded.
type Manager struct {
	sessions   *repositories.SessionRepository
	results    *repositories.ResultRepository
	quota      *quota.Guard
	questions  QuestionSource
	evaluator  AnswerEvaluator
	aggregator *Aggregator
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(
	sessions *repositories.SessionRepository,
	results *repositories.ResultRepository,
	quotaGuard *quota.Guard,
	questions QuestionSource,
	evaluator AnswerEvaluator,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		sessions:   sessions,
		results:    results,
		quota:      quotaGuard,
		questions:  questions,
		evaluator:  evaluator,
		aggregator: NewAggregator(results),
		logger:     logger,
		now:        time.Now,
		locks:      make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing mutation of one session.
func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}

// Create validates parameters, reserves quota and persists a Created
// session. On quota failure nothing is persisted.
func (m *Manager) Create(ctx context.Context, userID string, tier models.SubscriptionTier, req *models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	remaining, err := m.quota.Reserve(ctx, userID, models.FeatureSession, tier)
	if err != nil {
		var exceeded *quota.ExceededError
		if errors.As(err, &exceeded) {
			metrics.QuotaRejections.WithLabelValues(models.FeatureSession).Inc()
		}
		return nil, err
	}

	session := &models.InterviewSession{
		SessionID:       uuid.New().String(),
		UserID:          userID,
		InterviewType:   models.InterviewType(req.InterviewType),
		Role:            req.Role,
		ExperienceLevel: req.ExperienceLevel,
		Mode:            models.InterviewMode(req.Mode),
		Status:          models.StatusCreated,
		TotalQuestions:  req.TotalQuestions,
		JobDescription:  req.JobDescription,
		ResumeID:        req.ResumeID,
	}

	if err := m.sessions.Create(session); err != nil {
		return nil, err
	}
	metrics.SessionsCreated.Inc()

	m.logger.Info("session created",
		zap.String("sessionId", session.SessionID),
		zap.String("userId", userID),
		zap.String("interviewType", req.InterviewType),
		zap.Int("totalQuestions", req.TotalQuestions))

	return &models.CreateSessionResponse{
		SessionID:      session.SessionID,
		Status:         session.Status,
		InterviewType:  session.InterviewType,
		Role:           session.Role,
		Mode:           session.Mode,
		TotalQuestions: session.TotalQuestions,
		QuotaRemaining: remaining,
	}, nil
}

// Start requests the first question and transitions Created -> InProgress.
func (m *Manager) Start(ctx context.Context, userID, sessionID string) (*models.StartSessionResponse, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.StatusCreated {
		return nil, &StateError{SessionID: sessionID, Current: string(session.Status), Attempted: string(models.StatusInProgress)}
	}

	generated, err := m.questions.GenerateQuestion(ctx, session, nil)
	if err != nil {
		return nil, err
	}

	startedAt := m.now().UTC()
	question := &models.Question{
		SessionID:    sessionID,
		Number:       1,
		Text:         generated.Text,
		TargetSkills: strings.Join(generated.TargetSkills, ", "),
		AskedAt:      startedAt,
	}

	session.Status = models.StatusInProgress
	session.StartedAt = &startedAt
	session.CurrentQuestionNumber = 1

	if err := m.sessions.AppendQuestionAndAdvance(session, question); err != nil {
		return nil, err
	}

	m.logger.Info("session started", zap.String("sessionId", sessionID), zap.String("userId", userID))

	return &models.StartSessionResponse{
		Status:   session.Status,
		Question: questionView(question),
	}, nil
}

// SubmitAnswer evaluates the answer to the current question and advances
// the session. The evaluation, the advance, and the next question are
// committed together or not at all.
func (m *Manager) SubmitAnswer(ctx context.Context, userID, sessionID string, req *models.SubmitAnswerRequest) (*models.SubmitAnswerResponse, error) {
	lock := m.sessionLock(sessionID)

	lock.Lock()
	session, question, err := m.validateAnswerable(userID, sessionID, req.QuestionNumber)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	asked := session.Questions
	lock.Unlock()

	// External calls run without the lock so an abandon is never blocked
	// behind a slow provider.
	evaluation, err := m.evaluator.Evaluate(ctx, session, question, req.Answer)
	if err != nil {
		return nil, err
	}

	var nextGenerated *GeneratedQuestion
	if req.QuestionNumber < session.TotalQuestions {
		nextGenerated, err = m.questions.GenerateQuestion(ctx, session, asked)
		if err != nil {
			return nil, err
		}
	}

	lock.Lock()
	defer lock.Unlock()

	answer := &models.Answer{
		SessionID:      sessionID,
		QuestionNumber: req.QuestionNumber,
		Text:           req.Answer,
		AnswerMode:     models.InterviewMode(req.AnswerMode),
		SubmittedAt:    m.now().UTC(),
		Score:          evaluation.Score,
		Feedback:       evaluation.Feedback,
		Strengths:      strings.Join(evaluation.Strengths, "; "),
		Weaknesses:     strings.Join(evaluation.Weaknesses, "; "),
	}

	status, nextQuestion, err := m.commitAdvance(userID, sessionID, req.QuestionNumber, answer, nextGenerated)
	if err != nil {
		return nil, err
	}

	return &models.SubmitAnswerResponse{
		Evaluation:   evaluation,
		NextQuestion: nextQuestion,
		Status:       status,
	}, nil
}

// Skip records a zero-score answer without calling the evaluator and
// advances the session.
func (m *Manager) Skip(ctx context.Context, userID, sessionID string, questionNumber int) (*models.SkipQuestionResponse, error) {
	lock := m.sessionLock(sessionID)

	lock.Lock()
	session, _, err := m.validateAnswerable(userID, sessionID, questionNumber)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	asked := session.Questions
	lock.Unlock()

	var nextGenerated *GeneratedQuestion
	if questionNumber < session.TotalQuestions {
		nextGenerated, err = m.questions.GenerateQuestion(ctx, session, asked)
		if err != nil {
			return nil, err
		}
	}

	lock.Lock()
	defer lock.Unlock()

	answer := &models.Answer{
		SessionID:      sessionID,
		QuestionNumber: questionNumber,
		AnswerMode:     session.Mode,
		Skipped:        true,
		SubmittedAt:    m.now().UTC(),
		Score:          0,
		Feedback:       "Question skipped",
	}

	status, nextQuestion, err := m.commitAdvance(userID, sessionID, questionNumber, answer, nextGenerated)
	if err != nil {
		return nil, err
	}

	return &models.SkipQuestionResponse{
		NextQuestion: nextQuestion,
		Status:       status,
	}, nil
}

// Abandon terminates an in-progress session. Terminal: no further
// mutation is accepted afterwards.
func (m *Manager) Abandon(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.StatusInProgress {
		return nil, &StateError{SessionID: sessionID, Current: string(session.Status), Attempted: string(models.StatusAbandoned)}
	}

	m.finalize(session, models.StatusAbandoned)
	if err := m.sessions.Save(session); err != nil {
		return nil, err
	}

	if _, err := m.aggregator.Aggregate(session); err != nil {
		m.logger.Error("failed to aggregate abandoned session",
			zap.String("sessionId", sessionID), zap.Error(err))
	}

	m.logger.Info("session abandoned",
		zap.String("sessionId", sessionID),
		zap.Int("answeredQuestions", len(session.Answers)))

	return session, nil
}

// Complete finalizes an in-progress session early. Idempotent once the
// session is Completed.
func (m *Manager) Complete(ctx context.Context, userID, sessionID string) (*models.InterviewResult, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.load(userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == models.StatusCompleted {
		result, err := m.results.GetBySessionID(sessionID)
		if err == nil {
			return result, nil
		}
		return m.aggregator.Aggregate(session)
	}

	if session.Status != models.StatusInProgress {
		return nil, &StateError{SessionID: sessionID, Current: string(session.Status), Attempted: string(models.StatusCompleted)}
	}

	m.finalize(session, models.StatusCompleted)
	if err := m.sessions.Save(session); err != nil {
		return nil, err
	}

	return m.aggregator.Aggregate(session)
}

// GetSession returns the full session with its question/answer history.
func (m *Manager) GetSession(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	return m.load(userID, sessionID)
}

// GetResult returns the aggregated report for a terminal session,
// computing it on demand if the stored copy is missing.
func (m *Manager) GetResult(ctx context.Context, userID, sessionID string) (*models.InterviewResult, error) {
	session, err := m.load(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Status.IsTerminal() {
		return nil, ErrResultNotFound
	}

	result, err := m.results.GetBySessionID(sessionID)
	if err == nil {
		return result, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, err
	}
	return m.aggregator.Aggregate(session)
}

// GetHistory returns a page of the user's sessions.
func (m *Manager) GetHistory(ctx context.Context, userID string, limit, skip int, status models.SessionStatus) (*models.HistoryResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}

	sessions, total, err := m.sessions.ListByUser(userID, limit, skip, status)
	if err != nil {
		return nil, err
	}

	return &models.HistoryResponse{
		Interviews: sessions,
		Pagination: models.Pagination{Total: int(total), Limit: limit, Skip: skip},
	}, nil
}

// GetStats summarizes the user's interview activity.
func (m *Manager) GetStats(ctx context.Context, userID string) (*models.StatsResponse, error) {
	count, totalSeconds, err := m.sessions.TerminalStats(userID)
	if err != nil {
		return nil, err
	}

	average, err := m.results.AverageScore(userID)
	if err != nil {
		return nil, err
	}

	recent, err := m.results.RecentScores(userID, 10)
	if err != nil {
		return nil, err
	}

	return &models.StatsResponse{
		TotalInterviews:  int(count),
		AverageScore:     average,
		TotalTimeSpent:   int(totalSeconds),
		RecentScores:     recent,
		ImprovementTrend: overallTrend(recent),
	}, nil
}

// AbandonStale transitions in-progress sessions idle past the cutoff to
// Abandoned. Used by the background sweeper.
func (m *Manager) AbandonStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := m.sessions.StaleInProgress(cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range stale {
		if _, err := m.Abandon(ctx, stale[i].UserID, stale[i].SessionID); err != nil {
			m.logger.Warn("failed to sweep stale session",
				zap.String("sessionId", stale[i].SessionID), zap.Error(err))
			continue
		}
		swept++
	}
	return swept, nil
}

// validateAnswerable checks, under the session lock, that the session is
// in progress and the question number matches the one currently asked.
func (m *Manager) validateAnswerable(userID, sessionID string, questionNumber int) (*models.InterviewSession, *models.Question, error) {
	session, err := m.load(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.Status != models.StatusInProgress {
		return nil, nil, &StateError{SessionID: sessionID, Current: string(session.Status), Attempted: "answer"}
	}
	if questionNumber != session.CurrentQuestionNumber {
		return nil, nil, &StateError{SessionID: sessionID, Current: string(session.Status), Attempted: "out-of-order answer"}
	}

	for i := range session.Questions {
		if session.Questions[i].Number == questionNumber {
			return session, &session.Questions[i], nil
		}
	}
	return nil, nil, ErrSessionNotFound
}

// commitAdvance re-validates the session under the lock and applies the
// answer, the state advance and the next question atomically. A session
// abandoned while the AI call was in flight rejects the commit here.
func (m *Manager) commitAdvance(userID, sessionID string, questionNumber int, answer *models.Answer, nextGenerated *GeneratedQuestion) (models.SessionStatus, *models.QuestionView, error) {
	session, err := m.load(userID, sessionID)
	if err != nil {
		return "", nil, err
	}
	if session.Status != models.StatusInProgress || session.CurrentQuestionNumber != questionNumber {
		return "", nil, &StateError{SessionID: sessionID, Current: string(session.Status), Attempted: "commit answer"}
	}

	var nextQuestion *models.Question
	if questionNumber >= session.TotalQuestions {
		m.finalize(session, models.StatusCompleted)
	} else {
		session.CurrentQuestionNumber = questionNumber + 1
		nextQuestion = &models.Question{
			SessionID:    sessionID,
			Number:       questionNumber + 1,
			Text:         nextGenerated.Text,
			TargetSkills: strings.Join(nextGenerated.TargetSkills, ", "),
			AskedAt:      m.now().UTC(),
		}
	}

	if err := m.sessions.CommitAnswer(session, answer, nextQuestion); err != nil {
		return "", nil, err
	}

	if session.Status == models.StatusCompleted {
		// reload so the aggregator sees the answer committed above
		full, err := m.sessions.GetBySessionID(sessionID)
		if err == nil {
			if _, err := m.aggregator.Aggregate(full); err != nil {
				m.logger.Error("failed to aggregate completed session",
					zap.String("sessionId", sessionID), zap.Error(err))
			}
		}
	}

	m.logger.Info("answer committed",
		zap.String("sessionId", sessionID),
		zap.Int("questionNumber", questionNumber),
		zap.Bool("skipped", answer.Skipped),
		zap.String("status", string(session.Status)))

	if nextQuestion != nil {
		return session.Status, questionView(nextQuestion), nil
	}
	return session.Status, nil, nil
}

// finalize stamps the terminal fields on a session.
func (m *Manager) finalize(session *models.InterviewSession, status models.SessionStatus) {
	completedAt := m.now().UTC()
	session.Status = status
	session.CompletedAt = &completedAt
	if session.StartedAt != nil {
		session.TotalDurationSeconds = int(completedAt.Sub(*session.StartedAt).Seconds())
	}
	metrics.SessionsFinished.WithLabelValues(string(status)).Inc()
}

// load fetches a session and enforces ownership.
func (m *Manager) load(userID, sessionID string) (*models.InterviewSession, error) {
	session, err := m.sessions.GetBySessionID(sessionID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func questionView(question *models.Question) *models.QuestionView {
	return &models.QuestionView{
		Number:       question.Number,
		Text:         question.Text,
		TargetSkills: question.TargetSkills,
		AskedAt:      question.AskedAt,
	}
}

// overallTrend classifies the direction of the user's recent scores
// (newest first) by comparing the newer half against the older half.
func overallTrend(recent []int) string {
	if len(recent) < 2 {
		return "stable"
	}

	half := len(recent) / 2
	newer, older := recent[:half], recent[half:]

	newerAvg := average(newer)
	olderAvg := average(older)

	switch {
	case newerAvg > olderAvg+trendDelta:
		return "improving"
	case newerAvg < olderAvg-trendDelta:
		return "declining"
	default:
		return "stable"
	}
}

func average(scores []int) float64 {
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores))
}
