package models

import "time"

// uniform error responses
type ErrorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// QuestionView is the client-facing shape of a question.
type QuestionView struct {
	Number       int       `json:"number"`
	Text         string    `json:"text"`
	TargetSkills string    `json:"targetSkills,omitempty"`
	AskedAt      time.Time `json:"askedAt"`
}

type CreateSessionResponse struct {
	SessionID      string        `json:"sessionId"`
	Status         SessionStatus `json:"status"`
	InterviewType  InterviewType `json:"interviewType"`
	Role           string        `json:"role"`
	Mode           InterviewMode `json:"mode"`
	TotalQuestions int           `json:"totalQuestions"`
	QuotaRemaining int           `json:"quotaRemaining"`
}

type StartSessionResponse struct {
	Status   SessionStatus `json:"status"`
	Question *QuestionView `json:"question"`
}

type SubmitAnswerResponse struct {
	Evaluation    *Evaluation    `json:"evaluation,omitempty"`
	Transcription *Transcription `json:"transcription,omitempty"`
	NextQuestion  *QuestionView  `json:"nextQuestion"`
	Status        SessionStatus  `json:"status"`
}

type SkipQuestionResponse struct {
	NextQuestion *QuestionView `json:"nextQuestion"`
	Status       SessionStatus `json:"status"`
}

type ResultResponse struct {
	SessionID         string             `json:"sessionId"`
	OverallScore      int                `json:"overallScore"`
	Grade             string             `json:"grade"`
	PerQuestionScores []PerQuestionScore `json:"perQuestionScores"`
	ComparisonData    ComparisonData     `json:"comparisonData"`
	GeneratedAt       time.Time          `json:"generatedAt"`
}

// Transcription is the STT output for one audio clip.
type Transcription struct {
	Text      string  `json:"text"`
	Language  string  `json:"language"`
	Duration  float64 `json:"duration"`
	WordCount int     `json:"wordCount"`
}

type Pagination struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
}

type HistoryResponse struct {
	Interviews []InterviewSession `json:"interviews"`
	Pagination Pagination         `json:"pagination"`
}

type StatsResponse struct {
	TotalInterviews  int     `json:"totalInterviews"`
	AverageScore     float64 `json:"averageScore"`
	TotalTimeSpent   int     `json:"totalTimeSpent"`
	RecentScores     []int   `json:"recentScores"`
	ImprovementTrend string  `json:"improvementTrend"`
}

// InterviewConfigResponse lists the valid session parameters for clients.
type InterviewConfigResponse struct {
	InterviewTypes   []string `json:"interviewTypes"`
	Modes            []string `json:"modes"`
	ExperienceLevels []string `json:"experienceLevels"`
	MinQuestions     int      `json:"minQuestions"`
	MaxQuestions     int      `json:"maxQuestions"`
}

type SynthesizeJSONResponse struct {
	AudioBase64       string  `json:"audioBase64"`
	ContentType       string  `json:"contentType"`
	EstimatedDuration float64 `json:"estimatedDuration"`
}
