package models

import (
	"time"

	"gorm.io/gorm"
)

// InterviewResult is the aggregated report for a terminal session.
type InterviewResult struct {
	gorm.Model
	SessionID         string    `gorm:"uniqueIndex;not null" json:"sessionId"`
	UserID            string    `gorm:"not null;index" json:"userId"`
	OverallScore      int       `json:"overallScore"`
	Grade             string    `json:"grade"`
	EvaluatedAnswers  int       `json:"evaluatedAnswers"`
	SkippedQuestions  int       `json:"skippedQuestions"`
	PerQuestionScores string    `gorm:"type:text" json:"-"`
	Trend             string    `json:"trend"`
	SessionsCompared  int       `json:"sessionsCompared"`
	GeneratedAt       time.Time `json:"generatedAt"`
}

// ComparisonData describes how a result relates to the user's recent
// sessions of the same interview type.
type ComparisonData struct {
	Trend            string `json:"trend"` // improving | declining | stable
	PreviousScore    int    `json:"previousScore,omitempty"`
	SessionsCompared int    `json:"sessionsCompared"`
}

// PerQuestionScore is one entry of the per-question breakdown.
type PerQuestionScore struct {
	QuestionNumber int  `json:"questionNumber"`
	Score          int  `json:"score"`
	Skipped        bool `json:"skipped,omitempty"`
}

// GradeFor maps an overall score to its fixed letter-grade band.
func GradeFor(score int) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	default:
		return "F"
	}
}
