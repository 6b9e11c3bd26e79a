package models

import (
	"time"

	"gorm.io/gorm"
)

// InterviewType is the closed set of supported interview formats.
type InterviewType string

const (
	TypeResumeBased    InterviewType = "resume-based"
	TypeJobDescription InterviewType = "job-description"
	TypeTechnical      InterviewType = "technical"
	TypeBehavioral     InterviewType = "behavioral"
	TypeMixed          InterviewType = "mixed"
)

// InterviewMode controls how answers are captured.
type InterviewMode string

const (
	ModeText  InterviewMode = "text"
	ModeVoice InterviewMode = "voice"
)

// SessionStatus is the session lifecycle state.
type SessionStatus string

const (
	StatusCreated    SessionStatus = "created"
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// CanTransitionTo enforces the session state machine:
// created -> in-progress -> {completed, abandoned}.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusCreated:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted || next == StatusAbandoned
	default:
		return false
	}
}

// IsTerminal reports whether no further mutation is accepted.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// InterviewSession represents one mock-interview attempt from creation
// to a terminal status. Sessions are never hard-deleted; they are kept
// for history and analytics.
type InterviewSession struct {
	gorm.Model
	SessionID             string        `gorm:"uniqueIndex;not null" json:"sessionId"`
	UserID                string        `gorm:"not null;index" json:"userId"`
	InterviewType         InterviewType `gorm:"not null" json:"interviewType"`
	Role                  string        `gorm:"not null" json:"role"`
	ExperienceLevel       string        `json:"experienceLevel"`
	Mode                  InterviewMode `gorm:"not null" json:"mode"`
	Status                SessionStatus `gorm:"not null;index" json:"status"`
	TotalQuestions        int           `gorm:"not null" json:"totalQuestions"`
	CurrentQuestionNumber int           `gorm:"not null;default:0" json:"currentQuestionNumber"`
	JobDescription        string        `gorm:"type:text" json:"jobDescription,omitempty"`
	ResumeID              string        `json:"resumeId,omitempty"`
	StartedAt             *time.Time    `json:"startedAt,omitempty"`
	CompletedAt           *time.Time    `json:"completedAt,omitempty"`
	TotalDurationSeconds  int           `json:"totalDurationSeconds"`

	Questions []Question `gorm:"foreignKey:SessionID;references:SessionID" json:"questions,omitempty"`
	Answers   []Answer   `gorm:"foreignKey:SessionID;references:SessionID" json:"answers,omitempty"`
}

// Question is a single generated interview question.
type Question struct {
	gorm.Model
	SessionID    string    `gorm:"not null;index" json:"sessionId"`
	Number       int       `gorm:"not null" json:"number"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	TargetSkills string    `json:"targetSkills,omitempty"`
	AskedAt      time.Time `json:"askedAt"`
}

// Answer holds the candidate's answer for one question together with
// its evaluation. Skipped questions are stored as zero-score answers.
type Answer struct {
	gorm.Model
	SessionID      string        `gorm:"not null;index" json:"sessionId"`
	QuestionNumber int           `gorm:"not null" json:"questionNumber"`
	Text           string        `gorm:"type:text" json:"text"`
	AnswerMode     InterviewMode `json:"answerMode"`
	Skipped        bool          `gorm:"default:false" json:"skipped"`
	SubmittedAt    time.Time     `json:"submittedAt"`

	// Embedded evaluation, populated by the answer evaluator.
	Score      int    `json:"score"`
	Feedback   string `gorm:"type:text" json:"feedback"`
	Strengths  string `gorm:"type:text" json:"strengths,omitempty"`
	Weaknesses string `gorm:"type:text" json:"weaknesses,omitempty"`
}

// Evaluation is the evaluator's verdict for one answer.
type Evaluation struct {
	Score      int      `json:"score"`
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}
