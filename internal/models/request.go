package models

import (
	"strings"
)

type CreateSessionRequest struct {
	InterviewType   string   `json:"interviewType"`
	Role            string   `json:"role"`
	ExperienceLevel string   `json:"experienceLevel"`
	Mode            string   `json:"mode"`
	TotalQuestions  int      `json:"totalQuestions"`
	ResumeID        string   `json:"resumeId,omitempty"`
	JobDescription  string   `json:"jobDescription,omitempty"`
	TargetSkills    []string `json:"targetSkills,omitempty"`
}

// implements the Validator interface
func (r *CreateSessionRequest) Validate() error {
	if !ValidInterviewTypes[InterviewType(r.InterviewType)] {
		return &ErrorResponse{
			Code:    "invalid_interview_type",
			Message: "Interview type must be one of: " + strings.Join(ValidInterviewTypesList(), ", "),
		}
	}

	if strings.TrimSpace(r.Role) == "" {
		return &ErrorResponse{
			Code:    "missing_role",
			Message: "Role field is required",
		}
	}

	if r.ExperienceLevel == "" {
		r.ExperienceLevel = "mid"
	}
	if !ValidExperienceLevels[r.ExperienceLevel] {
		return &ErrorResponse{
			Code:    "invalid_experience_level",
			Message: "Experience level must be one of: " + strings.Join(ValidExperienceLevelsList(), ", "),
		}
	}

	if r.Mode == "" {
		r.Mode = string(ModeText)
	}
	if !ValidInterviewModes[InterviewMode(r.Mode)] {
		return &ErrorResponse{
			Code:    "invalid_mode",
			Message: "Mode must be one of: " + strings.Join(ValidInterviewModesList(), ", "),
		}
	}

	if r.TotalQuestions == 0 {
		r.TotalQuestions = DefaultQuestions
	}
	if r.TotalQuestions < MinQuestions || r.TotalQuestions > MaxQuestions {
		return &ErrorResponse{
			Code:    "invalid_total_questions",
			Message: "Total questions must be between 5 and 15",
		}
	}

	if InterviewType(r.InterviewType) == TypeResumeBased && r.ResumeID == "" {
		return &ErrorResponse{
			Code:    "missing_resume_id",
			Message: "resumeId is required for resume-based interviews",
		}
	}
	if InterviewType(r.InterviewType) == TypeJobDescription && strings.TrimSpace(r.JobDescription) == "" {
		return &ErrorResponse{
			Code:    "missing_job_description",
			Message: "jobDescription is required for job-description interviews",
		}
	}

	return nil
}

type SubmitAnswerRequest struct {
	Answer         string `json:"answer"`
	QuestionNumber int    `json:"questionNumber"`
	AnswerMode     string `json:"answerMode"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if strings.TrimSpace(r.Answer) == "" {
		return &ErrorResponse{Code: "missing_answer", Message: "Answer field is required"}
	}
	if r.QuestionNumber < 1 {
		return &ErrorResponse{Code: "invalid_question_number", Message: "questionNumber must be a positive integer"}
	}
	if r.AnswerMode == "" {
		r.AnswerMode = string(ModeText)
	}
	if !ValidInterviewModes[InterviewMode(r.AnswerMode)] {
		return &ErrorResponse{Code: "invalid_answer_mode", Message: "answerMode must be text or voice"}
	}
	return nil
}

type SkipQuestionRequest struct {
	QuestionNumber int `json:"questionNumber"`
}

func (r *SkipQuestionRequest) Validate() error {
	if r.QuestionNumber < 1 {
		return &ErrorResponse{Code: "invalid_question_number", Message: "questionNumber must be a positive integer"}
	}
	return nil
}

type SynthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId,omitempty"`
	Preset  string `json:"preset,omitempty"`
}

func (r *SynthesizeRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return &ErrorResponse{Code: "missing_text", Message: "Text field is required"}
	}
	if len(r.Text) > 2000 {
		return &ErrorResponse{Code: "text_too_long", Message: "Text must not exceed 2000 characters"}
	}
	if r.Preset != "" && !ValidVoicePresets[r.Preset] {
		return &ErrorResponse{
			Code:    "invalid_preset",
			Message: "Preset must be one of: " + strings.Join(ValidVoicePresetsList(), ", "),
		}
	}
	return nil
}

type TestVoiceRequest struct {
	Preset     string `json:"preset,omitempty"`
	CustomText string `json:"customText,omitempty"`
}

func (r *TestVoiceRequest) Validate() error {
	if r.Preset == "" {
		r.Preset = "greeting"
	}
	if !ValidVoicePresets[r.Preset] {
		return &ErrorResponse{
			Code:    "invalid_preset",
			Message: "Preset must be one of: " + strings.Join(ValidVoicePresetsList(), ", "),
		}
	}
	return nil
}

// Voice presets tune synthesis for different phases of the interview.
var ValidVoicePresets = map[string]bool{
	"greeting":       true,
	"question":       true,
	"acknowledgment": true,
	"transition":     true,
	"closing":        true,
	"warm":           true,
}

func ValidVoicePresetsList() []string {
	return []string{"greeting", "question", "acknowledgment", "transition", "closing", "warm"}
}
