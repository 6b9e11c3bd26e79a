package models

// contains all supported interview types (in lowercase)
var ValidInterviewTypes = map[InterviewType]bool{
	TypeResumeBased:    true,
	TypeJobDescription: true,
	TypeTechnical:      true,
	TypeBehavioral:     true,
	TypeMixed:          true,
}

// contains all supported answer modes
var ValidInterviewModes = map[InterviewMode]bool{
	ModeText:  true,
	ModeVoice: true,
}

// contains all valid experience levels
var ValidExperienceLevels = map[string]bool{
	"entry":  true,
	"mid":    true,
	"senior": true,
	"lead":   true,
}

// Question count bounds per session.
const (
	MinQuestions     = 5
	MaxQuestions     = 15
	DefaultQuestions = 5
)

func ValidInterviewTypesList() []string {
	return []string{"resume-based", "job-description", "technical", "behavioral", "mixed"}
}

func ValidInterviewModesList() []string {
	return []string{"text", "voice"}
}

func ValidExperienceLevelsList() []string {
	return []string{"entry", "mid", "senior", "lead"}
}
