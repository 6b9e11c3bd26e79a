package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionRequestDefaults(t *testing.T) {
	req := &CreateSessionRequest{InterviewType: "technical", Role: "Backend Engineer"}
	require.NoError(t, req.Validate())

	assert.Equal(t, "mid", req.ExperienceLevel)
	assert.Equal(t, "text", req.Mode)
	assert.Equal(t, DefaultQuestions, req.TotalQuestions)
}

func TestCreateSessionRequestValidation(t *testing.T) {
	cases := []struct {
		name string
		req  CreateSessionRequest
		code string
	}{
		{"unknown type", CreateSessionRequest{InterviewType: "astrology", Role: "dev"}, "invalid_interview_type"},
		{"missing role", CreateSessionRequest{InterviewType: "technical"}, "missing_role"},
		{"bad level", CreateSessionRequest{InterviewType: "technical", Role: "dev", ExperienceLevel: "guru"}, "invalid_experience_level"},
		{"bad mode", CreateSessionRequest{InterviewType: "technical", Role: "dev", Mode: "telepathy"}, "invalid_mode"},
		{"too few questions", CreateSessionRequest{InterviewType: "technical", Role: "dev", TotalQuestions: 3}, "invalid_total_questions"},
		{"too many questions", CreateSessionRequest{InterviewType: "technical", Role: "dev", TotalQuestions: 16}, "invalid_total_questions"},
		{"resume without id", CreateSessionRequest{InterviewType: "resume-based", Role: "dev"}, "missing_resume_id"},
		{"jd without description", CreateSessionRequest{InterviewType: "job-description", Role: "dev"}, "missing_job_description"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			var response *ErrorResponse
			require.ErrorAs(t, err, &response)
			assert.Equal(t, tc.code, response.Code)
		})
	}
}

func TestSubmitAnswerRequestValidation(t *testing.T) {
	req := &SubmitAnswerRequest{Answer: "because latency matters", QuestionNumber: 2}
	require.NoError(t, req.Validate())
	assert.Equal(t, "text", req.AnswerMode)

	assert.Error(t, (&SubmitAnswerRequest{QuestionNumber: 1}).Validate())
	assert.Error(t, (&SubmitAnswerRequest{Answer: "x", QuestionNumber: 0}).Validate())
	assert.Error(t, (&SubmitAnswerRequest{Answer: "x", QuestionNumber: 1, AnswerMode: "morse"}).Validate())
}

func TestSynthesizeRequestValidation(t *testing.T) {
	require.NoError(t, (&SynthesizeRequest{Text: "hello", Preset: "question"}).Validate())
	assert.Error(t, (&SynthesizeRequest{Text: "  "}).Validate())
	assert.Error(t, (&SynthesizeRequest{Text: "x", Preset: "shouty"}).Validate())

	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, (&SynthesizeRequest{Text: string(long)}).Validate())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusCreated.CanTransitionTo(StatusInProgress))
	assert.True(t, StatusInProgress.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusInProgress.CanTransitionTo(StatusAbandoned))

	assert.False(t, StatusCreated.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusInProgress))
	assert.False(t, StatusAbandoned.CanTransitionTo(StatusCompleted))

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusAbandoned.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
}

func TestDailyLimits(t *testing.T) {
	assert.Equal(t, 3, DailyLimit(TierFree, FeatureSession))
	assert.Equal(t, 20, DailyLimit(TierFree, FeatureSynthesis))
	assert.Equal(t, 15, DailyLimit(TierPro, FeatureSession))
	assert.Equal(t, -1, DailyLimit(TierLifetime, FeatureSession))

	// unknown tiers resolve as free
	assert.Equal(t, 3, DailyLimit(SubscriptionTier("platinum"), FeatureSession))
}
