package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smartnshine/interview/internal/models"
)

type ResultRepository struct {
	DB *gorm.DB
}

// Upsert writes the aggregated result, replacing any previous run for the
// same session. Aggregation is idempotent so replacement is safe.
func (r *ResultRepository) Upsert(result *models.InterviewResult) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"overall_score", "grade", "evaluated_answers", "skipped_questions",
			"per_question_scores", "trend", "sessions_compared", "generated_at",
		}),
	}).Create(result).Error
}

// GetBySessionID retrieves the result for a session.
func (r *ResultRepository) GetBySessionID(sessionID string) (*models.InterviewResult, error) {
	var result models.InterviewResult
	err := r.DB.Where("session_id = ?", sessionID).First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RecentByUserAndType returns the user's most recent results for one
// interview type, newest first, excluding the given session.
func (r *ResultRepository) RecentByUserAndType(userID string, interviewType models.InterviewType, excludeSessionID string, limit int) ([]models.InterviewResult, error) {
	results := []models.InterviewResult{}
	err := r.DB.
		Joins("JOIN interview_sessions ON interview_sessions.session_id = interview_results.session_id").
		Where("interview_results.user_id = ?", userID).
		Where("interview_sessions.interview_type = ?", interviewType).
		Where("interview_sessions.status = ?", models.StatusCompleted).
		Where("interview_results.session_id <> ?", excludeSessionID).
		Order("interview_results.generated_at DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// RecentScores returns the user's latest overall scores, newest first.
func (r *ResultRepository) RecentScores(userID string, limit int) ([]int, error) {
	results := []models.InterviewResult{}
	err := r.DB.
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	scores := make([]int, 0, len(results))
	for _, res := range results {
		scores = append(scores, res.OverallScore)
	}
	return scores, nil
}

// AverageScore computes the mean overall score across the user's results.
func (r *ResultRepository) AverageScore(userID string) (float64, error) {
	var avg *float64
	err := r.DB.Model(&models.InterviewResult{}).
		Where("user_id = ?", userID).
		Select("AVG(overall_score)").
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0, err
	}
	return *avg, nil
}
