package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"smartnshine/interview/internal/models"
)

type SessionRepository struct {
	DB *gorm.DB
}

// Create persists a new session.
func (r *SessionRepository) Create(session *models.InterviewSession) error {
	return r.DB.Create(session).Error
}

// GetBySessionID retrieves a session with its questions and answers.
func (r *SessionRepository) GetBySessionID(sessionID string) (*models.InterviewSession, error) {
	var session models.InterviewSession
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("question_number ASC") }).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Save updates an existing session row.
func (r *SessionRepository) Save(session *models.InterviewSession) error {
	return r.DB.Save(session).Error
}

// AppendQuestionAndAdvance records a newly asked question and the session
// mutation that goes with it in one transaction.
func (r *SessionRepository) AppendQuestionAndAdvance(session *models.InterviewSession, question *models.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		return tx.Save(session).Error
	})
}

// CommitAnswer applies an evaluated answer, the session advance, and the
// optional next question atomically. Either everything lands or nothing
// does.
func (r *SessionRepository) CommitAnswer(session *models.InterviewSession, answer *models.Answer, nextQuestion *models.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		if nextQuestion != nil {
			if err := tx.Create(nextQuestion).Error; err != nil {
				return err
			}
		}
		return tx.Save(session).Error
	})
}

// ListByUser returns a page of the user's sessions, newest first,
// optionally filtered by status.
func (r *SessionRepository) ListByUser(userID string, limit, skip int, status models.SessionStatus) ([]models.InterviewSession, int64, error) {
	query := r.DB.Model(&models.InterviewSession{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sessions := []models.InterviewSession{}
	err := query.Order("created_at DESC").Limit(limit).Offset(skip).Find(&sessions).Error
	return sessions, total, err
}

// TerminalStats returns the number of finished sessions and the total
// time spent in them.
func (r *SessionRepository) TerminalStats(userID string) (int64, int64, error) {
	var stats struct {
		Count        int64
		TotalSeconds int64
	}
	err := r.DB.Model(&models.InterviewSession{}).
		Where("user_id = ? AND status IN ?", userID, []models.SessionStatus{models.StatusCompleted, models.StatusAbandoned}).
		Select("COUNT(*) as count, COALESCE(SUM(total_duration_seconds), 0) as total_seconds").
		Scan(&stats).Error
	return stats.Count, stats.TotalSeconds, err
}

// StaleInProgress returns in-progress sessions not touched since the cutoff.
func (r *SessionRepository) StaleInProgress(cutoff time.Time) ([]models.InterviewSession, error) {
	sessions := []models.InterviewSession{}
	err := r.DB.
		Where("status = ? AND updated_at < ?", models.StatusInProgress, cutoff).
		Find(&sessions).Error
	return sessions, err
}

// IsNotFound reports whether err is gorm's missing-record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
