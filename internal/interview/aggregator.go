package interview

import (
	"encoding/json"
	"math"
	"time"

	"smartnshine/interview/internal/models"
	"smartnshine/interview/internal/repositories"
)

// Trend comparison parameters: a new score must move more than
// trendDelta points against the average of the previous trendWindow
// completed sessions of the same type to count as a trend.
const (
	trendWindow = 3
	trendDelta  = 5
)

// Aggregator computes the final report for a terminal session. It reads
// only persisted questions, answers and prior results, so re-running it
// on the same session yields identical output.
type Aggregator struct {
	results *repositories.ResultRepository
	now     func() time.Time
}

func NewAggregator(results *repositories.ResultRepository) *Aggregator {
	return &Aggregator{
		results: results,
		now:     time.Now,
	}
}

// Aggregate builds and persists the result for a completed or abandoned
// session. Skipped questions count as scored zeros; questions never
// reached (abandoned mid-session) are excluded entirely.
func (a *Aggregator) Aggregate(session *models.InterviewSession) (*models.InterviewResult, error) {
	if !session.Status.IsTerminal() {
		return nil, &StateError{
			SessionID: session.SessionID,
			Current:   string(session.Status),
			Attempted: "aggregate",
		}
	}

	perQuestion := make([]models.PerQuestionScore, 0, len(session.Answers))
	var weightedSum, weightTotal float64
	evaluated, skipped := 0, 0

	for _, answer := range session.Answers {
		perQuestion = append(perQuestion, models.PerQuestionScore{
			QuestionNumber: answer.QuestionNumber,
			Score:          answer.Score,
			Skipped:        answer.Skipped,
		})

		weight := questionWeight(session.InterviewType, answer.QuestionNumber)
		weightedSum += weight * float64(answer.Score)
		weightTotal += weight

		if answer.Skipped {
			skipped++
		} else {
			evaluated++
		}
	}

	overall := 0
	if weightTotal > 0 {
		overall = int(math.Round(weightedSum / weightTotal))
	}

	trend, compared, err := a.computeTrend(session, overall)
	if err != nil {
		return nil, err
	}

	breakdown, err := json.Marshal(perQuestion)
	if err != nil {
		return nil, err
	}

	result := &models.InterviewResult{
		SessionID:         session.SessionID,
		UserID:            session.UserID,
		OverallScore:      overall,
		Grade:             models.GradeFor(overall),
		EvaluatedAnswers:  evaluated,
		SkippedQuestions:  skipped,
		PerQuestionScores: string(breakdown),
		Trend:             trend,
		SessionsCompared:  compared,
		GeneratedAt:       a.now().UTC(),
	}

	if err := a.results.Upsert(result); err != nil {
		return nil, err
	}
	return result, nil
}

// computeTrend compares the new overall score against the average of the
// user's previous completed sessions of the same interview type.
func (a *Aggregator) computeTrend(session *models.InterviewSession, overall int) (string, int, error) {
	previous, err := a.results.RecentByUserAndType(session.UserID, session.InterviewType, session.SessionID, trendWindow)
	if err != nil {
		return "", 0, err
	}
	if len(previous) == 0 {
		return "stable", 0, nil
	}

	sum := 0
	for _, res := range previous {
		sum += res.OverallScore
	}
	avg := float64(sum) / float64(len(previous))

	switch {
	case float64(overall) > avg+trendDelta:
		return "improving", len(previous), nil
	case float64(overall) < avg-trendDelta:
		return "declining", len(previous), nil
	default:
		return "stable", len(previous), nil
	}
}

// ParseBreakdown decodes the stored per-question score breakdown.
func ParseBreakdown(raw string) []models.PerQuestionScore {
	scores := []models.PerQuestionScore{}
	if raw == "" {
		return scores
	}
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		return []models.PerQuestionScore{}
	}
	return scores
}

// questionWeight returns the per-question weight profile for an
// interview type. Technical interviews weight later questions more
// heavily since they probe depth; mixed interviews weight the technical
// (odd-numbered) questions slightly above the behavioral ones.
func questionWeight(interviewType models.InterviewType, number int) float64 {
	switch interviewType {
	case models.TypeTechnical:
		return 1.0 + 0.1*float64(number-1)
	case models.TypeMixed:
		if number%2 == 0 {
			return 0.9
		}
		return 1.1
	default:
		return 1.0
	}
}
