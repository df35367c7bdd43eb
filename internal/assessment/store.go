package assessment

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/adaptive-assessment/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const assessmentColumns = `id, user_id, title, subject, status, strategy,
	max_questions, min_questions, se_threshold, confidence_threshold,
	theta, standard_error, questions_asked, correct_answers,
	completion_reason, started_at, completed_at`

func scanAssessment(row interface{ Scan(...interface{}) error }) (*models.Assessment, error) {
	var a models.Assessment
	err := row.Scan(
		&a.ID, &a.UserID, &a.Title, &a.Subject, &a.Status, &a.Strategy,
		&a.Criteria.MaxQuestions, &a.Criteria.MinQuestions,
		&a.Criteria.StandardErrorThreshold, &a.Criteria.ConfidenceThreshold,
		&a.Theta, &a.StandardError, &a.QuestionsAsked, &a.CorrectAnswers,
		&a.CompletionReason, &a.StartedAt, &a.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) CreateAssessment(a *models.Assessment) (*models.Assessment, error) {
	created, err := scanAssessment(s.db.QueryRow(
		`INSERT INTO assessments (user_id, title, subject, status, strategy,
		                          max_questions, min_questions, se_threshold, confidence_threshold)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+assessmentColumns,
		a.UserID, a.Title, a.Subject, models.StatusInProgress, a.Strategy,
		a.Criteria.MaxQuestions, a.Criteria.MinQuestions,
		a.Criteria.StandardErrorThreshold, a.Criteria.ConfidenceThreshold,
	))
	if err != nil {
		return nil, fmt.Errorf("create assessment: %w", err)
	}
	return created, nil
}

func (s *Store) GetAssessment(assessmentID int64) (*models.Assessment, error) {
	a, err := scanAssessment(s.db.QueryRow(
		`SELECT `+assessmentColumns+` FROM assessments WHERE id = $1`, assessmentID,
	))
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return a, nil
}

// ListAssessments returns the user's ten most recent sessions plus every
// session still in progress.
func (s *Store) ListAssessments(userID int64) (recent, incomplete []models.Assessment, err error) {
	rows, err := s.db.Query(
		`SELECT `+assessmentColumns+` FROM assessments
		 WHERE user_id = $1 ORDER BY started_at DESC LIMIT 10`,
		userID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan assessment: %w", err)
		}
		recent = append(recent, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	inProgress, err := s.db.Query(
		`SELECT `+assessmentColumns+` FROM assessments
		 WHERE user_id = $1 AND status = $2 ORDER BY started_at DESC`,
		userID, models.StatusInProgress,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("list incomplete assessments: %w", err)
	}
	defer inProgress.Close()
	for inProgress.Next() {
		a, err := scanAssessment(inProgress)
		if err != nil {
			return nil, nil, fmt.Errorf("scan assessment: %w", err)
		}
		incomplete = append(incomplete, *a)
	}
	return recent, incomplete, inProgress.Err()
}

// GetHistory loads the session's responses and the matching administered
// items, position-aligned as the estimator requires.
func (s *Store) GetHistory(assessmentID int64) ([]models.Response, []models.Item, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.assessment_id, r.item_id, r.position, r.is_correct,
		        r.selected_choice_id, r.ability_at_time, r.time_spent_seconds, r.answered_at,
		        i.id, i.subject, i.topic, i.question_text, COALESCE(i.explanation, ''),
		        i.difficulty, i.difficulty_score, i.discrimination, i.irt_difficulty,
		        i.guessing, i.upper_asymptote,
		        i.times_used, i.correct_answers, i.average_time_spent, i.last_used,
		        i.is_active, i.version, i.created_at
		 FROM assessment_responses r
		 JOIN items i ON i.id = r.item_id
		 WHERE r.assessment_id = $1
		 ORDER BY r.position`,
		assessmentID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	var responses []models.Response
	var items []models.Item
	for rows.Next() {
		var r models.Response
		var i models.Item
		err := rows.Scan(
			&r.ID, &r.AssessmentID, &r.ItemID, &r.Position, &r.IsCorrect,
			&r.SelectedChoiceID, &r.AbilityAtTime, &r.TimeSpentSeconds, &r.AnsweredAt,
			&i.ID, &i.Subject, &i.Topic, &i.QuestionText, &i.Explanation,
			&i.Difficulty, &i.DifficultyScore,
			&i.Psychometrics.Discrimination, &i.Psychometrics.Difficulty,
			&i.Psychometrics.Guessing, &i.Psychometrics.UpperAsymptote,
			&i.UsageStats.TimesUsed, &i.UsageStats.CorrectAnswers,
			&i.UsageStats.AverageTimeSpent, &i.UsageStats.LastUsed,
			&i.IsActive, &i.Version, &i.CreatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("scan history row: %w", err)
		}
		responses = append(responses, r)
		items = append(items, i)
	}
	return responses, items, rows.Err()
}

// AddResponse records one administered response. Responses are immutable:
// there is no update or delete path.
func (s *Store) AddResponse(r *models.Response) error {
	err := s.db.QueryRow(
		`INSERT INTO assessment_responses
		 (assessment_id, item_id, position, is_correct, selected_choice_id, ability_at_time, time_spent_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, answered_at`,
		r.AssessmentID, r.ItemID, r.Position, r.IsCorrect,
		r.SelectedChoiceID, r.AbilityAtTime, r.TimeSpentSeconds,
	).Scan(&r.ID, &r.AnsweredAt)
	if err != nil {
		return fmt.Errorf("add response: %w", err)
	}
	return nil
}

// UpdateProgress stores the refreshed ability estimate and counters after
// an answer.
func (s *Store) UpdateProgress(assessmentID int64, estimate models.AbilityEstimate, asked, correct int) error {
	_, err := s.db.Exec(
		`UPDATE assessments
		 SET theta = $1, standard_error = $2, questions_asked = $3, correct_answers = $4
		 WHERE id = $5`,
		estimate.Theta, estimate.StandardError, asked, correct, assessmentID,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

func (s *Store) CompleteAssessment(assessmentID int64, reason models.CompletionReason) error {
	_, err := s.db.Exec(
		`UPDATE assessments
		 SET status = $1, completion_reason = $2, completed_at = $3
		 WHERE id = $4 AND status = $5`,
		models.StatusCompleted, reason, time.Now(), assessmentID, models.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("complete assessment: %w", err)
	}
	return nil
}

func (s *Store) AbandonAssessment(assessmentID int64) error {
	_, err := s.db.Exec(
		`UPDATE assessments
		 SET status = $1, completion_reason = $2, completed_at = $3
		 WHERE id = $4 AND status = $5`,
		models.StatusAbandoned, models.CompletionAbandoned, time.Now(), assessmentID, models.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("abandon assessment: %w", err)
	}
	return nil
}
