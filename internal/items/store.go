package items

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/adaptive-assessment/backend/internal/models"
)

// ErrVersionConflict is returned when a versioned item write loses the
// race against another writer. Item psychometrics follow a
// single-writer-at-a-time contract enforced through the version column.
var ErrVersionConflict = errors.New("item version conflict")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemColumns = `id, subject, topic, question_text, COALESCE(explanation, ''),
	difficulty, difficulty_score, discrimination, irt_difficulty, guessing, upper_asymptote,
	times_used, correct_answers, average_time_spent, last_used, is_active, version, created_at`

func scanItem(row interface{ Scan(...interface{}) error }) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID, &item.Subject, &item.Topic, &item.QuestionText, &item.Explanation,
		&item.Difficulty, &item.DifficultyScore,
		&item.Psychometrics.Discrimination, &item.Psychometrics.Difficulty,
		&item.Psychometrics.Guessing, &item.Psychometrics.UpperAsymptote,
		&item.UsageStats.TimesUsed, &item.UsageStats.CorrectAnswers,
		&item.UsageStats.AverageTimeSpent, &item.UsageStats.LastUsed,
		&item.IsActive, &item.Version, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateItem(item *models.Item) (*models.Item, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	defer tx.Rollback()

	var explanation interface{}
	if item.Explanation != "" {
		explanation = item.Explanation
	}

	created, err := scanItem(tx.QueryRow(
		`INSERT INTO items (subject, topic, question_text, explanation, difficulty, difficulty_score,
		                    discrimination, irt_difficulty, guessing, upper_asymptote)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+itemColumns,
		item.Subject, item.Topic, item.QuestionText, explanation, item.Difficulty, item.DifficultyScore,
		item.Psychometrics.Discrimination, item.Psychometrics.Difficulty,
		item.Psychometrics.Guessing, item.Psychometrics.UpperAsymptote,
	))
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	for _, c := range item.Choices {
		var choice models.ItemChoice
		err := tx.QueryRow(
			`INSERT INTO item_choices (item_id, choice_id, choice_text, is_correct)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, item_id, choice_id, choice_text, is_correct`,
			created.ID, c.ChoiceID, c.ChoiceText, c.IsCorrect,
		).Scan(&choice.ID, &choice.ItemID, &choice.ChoiceID, &choice.ChoiceText, &choice.IsCorrect)
		if err != nil {
			return nil, fmt.Errorf("create choice %s: %w", c.ChoiceID, err)
		}
		created.Choices = append(created.Choices, choice)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return created, nil
}

func (s *Store) GetItem(itemID int64) (*models.Item, error) {
	item, err := scanItem(s.db.QueryRow(
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, itemID,
	))
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if err := s.attachChoices(item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) attachChoices(item *models.Item) error {
	rows, err := s.db.Query(
		`SELECT id, item_id, choice_id, choice_text, is_correct
		 FROM item_choices WHERE item_id = $1 ORDER BY choice_id`,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("get choices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.ItemChoice
		if err := rows.Scan(&c.ID, &c.ItemID, &c.ChoiceID, &c.ChoiceText, &c.IsCorrect); err != nil {
			return fmt.Errorf("scan choice: %w", err)
		}
		item.Choices = append(item.Choices, c)
	}
	return rows.Err()
}

// ListItems returns a page of items, optionally filtered by subject/topic
// and active flag.
func (s *Store) ListItems(subject, topic string, activeOnly bool, limit, offset int) ([]models.Item, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	argn := 1
	if subject != "" {
		where += fmt.Sprintf(" AND subject = $%d", argn)
		args = append(args, subject)
		argn++
	}
	if topic != "" {
		where += fmt.Sprintf(" AND topic = $%d", argn)
		args = append(args, topic)
		argn++
	}
	if activeOnly {
		where += " AND is_active = TRUE"
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM items `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM items %s ORDER BY id LIMIT $%d OFFSET $%d`,
		itemColumns, where, argn, argn+1)
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, total, rows.Err()
}

// GetActivePool loads the active items for a subject in insertion order.
// Order is load-bearing: selection tie-breaks keep the first item
// encountered, so the pool must come back the same way every time.
func (s *Store) GetActivePool(subject string) ([]models.Item, error) {
	rows, err := s.db.Query(
		`SELECT `+itemColumns+` FROM items WHERE subject = $1 AND is_active = TRUE ORDER BY id`,
		subject,
	)
	if err != nil {
		return nil, fmt.Errorf("get active pool: %w", err)
	}
	defer rows.Close()

	var pool []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool item: %w", err)
		}
		pool = append(pool, *item)
	}
	return pool, rows.Err()
}

// SaveUsageStats persists the item's usage counters under the version
// guard. expectedVersion is the version the stats were computed against.
func (s *Store) SaveUsageStats(item *models.Item, expectedVersion int) error {
	result, err := s.db.Exec(
		`UPDATE items
		 SET times_used = $1, correct_answers = $2, average_time_spent = $3,
		     last_used = $4, version = version + 1
		 WHERE id = $5 AND version = $6`,
		item.UsageStats.TimesUsed, item.UsageStats.CorrectAnswers,
		item.UsageStats.AverageTimeSpent, item.UsageStats.LastUsed,
		item.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save usage stats: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save usage stats: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	item.Version = expectedVersion + 1
	return nil
}

// SavePsychometrics persists recalibrated discrimination/difficulty under
// the version guard.
func (s *Store) SavePsychometrics(item *models.Item, expectedVersion int) error {
	result, err := s.db.Exec(
		`UPDATE items
		 SET discrimination = $1, irt_difficulty = $2, version = version + 1
		 WHERE id = $3 AND version = $4`,
		item.Psychometrics.Discrimination, item.Psychometrics.Difficulty,
		item.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("save psychometrics: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save psychometrics: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	item.Version = expectedVersion + 1
	return nil
}

// CalibrationBatch is the ability-tagged response set for one item.
type CalibrationBatch struct {
	ItemID    int64
	Responses []models.CalibrationResponse
}

// GetCalibrationBatches collects ability-tagged responses grouped by item,
// keeping only items with at least minResponses of them. Batches come back
// in item-id order for a deterministic recalibration pass.
func (s *Store) GetCalibrationBatches(minResponses int) ([]CalibrationBatch, error) {
	rows, err := s.db.Query(
		`SELECT item_id, is_correct, ability_at_time
		 FROM assessment_responses
		 WHERE ability_at_time IS NOT NULL
		 ORDER BY item_id, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("calibration batches: %w", err)
	}
	defer rows.Close()

	var batches []CalibrationBatch
	var current *CalibrationBatch
	for rows.Next() {
		var itemID int64
		var resp models.CalibrationResponse
		if err := rows.Scan(&itemID, &resp.IsCorrect, &resp.UserAbility); err != nil {
			return nil, fmt.Errorf("scan calibration response: %w", err)
		}
		if current == nil || current.ItemID != itemID {
			batches = append(batches, CalibrationBatch{ItemID: itemID})
			current = &batches[len(batches)-1]
		}
		current.Responses = append(current.Responses, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	filtered := batches[:0]
	for _, b := range batches {
		if len(b.Responses) >= minResponses {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}
