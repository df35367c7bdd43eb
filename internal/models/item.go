package models

import (
	"fmt"
	"math"
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Psychometrics holds the calibrated 3PL item parameters (extended with an
// upper asymptote). Difficulty here is the proportion-correct scale in [0, 1];
// the 0-100 difficulty_score convenience scale round-trips via Score/SetScore.
type Psychometrics struct {
	Discrimination float64 `json:"discrimination"`
	Difficulty     float64 `json:"difficulty"`
	Guessing       float64 `json:"guessing"`
	UpperAsymptote float64 `json:"upper_asymptote"`
}

// Validate checks the parameter invariant: a >= 0, 0 <= c <= d <= 1.
func (p Psychometrics) Validate() error {
	if p.Discrimination < 0 {
		return fmt.Errorf("discrimination must be >= 0, got %g", p.Discrimination)
	}
	if p.Guessing < 0 || p.Guessing > 1 {
		return fmt.Errorf("guessing must be in [0, 1], got %g", p.Guessing)
	}
	if p.UpperAsymptote < p.Guessing || p.UpperAsymptote > 1 {
		return fmt.Errorf("upper_asymptote must be in [guessing, 1], got %g", p.UpperAsymptote)
	}
	return nil
}

// Score converts the [0, 1] difficulty to the 0-100 difficulty_score scale.
func (p Psychometrics) Score() float64 {
	return p.Difficulty * 100
}

// SetScore sets difficulty from a 0-100 difficulty_score value.
func (p *Psychometrics) SetScore(score float64) {
	p.Difficulty = score / 100
}

type UsageStats struct {
	TimesUsed        int        `json:"times_used"`
	CorrectAnswers   int        `json:"correct_answers"`
	AverageTimeSpent float64    `json:"average_time_spent"`
	LastUsed         *time.Time `json:"last_used,omitempty"`
}

type Item struct {
	ID              int64         `json:"id"`
	Subject         string        `json:"subject"`
	Topic           string        `json:"topic"`
	QuestionText    string        `json:"question_text"`
	Explanation     string        `json:"explanation,omitempty"`
	Difficulty      Difficulty    `json:"difficulty"`
	DifficultyScore float64       `json:"difficulty_score"`
	Psychometrics   Psychometrics `json:"psychometrics"`
	UsageStats      UsageStats    `json:"usage_stats"`
	Choices         []ItemChoice  `json:"choices,omitempty"`
	IsActive        bool          `json:"is_active"`
	Version         int           `json:"version"`
	CreatedAt       time.Time     `json:"created_at"`
}

type ItemChoice struct {
	ID         int64  `json:"id"`
	ItemID     int64  `json:"item_id"`
	ChoiceID   string `json:"choice_id"`
	ChoiceText string `json:"choice_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// Effectiveness blends observed accuracy, discrimination, and closeness of
// difficulty to the 0.5 sweet spot into a 0-100 quality score. Zero until
// the item has actually been administered.
func (i *Item) Effectiveness() float64 {
	if i.UsageStats.TimesUsed == 0 {
		return 0.0
	}
	accuracy := float64(i.UsageStats.CorrectAnswers) / float64(i.UsageStats.TimesUsed)
	discrimination := i.Psychometrics.Discrimination
	difficulty := i.Psychometrics.Difficulty
	return (accuracy*0.4 + discrimination*0.4 + (1-math.Abs(difficulty-0.5))*0.2) * 100
}

// AdaptiveDifficulty combines the labeled score, the recalibrated
// psychometric difficulty, and observed accuracy into the effective
// difficulty used for serving. Unused items count accuracy as 50.
func (i *Item) AdaptiveDifficulty() float64 {
	base := i.DifficultyScore
	psychometric := i.Psychometrics.Score()
	usageAccuracy := 50.0
	if i.UsageStats.TimesUsed > 0 {
		usageAccuracy = float64(i.UsageStats.CorrectAnswers) / float64(i.UsageStats.TimesUsed) * 100
	}
	return base*0.4 + psychometric*0.4 + usageAccuracy*0.2
}

// ── Request/Response Types ────────────────────────────────

type CreateItemRequest struct {
	Subject         string             `json:"subject"`
	Topic           string             `json:"topic"`
	QuestionText    string             `json:"question_text"`
	Explanation     string             `json:"explanation,omitempty"`
	Difficulty      Difficulty         `json:"difficulty"`
	DifficultyScore float64            `json:"difficulty_score"`
	Psychometrics   *Psychometrics     `json:"psychometrics,omitempty"`
	Choices         []CreateItemChoice `json:"choices"`
}

type CreateItemChoice struct {
	ChoiceID   string `json:"choice_id"`
	ChoiceText string `json:"choice_text"`
	IsCorrect  bool   `json:"is_correct"`
}

type ItemListResponse struct {
	Items    []Item `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// ── Recalibration Types ───────────────────────────────────

type RecalibrationCandidate struct {
	ItemID            int64   `json:"item_id"`
	Responses         int     `json:"responses"`
	OldDifficulty     float64 `json:"old_difficulty"`
	NewDifficulty     float64 `json:"new_difficulty"`
	OldDiscrimination float64 `json:"old_discrimination"`
	NewDiscrimination float64 `json:"new_discrimination"`
}

type RecalibrationReport struct {
	TotalEvaluated int                      `json:"total_evaluated"`
	Recalibrated   int                      `json:"recalibrated"`
	Conflicts      int                      `json:"conflicts"`
	Details        []RecalibrationCandidate `json:"details"`
}
