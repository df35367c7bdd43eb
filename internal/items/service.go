package items

import (
	"errors"
	"fmt"
	"log"

	"github.com/adaptive-assessment/backend/internal/adaptive"
	"github.com/adaptive-assessment/backend/internal/models"
)

// usageRetryAttempts bounds how often a usage-stat write is retried after
// losing the optimistic-version race to another session.
const usageRetryAttempts = 3

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// defaultPsychometrics are the uncalibrated starting parameters for a new
// four-choice item.
func defaultPsychometrics() models.Psychometrics {
	return models.Psychometrics{
		Discrimination: 0.5,
		Difficulty:     0.5,
		Guessing:       0.25,
		UpperAsymptote: 1.0,
	}
}

func (s *Service) CreateItem(req models.CreateItemRequest) (*models.Item, error) {
	if req.QuestionText == "" {
		return nil, fmt.Errorf("question_text is required")
	}
	if req.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if len(req.Choices) < 2 {
		return nil, fmt.Errorf("at least two choices are required")
	}
	correctCount := 0
	for _, c := range req.Choices {
		if c.IsCorrect {
			correctCount++
		}
	}
	if correctCount != 1 {
		return nil, fmt.Errorf("exactly one choice must be correct, got %d", correctCount)
	}

	psy := defaultPsychometrics()
	if req.Psychometrics != nil {
		psy = *req.Psychometrics
	}
	if err := psy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid psychometrics: %w", err)
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	score := req.DifficultyScore
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("difficulty_score must be in [0, 100], got %g", score)
	}
	if score == 0 {
		score = 50
	}

	item := &models.Item{
		Subject:         req.Subject,
		Topic:           req.Topic,
		QuestionText:    req.QuestionText,
		Explanation:     req.Explanation,
		Difficulty:      difficulty,
		DifficultyScore: score,
		Psychometrics:   psy,
	}
	for _, c := range req.Choices {
		item.Choices = append(item.Choices, models.ItemChoice{
			ChoiceID:   c.ChoiceID,
			ChoiceText: c.ChoiceText,
			IsCorrect:  c.IsCorrect,
		})
	}
	return s.store.CreateItem(item)
}

func (s *Service) GetItem(itemID int64) (*models.Item, error) {
	return s.store.GetItem(itemID)
}

func (s *Service) ListItems(subject, topic string, activeOnly bool, limit, offset int) ([]models.Item, int, error) {
	return s.store.ListItems(subject, topic, activeOnly, limit, offset)
}

// ActivePool returns the serving pool for a subject in stable order.
func (s *Service) ActivePool(subject string) ([]models.Item, error) {
	return s.store.GetActivePool(subject)
}

// RecordUsage applies one administration to the item's usage counters and
// persists them. The versioned write is retried a few times so concurrent
// sessions recording against the same item do not lose counts.
func (s *Service) RecordUsage(itemID int64, isCorrect bool, timeSpent float64) error {
	for attempt := 0; attempt < usageRetryAttempts; attempt++ {
		item, err := s.store.GetItem(itemID)
		if err != nil {
			return err
		}
		adaptive.UpdateUsageStats(item, isCorrect, timeSpent)

		err = s.store.SaveUsageStats(item, item.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
	}
	return fmt.Errorf("record usage for item %d: %w", itemID, ErrVersionConflict)
}

// Recalibrate reruns psychometric estimation for every item with enough
// ability-tagged responses. Items whose versioned write loses a race are
// skipped and counted as conflicts; the next run picks them up again.
func (s *Service) Recalibrate(minResponses int) (*models.RecalibrationReport, error) {
	batches, err := s.store.GetCalibrationBatches(minResponses)
	if err != nil {
		return nil, fmt.Errorf("get calibration batches: %w", err)
	}

	report := &models.RecalibrationReport{Details: []models.RecalibrationCandidate{}}
	for _, batch := range batches {
		item, err := s.store.GetItem(batch.ItemID)
		if err != nil {
			log.Printf("WARN: recalibration skipped item %d: %v", batch.ItemID, err)
			continue
		}
		report.TotalEvaluated++

		candidate := models.RecalibrationCandidate{
			ItemID:            item.ID,
			Responses:         len(batch.Responses),
			OldDifficulty:     item.Psychometrics.Difficulty,
			OldDiscrimination: item.Psychometrics.Discrimination,
		}

		adaptive.UpdatePsychometrics(item, batch.Responses)
		candidate.NewDifficulty = item.Psychometrics.Difficulty
		candidate.NewDiscrimination = item.Psychometrics.Discrimination

		if err := s.store.SavePsychometrics(item, item.Version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				report.Conflicts++
				log.Printf("WARN: recalibration conflict on item %d, will retry next run", item.ID)
				continue
			}
			return nil, fmt.Errorf("save psychometrics for item %d: %w", item.ID, err)
		}

		report.Recalibrated++
		report.Details = append(report.Details, candidate)
	}
	return report, nil
}
