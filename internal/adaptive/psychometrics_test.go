package adaptive

import (
	"math"
	"testing"

	"github.com/adaptive-assessment/backend/internal/models"
)

func calibration(correct bool, ability float64) models.CalibrationResponse {
	return models.CalibrationResponse{IsCorrect: correct, UserAbility: ability}
}

func TestUpdatePsychometricsDifficulty(t *testing.T) {
	item := standardItem(1, 0.5)
	batch := []models.CalibrationResponse{
		calibration(true, 1.0),
		calibration(true, 0.0),
		calibration(false, -1.0),
	}

	UpdatePsychometrics(&item, batch)

	want := float64(2) / float64(3)
	if math.Abs(item.Psychometrics.Difficulty-want) > 1e-12 {
		t.Errorf("difficulty = %f, want %f", item.Psychometrics.Difficulty, want)
	}
}

func TestUpdatePsychometricsEmptyBatch(t *testing.T) {
	item := standardItem(1, 0.4)
	item.Psychometrics.Discrimination = 0.8
	before := item.Psychometrics

	UpdatePsychometrics(&item, nil)

	if item.Psychometrics != before {
		t.Errorf("empty batch mutated psychometrics: %+v -> %+v", before, item.Psychometrics)
	}
}

func TestUpdatePsychometricsDiscriminationThirds(t *testing.T) {
	// n=4: top third is ceil(4/3)=2 responses, bottom third floor(4/3)=1.
	// Top performers both correct, bottom performer wrong → discrimination 1.
	item := standardItem(1, 0.5)
	batch := []models.CalibrationResponse{
		calibration(true, 3.0),
		calibration(true, 2.0),
		calibration(true, 1.0),
		calibration(false, 0.0),
	}

	UpdatePsychometrics(&item, batch)

	if item.Psychometrics.Discrimination != 1.0 {
		t.Errorf("discrimination = %f, want 1.0", item.Psychometrics.Discrimination)
	}
}

func TestUpdatePsychometricsDiscriminationOrderIndependent(t *testing.T) {
	// Responses are sorted by ability internally; input order must not
	// change the result.
	batch := []models.CalibrationResponse{
		calibration(false, 0.0),
		calibration(true, 2.0),
		calibration(true, 3.0),
		calibration(true, 1.0),
	}

	a := standardItem(1, 0.5)
	b := standardItem(2, 0.5)
	UpdatePsychometrics(&a, batch)
	shuffled := []models.CalibrationResponse{batch[2], batch[0], batch[3], batch[1]}
	UpdatePsychometrics(&b, shuffled)

	if a.Psychometrics.Discrimination != b.Psychometrics.Discrimination {
		t.Errorf("discrimination depends on input order: %f vs %f",
			a.Psychometrics.Discrimination, b.Psychometrics.Discrimination)
	}
}

func TestUpdatePsychometricsInvertedItemFloorsDiscrimination(t *testing.T) {
	// Only the lowest-ability examinees answered correctly. The raw thirds
	// gap would be -1; the result must floor at zero so the item still
	// satisfies the a >= 0 parameter invariant.
	item := standardItem(1, 0.5)
	batch := []models.CalibrationResponse{
		calibration(false, 3.0),
		calibration(false, 2.0),
		calibration(true, 1.0),
		calibration(true, 0.0),
	}

	UpdatePsychometrics(&item, batch)

	if item.Psychometrics.Discrimination != 0 {
		t.Errorf("discrimination = %f, want floored to 0", item.Psychometrics.Discrimination)
	}
	if err := item.Psychometrics.Validate(); err != nil {
		t.Errorf("recalibrated parameters rejected: %v", err)
	}

	// The estimator must still accept the recalibrated item.
	if _, err := EstimateAbility([]models.Response{response(1, true)}, []models.Item{item}); err != nil {
		t.Errorf("EstimateAbility rejected recalibrated item: %v", err)
	}
}

func TestUpdatePsychometricsSmallBatchKeepsDiscrimination(t *testing.T) {
	// With n < 3 the bottom partition is empty, so discrimination is left
	// unchanged while difficulty still updates.
	item := standardItem(1, 0.5)
	item.Psychometrics.Discrimination = 0.7
	batch := []models.CalibrationResponse{
		calibration(true, 1.0),
		calibration(false, -1.0),
	}

	UpdatePsychometrics(&item, batch)

	if item.Psychometrics.Discrimination != 0.7 {
		t.Errorf("discrimination = %f, want unchanged 0.7", item.Psychometrics.Discrimination)
	}
	if item.Psychometrics.Difficulty != 0.5 {
		t.Errorf("difficulty = %f, want 0.5", item.Psychometrics.Difficulty)
	}
}

func TestUpdateUsageStats(t *testing.T) {
	item := standardItem(1, 0)

	UpdateUsageStats(&item, true, 30)
	UpdateUsageStats(&item, false, 60)
	UpdateUsageStats(&item, true, 90)

	stats := item.UsageStats
	if stats.TimesUsed != 3 {
		t.Errorf("times used = %d, want 3", stats.TimesUsed)
	}
	if stats.CorrectAnswers != 2 {
		t.Errorf("correct answers = %d, want 2", stats.CorrectAnswers)
	}
	if math.Abs(stats.AverageTimeSpent-60) > 1e-9 {
		t.Errorf("average time = %f, want 60", stats.AverageTimeSpent)
	}
	if stats.LastUsed == nil {
		t.Error("last used not set")
	}
}
