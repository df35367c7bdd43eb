package models

import (
	"math"
	"testing"
)

func TestPsychometricsValidate(t *testing.T) {
	tests := []struct {
		name    string
		psy     Psychometrics
		wantErr bool
	}{
		{"defaults", Psychometrics{Discrimination: 0.5, Difficulty: 0.5, Guessing: 0.25, UpperAsymptote: 1.0}, false},
		{"zero discrimination", Psychometrics{Discrimination: 0, Guessing: 0.25, UpperAsymptote: 1.0}, false},
		{"negative discrimination", Psychometrics{Discrimination: -0.1, Guessing: 0.25, UpperAsymptote: 1.0}, true},
		{"guessing above one", Psychometrics{Discrimination: 1, Guessing: 1.1, UpperAsymptote: 1.0}, true},
		{"asymptote below guessing", Psychometrics{Discrimination: 1, Guessing: 0.5, UpperAsymptote: 0.4}, true},
		{"asymptote above one", Psychometrics{Discrimination: 1, Guessing: 0.25, UpperAsymptote: 1.2}, true},
		{"asymptote equals guessing", Psychometrics{Discrimination: 1, Guessing: 0.3, UpperAsymptote: 0.3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.psy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPsychometricsScoreRoundTrip(t *testing.T) {
	var psy Psychometrics
	psy.SetScore(65)
	if math.Abs(psy.Difficulty-0.65) > 1e-12 {
		t.Errorf("SetScore(65) difficulty = %g, want 0.65", psy.Difficulty)
	}
	if math.Abs(psy.Score()-65) > 1e-12 {
		t.Errorf("Score() = %g, want 65", psy.Score())
	}
}

func TestEffectivenessUnusedItemIsZero(t *testing.T) {
	item := Item{Psychometrics: Psychometrics{Discrimination: 1.0, Difficulty: 0.5}}
	if got := item.Effectiveness(); got != 0 {
		t.Errorf("Effectiveness() = %g, want 0 for unused item", got)
	}
}

func TestEffectivenessBlendsComponents(t *testing.T) {
	item := Item{
		Psychometrics: Psychometrics{Discrimination: 0.5, Difficulty: 0.5},
		UsageStats:    UsageStats{TimesUsed: 10, CorrectAnswers: 8},
	}
	// accuracy 0.8*0.4 + discrimination 0.5*0.4 + centered difficulty 1.0*0.2
	want := 72.0
	if got := item.Effectiveness(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Effectiveness() = %g, want %g", got, want)
	}
}

func TestAdaptiveDifficulty(t *testing.T) {
	unused := Item{
		DifficultyScore: 60,
		Psychometrics:   Psychometrics{Difficulty: 0.5},
	}
	// 60*0.4 + 50*0.4 + neutral 50*0.2
	if got := unused.AdaptiveDifficulty(); math.Abs(got-54) > 1e-9 {
		t.Errorf("AdaptiveDifficulty() = %g, want 54 for unused item", got)
	}

	used := Item{
		DifficultyScore: 60,
		Psychometrics:   Psychometrics{Difficulty: 0.5},
		UsageStats:      UsageStats{TimesUsed: 4, CorrectAnswers: 1},
	}
	// 60*0.4 + 50*0.4 + 25*0.2
	if got := used.AdaptiveDifficulty(); math.Abs(got-49) > 1e-9 {
		t.Errorf("AdaptiveDifficulty() = %g, want 49 for used item", got)
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		percentage float64
		want       Grade
	}{
		{95, GradeAPlus},
		{90, GradeAPlus},
		{85, GradeA},
		{77, GradeBPlus},
		{72, GradeB},
		{66, GradeCPlus},
		{60, GradeC},
		{55, GradeD},
		{40, GradeF},
		{0, GradeF},
	}

	for _, tt := range tests {
		if got := GradeFor(tt.percentage); got != tt.want {
			t.Errorf("GradeFor(%g) = %s, want %s", tt.percentage, got, tt.want)
		}
	}
}

func TestToServeItemStripsAnswers(t *testing.T) {
	item := Item{
		ID:           7,
		Subject:      "algebra",
		QuestionText: "Solve for x",
		Explanation:  "should not be served",
		Choices: []ItemChoice{
			{ChoiceID: "A", ChoiceText: "1", IsCorrect: false},
			{ChoiceID: "B", ChoiceText: "2", IsCorrect: true},
		},
	}

	serve := item.ToServeItem()
	if serve.ID != 7 || serve.QuestionText != "Solve for x" {
		t.Fatalf("ToServeItem() lost identity fields: %+v", serve)
	}
	if len(serve.Choices) != 2 {
		t.Fatalf("ToServeItem() choices = %d, want 2", len(serve.Choices))
	}
	for _, c := range serve.Choices {
		if c.ChoiceText == "" || c.ChoiceID == "" {
			t.Errorf("served choice missing fields: %+v", c)
		}
	}
}
