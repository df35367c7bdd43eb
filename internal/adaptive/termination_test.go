package adaptive

import (
	"testing"

	"github.com/adaptive-assessment/backend/internal/models"
)

func hasReason(d models.TerminationDecision, reason models.TerminationReason) bool {
	for _, r := range d.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

func TestDefaultTerminationCriteria(t *testing.T) {
	c := DefaultTerminationCriteria()
	if c.MaxQuestions != 50 || c.MinQuestions != 10 {
		t.Errorf("question bounds = (%d, %d), want (50, 10)", c.MaxQuestions, c.MinQuestions)
	}
	if c.StandardErrorThreshold != 0.3 {
		t.Errorf("SE threshold = %f, want 0.3", c.StandardErrorThreshold)
	}
	if c.ConfidenceThreshold != 0.95 {
		t.Errorf("confidence threshold = %f, want 0.95", c.ConfidenceThreshold)
	}
}

func TestMaxQuestionsAlwaysTerminates(t *testing.T) {
	// Zero-discrimination items keep SE at 1.0, so only the hard ceiling
	// can fire.
	const n = 50
	items := make([]models.Item, n)
	responses := make([]models.Response, n)
	for i := range items {
		items[i] = models.Item{
			ID:            int64(i + 1),
			Psychometrics: models.Psychometrics{Discrimination: 0, Difficulty: 0, Guessing: 0, UpperAsymptote: 1},
		}
		responses[i] = response(int64(i+1), i%2 == 0)
	}

	decision, err := EvaluateTermination(responses, items, DefaultTerminationCriteria())
	if err != nil {
		t.Fatalf("EvaluateTermination error: %v", err)
	}
	if !decision.ShouldTerminate {
		t.Error("expected termination at the max-questions ceiling")
	}
	if !hasReason(decision, models.ReasonMaxQuestionsReached) {
		t.Errorf("reasons = %v, want max_questions_reached", decision.Reasons)
	}
	if hasReason(decision, models.ReasonSufficientPrecision) {
		t.Errorf("reasons = %v, precision must not fire at SE 1.0", decision.Reasons)
	}
	if decision.NumQuestions != n {
		t.Errorf("num questions = %d, want %d", decision.NumQuestions, n)
	}
}

func TestMinQuestionsGatesPrecision(t *testing.T) {
	// Five highly informative responses: SE is tiny but the minimum-count
	// gate must hold precision back.
	items := make([]models.Item, 5)
	responses := make([]models.Response, 5)
	for i := range items {
		items[i] = standardItem(int64(i+1), 0)
		items[i].Psychometrics.Discrimination = 2.0
		responses[i] = response(int64(i+1), i%2 == 0)
	}

	criteria := DefaultTerminationCriteria()
	criteria.StandardErrorThreshold = 10.0 // any SE would qualify

	decision, err := EvaluateTermination(responses, items, criteria)
	if err != nil {
		t.Fatalf("EvaluateTermination error: %v", err)
	}
	if hasReason(decision, models.ReasonSufficientPrecision) {
		t.Error("sufficient_precision fired below the minimum question count")
	}
	if decision.ShouldTerminate {
		t.Errorf("decision = %+v, want continue", decision)
	}
}

func TestBothReasonsRecorded(t *testing.T) {
	// Ten balanced responses on standard items: theta ~0, SE ~0.158, so
	// with MaxQuestions=10 both criteria fire and both must be recorded.
	const n = 10
	items := make([]models.Item, n)
	responses := make([]models.Response, n)
	for i := range items {
		items[i] = standardItem(int64(i+1), 0)
		responses[i] = response(int64(i+1), i%2 == 0)
	}

	criteria := models.TerminationCriteria{
		MaxQuestions:           10,
		MinQuestions:           5,
		StandardErrorThreshold: 0.3,
	}

	decision, err := EvaluateTermination(responses, items, criteria)
	if err != nil {
		t.Fatalf("EvaluateTermination error: %v", err)
	}
	if !decision.ShouldTerminate {
		t.Fatal("expected termination")
	}
	if !hasReason(decision, models.ReasonMaxQuestionsReached) || !hasReason(decision, models.ReasonSufficientPrecision) {
		t.Errorf("reasons = %v, want both criteria recorded", decision.Reasons)
	}
}

func TestSufficientPrecisionCarriesEstimate(t *testing.T) {
	const n = 10
	items := make([]models.Item, n)
	responses := make([]models.Response, n)
	for i := range items {
		items[i] = standardItem(int64(i+1), 0)
		responses[i] = response(int64(i+1), i%2 == 0)
	}

	decision, err := EvaluateTermination(responses, items, DefaultTerminationCriteria())
	if err != nil {
		t.Fatalf("EvaluateTermination error: %v", err)
	}
	if !hasReason(decision, models.ReasonSufficientPrecision) {
		t.Fatalf("reasons = %v, want sufficient_precision", decision.Reasons)
	}
	if hasReason(decision, models.ReasonMaxQuestionsReached) {
		t.Errorf("reasons = %v, max ceiling must not fire at 10/50", decision.Reasons)
	}
	if decision.Ability.StandardError <= 0 || decision.Ability.StandardError > 0.3 {
		t.Errorf("decision SE = %f, want in (0, 0.3]", decision.Ability.StandardError)
	}
}

func TestEvaluateTerminationPropagatesContractErrors(t *testing.T) {
	items := []models.Item{standardItem(1, 0)}
	responses := []models.Response{response(1, true), response(2, false)}
	if _, err := EvaluateTermination(responses, items, DefaultTerminationCriteria()); err == nil {
		t.Error("expected length-mismatch error to propagate")
	}
}
