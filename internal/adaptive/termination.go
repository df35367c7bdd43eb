package adaptive

import "github.com/adaptive-assessment/backend/internal/models"

// DefaultTerminationCriteria returns the standard stopping configuration.
// ConfidenceThreshold is reserved: no current criterion consumes it.
func DefaultTerminationCriteria() models.TerminationCriteria {
	return models.TerminationCriteria{
		MaxQuestions:           50,
		MinQuestions:           10,
		StandardErrorThreshold: 0.3,
		ConfidenceThreshold:    0.95,
	}
}

// EvaluateTermination applies the stopping rules to the response history.
// The two criteria are independent and both are always evaluated:
//
//  1. max_questions_reached: administered count >= MaxQuestions, enforced
//     regardless of precision.
//  2. sufficient_precision: administered count >= MinQuestions and the
//     standard error is at or below the threshold.
//
// All reasons that fired are recorded; the decision carries the triggering
// ability estimate and standard error for audit.
func EvaluateTermination(responses []models.Response, items []models.Item, criteria models.TerminationCriteria) (models.TerminationDecision, error) {
	estimate, err := EstimateAbility(responses, items)
	if err != nil {
		return models.TerminationDecision{}, err
	}

	decision := models.TerminationDecision{
		NumQuestions: len(responses),
		Ability:      estimate,
	}

	if len(responses) >= criteria.MaxQuestions {
		decision.Reasons = append(decision.Reasons, models.ReasonMaxQuestionsReached)
	}
	if len(responses) >= criteria.MinQuestions && estimate.StandardError <= criteria.StandardErrorThreshold {
		decision.Reasons = append(decision.Reasons, models.ReasonSufficientPrecision)
	}

	decision.ShouldTerminate = len(decision.Reasons) > 0
	return decision, nil
}
