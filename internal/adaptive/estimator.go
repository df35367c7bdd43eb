package adaptive

import (
	"fmt"
	"math"

	"github.com/adaptive-assessment/backend/internal/models"
)

// EstimateAbility computes the maximum-likelihood ability estimate for an
// ordered response history via Newton-Raphson. Responses and items must
// match by position. With no responses it returns the neutral prior
// (theta 0, standard error 1.0) rather than an error.
func EstimateAbility(responses []models.Response, items []models.Item) (models.AbilityEstimate, error) {
	if len(responses) != len(items) {
		return models.AbilityEstimate{}, fmt.Errorf(
			"responses/items length mismatch: %d responses, %d items", len(responses), len(items))
	}
	if err := validateItems(items); err != nil {
		return models.AbilityEstimate{}, err
	}
	if len(responses) == 0 {
		return models.AbilityEstimate{Theta: 0.0, StandardError: 1.0}, nil
	}

	theta := 0.0
	for iter := 0; iter < maxIterations; iter++ {
		var first, second float64
		for i := range responses {
			psy := items[i].Psychometrics
			p := ProbCorrect(theta, psy)
			pq := p * (1 - p)
			ac := psy.UpperAsymptote - psy.Guessing

			r := 0.0
			if responses[i].IsCorrect {
				r = 1.0
			}

			first += psy.Discrimination * (r - p) * ac / pq
			second += -psy.Discrimination * psy.Discrimination * ac * ac / (pq * pq)
		}

		// Flat likelihood: no usable curvature, keep the current estimate.
		if math.Abs(second) < newtonTolerance {
			break
		}

		next := theta - first/second
		if math.Abs(next-theta) < newtonTolerance {
			break
		}
		theta = next
	}

	theta = clampTheta(theta)
	return models.AbilityEstimate{Theta: theta, StandardError: StandardError(theta, items)}, nil
}

// StandardError returns the uncertainty of an ability estimate at theta
// over the administered items: 1/sqrt(sum of item information). When the
// information sum is zero it returns 1.0 (maximal uncertainty) instead of
// dividing by zero.
func StandardError(theta float64, items []models.Item) float64 {
	var sum float64
	for i := range items {
		sum += FisherInformation(theta, items[i].Psychometrics)
	}
	if sum == 0 {
		return 1.0
	}
	return 1 / math.Sqrt(sum)
}
