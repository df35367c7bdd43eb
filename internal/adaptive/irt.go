// Package adaptive implements the adaptive-testing engine: ability
// estimation under the 3PL item response model, information-based item
// selection, stopping rules, and online item recalibration. Every function
// is a deterministic computation over its explicit inputs (random selection
// excepted) so the package is safe to use concurrently across sessions.
package adaptive

import (
	"fmt"
	"math"

	"github.com/adaptive-assessment/backend/internal/models"
)

// probEpsilon keeps response probabilities away from exactly 0 or 1 so the
// p(1-p) terms in the likelihood derivatives never divide by zero.
const probEpsilon = 1e-9

const (
	newtonTolerance = 0.001
	maxIterations   = 50

	// Theta is unbounded in theory; estimates are clipped to this range.
	thetaMin = -4.0
	thetaMax = 4.0
)

// ProbCorrect returns the probability of a correct response at ability
// theta under the 3PL model with upper asymptote:
//
//	P(theta) = c + (d-c) / (1 + exp(-a(theta-b)))
func ProbCorrect(theta float64, p models.Psychometrics) float64 {
	z := p.Discrimination * (theta - p.Difficulty)
	prob := p.Guessing + (p.UpperAsymptote-p.Guessing)/(1+math.Exp(-z))
	return clampProb(prob)
}

// FisherInformation returns the item information at ability theta:
//
//	I(theta) = a² (d-c)² / (P(theta)(1-P(theta)))
func FisherInformation(theta float64, p models.Psychometrics) float64 {
	prob := ProbCorrect(theta, p)
	pq := prob * (1 - prob)
	ac := p.UpperAsymptote - p.Guessing
	return p.Discrimination * p.Discrimination * ac * ac / pq
}

func clampProb(p float64) float64 {
	if p < probEpsilon {
		return probEpsilon
	}
	if p > 1-probEpsilon {
		return 1 - probEpsilon
	}
	return p
}

func clampTheta(theta float64) float64 {
	if theta < thetaMin {
		return thetaMin
	}
	if theta > thetaMax {
		return thetaMax
	}
	return theta
}

// validateItems fails fast on parameter-invariant violations so the
// estimator never produces silently wrong numerics.
func validateItems(items []models.Item) error {
	for i := range items {
		if err := items[i].Psychometrics.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", items[i].ID, err)
		}
	}
	return nil
}
