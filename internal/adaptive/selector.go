package adaptive

import (
	"math"
	"math/rand"
	"time"

	"github.com/adaptive-assessment/backend/internal/models"
)

// rng backs the random-selection fallback. That strategy is explicitly
// non-deterministic and excluded from reproducibility guarantees.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// SelectNextItem picks the next item to administer from the pool, skipping
// already-administered ids. Returns nil when no candidate remains; an
// exhausted pool is absence, not an error.
//
// maximum_information and closest_difficulty are deterministic: pool order
// is preserved and ties keep the first item encountered. For
// closest_difficulty the ability argument is compared on the item
// difficulty_score scale. Any other strategy value falls back to uniform
// random selection.
func SelectNextItem(ability float64, pool []models.Item, administered map[int64]bool, strategy models.SelectionStrategy) *models.Item {
	var candidates []*models.Item
	for i := range pool {
		if !administered[pool[i].ID] {
			candidates = append(candidates, &pool[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	switch strategy {
	case models.StrategyMaximumInformation:
		var best *models.Item
		maxInfo := 0.0
		for _, item := range candidates {
			info := FisherInformation(ability, item.Psychometrics)
			if info > maxInfo {
				maxInfo = info
				best = item
			}
		}
		return best

	case models.StrategyClosestDifficulty:
		var best *models.Item
		minDist := math.Inf(1)
		for _, item := range candidates {
			dist := math.Abs(item.DifficultyScore - ability)
			if dist < minDist {
				minDist = dist
				best = item
			}
		}
		return best

	default:
		return candidates[rng.Intn(len(candidates))]
	}
}
