package adaptive

import (
	"sort"
	"time"

	"github.com/adaptive-assessment/backend/internal/models"
)

// UpdatePsychometrics recalibrates an item's difficulty and discrimination
// from a batch of ability-tagged responses. Difficulty becomes the
// empirical proportion correct. Discrimination is the proportion-correct
// gap between the top and bottom ability thirds, floored at zero so the
// parameters stay valid. An empty batch is a no-op.
func UpdatePsychometrics(item *models.Item, responses []models.CalibrationResponse) {
	n := len(responses)
	if n == 0 {
		return
	}

	correct := 0
	for _, r := range responses {
		if r.IsCorrect {
			correct++
		}
	}
	item.Psychometrics.Difficulty = float64(correct) / float64(n)

	sorted := make([]models.CalibrationResponse, n)
	copy(sorted, responses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UserAbility > sorted[j].UserAbility
	})

	// Top third rounds up, bottom third rounds down; the partitions are
	// unequal whenever n is not a multiple of 3.
	topN := (n + 2) / 3
	botN := n / 3
	if topN > 0 && botN > 0 {
		topCorrect := countCorrect(sorted[:topN])
		botCorrect := countCorrect(sorted[n-botN:])
		discrimination := float64(topCorrect)/float64(topN) - float64(botCorrect)/float64(botN)
		// An inverted item (low-ability examinees outperforming high-ability
		// ones) would yield a negative value, violating the a >= 0 parameter
		// invariant. Floor at zero: the item carries no discriminating power.
		if discrimination < 0 {
			discrimination = 0
		}
		item.Psychometrics.Discrimination = discrimination
	}
}

func countCorrect(responses []models.CalibrationResponse) int {
	count := 0
	for _, r := range responses {
		if r.IsCorrect {
			count++
		}
	}
	return count
}

// UpdateUsageStats records a single administration against the item's
// usage counters, maintaining the running average of time spent.
func UpdateUsageStats(item *models.Item, isCorrect bool, timeSpent float64) {
	stats := &item.UsageStats
	stats.TimesUsed++
	if isCorrect {
		stats.CorrectAnswers++
	}

	total := stats.AverageTimeSpent*float64(stats.TimesUsed-1) + timeSpent
	stats.AverageTimeSpent = total / float64(stats.TimesUsed)

	now := time.Now()
	stats.LastUsed = &now
}
