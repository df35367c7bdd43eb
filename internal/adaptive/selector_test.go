package adaptive

import (
	"testing"

	"github.com/adaptive-assessment/backend/internal/models"
)

func TestSelectNextItemEmptyPool(t *testing.T) {
	if got := SelectNextItem(0, nil, nil, models.StrategyMaximumInformation); got != nil {
		t.Errorf("empty pool returned item %d, want nil", got.ID)
	}
}

func TestSelectNextItemExhaustedPool(t *testing.T) {
	pool := []models.Item{standardItem(1, 0), standardItem(2, 1)}
	administered := map[int64]bool{1: true, 2: true}
	if got := SelectNextItem(0, pool, administered, models.StrategyMaximumInformation); got != nil {
		t.Errorf("fully administered pool returned item %d, want nil", got.ID)
	}
}

func TestSelectNextItemFiltersByID(t *testing.T) {
	// Filtering is by identifier, not content: two identical items where
	// only one was administered must still yield the other.
	a := standardItem(1, 0)
	b := standardItem(2, 0)
	pool := []models.Item{a, b}

	got := SelectNextItem(0, pool, map[int64]bool{1: true}, models.StrategyMaximumInformation)
	if got == nil || got.ID != 2 {
		t.Fatalf("got %v, want item 2", got)
	}
}

func TestSelectMaximumInformationPrefersDiscrimination(t *testing.T) {
	// At theta = b every standard-shape item is a coin flip, so information
	// reduces to 4a² and the sharper item must win.
	blunt := standardItem(1, 0)
	blunt.Psychometrics.Discrimination = 0.5
	sharp := standardItem(2, 0)
	sharp.Psychometrics.Discrimination = 1.5

	got := SelectNextItem(0, []models.Item{blunt, sharp}, nil, models.StrategyMaximumInformation)
	if got == nil || got.ID != 2 {
		t.Fatalf("got %v, want the higher-discrimination item 2", got)
	}
}

func TestSelectMaximumInformationTieBreak(t *testing.T) {
	// Equal information: the first item in pool order wins. Pool order must
	// be preserved for reproducibility.
	pool := []models.Item{standardItem(10, 0), standardItem(11, 0), standardItem(12, 0)}
	got := SelectNextItem(0, pool, nil, models.StrategyMaximumInformation)
	if got == nil || got.ID != 10 {
		t.Fatalf("got %v, want first-encountered item 10", got)
	}
}

func TestSelectMaximumInformationDeterministic(t *testing.T) {
	pool := []models.Item{standardItem(1, -2), standardItem(2, 0), standardItem(3, 2)}
	first := SelectNextItem(0.7, pool, nil, models.StrategyMaximumInformation)
	for i := 0; i < 10; i++ {
		got := SelectNextItem(0.7, pool, nil, models.StrategyMaximumInformation)
		if got == nil || first == nil || got.ID != first.ID {
			t.Fatalf("selection not deterministic: got %v then %v", first, got)
		}
	}
}

func TestSelectClosestDifficulty(t *testing.T) {
	pool := make([]models.Item, 3)
	for i, score := range []float64{30, 50, 70} {
		pool[i] = standardItem(int64(i+1), 0)
		pool[i].DifficultyScore = score
	}

	got := SelectNextItem(48, pool, nil, models.StrategyClosestDifficulty)
	if got == nil || got.ID != 2 {
		t.Fatalf("got %v, want item 2 (score 50, closest to 48)", got)
	}

	// Exact tie: equidistant scores keep the first encountered.
	got = SelectNextItem(40, pool, nil, models.StrategyClosestDifficulty)
	if got == nil || got.ID != 1 {
		t.Fatalf("got %v, want first-encountered item 1 on tie", got)
	}
}

func TestSelectRandomReturnsCandidate(t *testing.T) {
	pool := []models.Item{standardItem(1, 0), standardItem(2, 0), standardItem(3, 0)}
	administered := map[int64]bool{2: true}

	for i := 0; i < 25; i++ {
		got := SelectNextItem(0, pool, administered, models.StrategyRandom)
		if got == nil {
			t.Fatal("random strategy returned nil for non-empty pool")
		}
		if got.ID == 2 {
			t.Fatal("random strategy returned an administered item")
		}
		if got.ID != 1 && got.ID != 3 {
			t.Fatalf("random strategy returned item %d not in pool", got.ID)
		}
	}
}
