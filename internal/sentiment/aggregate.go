package sentiment

import (
	"math"
	"math/rand"
	"time"

	"github.com/azure/brand-pulse/internal/models"
)

// Aggregate summarizes a set of scored results
type Aggregate struct {
	Score    float64
	Total    int
	Positive int
	Neutral  int
	Negative int
}

// CalculateAggregate averages the scores and tallies labels.
// Empty input yields a zero score.
func CalculateAggregate(results []models.SentimentResult) Aggregate {
	agg := Aggregate{Total: len(results)}
	if len(results) == 0 {
		return agg
	}

	var sum float64
	for _, r := range results {
		sum += r.Score
		switch r.Label {
		case models.SentimentPositive:
			agg.Positive++
		case models.SentimentNegative:
			agg.Negative++
		default:
			agg.Neutral++
		}
	}
	agg.Score = sum / float64(len(results))
	return agg
}

// GenerateHistory synthesizes an hourly trend of the given length ending at
// now. Older points carry more independent randomness; the newest point is
// currentScore itself. All scores are clamped to [-100, 100].
// The output is a deterministic function of its inputs for a seeded rng.
func GenerateHistory(currentScore float64, hours int, rng *rand.Rand, now time.Time) []models.HistoryPoint {
	if hours <= 0 {
		return []models.HistoryPoint{}
	}

	points := make([]models.HistoryPoint, 0, hours)
	for j := 0; j < hours; j++ {
		age := hours - 1 - j
		weight := float64(age) / float64(hours)

		independent := currentScore + (rng.Float64()*2-1)*50
		noise := (rng.Float64()*2 - 1) * 30 * weight
		score := currentScore*(1-weight) + independent*weight + noise

		points = append(points, models.HistoryPoint{
			Timestamp: now.Add(-time.Duration(age) * time.Hour),
			Score:     math.Round(Clamp(score)*100) / 100,
		})
	}
	return points
}
