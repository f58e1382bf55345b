// Package rating turns a player's lifetime record into a single rating.
package rating

import (
	"math"

	"github.com/Luka-CB/card-game-server/internal/models"
)

// Points awarded per finishing place, first to fourth.
var placementPoints = [4]float64{1.5, 0.5, 0, -0.5}

const (
	winRateWeight  = 2.0
	abandonPenalty = -0.3
	unfinishedCost = -0.5
)

// Calculate rates stats:
//
//   - placement points for every finished match,
//   - twice the win rate, where top-two finishes count for and last places against,
//   - a penalty per abandoned match and per match that never finished.
//
// The result is rounded to one decimal.
func Calculate(stats models.UserStats) float64 {
	var rating float64
	f := stats.GamesFinished
	finished := f.Total()

	if finished > 0 {
		rating += float64(f.First)*placementPoints[0] +
			float64(f.Second)*placementPoints[1] +
			float64(f.Third)*placementPoints[2] +
			float64(f.Fourth)*placementPoints[3]

		winRate := float64(f.First+f.Second-f.Fourth) / float64(finished)
		rating += winRate * winRateWeight
	}

	if stats.GamesLeft > 0 {
		rating += float64(stats.GamesLeft) * abandonPenalty
	}

	if unfinished := stats.GamesPlayed - finished; stats.GamesPlayed > 0 && unfinished > 0 {
		rating += float64(unfinished) * unfinishedCost
	}

	return math.Round(rating*10) / 10
}

// Finish records a finished match at place and re-rates.
func Finish(stats models.UserStats, place int) models.UserStats {
	stats.GamesPlayed++
	stats.GamesFinished.Add(place)
	stats.Rating = Calculate(stats)
	return stats
}

// Leave records a match the player walked out of and re-rates.
func Leave(stats models.UserStats) models.UserStats {
	stats.GamesPlayed++
	stats.GamesLeft++
	stats.Rating = Calculate(stats)
	return stats
}
