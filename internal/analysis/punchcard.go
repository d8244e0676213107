package analysis

import (
	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// BuildPunchCard folds sampled commits into a day-of-week by hour-of-day
// commit-count matrix, used to infer working-hours patterns.
func BuildPunchCard(samples []models.CommitSample) models.PunchCard {
	var card models.PunchCard
	for _, s := range samples {
		day := int(s.AuthoredAt.Weekday())
		hour := s.AuthoredAt.Hour()
		card[day][hour]++
	}
	return card
}

// MergePunchCards sums multiple punch cards into one portfolio-level card.
func MergePunchCards(cards []models.PunchCard) models.PunchCard {
	var merged models.PunchCard
	for _, c := range cards {
		for d := range c {
			for h := range c[d] {
				merged[d][h] += c[d][h]
			}
		}
	}
	return merged
}
