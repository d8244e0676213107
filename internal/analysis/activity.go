package analysis

import (
	"math"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// DefaultLookbackWeeks is the activity-score window when no override is
// configured.
const DefaultLookbackWeeks = 12

// inactivityWindow is how far back a repository must show at least one
// commit to count as active.
const inactivityWindow = 90 * 24 * time.Hour

// ActivityScore normalizes recent average weekly commit volume into a 0-100
// score on a logarithmic scale. Only the last lookbackWeeks entries are
// considered and zero-commit weeks are discarded; an empty or all-zero
// series scores 0.
func ActivityScore(weekly []models.CommitActivityWeek, lookbackWeeks int) int {
	if lookbackWeeks <= 0 {
		lookbackWeeks = DefaultLookbackWeeks
	}
	if len(weekly) > lookbackWeeks {
		weekly = weekly[len(weekly)-lookbackWeeks:]
	}

	totalCommits := 0
	nonZeroWeeks := 0
	for _, w := range weekly {
		if w.Total > 0 {
			totalCommits += w.Total
			nonZeroWeeks++
		}
	}
	if nonZeroWeeks == 0 {
		return 0
	}

	avgPerWeek := float64(totalCommits) / float64(nonZeroWeeks)
	score := math.Log10(avgPerWeek+1) * 20
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// Inactive reports whether the weekly series shows no commits within the
// trailing 90 days of now. An empty series is inactive.
func Inactive(weekly []models.CommitActivityWeek, now time.Time) bool {
	cutoff := now.Add(-inactivityWindow)
	for _, w := range weekly {
		if w.Total > 0 && !w.Time().Before(cutoff) {
			return false
		}
	}
	return true
}
