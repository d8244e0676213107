package analysis

import (
	"sort"
	"strings"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// stressKeywords are case-insensitive substrings that mark a commit message
// as written under pressure.
var stressKeywords = []string{
	"fix", "hotfix", "urgent", "asap", "quick", "temp", "hack",
	"workaround", "emergency", "critical", "broken", "crash", "panic",
	"desperate", "rushed", "last minute",
}

// Stress indicator weights. A commit can trip all three; the sum is clamped
// to 1.0.
const (
	stressKeywordWeight   = 0.4
	stressFileSpikeWeight = 0.35
	stressNightWeight     = 0.25
)

// StressScore evaluates one commit against the sampled set's mean changed-file
// count and returns a 0.0-1.0 score:
//   - keyword match in the message
//   - file spike: changed files exceed twice the mean
//   - night aggressive: authored between 22:00 and 04:59 with an
//     above-mean file count
func StressScore(commit models.CommitSample, meanFiles float64) float64 {
	score := 0.0

	if hasStressKeyword(commit.Message) {
		score += stressKeywordWeight
	}
	if float64(commit.FilesChanged) > 2*meanFiles {
		score += stressFileSpikeWeight
	}
	if isNightHour(commit.AuthoredAt.Hour()) && float64(commit.FilesChanged) > meanFiles {
		score += stressNightWeight
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func hasStressKeyword(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range stressKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// isNightHour is the 22:00-04:59 window in the data's local timezone.
func isNightHour(hour int) bool {
	return hour >= 22 || hour < 5
}

// AnalyzeStress scores each sampled commit, averages the result, and derives
// the indicator breakdown and the week-over-week trend. Returns nil for an
// empty sample.
func AnalyzeStress(samples []models.CommitSample) *models.StressResult {
	if len(samples) == 0 {
		return nil
	}

	totalFiles := 0
	for _, s := range samples {
		totalFiles += s.FilesChanged
	}
	meanFiles := float64(totalFiles) / float64(len(samples))

	var sum float64
	var keywordHits, spikeHits, nightHits int
	scoresByWeek := make(map[int64][]float64)

	for _, s := range samples {
		score := StressScore(s, meanFiles)
		sum += score

		if hasStressKeyword(s.Message) {
			keywordHits++
		}
		if float64(s.FilesChanged) > 2*meanFiles {
			spikeHits++
		}
		if isNightHour(s.AuthoredAt.Hour()) && float64(s.FilesChanged) > meanFiles {
			nightHits++
		}

		week := weekStart(s.AuthoredAt)
		scoresByWeek[week] = append(scoresByWeek[week], score)
	}

	n := float64(len(samples))

	return &models.StressResult{
		Score:        sum / n,
		CommitCount:  len(samples),
		TrendPercent: stressTrend(scoresByWeek),
		Breakdown: models.StressBreakdown{
			KeywordPct:   float64(keywordHits) / n * 100,
			FileSpikePct: float64(spikeHits) / n * 100,
			NightPct:     float64(nightHits) / n * 100,
		},
	}
}

// stressTrend compares the mean stress of the two most recent weekly buckets
// against the two before them, as a percent change. With fewer than four
// buckets there is no full baseline window, so the trend is flat; likewise
// for a zero baseline.
func stressTrend(scoresByWeek map[int64][]float64) float64 {
	if len(scoresByWeek) < 4 {
		return 0
	}

	weeks := make([]int64, 0, len(scoresByWeek))
	for w := range scoresByWeek {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i] > weeks[j] })

	recent := bucketMean(scoresByWeek, weeks[:2])
	previous := bucketMean(scoresByWeek, weeks[2:4])
	if previous == 0 {
		return 0
	}
	return (recent - previous) / previous * 100
}

func bucketMean(scoresByWeek map[int64][]float64, weeks []int64) float64 {
	var sum float64
	count := 0
	for _, w := range weeks {
		for _, s := range scoresByWeek[w] {
			sum += s
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// weekStart truncates a timestamp to its week boundary (Sunday, UTC),
// matching the commit-activity week keys.
func weekStart(t time.Time) int64 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -int(midnight.Weekday())).Unix()
}
