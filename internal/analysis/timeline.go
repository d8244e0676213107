package analysis

import (
	"sort"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// RepoWeeklySeries pairs a repository with its weekly commit activity.
type RepoWeeklySeries struct {
	Repo   string // owner/name
	Weekly []models.CommitActivityWeek
}

// AggregateTimeline merges per-repository weekly series into a unified
// commit timeline keyed by week (milliseconds since epoch). Totals are
// summed across repositories; a repository contributes to a week only when
// it has commits in it. Output is sorted ascending by week.
func AggregateTimeline(series []RepoWeeklySeries) []models.CommitTimelineEntry {
	byWeek := make(map[int64]*models.CommitTimelineEntry)

	for _, s := range series {
		for _, w := range s.Weekly {
			if w.Total == 0 {
				continue
			}
			key := w.Week * 1000
			entry, ok := byWeek[key]
			if !ok {
				entry = &models.CommitTimelineEntry{Week: key}
				byWeek[key] = entry
			}
			entry.Total += w.Total
			entry.RepoCount++
			entry.Repos = append(entry.Repos, models.RepoWeekCount{
				Repo:  s.Repo,
				Count: w.Total,
			})
		}
	}

	timeline := make([]models.CommitTimelineEntry, 0, len(byWeek))
	for _, e := range byWeek {
		timeline = append(timeline, *e)
	}
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Week < timeline[j].Week
	})
	return timeline
}
