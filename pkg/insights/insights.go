// Package insights translates aggregated portfolio statistics into
// human-readable observations. It is a fixed, ordered rule table: no
// learning, no external calls, and the evaluation order determines the
// display order.
package insights

import (
	"fmt"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// Merge-speed thresholds, in hours.
const (
	fastMergeHours = 48
	slowMergeHours = 168
)

// Generate evaluates the rule table against the aggregated results and
// returns one insight per triggered condition. If nothing triggers, a single
// neutral "data loaded" insight is returned so the caller always has
// something to display.
func Generate(global models.GlobalSummary) []models.Insight {
	var out []models.Insight

	if global.HighRiskRepos > 0 {
		out = append(out, models.Insight{
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("%d repositories depend heavily on a single contributor", global.HighRiskRepos),
			Icon:     "⚠️",
		})
	}

	if global.BusFactor.Risk == models.RiskLow {
		out = append(out, models.Insight{
			Severity: models.SeveritySuccess,
			Message:  "Contributions are well distributed across maintainers",
			Icon:     "👥",
		})
	}

	switch global.Health.Grade {
	case models.GradeExcellent:
		out = append(out, models.Insight{
			Severity: models.SeveritySuccess,
			Message:  fmt.Sprintf("Overall portfolio health is excellent (%d/100)", global.Health.Score),
			Icon:     "💚",
		})
	case models.GradePoor:
		out = append(out, models.Insight{
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("Overall portfolio health is poor (%d/100)", global.Health.Score),
			Icon:     "🚨",
		})
	}

	avgMerge := global.Health.Metrics.AvgMergeTimeHours
	if avgMerge > 0 && avgMerge < fastMergeHours {
		out = append(out, models.Insight{
			Severity: models.SeveritySuccess,
			Message:  fmt.Sprintf("Pull requests merge quickly (avg %.1fh)", avgMerge),
			Icon:     "⚡",
		})
	} else if avgMerge > slowMergeHours {
		out = append(out, models.Insight{
			Severity: models.SeverityWarning,
			Message:  fmt.Sprintf("Pull requests take over a week to merge on average (%.1fh)", avgMerge),
			Icon:     "🐢",
		})
	}

	if global.TotalRepos > 0 {
		inactivePct := float64(global.InactiveRepos) / float64(global.TotalRepos) * 100
		if inactivePct > 50 {
			out = append(out, models.Insight{
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("More than half of the repositories are inactive (%d of %d)", global.InactiveRepos, global.TotalRepos),
				Icon:     "🧊",
			})
		} else if global.InactiveRepos > 0 {
			out = append(out, models.Insight{
				Severity: models.SeverityInfo,
				Message:  fmt.Sprintf("%d repositories have seen no commits in 90 days", global.InactiveRepos),
				Icon:     "💤",
			})
		}

		if float64(global.ActiveRepos)/float64(global.TotalRepos) > 0.7 {
			out = append(out, models.Insight{
				Severity: models.SeveritySuccess,
				Message:  "Most repositories are under active development",
				Icon:     "🔥",
			})
		}
	}

	if len(out) == 0 {
		out = append(out, models.Insight{
			Severity: models.SeverityInfo,
			Message:  "Repository data loaded",
			Icon:     "📊",
		})
	}

	return out
}
