package analysis

import (
	"math"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// HealthScore computes the composite 0-100 health score for one repository
// from its issue and pull-request records. Issues must already be true
// issues; pull requests returned through the issues endpoint are split out
// at the ingestion boundary.
//
// A repository with zero issues (or zero pull requests) earns the full
// sub-score for that axis rather than zero, so brand-new or archived repos
// are not penalized for having no backlog.
func HealthScore(issues []models.IssueRecord, pulls []models.PullRequestRecord) models.HealthScoreResult {
	totalIssues := len(issues)
	closedIssues := 0
	for _, is := range issues {
		if is.State == "closed" {
			closedIssues++
		}
	}

	totalPRs := len(pulls)
	mergedPRs := 0
	var mergeHoursSum float64
	mergedWithTimes := 0
	for _, pr := range pulls {
		if !pr.Merged() {
			continue
		}
		mergedPRs++
		if !pr.CreatedAt.IsZero() {
			mergeHoursSum += pr.MergedAt.Sub(pr.CreatedAt).Hours()
			mergedWithTimes++
		}
	}

	issueResolution := 40.0
	if totalIssues > 0 {
		issueResolution = float64(closedIssues) / float64(totalIssues) * 40
	}

	prMergeRate := 40.0
	if totalPRs > 0 {
		prMergeRate = float64(mergedPRs) / float64(totalPRs) * 40
	}

	avgMergeTimeHours := 0.0
	if mergedWithTimes > 0 {
		avgMergeTimeHours = mergeHoursSum / float64(mergedWithTimes)
	}

	prSpeed := 0.0
	if avgMergeTimeHours > 0 && avgMergeTimeHours < 48 {
		prSpeed = 20
	}

	score := int(math.Round(issueResolution + prMergeRate + prSpeed))

	return models.HealthScoreResult{
		Score: score,
		Grade: gradeFor(score),
		Breakdown: models.HealthBreakdown{
			IssueResolution: issueResolution,
			PRMergeRate:     prMergeRate,
			PRSpeed:         prSpeed,
		},
		Metrics: models.HealthMetrics{
			TotalIssues:       totalIssues,
			ClosedIssues:      closedIssues,
			TotalPRs:          totalPRs,
			MergedPRs:         mergedPRs,
			AvgMergeTimeHours: avgMergeTimeHours,
		},
	}
}

// AverageHealthScore aggregates per-repository health results: scores and
// sub-scores are averaged, counts are summed, and the merge time is an
// average of the per-repo averages (not weighted by PR count).
//
// Empty input yields score 0 / POOR. This is the opposite default from the
// per-repo calculator, which is optimistic on missing data; the asymmetry
// is intentional parity with the observed behavior and is pinned by a test.
func AverageHealthScore(results []models.HealthScoreResult) models.HealthScoreResult {
	if len(results) == 0 {
		return models.HealthScoreResult{Score: 0, Grade: models.GradePoor}
	}

	var sumScore, sumIssueRes, sumMergeRate, sumSpeed, sumAvgMerge float64
	var metrics models.HealthMetrics

	for _, r := range results {
		sumScore += float64(r.Score)
		sumIssueRes += r.Breakdown.IssueResolution
		sumMergeRate += r.Breakdown.PRMergeRate
		sumSpeed += r.Breakdown.PRSpeed
		sumAvgMerge += r.Metrics.AvgMergeTimeHours
		metrics.TotalIssues += r.Metrics.TotalIssues
		metrics.ClosedIssues += r.Metrics.ClosedIssues
		metrics.TotalPRs += r.Metrics.TotalPRs
		metrics.MergedPRs += r.Metrics.MergedPRs
	}

	n := float64(len(results))
	score := int(math.Round(sumScore / n))
	metrics.AvgMergeTimeHours = sumAvgMerge / n

	return models.HealthScoreResult{
		Score: score,
		Grade: gradeFor(score),
		Breakdown: models.HealthBreakdown{
			IssueResolution: sumIssueRes / n,
			PRMergeRate:     sumMergeRate / n,
			PRSpeed:         sumSpeed / n,
		},
		Metrics: metrics,
	}
}

func gradeFor(score int) models.HealthGrade {
	switch {
	case score >= 80:
		return models.GradeExcellent
	case score >= 60:
		return models.GradeGood
	case score >= 40:
		return models.GradeFair
	default:
		return models.GradePoor
	}
}
