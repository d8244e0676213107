package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

func closedIssue(daysAgo int) models.IssueRecord {
	created := time.Now().AddDate(0, 0, -daysAgo)
	closed := created.Add(24 * time.Hour)
	return models.IssueRecord{State: "closed", CreatedAt: created, ClosedAt: &closed}
}

func openIssue(daysAgo int) models.IssueRecord {
	return models.IssueRecord{State: "open", CreatedAt: time.Now().AddDate(0, 0, -daysAgo)}
}

func mergedPR(mergeHours float64) models.PullRequestRecord {
	created := time.Now().Add(-30 * 24 * time.Hour)
	merged := created.Add(time.Duration(mergeHours * float64(time.Hour)))
	return models.PullRequestRecord{State: "closed", CreatedAt: created, ClosedAt: &merged, MergedAt: &merged}
}

func openPR() models.PullRequestRecord {
	return models.PullRequestRecord{State: "open", CreatedAt: time.Now().Add(-24 * time.Hour)}
}

func TestHealthScoreNoData(t *testing.T) {
	got := HealthScore(nil, nil)

	// Zero denominators earn the full sub-score, not zero.
	if got.Breakdown.IssueResolution != 40 {
		t.Errorf("issueResolution = %f, want 40", got.Breakdown.IssueResolution)
	}
	if got.Breakdown.PRMergeRate != 40 {
		t.Errorf("prMergeRate = %f, want 40", got.Breakdown.PRMergeRate)
	}
	if got.Breakdown.PRSpeed != 0 {
		t.Errorf("prSpeed = %f, want 0", got.Breakdown.PRSpeed)
	}
	if got.Score != 80 || got.Grade != models.GradeExcellent {
		t.Errorf("score/grade = %d/%s, want 80/EXCELLENT", got.Score, got.Grade)
	}
}

func TestHealthScoreScenario(t *testing.T) {
	// 10 issues with 8 closed, 5 PRs with 4 merged averaging 20h.
	var issues []models.IssueRecord
	for i := 0; i < 8; i++ {
		issues = append(issues, closedIssue(i+2))
	}
	issues = append(issues, openIssue(1), openIssue(3))

	pulls := []models.PullRequestRecord{
		mergedPR(10), mergedPR(20), mergedPR(25), mergedPR(25), openPR(),
	}

	got := HealthScore(issues, pulls)

	if math.Abs(got.Breakdown.IssueResolution-32) > 1e-9 {
		t.Errorf("issueResolution = %f, want 32", got.Breakdown.IssueResolution)
	}
	if math.Abs(got.Breakdown.PRMergeRate-32) > 1e-9 {
		t.Errorf("prMergeRate = %f, want 32", got.Breakdown.PRMergeRate)
	}
	if got.Breakdown.PRSpeed != 20 {
		t.Errorf("prSpeed = %f, want 20 (avg merge 20h < 48h)", got.Breakdown.PRSpeed)
	}
	if got.Score != 84 {
		t.Errorf("score = %d, want 84", got.Score)
	}
	if got.Grade != models.GradeExcellent {
		t.Errorf("grade = %s, want EXCELLENT", got.Grade)
	}
	if got.Metrics.MergedPRs != 4 || got.Metrics.TotalPRs != 5 {
		t.Errorf("merged/total PRs = %d/%d, want 4/5", got.Metrics.MergedPRs, got.Metrics.TotalPRs)
	}
	if math.Abs(got.Metrics.AvgMergeTimeHours-20) > 1e-9 {
		t.Errorf("avgMergeTimeHours = %f, want 20", got.Metrics.AvgMergeTimeHours)
	}
}

func TestHealthScoreSlowMerges(t *testing.T) {
	pulls := []models.PullRequestRecord{mergedPR(100), mergedPR(200)}
	got := HealthScore(nil, pulls)
	if got.Breakdown.PRSpeed != 0 {
		t.Errorf("prSpeed = %f, want 0 for avg merge >= 48h", got.Breakdown.PRSpeed)
	}
}

func TestGradeThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  models.HealthGrade
	}{
		{100, models.GradeExcellent},
		{80, models.GradeExcellent},
		{79, models.GradeGood},
		{60, models.GradeGood},
		{59, models.GradeFair},
		{40, models.GradeFair},
		{39, models.GradePoor},
		{0, models.GradePoor},
	}
	for _, tt := range tests {
		if got := gradeFor(tt.score); got != tt.want {
			t.Errorf("gradeFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

// The average over an empty set yields POOR/0, the opposite default from the
// per-repo calculator, which treats missing data optimistically. Parity with
// the source behavior, pinned here on purpose.
func TestAverageHealthScoreEmpty(t *testing.T) {
	got := AverageHealthScore(nil)
	if got.Score != 0 {
		t.Errorf("score = %d, want 0", got.Score)
	}
	if got.Grade != models.GradePoor {
		t.Errorf("grade = %s, want POOR", got.Grade)
	}
	if got.Metrics != (models.HealthMetrics{}) {
		t.Errorf("metrics = %+v, want all-zero", got.Metrics)
	}
}

func TestAverageHealthScore(t *testing.T) {
	results := []models.HealthScoreResult{
		{
			Score:     80,
			Grade:     models.GradeExcellent,
			Breakdown: models.HealthBreakdown{IssueResolution: 40, PRMergeRate: 20, PRSpeed: 20},
			Metrics:   models.HealthMetrics{TotalIssues: 10, ClosedIssues: 10, TotalPRs: 4, MergedPRs: 2, AvgMergeTimeHours: 10},
		},
		{
			Score:     40,
			Grade:     models.GradeFair,
			Breakdown: models.HealthBreakdown{IssueResolution: 20, PRMergeRate: 20, PRSpeed: 0},
			Metrics:   models.HealthMetrics{TotalIssues: 6, ClosedIssues: 3, TotalPRs: 6, MergedPRs: 3, AvgMergeTimeHours: 30},
		},
	}

	got := AverageHealthScore(results)

	if got.Score != 60 {
		t.Errorf("score = %d, want 60", got.Score)
	}
	if got.Grade != models.GradeGood {
		t.Errorf("grade = %s, want GOOD (recomputed from averaged score)", got.Grade)
	}
	if got.Metrics.TotalIssues != 16 || got.Metrics.TotalPRs != 10 {
		t.Errorf("counts must be summed, got %+v", got.Metrics)
	}
	if math.Abs(got.Metrics.AvgMergeTimeHours-20) > 1e-9 {
		t.Errorf("avg merge time = %f, want 20 (average of per-repo averages)", got.Metrics.AvgMergeTimeHours)
	}
	if math.Abs(got.Breakdown.IssueResolution-30) > 1e-9 {
		t.Errorf("issueResolution = %f, want 30", got.Breakdown.IssueResolution)
	}
}
