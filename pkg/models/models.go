package models

import (
	"time"
)

// UserProfile is the subset of a GitHub user profile the pipeline cares about.
type UserProfile struct {
	Login       string `json:"login"`
	Name        string `json:"name,omitempty"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
}

// RepositoryHandle identifies one repository plus the metadata the pipeline
// and filters need. Immutable once fetched; refreshed only by re-fetching.
type RepositoryHandle struct {
	Owner         string    `json:"owner"`
	Name          string    `json:"name"`
	FullName      string    `json:"full_name"` // owner/name
	DefaultBranch string    `json:"default_branch"`
	Private       bool      `json:"private"`
	Fork          bool      `json:"fork"`
	Archived      bool      `json:"archived"`
	Parent        string    `json:"parent,omitempty"` // owner/name of the parent, forks only
	Language      string    `json:"language,omitempty"`
	Topics        []string  `json:"topics,omitempty"`
	Stars         int       `json:"stars"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Contributor is one contributor's cumulative contribution count for a single
// repository. The GitHub API returns these sorted descending by contributions,
// but calculators must not rely on that ordering.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// CommitActivityWeek is one week of commit activity for one repository.
// Week is the week start in seconds since epoch, truncated to the week boundary.
type CommitActivityWeek struct {
	Week  int64 `json:"week"`
	Total int   `json:"total"`
}

// Time returns the week start as a time.Time.
func (w CommitActivityWeek) Time() time.Time {
	return time.Unix(w.Week, 0).UTC()
}

// IssueRecord is a true issue (pull requests are split out at ingestion).
type IssueRecord struct {
	State     string     `json:"state"` // open or closed
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// PullRequestRecord is a pull request with the timestamps the health
// calculator needs.
type PullRequestRecord struct {
	State     string     `json:"state"` // open or closed
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
}

// Merged reports whether the pull request was merged.
func (p PullRequestRecord) Merged() bool {
	return p.MergedAt != nil
}

// CommitSample is a sampled commit with the detail the stress calculator
// needs: message, changed-file count, and author timestamp.
type CommitSample struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	FilesChanged int       `json:"files_changed"`
	AuthoredAt   time.Time `json:"authored_at"`
}

// RiskLevel classifies bus-factor risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// BusFactorResult is the bus-factor assessment for one repository, or the
// aggregated global assessment (TopContributor is empty at the global level).
type BusFactorResult struct {
	Risk                RiskLevel `json:"risk"`
	TopContributorRatio float64   `json:"top_contributor_ratio"` // 0..1
	TopContributor      string    `json:"top_contributor,omitempty"`
	TotalContributors   int       `json:"total_contributors"`
	Score               float64   `json:"score"` // 0..100, higher = healthier
}

// HealthGrade classifies a health score.
type HealthGrade string

const (
	GradeExcellent HealthGrade = "EXCELLENT"
	GradeGood      HealthGrade = "GOOD"
	GradeFair      HealthGrade = "FAIR"
	GradePoor      HealthGrade = "POOR"
)

// HealthBreakdown is the sub-score decomposition of a health score.
type HealthBreakdown struct {
	IssueResolution float64 `json:"issue_resolution"` // 0..40
	PRMergeRate     float64 `json:"pr_merge_rate"`    // 0..40
	PRSpeed         float64 `json:"pr_speed"`         // 0 or 20
}

// HealthMetrics are the raw counts behind a health score.
type HealthMetrics struct {
	TotalIssues       int     `json:"total_issues"`
	ClosedIssues      int     `json:"closed_issues"`
	TotalPRs          int     `json:"total_prs"`
	MergedPRs         int     `json:"merged_prs"`
	AvgMergeTimeHours float64 `json:"avg_merge_time_hours"`
}

// HealthScoreResult is the composite health assessment for one repository,
// or the averaged global assessment.
type HealthScoreResult struct {
	Score     int             `json:"score"` // 0..100
	Grade     HealthGrade     `json:"grade"`
	Breakdown HealthBreakdown `json:"breakdown"`
	Metrics   HealthMetrics   `json:"metrics"`
}

// RepoWeekCount is one repository's share of a timeline week.
type RepoWeekCount struct {
	Repo  string `json:"repo"` // owner/name
	Count int    `json:"count"`
}

// CommitTimelineEntry is one calendar week of the unified commit timeline.
// Week is the week start in milliseconds since epoch.
type CommitTimelineEntry struct {
	Week      int64           `json:"week"`
	Total     int             `json:"total"`
	RepoCount int             `json:"repo_count"`
	Repos     []RepoWeekCount `json:"repos,omitempty"`
}

// StressBreakdown is the share of sampled commits tripping each stress
// indicator, as percentages.
type StressBreakdown struct {
	KeywordPct   float64 `json:"keyword_pct"`
	FileSpikePct float64 `json:"file_spike_pct"`
	NightPct     float64 `json:"night_pct"`
}

// StressResult summarizes commit stress over a sampled commit set.
type StressResult struct {
	Score        float64         `json:"score"` // 0..1 average per-commit score
	CommitCount  int             `json:"commit_count"`
	TrendPercent float64         `json:"trend_percent"` // recent two weeks vs the two before
	Breakdown    StressBreakdown `json:"breakdown"`
}

// PunchCard is a day-of-week (Sunday=0) by hour-of-day commit-count matrix.
type PunchCard [7][24]int

// Total returns the total commit count in the punch card.
func (p *PunchCard) Total() int {
	sum := 0
	for d := range p {
		for h := range p[d] {
			sum += p[d][h]
		}
	}
	return sum
}

// Peak returns the busiest day/hour cell and its commit count.
func (p *PunchCard) Peak() (day, hour, count int) {
	for d := range p {
		for h := range p[d] {
			if p[d][h] > count {
				day, hour, count = d, h, p[d][h]
			}
		}
	}
	return day, hour, count
}

// FacetError records a per-repository fetch failure that was isolated rather
// than aborting the run. The affected facet fell back to an empty collection.
type FacetError struct {
	Facet string `json:"facet"` // contributors, commit_activity, issues, pulls, commits
	Error string `json:"error"`
}

// RepoAnalysis bundles every per-repository result.
type RepoAnalysis struct {
	Repo          RepositoryHandle     `json:"repo"`
	BusFactor     BusFactorResult      `json:"bus_factor"`
	Health        HealthScoreResult    `json:"health"`
	ActivityScore int                  `json:"activity_score"` // 0..100
	Inactive      bool                 `json:"inactive"`
	Languages     map[string]int       `json:"languages,omitempty"` // bytes per language
	Stress        *StressResult        `json:"stress,omitempty"`
	PunchCard     *PunchCard           `json:"punch_card,omitempty"`
	Weekly        []CommitActivityWeek `json:"weekly,omitempty"`
	Errors        []FacetError         `json:"errors,omitempty"`
}

// GlobalSummary holds cross-repository aggregates.
type GlobalSummary struct {
	TotalRepos    int                   `json:"total_repos"`
	ActiveRepos   int                   `json:"active_repos"`
	InactiveRepos int                   `json:"inactive_repos"`
	HighRiskRepos int                   `json:"high_risk_repos"`
	BusFactor     BusFactorResult       `json:"bus_factor"`
	Health        HealthScoreResult     `json:"health"`
	Timeline      []CommitTimelineEntry `json:"timeline,omitempty"`
	PunchCard     *PunchCard            `json:"punch_card,omitempty"`
}

// Severity tags an insight.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Insight is one human-readable observation derived from the aggregates.
// Generated fresh on every run; never persisted.
type Insight struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Icon     string   `json:"icon"`
}

// ReportMeta contains metadata about the execution of the CLI.
type ReportMeta struct {
	GeneratedAt time.Time `json:"generated_at"`
	CLIVersion  string    `json:"cli_version"`
	Command     string    `json:"command"`
	Duration    string    `json:"duration"`
}

// Report is the top-level canonical output structure for one analysis run.
type Report struct {
	Meta         ReportMeta     `json:"meta"`
	Target       string         `json:"target"` // user handle, org, or repo list label
	Repositories []RepoAnalysis `json:"repositories"`
	Global       GlobalSummary  `json:"global"`
	Insights     []Insight      `json:"insights"`
}
