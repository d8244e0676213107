// Package snapshot persists analysis reports so later runs can be compared
// against a known-good point in time.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// Snapshot stores a historical report for comparison
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Report    *models.Report `json:"report"`
}

// ComparisonResult contains the delta between two reports
type ComparisonResult struct {
	Current  *models.Report    `json:"current"`
	Previous *Snapshot         `json:"previous"`
	Deltas   []RepositoryDelta `json:"deltas"`
	Summary  ComparisonSummary `json:"summary"`
}

// RepositoryDelta contains changes for a single repository
type RepositoryDelta struct {
	RepoName string `json:"repo_name"`

	HealthDelta   int `json:"health_delta"`
	ActivityDelta int `json:"activity_delta"`

	BusFactorScoreDelta float64          `json:"bus_factor_score_delta"`
	RiskBefore          models.RiskLevel `json:"risk_before"`
	RiskAfter           models.RiskLevel `json:"risk_after"`

	BecameInactive bool `json:"became_inactive"`
	BecameActive   bool `json:"became_active"`
}

// Improved reports whether the repository moved in the right direction
// overall.
func (d RepositoryDelta) Improved() bool {
	return d.HealthDelta+d.ActivityDelta > 0 || d.BusFactorScoreDelta > 0
}

// Degraded reports whether the repository moved in the wrong direction.
func (d RepositoryDelta) Degraded() bool {
	return d.HealthDelta < 0 || d.BusFactorScoreDelta < 0 || d.BecameInactive
}

// ComparisonSummary provides high-level comparison stats
type ComparisonSummary struct {
	HasRegression     bool `json:"has_regression"`
	HealthScoreDelta  int  `json:"health_score_delta"`
	HighRiskRepoDelta int  `json:"high_risk_repo_delta"`
	InactiveRepoDelta int  `json:"inactive_repo_delta"`
	ImprovedRepos     int  `json:"improved_repos"`
	DegradedRepos     int  `json:"degraded_repos"`
}

// Save persists a report as a snapshot
func Save(report *models.Report, path string) error {
	snap := Snapshot{
		Timestamp: time.Now(),
		Report:    report,
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	return nil
}

// Load reads a snapshot from disk
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Compare generates a comparison between the current report and a snapshot.
// Repositories present on only one side are skipped.
func Compare(current *models.Report, previous *Snapshot) *ComparisonResult {
	if current == nil || previous == nil || previous.Report == nil {
		return nil
	}

	result := &ComparisonResult{
		Current:  current,
		Previous: previous,
		Deltas:   make([]RepositoryDelta, 0),
	}

	prevRepos := make(map[string]*models.RepoAnalysis)
	for i := range previous.Report.Repositories {
		repo := &previous.Report.Repositories[i]
		prevRepos[repo.Repo.FullName] = repo
	}

	for i := range current.Repositories {
		currRepo := &current.Repositories[i]
		prevRepo, exists := prevRepos[currRepo.Repo.FullName]
		if !exists {
			continue
		}
		result.Deltas = append(result.Deltas, compareRepository(currRepo, prevRepo))
	}

	result.Summary = generateSummary(current, previous.Report, result.Deltas)

	return result
}

func compareRepository(current, previous *models.RepoAnalysis) RepositoryDelta {
	return RepositoryDelta{
		RepoName:            current.Repo.FullName,
		HealthDelta:         current.Health.Score - previous.Health.Score,
		ActivityDelta:       current.ActivityScore - previous.ActivityScore,
		BusFactorScoreDelta: current.BusFactor.Score - previous.BusFactor.Score,
		RiskBefore:          previous.BusFactor.Risk,
		RiskAfter:           current.BusFactor.Risk,
		BecameInactive:      current.Inactive && !previous.Inactive,
		BecameActive:        !current.Inactive && previous.Inactive,
	}
}

func generateSummary(current, previous *models.Report, deltas []RepositoryDelta) ComparisonSummary {
	summary := ComparisonSummary{
		HealthScoreDelta:  current.Global.Health.Score - previous.Global.Health.Score,
		HighRiskRepoDelta: current.Global.HighRiskRepos - previous.Global.HighRiskRepos,
		InactiveRepoDelta: current.Global.InactiveRepos - previous.Global.InactiveRepos,
	}

	for _, delta := range deltas {
		if delta.Improved() {
			summary.ImprovedRepos++
		}
		if delta.Degraded() {
			summary.DegradedRepos++
		}
	}

	// Conservative regression definition
	summary.HasRegression = summary.HealthScoreDelta < -5 ||
		summary.HighRiskRepoDelta > 0 ||
		summary.InactiveRepoDelta > 2 ||
		summary.DegradedRepos > summary.ImprovedRepos*2

	return summary
}

// GetDefaultSnapshotPath returns the default path for snapshot storage
func GetDefaultSnapshotPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gh-pulse/snapshot.json"
	}
	return filepath.Join(home, ".gh-pulse", "snapshot.json")
}
