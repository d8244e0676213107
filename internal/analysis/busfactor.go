// Package analysis contains the per-repository metric calculators and the
// cross-repository aggregators. Every function here is pure: no I/O, no
// shared state, deterministic given its input.
package analysis

import (
	"sort"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// BusFactor computes the bus-factor assessment for one repository from its
// contributor list. The API contract says contributors arrive sorted
// descending by contribution count, but that is not trusted: the input is
// sorted here before the top share is taken.
//
// Absence of data defaults optimistic: no contributors (or zero total
// contributions) yields LOW risk with a perfect score.
func BusFactor(contributors []models.Contributor) models.BusFactorResult {
	if len(contributors) == 0 {
		return models.BusFactorResult{Risk: models.RiskLow, Score: 100}
	}

	sorted := make([]models.Contributor, len(contributors))
	copy(sorted, contributors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Contributions > sorted[j].Contributions
	})

	total := 0
	for _, c := range sorted {
		total += c.Contributions
	}
	if total == 0 {
		return models.BusFactorResult{
			Risk:              models.RiskLow,
			Score:             100,
			TotalContributors: len(sorted),
		}
	}

	ratio := float64(sorted[0].Contributions) / float64(total)

	risk := models.RiskLow
	switch {
	case ratio > 0.6:
		risk = models.RiskHigh
	case ratio > 0.4:
		risk = models.RiskMedium
	}

	score := 100 - ratio*100
	if score < 0 {
		score = 0
	}

	return models.BusFactorResult{
		Risk:                risk,
		TopContributorRatio: ratio,
		TopContributor:      sorted[0].Login,
		TotalContributors:   len(sorted),
		Score:               score,
	}
}

// GlobalBusFactor aggregates per-repository bus-factor results into one
// portfolio-level assessment. Ratios and scores are averaged, contributor
// counts are summed, and no single top contributor is identified.
//
// The global risk tier is driven by how widespread the per-repo risk is:
// HIGH when more than 30% of repos are HIGH, MEDIUM when any repo is HIGH
// or more than half are MEDIUM, LOW otherwise.
func GlobalBusFactor(results []models.BusFactorResult) models.BusFactorResult {
	if len(results) == 0 {
		return models.BusFactorResult{Risk: models.RiskLow, Score: 100}
	}

	var sumRatio, sumScore float64
	var highCount, mediumCount, totalContributors int

	for _, r := range results {
		sumRatio += r.TopContributorRatio
		sumScore += r.Score
		totalContributors += r.TotalContributors
		switch r.Risk {
		case models.RiskHigh:
			highCount++
		case models.RiskMedium:
			mediumCount++
		}
	}

	n := float64(len(results))

	risk := models.RiskLow
	switch {
	case float64(highCount) > 0.3*n:
		risk = models.RiskHigh
	case highCount > 0 || float64(mediumCount) > 0.5*n:
		risk = models.RiskMedium
	}

	return models.BusFactorResult{
		Risk:                risk,
		TopContributorRatio: sumRatio / n,
		TotalContributors:   totalContributors,
		Score:               sumScore / n,
	}
}
