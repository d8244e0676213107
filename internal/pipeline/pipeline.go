// Package pipeline orchestrates fetching and analysis across a set of
// repositories: facet fetches fan out per repository, repositories run in
// rate-limit-friendly batches, and the per-repo results are folded into a
// single report.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pulse-tools/gh-pulse/internal/analysis"
	"github.com/pulse-tools/gh-pulse/pkg/insights"
	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// Client is the fetch surface the pipeline consumes. internal/github.Client
// satisfies it.
type Client interface {
	GetRepository(ctx context.Context, owner, repo string) (*models.RepositoryHandle, error)
	ListContributors(ctx context.Context, owner, repo string) ([]models.Contributor, error)
	ListLanguages(ctx context.Context, owner, repo string) (map[string]int, error)
	GetCommitActivity(ctx context.Context, owner, repo string) ([]models.CommitActivityWeek, error)
	ListIssues(ctx context.Context, owner, repo string) ([]models.IssueRecord, error)
	ListPullRequests(ctx context.Context, owner, repo string) ([]models.PullRequestRecord, error)
	ListCommitSamples(ctx context.Context, owner, repo string, limit int) ([]models.CommitSample, error)
	GetPunchCard(ctx context.Context, owner, repo string) (models.PunchCard, error)
}

// Options tunes a pipeline run. The zero value gets sensible defaults.
type Options struct {
	BatchSize  int           // repos analyzed concurrently, default 5
	BatchDelay time.Duration // pause between batches, default 1s
	MaxRepos   int           // 0 = no cap

	LookbackWeeks    int  // activity score window, default 12
	CommitSampleSize int  // commits sampled for stress, default 20
	IncludeStress    bool // skip the per-commit detail fetches when false

	// OnRepoDone is called after each repository finishes, from the worker
	// goroutine. Used by the CLI to advance the progress bar.
	OnRepoDone func(models.RepoAnalysis)

	// Injectable clocks for tests.
	Sleep func(time.Duration)
	Now   func() time.Time
}

func (o *Options) withDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	} else if o.BatchDelay == 0 {
		o.BatchDelay = time.Second
	}
	if o.LookbackWeeks <= 0 {
		o.LookbackWeeks = analysis.DefaultLookbackWeeks
	}
	if o.CommitSampleSize <= 0 {
		o.CommitSampleSize = 20
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Analyze runs the full pipeline over the given repositories and assembles
// the report. Per-facet fetch failures are isolated into the repository's
// error list; only context cancellation aborts the run.
func Analyze(ctx context.Context, client Client, target string, repos []models.RepositoryHandle, opts Options) (*models.Report, error) {
	opts.withDefaults()

	if opts.MaxRepos > 0 && len(repos) > opts.MaxRepos {
		repos = repos[:opts.MaxRepos]
	}

	results := make([]models.RepoAnalysis, len(repos))

	for start := 0; start < len(repos); start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + opts.BatchSize
		if end > len(repos) {
			end = len(repos)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = analyzeRepo(ctx, client, repos[i], opts)
				if opts.OnRepoDone != nil {
					opts.OnRepoDone(results[i])
				}
			}(i)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if end < len(repos) {
			opts.Sleep(opts.BatchDelay)
		}
	}

	report := &models.Report{
		Target:       target,
		Repositories: results,
		Global:       aggregate(results, opts),
	}
	report.Insights = insights.Generate(report.Global)
	return report, nil
}

// repoData is the raw material one repository's calculators run on.
type repoData struct {
	contributors []models.Contributor
	languages    map[string]int
	weekly       []models.CommitActivityWeek
	issues       []models.IssueRecord
	pulls        []models.PullRequestRecord
	samples      []models.CommitSample
	punchCard    models.PunchCard
}

func analyzeRepo(ctx context.Context, client Client, repo models.RepositoryHandle, opts Options) models.RepoAnalysis {
	var (
		data repoData
		mu   sync.Mutex
		errs []models.FacetError
		wg   sync.WaitGroup
	)

	fail := func(facet string, err error) {
		mu.Lock()
		errs = append(errs, models.FacetError{Facet: facet, Error: err.Error()})
		mu.Unlock()
	}

	fetch := func(facet string, do func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := do(); err != nil {
				fail(facet, err)
			}
		}()
	}

	// Explicit owner/repo arguments arrive as bare handles; resolve the full
	// metadata so filters, renderers, and snapshots see language, fork state,
	// and the default branch. Listed repos are already complete.
	if repo.DefaultBranch == "" {
		if full, err := client.GetRepository(ctx, repo.Owner, repo.Name); err != nil {
			fail("repository", err)
		} else {
			repo = *full
		}
	}

	fetch("contributors", func() error {
		v, err := client.ListContributors(ctx, repo.Owner, repo.Name)
		if err != nil {
			return err
		}
		data.contributors = v
		return nil
	})
	fetch("languages", func() error {
		v, err := client.ListLanguages(ctx, repo.Owner, repo.Name)
		if err != nil {
			return err
		}
		data.languages = v
		return nil
	})
	fetch("commit_activity", func() error {
		v, err := client.GetCommitActivity(ctx, repo.Owner, repo.Name)
		if err != nil {
			return err
		}
		data.weekly = v
		return nil
	})
	fetch("issues", func() error {
		v, err := client.ListIssues(ctx, repo.Owner, repo.Name)
		if err != nil {
			return err
		}
		data.issues = v
		return nil
	})
	fetch("pulls", func() error {
		v, err := client.ListPullRequests(ctx, repo.Owner, repo.Name)
		if err != nil {
			return err
		}
		data.pulls = v
		return nil
	})
	if opts.IncludeStress {
		fetch("commits", func() error {
			v, err := client.ListCommitSamples(ctx, repo.Owner, repo.Name, opts.CommitSampleSize)
			if err != nil {
				return err
			}
			data.samples = v
			return nil
		})
		fetch("punch_card", func() error {
			v, err := client.GetPunchCard(ctx, repo.Owner, repo.Name)
			if err != nil {
				return err
			}
			data.punchCard = v
			return nil
		})
	}
	wg.Wait()

	result := models.RepoAnalysis{
		Repo:          repo,
		BusFactor:     analysis.BusFactor(data.contributors),
		Health:        analysis.HealthScore(data.issues, data.pulls),
		ActivityScore: analysis.ActivityScore(data.weekly, opts.LookbackWeeks),
		Inactive:      analysis.Inactive(data.weekly, opts.Now()),
		Languages:     data.languages,
		Weekly:        data.weekly,
		Errors:        errs,
	}
	if opts.IncludeStress {
		result.Stress = analysis.AnalyzeStress(data.samples)

		// The statistics endpoint covers a year of history. Fall back to the
		// sampled commits when it has nothing.
		card := data.punchCard
		if card.Total() == 0 {
			card = analysis.BuildPunchCard(data.samples)
		}
		if card.Total() > 0 {
			result.PunchCard = &card
		}
	}
	return result
}

func aggregate(results []models.RepoAnalysis, opts Options) models.GlobalSummary {
	summary := models.GlobalSummary{
		TotalRepos: len(results),
	}

	busFactors := make([]models.BusFactorResult, 0, len(results))
	healths := make([]models.HealthScoreResult, 0, len(results))
	series := make([]analysis.RepoWeeklySeries, 0, len(results))
	var cards []models.PunchCard

	for _, r := range results {
		busFactors = append(busFactors, r.BusFactor)
		healths = append(healths, r.Health)
		series = append(series, analysis.RepoWeeklySeries{
			Repo:   r.Repo.FullName,
			Weekly: r.Weekly,
		})
		if r.PunchCard != nil {
			cards = append(cards, *r.PunchCard)
		}

		if r.Inactive {
			summary.InactiveRepos++
		} else {
			summary.ActiveRepos++
		}
		if r.BusFactor.Risk == models.RiskHigh {
			summary.HighRiskRepos++
		}
	}

	summary.BusFactor = analysis.GlobalBusFactor(busFactors)
	summary.Health = analysis.AverageHealthScore(healths)
	summary.Timeline = analysis.AggregateTimeline(series)
	if len(cards) > 0 {
		merged := analysis.MergePunchCards(cards)
		summary.PunchCard = &merged
	}
	return summary
}

// Describe renders a one-line label for a repo list, used as the report
// target for explicit repo arguments.
func Describe(repos []models.RepositoryHandle) string {
	switch len(repos) {
	case 0:
		return "no repositories"
	case 1:
		return repos[0].FullName
	default:
		return fmt.Sprintf("%d repositories", len(repos))
	}
}
