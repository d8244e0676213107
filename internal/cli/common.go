package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulse-tools/gh-pulse/internal/cache"
	"github.com/pulse-tools/gh-pulse/internal/config"
	ghclient "github.com/pulse-tools/gh-pulse/internal/github"
	"github.com/pulse-tools/gh-pulse/internal/pipeline"
	"github.com/pulse-tools/gh-pulse/internal/report"
	"github.com/pulse-tools/gh-pulse/pkg/models"
	"github.com/pulse-tools/gh-pulse/pkg/snapshot"
	"github.com/schollz/progressbar/v3"
)

func shouldPrintInfo() bool {
	return !flagQuiet && flagFormat != "json" && flagFormat != "markdown"
}

func shouldPrintVerbose() bool {
	return flagVerbose && shouldPrintInfo()
}

// getClientWithToken initializes a GitHub client from config: token
// resolution, cache wiring, page caps, and retry policy. Returns an error
// if no token can be resolved.
func getClientWithToken(cfg *config.Config) (*ghclient.Client, error) {
	token := ghclient.ResolveToken(cfg.Global.GitHubToken)
	if token == "" {
		return nil, fmt.Errorf("no GitHub token found. Please run 'gh-pulse auth login' to login")
	}

	opts := ghclient.ClientOptions{
		Token:         token,
		PageSize:      cfg.Fetch.PageSize,
		MaxRepoPages:  cfg.Fetch.MaxRepoPages,
		MaxIssuePages: cfg.Fetch.MaxIssuePages,
		MaxPRPages:    cfg.Fetch.MaxPRPages,
	}

	if cfg.Fetch.RetryMaxAttempts > 0 {
		base := cfg.Fetch.RetryBackoffBase.Std()
		if base <= 0 {
			base = 2 * time.Second
		}
		opts.Retry = ghclient.RetryPolicy{
			MaxAttempts: cfg.Fetch.RetryMaxAttempts,
			Backoff: func(attempt int) time.Duration {
				return time.Duration(attempt) * base
			},
		}
	}

	if cfg.Cache.Enabled && !flagNoCache {
		store, err := cache.New(cfg.Cache.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  WARNING: cache disabled: %v\n", err)
		} else {
			opts.Cache = store
			opts.CacheTTL = cfg.Cache.TTL.Std()
		}
	}

	return ghclient.NewClient(opts), nil
}

// AnalysisOptions contains the inputs for one analysis run.
type AnalysisOptions struct {
	Command string
	Target  string // user or org handle; empty for explicit repo lists
	Repos   []models.RepositoryHandle
}

var pipelineRunner = RunAnalysisPipeline

// RunAnalysisPipeline executes the complete analysis workflow for the given
// repositories: client setup, rate-limit preflight, the batched fetch and
// analysis pipeline, and report assembly. Supports Ctrl+C cancellation and
// shows a progress bar unless quieted.
func RunAnalysisPipeline(opts AnalysisOptions) (*models.Report, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	client, err := getClientWithToken(cfg)
	if err != nil {
		return nil, err
	}

	// Pre-flight check for rate limits
	remaining, limit, _, err := client.GetRateLimit(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  WARNING: Could not check rate limit: %v\n", err)
	} else {
		// Five facet requests per repo plus a possible handle resolution;
		// stress analysis adds the punch card, the commit list, and one
		// detail request per sampled commit.
		costPerRepo := 6
		if !flagNoStress && cfg.Analysis.Stress.Enabled {
			costPerRepo += 2 + cfg.Analysis.CommitSampleSize
		}

		totalCost := costPerRepo * len(opts.Repos)
		if remaining < totalCost {
			fmt.Fprintf(os.Stderr, "⚠️  WARNING: Analysis may exhaust rate limit. Estimated ~%d requests needed, %d/%d remaining.\n", totalCost, remaining, limit)
			fmt.Fprintf(os.Stderr, "   Proceeding anyway in 2 seconds (Ctrl+C to cancel)...\n")
			time.Sleep(2 * time.Second)
		}
	}

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n⚠️  Received interrupt signal. Cancelling analysis...")
		cancel()
	}()

	maxRepos := cfg.Global.MaxRepos
	if flagMaxRepos > 0 {
		maxRepos = flagMaxRepos
	}

	var bar *progressbar.ProgressBar
	if shouldPrintInfo() {
		total := len(opts.Repos)
		if maxRepos > 0 && maxRepos < total {
			total = maxRepos
		}
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Analyzing repositories"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("repos"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	target := opts.Target
	if target == "" {
		target = pipeline.Describe(opts.Repos)
	}

	if shouldPrintInfo() {
		fmt.Printf("Queueing %d repositories (batch size: %d)...\n", len(opts.Repos), cfg.Global.BatchSize)
	}

	fullReport, err := pipeline.Analyze(ctx, client, target, opts.Repos, pipeline.Options{
		BatchSize:        cfg.Global.BatchSize,
		BatchDelay:       cfg.Global.BatchDelay.Std(),
		MaxRepos:         maxRepos,
		LookbackWeeks:    cfg.Analysis.LookbackWeeks,
		CommitSampleSize: cfg.Analysis.CommitSampleSize,
		IncludeStress:    cfg.Analysis.Stress.Enabled && !flagNoStress,
		OnRepoDone: func(r models.RepoAnalysis) {
			if bar != nil {
				_ = bar.Add(1)
			} else if shouldPrintVerbose() {
				fmt.Printf("✓ Completed %s\n", r.Repo.FullName)
			}
		},
	})

	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("analysis cancelled by user")
		}
		return nil, err
	}

	fullReport.Meta = models.ReportMeta{
		GeneratedAt: time.Now(),
		CLIVersion:  Version,
		Command:     opts.Command,
		Duration:    time.Since(start).String(),
	}

	return fullReport, nil
}

// finishRun renders the report, optionally saves a snapshot, and applies the
// fail-under threshold.
func finishRun(fullReport *models.Report) {
	renderer := report.NewRenderer(report.Format(flagFormat))
	renderOpts := report.RenderOptions{
		ShowTimeline: flagShowTimeline,
		ShowErrors:   flagShowErrors,
	}
	if err := renderer.RenderWithOptions(fullReport, os.Stdout, renderOpts); err != nil {
		fmt.Printf("Error rendering report: %v\n", err)
	}

	if flagSnapshotOut != "" {
		if err := snapshot.Save(fullReport, flagSnapshotOut); err != nil {
			fmt.Printf("Error saving snapshot: %v\n", err)
		} else if shouldPrintInfo() {
			fmt.Printf("💾 Snapshot saved to %s\n", flagSnapshotOut)
		}
	}

	if flagFail > 0 && fullReport.Global.Health.Score < flagFail {
		fmt.Printf("\n❌ Failure: Average health score (%d) is below threshold (%d).\n", fullReport.Global.Health.Score, flagFail)
		os.Exit(1)
	}
}
