// Package report renders analysis reports as text, JSON, or Markdown.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// RenderOptions contains options for rendering reports
type RenderOptions struct {
	ShowTimeline bool // include the cross-repo weekly commit timeline
	ShowErrors   bool // include per-repo facet fetch errors
}

type Renderer interface {
	Render(report *models.Report, w io.Writer) error
	RenderWithOptions(report *models.Report, w io.Writer, opts RenderOptions) error
}

func NewRenderer(f Format) Renderer {
	switch f {
	case FormatJSON:
		return &JSONRenderer{}
	case FormatText:
		return &TextRenderer{}
	case FormatMarkdown:
		return &MarkdownRenderer{}
	default:
		return &TextRenderer{}
	}
}

type JSONRenderer struct{}

func (r *JSONRenderer) Render(report *models.Report, w io.Writer) error {
	return r.RenderWithOptions(report, w, RenderOptions{})
}

func (r *JSONRenderer) RenderWithOptions(report *models.Report, w io.Writer, opts RenderOptions) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type TextRenderer struct{}

func (r *TextRenderer) Render(report *models.Report, w io.Writer) error {
	return r.RenderWithOptions(report, w, RenderOptions{})
}

func (r *TextRenderer) RenderWithOptions(report *models.Report, w io.Writer, opts RenderOptions) error {
	if len(report.Repositories) == 0 {
		_, _ = fmt.Fprintln(w, "No repositories analyzed.")
		return nil
	}

	for _, repo := range report.Repositories {
		_, _ = fmt.Fprintf(w, "\n🔎 %s\n", repo.Repo.FullName)
		_, _ = fmt.Fprintln(w, "==================================================")

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if lang := dominantLanguage(repo); lang != "" {
			_, _ = fmt.Fprintf(tw, "  Language:\t%s\n", lang)
		}
		_, _ = fmt.Fprintf(tw, "  Health:\t%d/100 (%s)\n", repo.Health.Score, repo.Health.Grade)
		_, _ = fmt.Fprintf(tw, "  Bus Factor:\t%s risk", repo.BusFactor.Risk)
		if repo.BusFactor.TopContributor != "" {
			_, _ = fmt.Fprintf(tw, " (%s owns %.0f%%)", repo.BusFactor.TopContributor, repo.BusFactor.TopContributorRatio*100)
		}
		_, _ = fmt.Fprintln(tw, "")
		_, _ = fmt.Fprintf(tw, "  Activity:\t%d/100\n", repo.ActivityScore)
		if repo.Inactive {
			_, _ = fmt.Fprintf(tw, "  Status:\tinactive (no commits in 90 days)\n")
		}
		if repo.Stress != nil {
			_, _ = fmt.Fprintf(tw, "  Stress:\t%.2f over %d commits", repo.Stress.Score, repo.Stress.CommitCount)
			if repo.Stress.TrendPercent != 0 {
				_, _ = fmt.Fprintf(tw, " (%+.0f%% trend)", repo.Stress.TrendPercent)
			}
			_, _ = fmt.Fprintln(tw, "")
		}
		_ = tw.Flush()

		if opts.ShowErrors && len(repo.Errors) > 0 {
			_, _ = fmt.Fprintln(w, "  Fetch errors:")
			for _, fe := range repo.Errors {
				_, _ = fmt.Fprintf(w, "    ⚠️ %s: %s\n", fe.Facet, fe.Error)
			}
		}

		_, _ = fmt.Fprintln(w, "--------------------------------------------------")
	}

	// Global summary
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "📊 SUMMARY FOR %s\n", report.Target)
	_, _ = fmt.Fprintln(w, "==================================================")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	g := report.Global
	_, _ = fmt.Fprintf(tw, "Repositories Analyzed:\t%d\n", g.TotalRepos)
	_, _ = fmt.Fprintf(tw, "Active / Inactive:\t%d / %d\n", g.ActiveRepos, g.InactiveRepos)
	_, _ = fmt.Fprintf(tw, "High Bus-Factor Risk:\t%d\n", g.HighRiskRepos)
	_, _ = fmt.Fprintf(tw, "Overall Bus Factor:\t%s risk (score %.0f)\n", g.BusFactor.Risk, g.BusFactor.Score)
	_, _ = fmt.Fprintf(tw, "Average Health:\t%d/100 (%s)\n", g.Health.Score, g.Health.Grade)
	if g.Health.Metrics.AvgMergeTimeHours > 0 {
		_, _ = fmt.Fprintf(tw, "Avg PR Merge Time:\t%.1fh\n", g.Health.Metrics.AvgMergeTimeHours)
	}
	if g.PunchCard != nil {
		day, hour, count := g.PunchCard.Peak()
		if count > 0 {
			_, _ = fmt.Fprintf(tw, "Peak Commit Window:\t%s %02d:00 (%d commits)\n", time.Weekday(day), hour, count)
		}
	}
	_ = tw.Flush()

	if opts.ShowTimeline && len(g.Timeline) > 0 {
		_, _ = fmt.Fprintln(w, "")
		_, _ = fmt.Fprintln(w, "Weekly commits across all repositories:")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, entry := range g.Timeline {
			week := time.UnixMilli(entry.Week).UTC().Format("2006-01-02")
			_, _ = fmt.Fprintf(tw, "  %s:\t%d commits in %d repos\n", week, entry.Total, entry.RepoCount)
		}
		_ = tw.Flush()
	}

	if len(report.Insights) > 0 {
		_, _ = fmt.Fprintln(w, "")
		for _, ins := range report.Insights {
			_, _ = fmt.Fprintf(w, "%s %s\n", ins.Icon, ins.Message)
		}
	}

	_, _ = fmt.Fprintln(w, "--------------------------------------------------")

	return nil
}

// dominantLanguage prefers the repository's declared primary language and
// falls back to the largest byte share from the languages endpoint.
func dominantLanguage(repo models.RepoAnalysis) string {
	if repo.Repo.Language != "" {
		return repo.Repo.Language
	}
	best, bestBytes := "", 0
	for lang, bytes := range repo.Languages {
		if bytes > bestBytes || (bytes == bestBytes && lang < best) {
			best, bestBytes = lang, bytes
		}
	}
	return best
}
