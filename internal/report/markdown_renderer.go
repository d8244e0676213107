package report

import (
	"fmt"
	"io"
	"time"

	"github.com/pulse-tools/gh-pulse/pkg/models"
)

// MarkdownRenderer renders reports in Markdown format suitable for GitHub Actions and PR comments
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(report *models.Report, w io.Writer) error {
	return r.RenderWithOptions(report, w, RenderOptions{})
}

func (r *MarkdownRenderer) RenderWithOptions(report *models.Report, w io.Writer, opts RenderOptions) error {
	if len(report.Repositories) == 0 {
		_, _ = fmt.Fprintln(w, "## 📊 Repository Pulse")
		_, _ = fmt.Fprintln(w, "")
		_, _ = fmt.Fprintln(w, "No repositories analyzed.")
		return nil
	}

	_, _ = fmt.Fprintf(w, "## 📊 Repository Pulse: %s\n", report.Target)
	_, _ = fmt.Fprintln(w, "")

	_, _ = fmt.Fprintln(w, "| Repository | Language | Health | Bus Factor | Activity | Status |")
	_, _ = fmt.Fprintln(w, "|------------|----------|--------|------------|----------|--------|")
	for _, repo := range report.Repositories {
		status := "active"
		if repo.Inactive {
			status = "💤 inactive"
		}
		lang := dominantLanguage(repo)
		if lang == "" {
			lang = "-"
		}
		_, _ = fmt.Fprintf(w, "| %s %s | %s | %d/100 (%s) | %s | %d/100 | %s |\n",
			healthEmoji(repo.Health.Score),
			repo.Repo.FullName,
			lang,
			repo.Health.Score,
			repo.Health.Grade,
			repo.BusFactor.Risk,
			repo.ActivityScore,
			status)
	}
	_, _ = fmt.Fprintln(w, "")

	if opts.ShowErrors {
		for _, repo := range report.Repositories {
			if len(repo.Errors) == 0 {
				continue
			}
			_, _ = fmt.Fprintf(w, "<details>\n<summary><b>%s</b> fetch errors (%d)</summary>\n\n",
				repo.Repo.FullName, len(repo.Errors))
			for _, fe := range repo.Errors {
				_, _ = fmt.Fprintf(w, "- ⚠️ **%s:** %s\n", fe.Facet, fe.Error)
			}
			_, _ = fmt.Fprintln(w, "</details>")
			_, _ = fmt.Fprintln(w, "")
		}
	}

	// Summary
	g := report.Global
	_, _ = fmt.Fprintln(w, "### Summary")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "| Metric | Value |")
	_, _ = fmt.Fprintln(w, "|--------|-------|")
	_, _ = fmt.Fprintf(w, "| Repositories Analyzed | %d |\n", g.TotalRepos)
	_, _ = fmt.Fprintf(w, "| Active / Inactive | %d / %d |\n", g.ActiveRepos, g.InactiveRepos)
	_, _ = fmt.Fprintf(w, "| High Bus-Factor Risk | %d |\n", g.HighRiskRepos)
	_, _ = fmt.Fprintf(w, "| Overall Bus Factor | %s risk |\n", g.BusFactor.Risk)
	_, _ = fmt.Fprintf(w, "| Average Health | %d/100 (%s) |\n", g.Health.Score, g.Health.Grade)
	if g.Health.Metrics.AvgMergeTimeHours > 0 {
		_, _ = fmt.Fprintf(w, "| Avg PR Merge Time | %.1fh |\n", g.Health.Metrics.AvgMergeTimeHours)
	}
	if g.PunchCard != nil {
		if day, hour, count := g.PunchCard.Peak(); count > 0 {
			_, _ = fmt.Fprintf(w, "| Peak Commit Window | %s %02d:00 (%d commits) |\n", time.Weekday(day), hour, count)
		}
	}
	_, _ = fmt.Fprintln(w, "")

	if len(report.Insights) > 0 {
		_, _ = fmt.Fprintln(w, "### 💡 Insights")
		_, _ = fmt.Fprintln(w, "")
		for _, ins := range report.Insights {
			_, _ = fmt.Fprintf(w, "> %s %s\n\n", ins.Icon, ins.Message)
		}
	}

	if opts.ShowTimeline && len(g.Timeline) > 0 {
		_, _ = fmt.Fprintln(w, "<details>")
		_, _ = fmt.Fprintln(w, "<summary><b>Weekly commit timeline</b></summary>")
		_, _ = fmt.Fprintln(w, "")
		_, _ = fmt.Fprintln(w, "| Week | Commits | Repos |")
		_, _ = fmt.Fprintln(w, "|------|---------|-------|")
		for _, entry := range g.Timeline {
			week := time.UnixMilli(entry.Week).UTC().Format("2006-01-02")
			_, _ = fmt.Fprintf(w, "| %s | %d | %d |\n", week, entry.Total, entry.RepoCount)
		}
		_, _ = fmt.Fprintln(w, "")
		_, _ = fmt.Fprintln(w, "</details>")
		_, _ = fmt.Fprintln(w, "")
	}

	// Footer
	_, _ = fmt.Fprintf(w, "<sub>Generated by gh-pulse at %s</sub>\n",
		report.Meta.GeneratedAt.Format("2006-01-02 15:04:05"))

	return nil
}

func healthEmoji(score int) string {
	switch {
	case score >= 80:
		return "🟢"
	case score >= 60:
		return "🟡"
	case score >= 40:
		return "🟠"
	default:
		return "🔴"
	}
}
