package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pulse-tools/gh-pulse/pkg/snapshot"
)

// ComparisonTextRenderer renders the delta between a run and a saved snapshot.
type ComparisonTextRenderer struct{}

func (r *ComparisonTextRenderer) Render(result *snapshot.ComparisonResult, w io.Writer) error {
	if result == nil {
		_, _ = fmt.Fprintln(w, "Nothing to compare.")
		return nil
	}

	_, _ = fmt.Fprintf(w, "Comparing against snapshot from %s\n",
		result.Previous.Timestamp.Format("2006-01-02 15:04"))
	_, _ = fmt.Fprintln(w, "==================================================")

	if len(result.Deltas) == 0 {
		_, _ = fmt.Fprintln(w, "No repositories in common with the snapshot.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "REPOSITORY\tHEALTH\tACTIVITY\tBUS FACTOR\tRISK")
	_, _ = fmt.Fprintln(tw, "----------\t------\t--------\t----------\t----")

	for _, delta := range result.Deltas {
		risk := string(delta.RiskAfter)
		if delta.RiskBefore != delta.RiskAfter {
			risk = fmt.Sprintf("%s → %s", delta.RiskBefore, delta.RiskAfter)
		}
		note := ""
		if delta.BecameInactive {
			note = " 💤"
		} else if delta.BecameActive {
			note = " 🔥"
		}
		_, _ = fmt.Fprintf(tw, "%s%s\t%+d\t%+d\t%+.0f\t%s\n",
			delta.RepoName, note,
			delta.HealthDelta,
			delta.ActivityDelta,
			delta.BusFactorScoreDelta,
			risk)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := result.Summary
	_, _ = fmt.Fprintln(w, "--------------------------------------------------")
	_, _ = fmt.Fprintf(w, "Average health: %+d  Improved: %d  Degraded: %d\n",
		s.HealthScoreDelta, s.ImprovedRepos, s.DegradedRepos)
	if s.HighRiskRepoDelta != 0 {
		_, _ = fmt.Fprintf(w, "High-risk repositories: %+d\n", s.HighRiskRepoDelta)
	}
	if s.InactiveRepoDelta != 0 {
		_, _ = fmt.Fprintf(w, "Inactive repositories: %+d\n", s.InactiveRepoDelta)
	}

	if s.HasRegression {
		_, _ = fmt.Fprintln(w, "🚨 Regression detected since the snapshot.")
	} else {
		_, _ = fmt.Fprintln(w, "✅ No regression since the snapshot.")
	}

	return nil
}
