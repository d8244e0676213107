package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pulse-tools/gh-pulse/internal/report"
	"github.com/pulse-tools/gh-pulse/pkg/models"
	"github.com/pulse-tools/gh-pulse/pkg/snapshot"
	"github.com/spf13/cobra"
)

var (
	flagSnapshotIn     string
	flagUpdateSnapshot bool
)

var compareCmd = &cobra.Command{
	Use:   "compare [repos...]",
	Short: "Compare current metrics against a saved snapshot",
	Long: `Run analysis on the given repositories and diff the results against a
previously saved snapshot. Highlights health, activity, and bus factor
regressions so you can catch maintenance drift between runs.

Save a snapshot first with 'gh-pulse run --save-snapshot'.`,
	Example: `  gh-pulse compare owner/repo1 owner/repo2
  gh-pulse compare owner/repo1 --snapshot=./before.json
  gh-pulse compare owner/repo1 owner/repo2 --update
  gh-pulse compare owner/repo1 --format=json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(cmd, args); err != nil {
			return err
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	Run: runComparison,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	registerAnalysisFlags(compareCmd)
	compareCmd.Flags().StringVar(&flagSnapshotIn, "snapshot", "", "Path to the snapshot file to compare against (default: ~/.gh-pulse/snapshot.json)")
	compareCmd.Flags().BoolVar(&flagUpdateSnapshot, "update", false, "Overwrite the snapshot with the current results after comparing")
}

func runComparison(cmd *cobra.Command, args []string) {
	snapshotPath := flagSnapshotIn
	if snapshotPath == "" {
		snapshotPath = snapshot.GetDefaultSnapshotPath()
	}

	previous, err := snapshot.Load(snapshotPath)
	if err != nil {
		fmt.Printf("Error loading snapshot from %s: %v\n", snapshotPath, err)
		fmt.Println("Run 'gh-pulse run --save-snapshot' first to create one.")
		os.Exit(1)
	}

	handles := make([]models.RepositoryHandle, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			fmt.Printf("Skipping invalid repo format: %s\n", arg)
			continue
		}
		handles = append(handles, models.RepositoryHandle{
			Owner:    parts[0],
			Name:     parts[1],
			FullName: arg,
		})
	}

	if len(handles) == 0 {
		fmt.Println("No valid repositories to analyze.")
		os.Exit(1)
	}

	fullReport, err := pipelineRunner(AnalysisOptions{
		Command: "compare",
		Repos:   handles,
	})
	if err != nil {
		fmt.Printf("Error running analysis: %v\n", err)
		os.Exit(1)
	}

	result := snapshot.Compare(fullReport, previous)
	if result == nil {
		fmt.Println("Error comparing against snapshot: empty snapshot or report")
		os.Exit(1)
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Printf("Error rendering comparison: %v\n", err)
			os.Exit(1)
		}
	} else {
		renderer := &report.ComparisonTextRenderer{}
		if err := renderer.Render(result, os.Stdout); err != nil {
			fmt.Printf("Error rendering comparison: %v\n", err)
			os.Exit(1)
		}
	}

	if flagUpdateSnapshot {
		if err := snapshot.Save(fullReport, snapshotPath); err != nil {
			fmt.Printf("Error updating snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\n💾 Snapshot updated at %s\n", snapshotPath)
	}

	// Non-zero exit on regression so CI jobs can gate on drift
	if result.Summary.HasRegression {
		os.Exit(1)
	}
}
