package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pulse-tools/gh-pulse/internal/config"
	"github.com/pulse-tools/gh-pulse/pkg/models"
	"github.com/spf13/cobra"
)

var getOrgRepositories = func(orgName string) ([]models.RepositoryHandle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	client, err := getClientWithToken(cfg)
	if err != nil {
		return nil, err
	}

	return client.ListOrgRepositories(context.Background(), orgName)
}

var orgCmd = &cobra.Command{
	Use:   "org [organization]",
	Short: "Analyze an entire GitHub organization",
	Long: `Scan all active repositories in a GitHub organization.
Automatically fetches all repositories, filters out archived ones, and runs the analysis on each.`,
	Example: `  gh-pulse org my-org
  gh-pulse org my-org --fail-under=80
  gh-pulse org my-org --filter-topics=infrastructure --format=markdown`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(cmd, args); err != nil {
			return err
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: runOrgAnalysis,
}

func init() {
	rootCmd.AddCommand(orgCmd)
	registerAnalysisFlags(orgCmd)
	registerFilterFlags(orgCmd)
}

func runOrgAnalysis(cmd *cobra.Command, args []string) {
	orgName := args[0]

	if shouldPrintInfo() {
		fmt.Printf("Fetching repositories for organization '%s'...\n", orgName)
	}

	repos, err := getOrgRepositories(orgName)
	if err != nil {
		fmt.Printf("Error listing repositories: %v\n", err)
		os.Exit(1)
	}

	filter, err := NewRepoFilter()
	if err != nil {
		fmt.Printf("Error creating filter: %v\n", err)
		os.Exit(1)
	}

	targetRepos, stats := FilterRepositories(repos, filter)

	if shouldPrintInfo() {
		printFilterStats(stats)
	}

	if len(targetRepos) == 0 {
		fmt.Println("No active repositories found to analyze.")
		return
	}

	fullReport, err := pipelineRunner(AnalysisOptions{
		Command: "org",
		Target:  orgName,
		Repos:   targetRepos,
	})
	if err != nil {
		fmt.Printf("Error running analysis: %v\n", err)
		os.Exit(1)
	}

	finishRun(fullReport)
}
