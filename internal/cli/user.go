package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pulse-tools/gh-pulse/internal/config"
	"github.com/pulse-tools/gh-pulse/pkg/models"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user [username]",
	Short: "Analyze all repositories of a user",
	Long: `Scan all active public repositories belonging to a specific GitHub user.
Useful for personal portfolio reviews or analyzing open source contributions.

Displays a progress bar during analysis. Use --quiet for CI/CD environments.`,
	Example: `  gh-pulse user octocat
  gh-pulse user octocat --quiet --format=json
  gh-pulse user octocat --filter-language=go
  gh-pulse user octocat --filter-skip-forks --filter-updated=180d
  gh-pulse user octocat --timeline --max-repos=10`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(cmd, args); err != nil {
			return err
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Run: runUserAnalysis,
}

var getUserRepositories = func(username string) (*models.UserProfile, []models.RepositoryHandle, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	client, err := getClientWithToken(cfg)
	if err != nil {
		return nil, nil, err
	}

	ctx := context.Background()
	profile, err := client.GetUser(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	repos, err := client.ListUserRepositories(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	return profile, repos, nil
}

func init() {
	rootCmd.AddCommand(userCmd)
	registerAnalysisFlags(userCmd)
	registerFilterFlags(userCmd)
}

func runUserAnalysis(cmd *cobra.Command, args []string) {
	username := args[0]

	if shouldPrintInfo() {
		fmt.Printf("Fetching repositories for user '%s'...\n", username)
	}

	profile, repos, err := getUserRepositories(username)
	if err != nil {
		fmt.Printf("Error listing repositories: %v\n", err)
		os.Exit(1)
	}

	if shouldPrintInfo() && profile != nil {
		name := profile.Name
		if name == "" {
			name = profile.Login
		}
		fmt.Printf("%s: %d public repos, %d followers\n", name, profile.PublicRepos, profile.Followers)
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
		Command: "user",
		Target:  username,
		Repos:   targetRepos,
	})
	if err != nil {
		fmt.Printf("Error running analysis: %v\n", err)
		os.Exit(1)
	}

	finishRun(fullReport)
}
