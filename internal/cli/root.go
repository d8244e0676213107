package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/pulse-tools/gh-pulse/internal/config"
	"github.com/pulse-tools/gh-pulse/pkg/models"
	"github.com/spf13/cobra"
)

// Version can be set via build flags: -ldflags "-X 'github.com/pulse-tools/gh-pulse/internal/cli.Version=v1.0.0'"
var Version = "dev"

var (
	rootCmd = &cobra.Command{
		Use:   "gh-pulse",
		Short: "GitHub Repository Pulse Dashboard",
		Long: `gh-pulse analyzes the pulse of GitHub repositories: bus factor, health
score, activity, and commit stress, aggregated across a whole user or
organization portfolio.`,
		Version:          Version,
		PersistentPreRun: checkAndInitConfig,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	runCmd = &cobra.Command{
		Use:   "run [repos...]",
		Short: "Analyze one or more repositories (format: owner/repo)",
		Long: `Analyze explicit GitHub repositories.
Each repository gets a bus-factor assessment, a health score, an activity
score, and optionally a commit stress profile; the run ends with a
cross-repository summary and insights.`,
		Example: `  gh-pulse run owner/repo
  gh-pulse run owner/repo1 owner/repo2
  gh-pulse run owner/repo --format=json > report.json`,
		Args: cobra.MinimumNArgs(1),
		Run:  runAnalysis,
	}
)

// Flags shared by the analysis commands
var (
	flagFormat       string
	flagFail         int
	flagNoCache      bool
	flagNoStress     bool
	flagMaxRepos     int
	flagShowTimeline bool
	flagShowErrors   bool
	flagSnapshotOut  string
	flagQuiet        bool
	flagVerbose      bool
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func checkAndInitConfig(cmd *cobra.Command, args []string) {
	// Skip for init, config, help, completion, and auth
	if cmd == initCmd || cmd == configCmd || cmd == authCmd || cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
		return
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		// Can't resolve path, probably can't save either. Ignore.
		return
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("ℹ️  Config not found at %s. Initializing default configuration...\n", configPath)
		if err := createDefaultConfig(configPath); err != nil {
			fmt.Printf("⚠️  Failed to auto-create config: %v\n", err)
		} else {
			fmt.Println("✅ Config created.")
		}
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print per-repository progress")

	rootCmd.AddCommand(runCmd)
	registerAnalysisFlags(runCmd)
}

func registerAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagFormat, "format", "f", "text", "Output format (text, json, markdown)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "markdown"}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.Flags().IntVar(&flagFail, "fail-under", 0, "Exit with error code 1 if average health score is below this value")
	cmd.Flags().BoolVar(&flagNoCache, "no-cache", false, "Bypass the API response cache")
	cmd.Flags().BoolVar(&flagNoStress, "no-stress", false, "Skip commit stress analysis (saves API requests)")
	cmd.Flags().IntVar(&flagMaxRepos, "max-repos", 0, "Cap the number of repositories analyzed (0 = config default)")
	cmd.Flags().BoolVar(&flagShowTimeline, "timeline", false, "Show the weekly cross-repository commit timeline")
	cmd.Flags().BoolVar(&flagShowErrors, "show-errors", false, "Show per-repository fetch errors in the report")
	cmd.Flags().StringVar(&flagSnapshotOut, "save-snapshot", "", "Save the report as a snapshot to the given path")
}

func validateFormat(cmd *cobra.Command, args []string) error {
	if flagFormat != "" && flagFormat != "text" && flagFormat != "json" && flagFormat != "markdown" {
		return fmt.Errorf("invalid format: %s (must be text, json, or markdown)", flagFormat)
	}
	return nil
}

func runAnalysis(cmd *cobra.Command, args []string) {
	if err := validateFormat(cmd, args); err != nil {
		fmt.Println(err)
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
		Command: "run",
		Repos:   handles,
	})
	if err != nil {
		fmt.Printf("Error running analysis: %v\n", err)
		os.Exit(1)
	}

	finishRun(fullReport)
}
