package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pulse-tools/gh-pulse/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfig = `# gh-pulse Configuration

# Global settings
global:
  max_repos: 0 # 0 = analyze every repository found
  batch_size: 5 # Repositories analyzed concurrently per batch
  batch_delay: "1s" # Pause between batches to spread rate limit usage
  # github_token: "YOUR_TOKEN" # Optional: Store token here (not recommended for shared machines)

# API fetch behavior
fetch:
  page_size: 100
  max_repo_pages: 0 # 0 = all pages
  max_issue_pages: 2
  max_pr_pages: 2
  retry_max_attempts: 3
  retry_backoff_base: "2s"

# Metric calculation
analysis:
  lookback_weeks: 12
  commit_sample_size: 20
  stress:
    enabled: true

# Disk cache for API responses
cache:
  enabled: true
  ttl: "1h"
  # dir: "/custom/cache/path" # Defaults to ~/.gh-pulse/cache
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Creates a default configuration file (config.yaml) in your user configuration directory if it doesn't exist.
Use this to customize batching, fetch limits, cache behavior, and metric parameters.

Note: 'gh-pulse run', 'user', 'org', etc. will automatically create this file if it's missing.
'gh-pulse init' is useful if you want to inspect or customize the config before running any analysis.`,
	Run: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// createDefaultConfig writes the default configuration to the specified path
func createDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfig), 0600)
}

func runInit(cmd *cobra.Command, args []string) {
	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Printf("Error getting config path: %v\n", err)
		os.Exit(1)
	}

	// Check if file already exists to prevent overwriting
	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("⚠️  Checking %s... already exists.\n", configPath)
		fmt.Println("Aborting to prevent overwrite. Delete the existing file first if you want to regenerate it.")
		return
	}

	if err := createDefaultConfig(configPath); err != nil {
		fmt.Printf("❌ Error creating config file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Successfully created %s\n", configPath)
	fmt.Println("You can now edit this file to configure batching, fetch limits, and metric parameters.")
}
