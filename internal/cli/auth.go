package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pulse-tools/gh-pulse/internal/config"
	ghclient "github.com/pulse-tools/gh-pulse/internal/github"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with GitHub",
	Long: `Manage the GitHub token gh-pulse uses for API access.

An authenticated client gets 5000 requests per hour instead of 60, which a
portfolio analysis needs. Tokens are resolved in order: the config file, the
GitHub CLI ('gh auth token'), then the GITHUB_TOKEN environment variable.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token",
	Long:  "Pick up the GitHub CLI's token or prompt for a Personal Access Token, validate it, and store it in the config file.",
	Run:   runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check authentication status",
	Long:  "Show the active token's source, validity, and remaining rate limit.",
	Run:   runAuthStatus,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	Long:  "Clear the GitHub token from the config file. Tokens held by the GitHub CLI or GITHUB_TOKEN are left alone.",
	Run:   runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}

// validateToken checks a token by making an API call. Package variable so
// tests can stub the network out.
var validateToken = func(token string) error {
	client := ghclient.NewClient(ghclient.ClientOptions{Token: token})
	_, _, _, err := client.GetRateLimit(context.Background())
	return err
}

func runAuthLogin(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	if token := ghclient.ResolveToken(cfg.Global.GitHubToken); token != "" {
		fmt.Printf("Already authenticated (source: %s).\n", tokenSource(cfg))
		if err := validateToken(token); err != nil {
			fmt.Printf("⚠️  The current token is invalid: %v\n", err)
		} else if !promptYesNo("Replace the working token?") {
			fmt.Println("No changes made.")
			return
		}
		fmt.Println()
	}

	// The gh CLI is the easiest source: no scopes to pick, no paste.
	if ghToken := ghCLIToken(); ghToken != "" {
		if promptYesNo("Use the GitHub CLI's token? (Recommended)") {
			saveToken(ghToken)
			return
		}
		fmt.Println()
	}

	token, err := promptForToken()
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	saveToken(token)
}

// ghCLIToken returns the GitHub CLI's stored token, or "" when gh is missing
// or logged out.
func ghCLIToken() string {
	out, err := exec.Command("gh", "auth", "token").Output()
	if err != nil {
		return ""
	}
	token := strings.TrimSpace(string(out))
	if !isValidToken(token) {
		return ""
	}
	return token
}

func promptForToken() (string, error) {
	fmt.Println("Generate a Personal Access Token with 'repo' scope:")
	fmt.Println("  https://github.com/settings/tokens/new?scopes=repo&description=gh-pulse")
	fmt.Print("\nPaste your token: ")

	byteToken, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		// Not a terminal (CI, piped input): fall back to a plain read.
		line, rerr := bufio.NewReader(os.Stdin).ReadString('\n')
		if rerr != nil {
			return "", fmt.Errorf("failed to read token: %w", rerr)
		}
		byteToken = []byte(line)
	}

	token := strings.TrimSpace(string(byteToken))
	if token == "" {
		return "", fmt.Errorf("empty token provided")
	}
	return token, nil
}

// saveToken validates the token against the API and stores it in the config
// file.
func saveToken(token string) {
	fmt.Println("Validating token...")
	if err := validateToken(token); err != nil {
		fmt.Printf("❌ Token validation failed: %v\n", err)
		fmt.Println("The token may be invalid or expired. Please check and try again.")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		return
	}
	cfg.Global.GitHubToken = token
	if err := saveConfig(cfg); err != nil {
		fmt.Printf("❌ Failed to save config: %v\n", err)
		return
	}

	fmt.Println("✅ Token validated and saved to the config file.")
	fmt.Println("💡 Prefer not to store it? Remove it with 'gh-pulse auth logout' and export GITHUB_TOKEN instead.")
}

// tokenSource names where the active token comes from, mirroring the
// resolution order in ResolveToken.
func tokenSource(cfg *config.Config) string {
	if cfg != nil && cfg.Global.GitHubToken != "" {
		return "config file"
	}
	if ghCLIToken() != "" {
		return "gh CLI"
	}
	if os.Getenv("GITHUB_TOKEN") != "" {
		return "GITHUB_TOKEN environment variable"
	}
	return "none"
}

func promptYesNo(question string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [Y/n]: ", question)
	text, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	text = strings.TrimSpace(strings.ToLower(text))
	return text == "" || text == "y" || text == "yes"
}

// isValidToken does a cheap shape check. GitHub token formats vary (ghp_
// classic PATs, github_pat_ fine-grained ones), so only length is checked;
// real validation happens against the API.
func isValidToken(token string) bool {
	return len(token) >= 20
}

func runAuthStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	token := ghclient.ResolveToken(cfg.Global.GitHubToken)
	if token == "" {
		fmt.Println("❌ Not authenticated")
		fmt.Println("\nRun 'gh-pulse auth login' to log in.")
		os.Exit(1)
	}

	client := ghclient.NewClient(ghclient.ClientOptions{Token: token})
	remaining, limit, reset, err := client.GetRateLimit(context.Background())
	if err != nil {
		fmt.Println("❌ Token is invalid or expired")
		fmt.Printf("   Error: %v\n", err)
		fmt.Println("\nRun 'gh-pulse auth login' to log in again.")
		os.Exit(1)
	}

	fmt.Println("✅ Authenticated")
	fmt.Printf("   Token source: %s\n", tokenSource(cfg))
	fmt.Printf("   Rate limit: %d/%d remaining\n", remaining, limit)
	if !reset.IsZero() {
		fmt.Printf("   Resets at: %s (in %s)\n", reset.Format(time.RFC3339), time.Until(reset).Round(time.Second))
	}
}

func runAuthLogout(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		os.Exit(1)
	}

	if cfg.Global.GitHubToken == "" {
		fmt.Println("No token stored in the config file.")
		printExternalTokenHints()
		return
	}

	if !promptYesNo("Remove the token from the config file?") {
		fmt.Println("Logout cancelled.")
		return
	}

	cfg.Global.GitHubToken = ""
	if err := saveConfig(cfg); err != nil {
		fmt.Printf("❌ Failed to save config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Removed token from config file.")
	printExternalTokenHints()
}

// printExternalTokenHints points at token sources gh-pulse does not manage.
func printExternalTokenHints() {
	if os.Getenv("GITHUB_TOKEN") != "" {
		fmt.Println("⚠️  GITHUB_TOKEN is set in this session; remove it with: unset GITHUB_TOKEN")
	}
	if ghCLIToken() != "" {
		fmt.Println("⚠️  The GitHub CLI is still authenticated; log out with: gh auth logout")
	}
}
