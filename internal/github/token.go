package github

import (
	"os"
	"os/exec"
	"strings"
)

// ResolveToken attempts to find a GitHub token from:
// 1. Config file (if passed)
// 2. "gh auth token" command
// 3. GITHUB_TOKEN environment variable
func ResolveToken(configToken string) string {
	if configToken != "" {
		return configToken
	}

	cmd := exec.Command("gh", "auth", "token")
	out, err := cmd.Output()
	if err == nil {
		token := strings.TrimSpace(string(out))
		if token != "" {
			return token
		}
	}

	return os.Getenv("GITHUB_TOKEN")
}
