package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script",
	Long: `Generate a shell completion script for gh-pulse.

Bash:
  $ source <(gh-pulse completion bash)

  # To load completions for each session, execute once:
  $ gh-pulse completion bash > /etc/bash_completion.d/gh-pulse

Zsh:
  # Enable completion if it is not already:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ gh-pulse completion zsh > "${fpath[1]}/_gh-pulse"

Fish:
  $ gh-pulse completion fish > ~/.config/fish/completions/gh-pulse.fish

PowerShell:
  PS> gh-pulse completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		default:
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
