package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/internal/config"
	"github.com/forest6511/harpocrates/pkg/vault"
)

// completionWriters generates the completion script for each supported shell.
var completionWriters = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

func completionShells() []string {
	shells := make([]string, 0, len(completionWriters))
	for shell := range completionWriters {
		shells = append(shells, shell)
	}
	slices.Sort(shells)
	return shells
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print a shell completion script",
	Long: fmt.Sprintf(`Print the completion script for one of: %s.

  bash        source <(harpocrates completion bash)
  zsh         harpocrates completion zsh > "${fpath[1]}/_harpocrates"
  fish        harpocrates completion fish > ~/.config/fish/completions/harpocrates.fish
  powershell  harpocrates completion powershell >> $PROFILE

Entry titles complete only when %s=1 and the vault credentials are
in %s and %s. Completion never prompts.`,
		strings.Join(completionShells(), ", "), envCompletion, envPassword, envSecretKey),
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	// The script must not depend on a readable config file.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCompletion(cmd.Root(), args[0], cmd.OutOrStdout())
	},
}

// writeCompletion writes the completion script for shell to w.
func writeCompletion(root *cobra.Command, shell string, w io.Writer) error {
	gen, ok := completionWriters[shell]
	if !ok {
		return fmt.Errorf("unsupported shell %q (valid: %s)", shell, strings.Join(completionShells(), ", "))
	}
	return gen(root, w)
}

func init() {
	rootCmd.AddCommand(completionCmd)

	for _, cmd := range []*cobra.Command{getCmd, updateCmd, deleteCmd, copyCmd} {
		cmd.ValidArgsFunction = completeEntryTitles
	}
}

const envCompletion = "HARPOCRATES_COMPLETION_ENABLED"

// isDynamicCompletionEnabled checks if dynamic completion is opt-in enabled.
// Dynamic completion is disabled by default to prevent vault unlock prompts
// during tab completion.
func isDynamicCompletionEnabled() bool {
	return os.Getenv(envCompletion) == "1"
}

// completeEntryTitles provides entry title completion (opt-in only).
// Returns an empty list if dynamic completion is disabled or the vault
// cannot be opened without prompting.
func completeEntryTitles(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || !isDynamicCompletionEnabled() {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	titles, err := entryTitlesForCompletion(toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return titles, cobra.ShellCompDirectiveNoFileComp
}

// entryTitlesForCompletion opens the vault with the environment credentials
// and returns the titles starting with prefix. Missing credentials yield no
// titles rather than a prompt.
func entryTitlesForCompletion(prefix string) ([]string, error) {
	password, secretKey := os.Getenv(envPassword), os.Getenv(envSecretKey)
	if password == "" || secretKey == "" {
		return nil, nil
	}

	// Completion runs without PersistentPreRunE, so load the config here.
	c, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, err
	}
	vaultPath := c.VaultPath
	if flagVault != "" {
		vaultPath = flagVault
	}

	sess, err := vault.NewStore(vaultPath).Load(password, secretKey)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	entries, err := sess.Entries()
	if err != nil {
		return nil, err
	}
	return filterTitles(entries, prefix), nil
}

// filterTitles returns the titles of entries starting with prefix,
// case-insensitively, without duplicates.
func filterTitles(entries []vault.Entry, prefix string) []string {
	seen := make(map[string]struct{}, len(entries))
	var titles []string
	lowerPrefix := strings.ToLower(prefix)
	for _, e := range entries {
		if !strings.HasPrefix(strings.ToLower(e.Title), lowerPrefix) {
			continue
		}
		if _, dup := seen[e.Title]; dup {
			continue
		}
		seen[e.Title] = struct{}{}
		titles = append(titles, e.Title)
	}
	return titles
}
