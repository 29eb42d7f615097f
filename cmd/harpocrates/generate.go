package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/pkg/security"
)

const (
	defaultPasswordCount = 1
	maxPasswordCount     = 100
	maxExcludeLength     = 256
)

// Generate command flags
var (
	generateLength      int
	generateCount       int
	generateNoSymbols   bool
	generateNoNumbers   bool
	generateNoUppercase bool
	generateNoLowercase bool
	generateExclude     string
	generateCopy        bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&generateLength, "length", "l", 0, "Password length (8-256, default from config)")
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", defaultPasswordCount, "Number of passwords to generate (1-100)")
	generateCmd.Flags().BoolVar(&generateNoSymbols, "no-symbols", false, "Exclude symbols")
	generateCmd.Flags().BoolVar(&generateNoNumbers, "no-numbers", false, "Exclude numbers")
	generateCmd.Flags().BoolVar(&generateNoUppercase, "no-uppercase", false, "Exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoLowercase, "no-lowercase", false, "Exclude lowercase letters")
	generateCmd.Flags().StringVar(&generateExclude, "exclude", "", "Characters to exclude (default from config)")
	generateCmd.Flags().BoolVarP(&generateCopy, "copy", "c", false, "Copy the first password to the clipboard (cleared after 30s)")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate secure random passwords",
	Long: `Generate cryptographically secure random passwords. Every enabled character
class appears at least once.

Examples:
  # Generate a password with the configured length (20 by default)
  harpocrates generate

  # Generate a 32-character password without symbols
  harpocrates generate -l 32 --no-symbols

  # Generate 5 passwords
  harpocrates generate -n 5

  # Generate and copy to clipboard
  harpocrates generate -c

  # Generate password excluding ambiguous characters
  harpocrates generate --exclude "0O1lI"`,
	Args: cobra.NoArgs,
	RunE: executeGenerate,
}

func executeGenerate(cmd *cobra.Command, args []string) error {
	opts := generateOptions(cmd)
	if err := validateGenerateFlags(opts); err != nil {
		return err
	}

	passwords := make([]string, generateCount)
	for i := range passwords {
		password, err := security.Generate(opts)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
		passwords[i] = password
	}

	for _, password := range passwords {
		fmt.Fprintln(cmd.OutOrStdout(), password)
	}

	if generateCopy {
		if err := copyToClipboard(cmd.Context(), cmd.ErrOrStderr(), passwords[0], defaultClipboardClear); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
	}
	return nil
}

// generateOptions merges the flags with the configured defaults.
func generateOptions(cmd *cobra.Command) security.GenerateOptions {
	opts := security.GenerateOptions{
		Length:    generateLength,
		NoUpper:   generateNoUppercase,
		NoLower:   generateNoLowercase,
		NoDigits:  generateNoNumbers,
		NoSymbols: generateNoSymbols,
		Exclude:   generateExclude,
	}
	if opts.Length == 0 && cfg != nil {
		opts.Length = cfg.Generator.Length
	}
	if !cmd.Flags().Changed("exclude") && cfg != nil {
		opts.Exclude = cfg.Generator.Exclude
	}
	return opts
}

// validateGenerateFlags validates the generate command flags
func validateGenerateFlags(opts security.GenerateOptions) error {
	length := opts.Length
	if length == 0 {
		length = security.DefaultPasswordLength
	}
	if length < security.MinPasswordLength {
		return fmt.Errorf("password length must be at least %d characters", security.MinPasswordLength)
	}
	if length > security.MaxPasswordLength {
		return fmt.Errorf("password length must be at most %d characters", security.MaxPasswordLength)
	}
	if generateCount < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if generateCount > maxPasswordCount {
		return fmt.Errorf("count must be at most %d", maxPasswordCount)
	}
	if len(opts.Exclude) > maxExcludeLength {
		return fmt.Errorf("exclude string must be at most %d characters", maxExcludeLength)
	}
	return nil
}
