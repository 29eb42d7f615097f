package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/pkg/importer"
)

var (
	importFrom        string
	importKeepFolders bool
	importDryRun      bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFrom, "from", "", "Import source: csv, 1password, bitwarden, lastpass (auto-detected if not specified)")
	importCmd.Flags().BoolVar(&importKeepFolders, "keep-folders", false, "Prefix titles with the source folder (Work/GitHub)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without making changes")

	_ = importCmd.RegisterFlagCompletionFunc("from", cobra.FixedCompletions(
		importer.ValidSources(), cobra.ShellCompDirectiveNoFileComp))
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import credentials from another password manager",
	Long: `Import credentials from a CSV export or another password manager.

The import is all-or-nothing: either every new entry is added and a single
IMPORT event is recorded, or the vault is left unchanged. Entries whose title
and username already exist are skipped.

Examples:
  # Generic CSV (title/name, username/login, password, url, notes columns)
  harpocrates import passwords.csv

  # Bitwarden JSON export, keeping folder names
  harpocrates import bitwarden.json --from bitwarden --keep-folders

  # Preview a 1Password export
  harpocrates import 1password.csv --from 1password --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: executeImport,
}

func executeImport(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	data, err := readImportFile(args[0])
	if err != nil {
		return err
	}

	source, err := resolveImportSource(importFrom, data)
	if err != nil {
		return err
	}
	parser, err := importer.GetParser(source)
	if err != nil {
		return err
	}
	logger.Debug("parsing import file", "source", source, "bytes", len(data))

	result, err := parser.Parse(data, importer.ParseOptions{KeepFolders: importKeepFolders})
	if err != nil {
		return fmt.Errorf("failed to parse %s file: %w", source, err)
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(errOut, "warning: %s\n", warning)
	}
	for _, skipped := range result.Skipped {
		fmt.Fprintf(errOut, "Skipped: %s (%s)\n", skipped.Title, skipped.Reason)
	}

	if len(result.Entries) == 0 {
		fmt.Fprintln(out, "No entries found in file")
		return nil
	}
	fmt.Fprintf(out, "Found %d entries to import (%s)\n", len(result.Entries), source)

	if importDryRun {
		for _, in := range result.Entries {
			fmt.Fprintf(out, "[dry-run] Would import: %s (%s)\n", in.Title, in.Username)
		}
		return nil
	}

	sess, err := openVault()
	if err != nil {
		return err
	}
	defer sess.Close()

	summary, err := importer.Import(sess, result)
	if err != nil {
		return err
	}

	for _, skipped := range summary.Skipped {
		if skipped.Reason == "duplicate" {
			fmt.Fprintf(out, "Skipped (exists): %s\n", skipped.Title)
		}
	}
	printImportSummary(out, summary)
	return nil
}

// resolveImportSource validates --from or detects the format from content.
func resolveImportSource(from string, data []byte) (importer.Source, error) {
	if from == "" {
		return importer.DetectSource(data), nil
	}
	source := importer.Source(strings.ToLower(from))
	if _, err := importer.GetParser(source); err != nil {
		return "", fmt.Errorf("invalid --from value '%s': must be one of %v", from, importer.ValidSources())
	}
	return source, nil
}

// readImportFile reads and validates an export file.
func readImportFile(filePath string) ([]byte, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to access file: %w", err)
	}

	// Security check: reject symlinks
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("security: refusing to read symlink: %s", absPath)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// printImportSummary prints the import summary.
func printImportSummary(w io.Writer, summary *importer.Summary) {
	fmt.Fprintf(w, "\nImport summary:\n")
	fmt.Fprintf(w, "  Imported:  %d\n", summary.Imported)
	if n := len(summary.Skipped); n > 0 {
		fmt.Fprintf(w, "  Skipped:   %d\n", n)
	}
	if n := len(summary.Warnings); n > 0 {
		fmt.Fprintf(w, "  Warnings:  %d\n", n)
	}
}
