package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/pkg/backup"
	"github.com/forest6511/harpocrates/pkg/vault"
)

var (
	restoreDryRun     bool
	restoreVerifyOnly bool
	restoreOnConflict string
	restoreForce      bool
)

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Check the backup against the credentials without writing")
	restoreCmd.Flags().BoolVar(&restoreVerifyOnly, "verify-only", false, "Only verify backup integrity")
	restoreCmd.Flags().StringVar(&restoreOnConflict, "on-conflict", "error", "When a vault exists: skip, overwrite, error")
	restoreCmd.Flags().BoolVarP(&restoreForce, "force", "f", false, "Overwrite an existing vault without prompting (same as --on-conflict=overwrite)")

	_ = restoreCmd.RegisterFlagCompletionFunc("on-conflict", cobra.FixedCompletions(
		[]string{"error", "skip", "overwrite"}, cobra.ShellCompDirectiveNoFileComp))
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore the vault from a backup",
	Long: `Restore the vault from a backup file. The backup must open with the given
master password and secret key before anything is written. An overwritten
vault is kept as <vault>.pre-restore.

Examples:
  # Verify backup integrity and credentials without restoring
  harpocrates restore vault.hbk --verify-only

  # Dry run (preview only)
  harpocrates restore vault.hbk --dry-run

  # Replace the current vault
  harpocrates restore vault.hbk --on-conflict=overwrite`,
	Args: cobra.ExactArgs(1),
	RunE: executeRestore,
}

func executeRestore(cmd *cobra.Command, args []string) error {
	backupPath := args[0]
	out := cmd.OutOrStdout()

	if err := validateRestoreFlags(); err != nil {
		return err
	}
	conflictMode, err := parseConflictMode(restoreOnConflict)
	if err != nil {
		return err
	}
	if restoreForce {
		conflictMode = backup.ConflictOverwrite
	}

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	password, secretKey, err := promptCredentials()
	if err != nil {
		return err
	}

	if restoreVerifyOnly {
		result, err := backup.Verify(backupPath, password, secretKey)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if !result.Valid {
			if result.Kind == vault.KindAuthentication {
				return errAuthFailed
			}
			return fmt.Errorf("verification failed: %s", result.Error)
		}
		fmt.Fprintln(out, successStyle.Render("Backup verification successful!"))
		printBackupHeader(cmd, result.Header)
		return nil
	}

	store := newStore()
	if store.Exists() && conflictMode == backup.ConflictOverwrite && !restoreForce && !restoreDryRun {
		if !confirm(out, fmt.Sprintf("This will replace the vault at %s. Continue?", store.Path())) {
			fmt.Fprintln(out, "Restore cancelled.")
			return nil
		}
	}

	result, err := backup.Restore(backupPath, store, password, secretKey, backup.RestoreOptions{
		OnConflict: conflictMode,
		DryRun:     restoreDryRun,
	})
	if err != nil {
		if vault.KindOf(err) == vault.KindAuthentication {
			return errAuthFailed
		}
		return fmt.Errorf("restore failed: %w", err)
	}

	switch {
	case result.DryRun:
		fmt.Fprintln(out, "Dry run complete. Would restore:")
	case result.Skipped:
		fmt.Fprintf(out, "A vault already exists at %s; nothing was restored.\n", store.Path())
		return nil
	default:
		fmt.Fprintln(out, successStyle.Render("Restore complete!"))
	}
	printBackupHeader(cmd, result.Header)
	if result.PreviousPath != "" {
		fmt.Fprintf(out, "  Previous vault saved to %s\n", result.PreviousPath)
	}
	return nil
}

func printBackupHeader(cmd *cobra.Command, h *backup.Header) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Created:       %s\n", h.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Vault version: %s\n", h.VaultVersion)
	fmt.Fprintf(out, "  Entries:       %d\n", h.EntryCount)
	fmt.Fprintf(out, "  Log events:    %d\n", h.LogCount)
}

func validateRestoreFlags() error {
	validModes := map[string]bool{"skip": true, "overwrite": true, "error": true}
	if !validModes[restoreOnConflict] {
		return fmt.Errorf("invalid --on-conflict value: %s (valid: skip, overwrite, error)", restoreOnConflict)
	}
	if restoreDryRun && restoreVerifyOnly {
		return fmt.Errorf("--dry-run and --verify-only are mutually exclusive")
	}
	return nil
}

func parseConflictMode(mode string) (backup.ConflictMode, error) {
	switch mode {
	case "skip":
		return backup.ConflictSkip, nil
	case "overwrite":
		return backup.ConflictOverwrite, nil
	case "error":
		return backup.ConflictError, nil
	default:
		return backup.ConflictError, fmt.Errorf("unknown conflict mode: %s", mode)
	}
}
