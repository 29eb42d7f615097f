package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/pkg/backup"
)

// backupExt is the extension of generated backup file names.
const backupExt = ".hbk"

var (
	backupOutput string
	backupForce  bool
)

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file path (default: backups/ next to the vault)")
	backupCmd.Flags().BoolVarP(&backupForce, "force", "f", false, "Overwrite existing file")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a backup of the vault",
	Long: `Create a backup of the vault. The backup holds the encrypted vault file
unchanged inside a checksummed container, so it opens with the same master
password and secret key as the vault itself.

Examples:
  # Backup next to the vault (backups/vault-YYYYMMDD-HHMMSS.hbk)
  harpocrates backup

  # Backup to a file
  harpocrates backup -o /media/usb/vault.hbk

  # Overwrite existing file
  harpocrates backup -o vault.hbk --force`,
	Args: cobra.NoArgs,
	RunE: executeBackup,
}

func executeBackup(cmd *cobra.Command, args []string) error {
	output := backupOutput
	if output == "" {
		output = defaultBackupPath(cfg.VaultPath, time.Now())
	}

	if !backupForce {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("output file already exists: %s (use --force to overwrite)", output)
		}
	}

	sess, err := openVault()
	if err != nil {
		return err
	}
	defer sess.Close()

	header, err := backup.Backup(sess, output)
	if err != nil {
		if errors.Is(err, backup.ErrSamePath) {
			return errors.New("backup path must differ from the vault path")
		}
		return fmt.Errorf("backup failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", successStyle.Render("Backup created:"), output)
	fmt.Fprintf(out, "  Entries:     %d\n", header.EntryCount)
	fmt.Fprintf(out, "  Log events:  %d\n", header.LogCount)
	fmt.Fprintf(out, "  Checksum:    %s:%s\n", header.ChecksumAlgo, header.Checksum)
	return nil
}

// defaultBackupPath returns backups/vault-<timestamp>.hbk beside the vault.
func defaultBackupPath(vaultPath string, now time.Time) string {
	name := "vault-" + now.Format("20060102-150405") + backupExt
	return filepath.Join(filepath.Dir(vaultPath), "backups", name)
}
