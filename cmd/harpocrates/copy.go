package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/internal/cli"
)

// defaultClipboardClear is how long a copied password stays on the clipboard.
const defaultClipboardClear = 30 * time.Second

// Clipboard access, replaced in tests.
var (
	writeClipboard = clipboard.WriteAll
	readClipboard  = clipboard.ReadAll
)

var (
	copyField string
	copyClear time.Duration
)

func init() {
	rootCmd.AddCommand(copyCmd)

	copyCmd.Flags().StringVar(&copyField, "field", "password", "Field to copy: password, username, url, notes, id")
	copyCmd.Flags().DurationVar(&copyClear, "clear-after", defaultClipboardClear, "Clear the clipboard after this long (0 keeps it)")
}

// copyCmd copies an entry's password to the clipboard.
var copyCmd = &cobra.Command{
	Use:   "copy <selector>",
	Short: "Copy a password to the clipboard",
	Long: `Copy a credential's password to the system clipboard. The command waits and
clears the clipboard after --clear-after (30s by default) unless something
else was copied in the meantime. Ctrl+C clears it immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}

		entries, err := sess.Entries()
		sess.Close()
		if err != nil {
			return err
		}
		i, err := cli.SelectOne(args[0], entries)
		if err != nil {
			return err
		}
		value, err := entryField(entries[i], copyField)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return copyToClipboard(ctx, cmd.ErrOrStderr(), value, copyClear)
	},
}

// copyToClipboard writes value to the clipboard and, when clearAfter is
// positive, blocks until it elapses or ctx is done before clearing it.
func copyToClipboard(ctx context.Context, w io.Writer, value string, clearAfter time.Duration) error {
	if err := writeClipboard(value); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	if clearAfter <= 0 {
		fmt.Fprintln(w, "Copied to clipboard")
		return nil
	}

	fmt.Fprintf(w, "Copied to clipboard. Clearing in %s (Ctrl+C clears now)...\n", clearAfter)
	timer := time.NewTimer(clearAfter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	cleared, err := clearClipboard(value)
	if err != nil {
		return err
	}
	if cleared {
		fmt.Fprintln(w, "Clipboard cleared")
	}
	return nil
}

// clearClipboard empties the clipboard if it still holds value.
func clearClipboard(value string) (bool, error) {
	if current, err := readClipboard(); err == nil && current != value {
		return false, nil
	}
	if err := writeClipboard(""); err != nil {
		return false, fmt.Errorf("failed to clear clipboard: %w", err)
	}
	return true, nil
}
