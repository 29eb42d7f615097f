package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/vault"
)

// Audit flags
var (
	auditLimit  int
	auditSince  string
	auditAction string
)

// Audit export flags
var (
	auditExportFormat string
	auditExportSince  string
	auditExportUntil  string
	auditExportOutput string
)

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditAddCmd)

	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum number of events to show (0 = all)")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "Show events since duration (e.g., 24h, 30d)")
	auditListCmd.Flags().StringVar(&auditAction, "action", "", "Show only this action (e.g., CREATE, HIBP_ALERT)")

	auditExportCmd.Flags().StringVar(&auditExportFormat, "format", audit.FormatJSON, "Output format: json, csv")
	auditExportCmd.Flags().StringVar(&auditExportSince, "since", "", "Export events since duration (e.g., 30d)")
	auditExportCmd.Flags().StringVar(&auditExportUntil, "until", "", "Export events until date (RFC 3339)")
	auditExportCmd.Flags().StringVarP(&auditExportOutput, "output", "o", "", "Output file path (default: stdout)")

	_ = auditExportCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{audit.FormatJSON, audit.FormatCSV}, cobra.ShellCompDirectiveNoFileComp))
}

// auditCmd is the parent command for audit operations
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
}

// auditListCmd lists audit log entries
var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditLimit < 0 {
			return errors.New("--limit must not be negative")
		}
		opts := audit.FilterOptions{Action: auditAction, Limit: auditLimit}
		if auditSince != "" {
			duration, err := parseDuration(auditSince)
			if err != nil {
				return fmt.Errorf("invalid since format: %w", err)
			}
			opts.Since = time.Now().Add(-duration)
		}

		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		logs, err := sess.Logs()
		if err != nil {
			return err
		}
		events := audit.Filter(logs, opts)

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No audit events found")
			return nil
		}

		// Format: TIMESTAMP ACTION DETAILS
		for _, e := range events {
			fmt.Fprintf(out, "%s %-10s %s\n", mutedStyle.Render(e.Timestamp), e.Action, e.Details)
		}
		fmt.Fprintf(out, "\nTotal: %d events\n", len(events))
		return nil
	},
}

// auditVerifyCmd verifies audit log integrity
var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit log hash chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Verifying audit log integrity...")

		result, err := sess.AuditVerify()
		if err != nil {
			return fmt.Errorf("failed to verify audit log: %w", err)
		}

		if !result.Valid {
			fmt.Fprintln(out, failureStyle.Render("✗ Audit log verification FAILED"))
			fmt.Fprintf(out, "  Records total: %d\n", result.RecordsTotal)
			fmt.Fprintln(out, "  Errors:")
			for _, e := range result.Errors {
				fmt.Fprintf(out, "    - %s\n", e)
			}
			return errors.New("audit log integrity check failed")
		}
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Audit log verified: %d records, chain intact", result.RecordsTotal)))

		// Also output as JSON for machine parsing
		jsonResult, _ := json.Marshal(result)
		fmt.Fprintf(out, "\nJSON: %s\n", string(jsonResult))
		return nil
	},
}

// auditExportCmd exports audit logs
var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit logs to JSON or CSV format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditExportFormat != audit.FormatJSON && auditExportFormat != audit.FormatCSV {
			return fmt.Errorf("invalid format: %s (use 'json' or 'csv')", auditExportFormat)
		}

		var opts audit.FilterOptions
		if auditExportSince != "" {
			duration, err := parseDuration(auditExportSince)
			if err != nil {
				return fmt.Errorf("invalid since format: %w", err)
			}
			opts.Since = time.Now().Add(-duration)
		}
		if auditExportUntil != "" {
			until, err := time.Parse(time.RFC3339, auditExportUntil)
			if err != nil {
				return fmt.Errorf("invalid until format (use RFC 3339): %w", err)
			}
			opts.Until = until
		}

		var absPath string
		if auditExportOutput != "" {
			var err error
			if absPath, err = validateOutputPath(auditExportOutput); err != nil {
				return err
			}
		}

		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		logs, err := sess.Logs()
		if err != nil {
			return err
		}
		events := audit.Filter(logs, opts)
		data, err := audit.Export(events, auditExportFormat)
		if err != nil {
			return fmt.Errorf("failed to export audit logs: %w", err)
		}

		if absPath == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}

		if err := vault.AtomicWriteFile(absPath, data); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if err := sess.AppendAudit(audit.ActionExport,
			fmt.Sprintf("Audit log exported: %d events (%s)", len(events), auditExportFormat)); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: exported audit logs contain entry titles and operation history.")
		fmt.Fprintf(cmd.ErrOrStderr(), "Audit logs exported to %s\n", absPath)
		return nil
	},
}

// validateOutputPath restricts export targets to the current directory,
// the home directory or the temp directory.
func validateOutputPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	homeDir, _ := os.UserHomeDir()

	for _, prefix := range []string{cwd, homeDir, os.TempDir()} {
		if prefix == "" {
			continue
		}
		if absPath == prefix || strings.HasPrefix(absPath, prefix+string(filepath.Separator)) {
			return absPath, nil
		}
	}
	return "", errors.New("output path must be within current directory, home directory, or the temp directory")
}

// auditAddCmd records a custom event.
var auditAddCmd = &cobra.Command{
	Use:   "add <action> <details>",
	Short: "Append a custom event to the audit log",
	Long: `Append a custom event to the audit log. The action is upper-cased.

Example:
  harpocrates audit add NOTE "Rotated all banking passwords"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := strings.TrimSpace(args[0])
		if action == "" {
			return errors.New("action must not be empty")
		}

		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.AppendAudit(action, args[1]); err != nil {
			return fmt.Errorf("failed to append audit event: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("Recorded"), strings.ToUpper(action))
		return nil
	},
}
