package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/pkg/breach"
)

var (
	breachCache bool
	breachJSON  bool
)

func init() {
	rootCmd.AddCommand(breachCmd)

	breachCmd.Flags().BoolVar(&breachCache, "cache", false, "Cache fetched ranges on disk (unencrypted, see help)")
	breachCmd.Flags().BoolVar(&breachJSON, "json", false, "Output the report as JSON")
}

// breachCmd checks every stored password against Have I Been Pwned.
var breachCmd = &cobra.Command{
	Use:   "breach",
	Short: "Check stored passwords against known breaches",
	Long: `Check every stored password against the Have I Been Pwned password corpus.

Only the first 5 characters of each password's SHA-1 hash leave this machine
(k-anonymity range query). Responses are padded and cached locally for the
Results are recorded in the audit log: one HIBP_ALERT per breached entry, or a
single HIBP_CLEAN when nothing was found.

Range responses can be cached on disk with --cache (or breach.cache: true in
the config file) to avoid repeat downloads. WARNING: the cache lives outside
the encrypted vault. Its stored hash prefixes tell anyone who can read the
file which ranges your passwords fall in, which narrows offline guessing.
Leave it off unless the machine is trusted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		client, closeCache := newBreachClient(cmd.Context(), breachCache)
		defer closeCache()

		report, err := breach.Scan(cmd.Context(), sess, client)
		if err != nil {
			return fmt.Errorf("breach check failed: %w", err)
		}

		if breachJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		} else {
			printBreachReport(cmd, report)
		}

		if len(report.Failed) > 0 {
			return fmt.Errorf("%d entries could not be checked", len(report.Failed))
		}
		return nil
	},
}

// newBreachClient builds a range client from the configuration. The on-disk
// cache is used only when useCache or breach.cache is set; one that cannot be
// opened is logged and skipped. The returned function releases it.
func newBreachClient(ctx context.Context, useCache bool) (*breach.Client, func()) {
	opts := []breach.Option{
		breach.WithBaseURL(cfg.Breach.Endpoint),
		breach.WithHTTPClient(&http.Client{Timeout: cfg.Breach.Timeout}),
		breach.WithPadding(true),
		breach.WithLogger(logger),
	}
	closeCache := func() {}

	if useCache || cfg.Breach.Cache {
		cache, err := openBreachCache(ctx)
		if err != nil {
			logger.Warn("breach cache unavailable, continuing without it", "error", err)
		} else {
			opts = append(opts, breach.WithCache(cache))
			closeCache = func() {
				if err := cache.Close(); err != nil {
					logger.Debug("failed to close breach cache", "error", err)
				}
			}
		}
	}
	return breach.NewClient(opts...), closeCache
}

func openBreachCache(ctx context.Context) (*breach.SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Breach.CachePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	cache, err := breach.OpenSQLiteCache(cfg.Breach.CachePath, cfg.Breach.CacheTTL)
	if err != nil {
		return nil, err
	}
	if n, err := cache.Purge(ctx); err == nil && n > 0 {
		logger.Debug("purged expired breach ranges", "count", n)
	}
	return cache, nil
}

func printBreachReport(cmd *cobra.Command, report *breach.Report) {
	out := cmd.OutOrStdout()

	for _, f := range report.Breached {
		fmt.Fprintf(out, "%s %s: seen %d times\n", failureStyle.Render("BREACHED"), f.Title, f.Count)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not check %s: %v\n", f.Title, f.Err)
	}

	switch {
	case len(report.Breached) > 0:
		fmt.Fprintf(out, "\n%d of %d checked entries appear in known breaches. Change these passwords.\n",
			len(report.Breached), report.Checked)
	case len(report.Failed) == 0:
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("No breached passwords found (%d checked)", report.Checked)))
	default:
		fmt.Fprintf(out, "No breached passwords among the %d entries checked\n", report.Checked)
	}
}
