package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/pkg/breach"
	"github.com/forest6511/harpocrates/pkg/security"
)

// Security command flags
var (
	securityVerbose bool
	securityJSON    bool
	securityMaxAge  int
	securityBreach  bool
	securityAll     bool
)

func init() {
	rootCmd.AddCommand(securityCmd)
	rootCmd.AddCommand(duplicatesCmd)
	rootCmd.AddCommand(strengthCmd)

	securityCmd.AddCommand(securityWeakCmd)

	securityCmd.Flags().BoolVarP(&securityVerbose, "details", "d", false, "Show suggestions as well as issues")
	securityCmd.Flags().BoolVar(&securityJSON, "json", false, "Output in JSON format")
	securityCmd.Flags().IntVar(&securityMaxAge, "max-age", 365, "Days after which a password is considered stale")
	securityCmd.Flags().BoolVar(&securityBreach, "breach", false, "Also check passwords against known breaches")
	securityCmd.PersistentFlags().BoolVar(&securityAll, "all", false, "Show every issue instead of the top ones")
	duplicatesCmd.Flags().BoolVar(&securityAll, "all", false, "Show every duplicate group instead of the top ones")
}

// securityCmd is the root security command.
var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Analyze vault security health",
	Long: `Analyze the security health of your vault and get recommendations.

The security score is calculated from:
  - Password Strength (0-25): Average strength of passwords
  - Uniqueness (0-25): Percentage of unique passwords
  - Freshness (0-25): Percentage of passwords changed within --max-age days
  - Breaches (0-25): Percentage of passwords not found in known breaches
    (full marks unless --breach is given)

Example:
  harpocrates security              # Show security score and top issues
  harpocrates security --details    # Also show suggestions
  harpocrates security --breach     # Include a breach check
  harpocrates security --json       # Output in JSON format`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if securityMaxAge < 1 {
			return errors.New("--max-age must be at least 1")
		}

		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}

		calc := security.NewCalculator(reportLimits()).WithMaxAgeDays(securityMaxAge)

		if securityBreach {
			client, closeCache := newBreachClient(cmd.Context(), false)
			defer closeCache()
			report, err := breach.Scan(cmd.Context(), sess, client)
			if err != nil {
				return fmt.Errorf("breach check failed: %w", err)
			}
			for _, f := range report.Failed {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not check %s: %v\n", f.Title, f.Err)
			}
			calc = calc.WithBreachCounts(report.Counts(entries))
		}

		score, err := calc.CalculateScore(entries, true)
		if err != nil {
			return fmt.Errorf("failed to calculate security score: %w", err)
		}

		if securityJSON {
			return outputSecurityJSON(cmd.OutOrStdout(), score)
		}
		outputSecurityText(cmd.OutOrStdout(), score, securityVerbose)
		return nil
	},
}

func reportLimits() security.Limits {
	if securityAll {
		return security.NoLimits()
	}
	return security.DefaultLimits()
}

// duplicatesCmd lists passwords shared by several entries.
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List reused passwords",
	Long: `Show entries that share the same password.

Passwords are compared through an HMAC keyed per run, so no password hash is
kept or printed. Only the top groups are shown unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}

		limits := reportLimits()
		groups, err := security.NewCalculator(limits).FindDuplicates(entries, true, limits.DuplicateLimit)
		if err != nil {
			return fmt.Errorf("failed to find duplicates: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(groups) == 0 {
			fmt.Fprintln(out, successStyle.Render("No duplicate passwords found!"))
			return nil
		}

		fmt.Fprintf(out, "Duplicate Passwords (%d groups found)\n\n", len(groups))
		for i, group := range groups {
			fmt.Fprintf(out, "%d. %d entries share the same password:\n", i+1, group.Count)
			for j, title := range group.Titles {
				fmt.Fprintf(out, "   - %s %s\n", title, mutedStyle.Render(shortID(group.IDs[j])))
			}
			fmt.Fprintln(out)
		}

		if limits.DuplicateLimit > 0 && len(groups) >= limits.DuplicateLimit {
			fmt.Fprintln(out, "Run with --all for the full duplicate list.")
		}
		return nil
	},
}

// securityWeakCmd lists weak passwords.
var securityWeakCmd = &cobra.Command{
	Use:   "weak",
	Short: "List weak passwords",
	Long:  `Show entries whose password is rated Weak (fewer than 8 characters).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openVault()
		if err != nil {
			return err
		}
		defer sess.Close()

		entries, err := sess.Entries()
		if err != nil {
			return err
		}

		limits := reportLimits()
		issues := security.NewCalculator(limits).FindWeakPasswords(entries, true, limits.WeakLimit)

		out := cmd.OutOrStdout()
		if len(issues) == 0 {
			fmt.Fprintln(out, successStyle.Render("No weak passwords found!"))
			return nil
		}

		fmt.Fprintf(out, "Weak Passwords (%d found)\n\n", len(issues))
		for i, issue := range issues {
			fmt.Fprintf(out, "%d. %s\n", i+1, issue.Title)
			fmt.Fprintf(out, "   %s\n\n", issue.Description)
		}

		if limits.WeakLimit > 0 && len(issues) >= limits.WeakLimit {
			fmt.Fprintln(out, "Run with --all for the full weak password list.")
		}
		return nil
	},
}

// strengthCmd rates a password without storing it.
var strengthCmd = &cobra.Command{
	Use:   "strength",
	Short: "Rate the strength of a password",
	Long: `Rate a password as Weak, Fair, Good or Strong. The password is read from the
terminal without echo (or from stdin when piped) and is never stored.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret("Password to rate: ", "")
		if err != nil {
			return err
		}
		if password == "" {
			return errors.New("password must not be empty")
		}

		strength := security.CalculatePasswordStrength(password)
		style := successStyle
		switch strength {
		case security.PasswordWeak:
			style = failureStyle
		case security.PasswordFair:
			style = warningStyle
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Strength: %s\n", style.Render(strength.String()))
		return nil
	},
}

// outputSecurityJSON outputs the security score as JSON.
func outputSecurityJSON(w io.Writer, score *security.SecurityScore) error {
	data, err := json.MarshalIndent(score, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// outputSecurityText outputs the security score as formatted text.
func outputSecurityText(w io.Writer, score *security.SecurityScore, verbose bool) {
	var rating string
	style := successStyle
	switch {
	case score.Overall >= 90:
		rating = "Excellent"
	case score.Overall >= 70:
		rating = "Good"
	case score.Overall >= 50:
		style = warningStyle
		rating = "Fair"
	default:
		style = failureStyle
		rating = "Needs Attention"
	}

	fmt.Fprintf(w, "Security Score: %s\n\n", style.Render(fmt.Sprintf("%d/100 (%s)", score.Overall, rating)))

	fmt.Fprintln(w, headerStyle.Render("Components:"))
	fmt.Fprintf(w, "  Password Strength: %2d/25 %s\n", score.Components.StrengthScore, progressBar(score.Components.StrengthScore, 25))
	fmt.Fprintf(w, "  Uniqueness:        %2d/25 %s\n", score.Components.UniquenessScore, progressBar(score.Components.UniquenessScore, 25))
	fmt.Fprintf(w, "  Freshness:         %2d/25 %s\n", score.Components.FreshnessScore, progressBar(score.Components.FreshnessScore, 25))
	fmt.Fprintf(w, "  Breaches:          %2d/25 %s\n", score.Components.BreachScore, progressBar(score.Components.BreachScore, 25))
	fmt.Fprintln(w)

	if len(score.Issues) > 0 {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Top Issues (%d):", len(score.Issues))))
		for i, issue := range score.Issues {
			typeLabel := strings.ToUpper(string(issue.Type))
			keyInfo := ""
			if issue.Title != "" {
				keyInfo = fmt.Sprintf(" %q", issue.Title)
			} else if len(issue.Titles) > 0 {
				keyInfo = " " + strings.Join(issue.Titles, ", ")
			}
			fmt.Fprintf(w, "  %d. [%s]%s: %s\n", i+1, typeLabel, keyInfo, issue.Description)
		}
		fmt.Fprintln(w)
	}

	if len(score.Suggestions) > 0 && verbose {
		fmt.Fprintln(w, headerStyle.Render("Suggestions:"))
		for _, suggestion := range score.Suggestions {
			fmt.Fprintf(w, "  - %s\n", suggestion)
		}
		fmt.Fprintln(w)
	}

	if score.Limited {
		fmt.Fprintln(w, mutedStyle.Render("Some issues were omitted. Run with --all for the full list."))
	}
}

// progressBar creates a simple ASCII progress bar.
func progressBar(value, maxVal int) string {
	const width = 20
	if maxVal <= 0 {
		return ""
	}
	filled := value * width / maxVal
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
