package security

import (
	"strconv"
	"time"

	"github.com/forest6511/harpocrates/pkg/vault"
)

// SecurityScore represents the overall security assessment of a vault.
type SecurityScore struct {
	// Overall is the total score (0-100).
	Overall int `json:"overall"`
	// Components breaks down the score into categories.
	Components ScoreComponents `json:"components"`
	// Issues contains the detected security issues.
	Issues []SecurityIssue `json:"issues"`
	// Suggestions provides actionable recommendations.
	Suggestions []string `json:"suggestions"`
	// Limited indicates if issues were cut by Limits.
	Limited bool `json:"limited"`
}

// ScoreComponents breaks down the security score into categories.
// Each component contributes up to 25 points (total: 100).
type ScoreComponents struct {
	// StrengthScore is based on average password strength (0-25).
	StrengthScore int `json:"strength"`
	// UniquenessScore is based on percentage of unique passwords (0-25).
	UniquenessScore int `json:"uniqueness"`
	// FreshnessScore is based on percentage of recently changed passwords (0-25).
	FreshnessScore int `json:"freshness"`
	// BreachScore is based on percentage of passwords not seen in breaches (0-25).
	BreachScore int `json:"breach"`
}

// IssueType identifies the type of security issue.
type IssueType string

const (
	// IssueWeakPassword indicates a password with insufficient strength.
	IssueWeakPassword IssueType = "weak"
	// IssueDuplicatePassword indicates passwords reused across entries.
	IssueDuplicatePassword IssueType = "duplicate"
	// IssueStalePassword indicates a password not changed for a long time.
	IssueStalePassword IssueType = "stale"
	// IssueBreachedPassword indicates a password found in a breach corpus.
	IssueBreachedPassword IssueType = "breached"
)

// Severity indicates the urgency of a security issue.
type Severity string

const (
	// SeverityCritical requires immediate attention.
	SeverityCritical Severity = "critical"
	// SeverityWarning should be addressed soon.
	SeverityWarning Severity = "warning"
	// SeverityInfo is informational only.
	SeverityInfo Severity = "info"
)

// SecurityIssue represents a detected security problem.
type SecurityIssue struct {
	// Type identifies the category of issue.
	Type IssueType `json:"type"`
	// Severity indicates urgency.
	Severity Severity `json:"severity"`
	// Title is the affected entry (may be empty for privacy).
	Title string `json:"title,omitempty"`
	// Titles is used for duplicate issues (multiple entries).
	Titles []string `json:"titles,omitempty"`
	// Description explains the issue.
	Description string `json:"description"`
	// Suggestion provides remediation guidance.
	Suggestion string `json:"suggestion,omitempty"`
}

// Calculator computes security scores for a set of entries.
type Calculator struct {
	limits       Limits
	hmacKey      []byte         // Session-local key for duplicate detection
	maxAgeDays   int            // Days after which a password is stale (default 365)
	breachCounts map[string]int // Entry id -> breach count, nil when not checked
	now          func() time.Time
}

// NewCalculator creates a new security calculator.
func NewCalculator(limits Limits) *Calculator {
	return &Calculator{
		limits:     limits,
		maxAgeDays: 365,
		now:        time.Now,
	}
}

// WithMaxAgeDays sets the number of days after which a password is stale.
func (c *Calculator) WithMaxAgeDays(days int) *Calculator {
	c.maxAgeDays = days
	return c
}

// WithBreachCounts supplies breach counts keyed by entry id, as produced by
// a breach scan. Without it the breach component is not evaluated.
func (c *Calculator) WithBreachCounts(counts map[string]int) *Calculator {
	c.breachCounts = counts
	return c
}

// WithClock overrides the time source used for staleness.
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

// CalculateScore computes the full security score for entries.
func (c *Calculator) CalculateScore(entries []vault.Entry, includeTitles bool) (*SecurityScore, error) {
	// Empty vault: perfect score
	if len(entries) == 0 {
		return &SecurityScore{
			Overall: 100,
			Components: ScoreComponents{
				StrengthScore:   25,
				UniquenessScore: 25,
				FreshnessScore:  25,
				BreachScore:     25,
			},
			Issues:      []SecurityIssue{},
			Suggestions: []string{},
			Limited:     false,
		}, nil
	}

	// Calculate each component
	strengthScore, weakIssues := c.calculateStrengthScore(entries, includeTitles)
	uniquenessScore, dupIssues, err := c.calculateUniquenessScore(entries, includeTitles)
	if err != nil {
		return nil, err
	}
	freshnessScore, staleIssues := c.calculateFreshnessScore(entries, includeTitles)
	breachScore, breachIssues := c.calculateBreachScore(entries, includeTitles)

	// Combine all issues, most urgent first
	allIssues := make([]SecurityIssue, 0)
	allIssues = append(allIssues, breachIssues...)
	allIssues = append(allIssues, weakIssues...)
	allIssues = append(allIssues, dupIssues...)
	allIssues = append(allIssues, staleIssues...)

	// Apply limits
	limited := false
	if c.limits.IsLimited() {
		allIssues, limited = c.applyLimits(allIssues)
	}

	// Generate suggestions based on issues
	suggestions := c.generateSuggestions(allIssues)

	return &SecurityScore{
		Overall: strengthScore + uniquenessScore + freshnessScore + breachScore,
		Components: ScoreComponents{
			StrengthScore:   strengthScore,
			UniquenessScore: uniquenessScore,
			FreshnessScore:  freshnessScore,
			BreachScore:     breachScore,
		},
		Issues:      allIssues,
		Suggestions: suggestions,
		Limited:     limited,
	}, nil
}

// calculateStrengthScore evaluates password strength across all entries.
// Returns score (0-25) and weak password issues.
func (c *Calculator) calculateStrengthScore(entries []vault.Entry, includeTitles bool) (int, []SecurityIssue) {
	totalPoints := 0
	passwordCount := 0

	for _, e := range entries {
		if e.Password == "" {
			continue
		}
		passwordCount++
		totalPoints += CalculatePasswordStrength(e.Password).Points()
	}

	issues := c.FindWeakPasswords(entries, includeTitles, 0)

	// No passwords: full score (N/A)
	if passwordCount == 0 {
		return 25, issues
	}

	// Calculate average and scale to 0-25
	score := totalPoints / passwordCount
	if score > 25 {
		score = 25
	}

	return score, issues
}

// calculateUniquenessScore evaluates password reuse across entries.
// Returns score (0-25) and duplicate issues.
func (c *Calculator) calculateUniquenessScore(entries []vault.Entry, includeTitles bool) (int, []SecurityIssue, error) {
	duplicates, err := c.FindDuplicates(entries, includeTitles, 0) // No limit for calculation
	if err != nil {
		return 0, nil, err
	}

	// Count total passwords and unique passwords
	passwordHashes := make(map[string]bool)
	totalPasswords := 0
	for _, e := range entries {
		value := normalizeValue(e.Password)
		if value == "" {
			continue
		}
		totalPasswords++
		passwordHashes[computeValueHash(value, c.hmacKey)] = true
	}

	// No passwords: full score (N/A)
	if totalPasswords == 0 {
		return 25, nil, nil
	}

	// Convert duplicates to issues
	var issues []SecurityIssue
	for _, dup := range duplicates {
		issue := SecurityIssue{
			Type:        IssueDuplicatePassword,
			Severity:    SeverityWarning,
			Description: strconv.Itoa(dup.Count) + " entries share the same password",
			Suggestion:  "Use unique passwords for each entry",
		}
		if includeTitles {
			issue.Titles = dup.Titles
		}
		issues = append(issues, issue)
	}

	// Calculate uniqueness ratio
	uniquenessRatio := float64(len(passwordHashes)) / float64(totalPasswords)
	score := int(uniquenessRatio * 25)

	return score, issues, nil
}

// calculateFreshnessScore evaluates how long passwords have gone unchanged.
// Returns score (0-25) and stale password issues.
func (c *Calculator) calculateFreshnessScore(entries []vault.Entry, includeTitles bool) (int, []SecurityIssue) {
	var issues []SecurityIssue
	now := c.now()
	staleThreshold := now.AddDate(0, 0, -c.maxAgeDays)

	dated := 0
	freshCount := 0

	for _, e := range entries {
		changed, ok := lastChanged(e)
		if !ok {
			continue // No usable timestamp (legacy entry)
		}
		dated++

		if !changed.Before(staleThreshold) {
			freshCount++
			continue
		}

		days := int(now.Sub(changed).Hours() / 24)
		issue := SecurityIssue{
			Type:        IssueStalePassword,
			Severity:    SeverityInfo,
			Description: "Password unchanged for " + formatDays(days),
			Suggestion:  "Rotate passwords that have not changed in over a year",
		}
		if includeTitles {
			issue.Title = e.Title
		}
		issues = append(issues, issue)
	}

	// No dated entries: full score (N/A)
	if dated == 0 {
		return 25, issues
	}

	freshRatio := float64(freshCount) / float64(dated)
	return int(freshRatio * 25), issues
}

// calculateBreachScore evaluates breach exposure from supplied counts.
// Returns score (0-25) and breached password issues.
func (c *Calculator) calculateBreachScore(entries []vault.Entry, includeTitles bool) (int, []SecurityIssue) {
	if c.breachCounts == nil {
		return 25, nil // Not checked (N/A)
	}

	var issues []SecurityIssue
	checked := 0
	clean := 0

	for _, e := range entries {
		count, ok := c.breachCounts[e.ID]
		if !ok {
			continue
		}
		checked++
		if count <= 0 {
			clean++
			continue
		}

		issue := SecurityIssue{
			Type:        IssueBreachedPassword,
			Severity:    SeverityCritical,
			Description: "Password seen " + strconv.Itoa(count) + " times in known breaches",
			Suggestion:  "Change this password immediately",
		}
		if includeTitles {
			issue.Title = e.Title
		}
		issues = append(issues, issue)
	}

	if checked == 0 {
		return 25, issues
	}
	return int(float64(clean) / float64(checked) * 25), issues
}

// lastChanged returns when the entry's password last changed.
func lastChanged(e vault.Entry) (time.Time, bool) {
	for _, ts := range []string{e.UpdatedAt, e.CreatedAt} {
		if ts == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t, true
		}
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", ts, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// applyLimits applies Limits to issues.
func (c *Calculator) applyLimits(issues []SecurityIssue) ([]SecurityIssue, bool) {
	limited := false
	counts := make(map[IssueType]int)
	result := make([]SecurityIssue, 0, len(issues))

	for _, issue := range issues {
		if limit := c.limits.limitFor(issue.Type); limit > 0 && counts[issue.Type] >= limit {
			limited = true
			continue
		}
		counts[issue.Type]++
		result = append(result, issue)
	}

	return result, limited
}

// generateSuggestions creates actionable recommendations based on issues.
func (c *Calculator) generateSuggestions(issues []SecurityIssue) []string {
	suggestions := []string{}
	has := make(map[IssueType]bool)
	for _, issue := range issues {
		has[issue.Type] = true
	}

	if has[IssueBreachedPassword] {
		suggestions = append(suggestions, "Change breached passwords immediately")
	}
	if has[IssueWeakPassword] {
		suggestions = append(suggestions, "Update weak passwords with stronger alternatives (14+ characters)")
	}
	if has[IssueDuplicatePassword] {
		suggestions = append(suggestions, "Replace duplicate passwords with unique values")
	}
	if has[IssueStalePassword] {
		suggestions = append(suggestions, "Rotate passwords that have not changed recently")
	}

	return suggestions
}

// formatDays returns a human-readable day count.
func formatDays(days int) string {
	if days == 0 {
		return "today"
	}
	if days == 1 {
		return "1 day"
	}
	return strconv.Itoa(days) + " days"
}
