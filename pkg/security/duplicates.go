package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/forest6511/harpocrates/pkg/vault"
)

// DuplicateGroup represents a group of entries sharing the same password.
type DuplicateGroup struct {
	// Titles contains the titles of entries with the same password.
	Titles []string `json:"titles,omitempty"`
	// IDs contains the matching entry ids, in the same order as Titles.
	IDs []string `json:"ids,omitempty"`
	// Count is the number of duplicates.
	Count int `json:"count"`
}

// duplicateEntry tracks a single password occurrence for grouping.
type duplicateEntry struct {
	title string
	id    string
	hash  string
}

// FindDuplicates scans all entry passwords for duplicate values.
// Uses HMAC-SHA256 with a session-local key for privacy-preserving comparison.
// Returns groups sorted by count (most duplicated first).
//
// Security properties:
// - HMAC with session-local key prevents offline guessing attacks
// - Hashes are computed per-session, never persisted
// - Values are normalized (trimmed whitespace)
func (c *Calculator) FindDuplicates(entries []vault.Entry, includeTitles bool, limit int) ([]DuplicateGroup, error) {
	if err := c.ensureHMACKey(); err != nil {
		return nil, err
	}

	// Group by hash, keeping first-seen order for stable output
	hashGroups := make(map[string][]duplicateEntry)
	var order []string
	for _, e := range entries {
		value := normalizeValue(e.Password)
		if value == "" {
			continue
		}
		hash := computeValueHash(value, c.hmacKey)
		if _, seen := hashGroups[hash]; !seen {
			order = append(order, hash)
		}
		hashGroups[hash] = append(hashGroups[hash], duplicateEntry{
			title: e.Title,
			id:    e.ID,
			hash:  hash,
		})
	}

	// Convert to DuplicateGroups (only groups with count > 1)
	var groups []DuplicateGroup
	for _, hash := range order {
		members := hashGroups[hash]
		if len(members) <= 1 {
			continue // Not a duplicate
		}

		group := DuplicateGroup{
			Count: len(members),
		}

		if includeTitles {
			for _, m := range members {
				group.Titles = append(group.Titles, m.title)
				group.IDs = append(group.IDs, m.id)
			}
		}

		groups = append(groups, group)
	}

	// Sort by count (descending)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})

	// Apply limit
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	return groups, nil
}

// ensureHMACKey initializes the session-local HMAC key on first use.
func (c *Calculator) ensureHMACKey() error {
	if c.hmacKey != nil {
		return nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return err
	}
	c.hmacKey = key
	return nil
}

// computeValueHash computes HMAC-SHA256 of a value with the session key.
func computeValueHash(value string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// normalizeValue normalizes a password value for comparison.
// Currently only trims leading/trailing whitespace.
func normalizeValue(value string) string {
	return strings.TrimSpace(value)
}

// FindWeakPasswords returns issues for entries with weak passwords.
func (c *Calculator) FindWeakPasswords(entries []vault.Entry, includeTitles bool, limit int) []SecurityIssue {
	var issues []SecurityIssue

	for _, e := range entries {
		if e.Password == "" {
			continue
		}

		if CalculatePasswordStrength(e.Password) == PasswordWeak {
			issue := SecurityIssue{
				Type:        IssueWeakPassword,
				Severity:    SeverityWarning,
				Description: "Password has insufficient strength (" + formatLength(len([]rune(e.Password))) + ")",
				Suggestion:  "Use a longer password (14+ characters)",
			}
			if includeTitles {
				issue.Title = e.Title
			}
			issues = append(issues, issue)
		}
	}

	// Apply limit
	if limit > 0 && len(issues) > limit {
		issues = issues[:limit]
	}

	return issues
}

// formatLength returns a human-readable length description.
func formatLength(n int) string {
	if n == 1 {
		return "1 character"
	}
	return strconv.Itoa(n) + " characters"
}
