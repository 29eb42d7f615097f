// Package cli provides shared utilities for CLI commands.
package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forest6511/harpocrates/pkg/vault"
)

// MinIDPrefix is the shortest id prefix accepted as a selector.
const MinIDPrefix = 4

// Selection errors
var (
	ErrNoMatch   = errors.New("no entry matches")
	ErrAmbiguous = errors.New("selector matches more than one entry")
)

// ExpandPattern expands a glob pattern against entry titles and returns the
// matching indexes in vault order. Matching is case-insensitive.
// If the pattern contains no glob characters (*?[), it matches titles exactly.
func ExpandPattern(pattern string, entries []vault.Entry) ([]int, error) {
	// Validate pattern syntax
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}

	lower := strings.ToLower(pattern)
	hasGlob := strings.ContainsAny(pattern, "*?[")

	var matches []int
	for i, e := range entries {
		title := strings.ToLower(e.Title)
		if !hasGlob {
			if title == lower {
				matches = append(matches, i)
			}
			continue
		}
		matched, err := filepath.Match(lower, title)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, i)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrNoMatch, pattern)
	}
	return matches, nil
}

// Select resolves a selector to entry indexes. A selector is one of:
//
//	#N         1-based position as shown by list
//	<id>       full id, or a unique prefix of at least MinIDPrefix characters
//	<title>    exact title, case-insensitive
//	<glob>     title pattern such as "work*"
func Select(selector string, entries []vault.Entry) ([]int, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("%w: empty selector", ErrNoMatch)
	}

	if n, ok := strings.CutPrefix(selector, "#"); ok {
		i, err := strconv.Atoi(n)
		if err != nil || i < 1 || i > len(entries) {
			return nil, fmt.Errorf("%w: position %s (vault has %d entries)", ErrNoMatch, selector, len(entries))
		}
		return []int{i - 1}, nil
	}

	for i, e := range entries {
		if e.ID == selector {
			return []int{i}, nil
		}
	}

	if matches, err := ExpandPattern(selector, entries); err == nil {
		return matches, nil
	} else if !errors.Is(err, ErrNoMatch) {
		return nil, err
	}

	if len(selector) >= MinIDPrefix {
		var matches []int
		for i, e := range entries {
			if strings.HasPrefix(e.ID, strings.ToLower(selector)) {
				matches = append(matches, i)
			}
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}

	return nil, fmt.Errorf("%w: '%s'", ErrNoMatch, selector)
}

// SelectOne is Select for commands that act on a single entry.
func SelectOne(selector string, entries []vault.Entry) (int, error) {
	matches, err := Select(selector, entries)
	if err != nil {
		return -1, err
	}
	if len(matches) > 1 {
		titles := make([]string, 0, len(matches))
		for _, i := range matches {
			titles = append(titles, fmt.Sprintf("#%d %s", i+1, entries[i].Title))
		}
		return -1, fmt.Errorf("%w: %s", ErrAmbiguous, strings.Join(titles, ", "))
	}
	return matches[0], nil
}

// Search returns the indexes of entries whose title, username, url or notes
// contain query, case-insensitively.
func Search(query string, entries []vault.Entry) []int {
	q := strings.ToLower(strings.TrimSpace(query))
	var matches []int
	for i, e := range entries {
		for _, field := range []string{e.Title, e.Username, e.URL, e.Notes} {
			if strings.Contains(strings.ToLower(field), q) {
				matches = append(matches, i)
				break
			}
		}
	}
	return matches
}
