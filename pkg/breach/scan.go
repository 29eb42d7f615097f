package breach

import (
	"context"
	"fmt"

	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/vault"
)

// Repository is the part of a vault session a scan reads and records to.
type Repository interface {
	Entries() ([]vault.Entry, error)
	AppendAudit(action, details string) error
}

// Checker reports how often a password appears in the breach corpus.
type Checker interface {
	Check(ctx context.Context, password string) (int, error)
}

// Finding is one breached entry.
type Finding struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// Failure is an entry that could not be checked.
type Failure struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Err   error  `json:"-"`
}

// Report summarizes a scan.
type Report struct {
	Checked  int       `json:"checked"`
	Breached []Finding `json:"breached"`
	Failed   []Failure `json:"failed,omitempty"`
}

// Counts returns breach counts keyed by entry id for every checked entry.
func (r *Report) Counts(entries []vault.Entry) map[string]int {
	failed := make(map[string]bool, len(r.Failed))
	for _, f := range r.Failed {
		failed[f.ID] = true
	}
	counts := make(map[string]int, len(entries))
	for _, e := range entries {
		if !failed[e.ID] && e.Password != "" {
			counts[e.ID] = 0
		}
	}
	for _, f := range r.Breached {
		counts[f.ID] = f.Count
	}
	return counts
}

// Scan checks every entry's password and records the outcome in the audit
// log: one HIBP_ALERT per breached entry, or a single HIBP_CLEAN when every
// entry was checked and none was found. Identical passwords are checked once.
func Scan(ctx context.Context, repo Repository, checker Checker) (*Report, error) {
	entries, err := repo.Entries()
	if err != nil {
		return nil, err
	}

	report := &Report{Breached: []Finding{}}
	results := make(map[string]int) // password -> count
	failures := make(map[string]error)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.Password == "" {
			continue
		}

		if err, failed := failures[e.Password]; failed {
			report.Failed = append(report.Failed, Failure{ID: e.ID, Title: e.Title, Err: err})
			continue
		}
		count, seen := results[e.Password]
		if !seen {
			count, err = checker.Check(ctx, e.Password)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failures[e.Password] = err
				report.Failed = append(report.Failed, Failure{ID: e.ID, Title: e.Title, Err: err})
				continue
			}
			results[e.Password] = count
		}

		report.Checked++
		if count > 0 {
			report.Breached = append(report.Breached, Finding{ID: e.ID, Title: e.Title, Count: count})
		}
	}

	for _, f := range report.Breached {
		if err := repo.AppendAudit(audit.ActionHIBPAlert, fmt.Sprintf("%s: seen %d times", f.Title, f.Count)); err != nil {
			return report, err
		}
	}
	if len(report.Breached) == 0 && len(report.Failed) == 0 {
		if err := repo.AppendAudit(audit.ActionHIBPClean, fmt.Sprintf("No breached passwords found (%d checked)", report.Checked)); err != nil {
			return report, err
		}
	}

	return report, nil
}
