package importer

import (
	"fmt"

	"github.com/forest6511/harpocrates/pkg/vault"
)

// Repository is the part of a vault session the importer writes to.
type Repository interface {
	Entries() ([]vault.Entry, error)
	AddEntriesBulk(items []vault.EntryInput) error
}

// Summary reports what an import did.
type Summary struct {
	Imported int
	Skipped  []SkippedItem
	Warnings []string
}

// Dedupe removes entries whose signature is already in existing or appears
// earlier in the batch.
func Dedupe(existing []vault.Entry, entries []vault.EntryInput) (kept []vault.EntryInput, skipped []SkippedItem) {
	seen := make(map[string]struct{}, len(existing)+len(entries))
	for _, e := range existing {
		seen[Signature(e.Title, e.Username)] = struct{}{}
	}

	for _, in := range entries {
		sig := Signature(in.Title, in.Username)
		if _, dup := seen[sig]; dup {
			skipped = append(skipped, SkippedItem{Title: in.Title, Reason: "duplicate"})
			continue
		}
		seen[sig] = struct{}{}
		kept = append(kept, in)
	}
	return kept, skipped
}

// Import adds the parsed entries to repo as a single transaction. Duplicates
// are skipped. When nothing is left to add, the vault is not written.
func Import(repo Repository, result *ImportResult) (*Summary, error) {
	existing, err := repo.Entries()
	if err != nil {
		return nil, err
	}

	kept, dups := Dedupe(existing, result.Entries)

	summary := &Summary{
		Skipped:  append(append([]SkippedItem{}, result.Skipped...), dups...),
		Warnings: append([]string{}, result.Warnings...),
	}
	if len(kept) == 0 {
		return summary, nil
	}

	if err := repo.AddEntriesBulk(kept); err != nil {
		return nil, fmt.Errorf("import failed, no entries were added: %w", err)
	}
	summary.Imported = len(kept)
	return summary, nil
}
