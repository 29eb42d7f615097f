package importer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/forest6511/harpocrates/pkg/crypto"
	"github.com/forest6511/harpocrates/pkg/vault"
)

type fakeRepo struct {
	entries []vault.Entry
	added   [][]vault.EntryInput
	err     error
}

func (r *fakeRepo) Entries() ([]vault.Entry, error) { return r.entries, nil }

func (r *fakeRepo) AddEntriesBulk(items []vault.EntryInput) error {
	if r.err != nil {
		return r.err
	}
	r.added = append(r.added, items)
	return nil
}

func TestDedupe(t *testing.T) {
	existing := []vault.Entry{{Title: "Mail", Username: "a@b.com"}}
	incoming := []vault.EntryInput{
		{Title: "mail", Username: "A@B.com", Password: "x"}, // dup of existing
		{Title: "Bank", Username: "me", Password: "x"},
		{Title: "Bank", Username: "me", Password: "y"}, // dup within batch
		{Title: "Bank", Username: "you", Password: "z"},
	}

	kept, skipped := Dedupe(existing, incoming)
	if len(kept) != 2 {
		t.Errorf("kept %d, want 2", len(kept))
	}
	if len(skipped) != 2 {
		t.Errorf("skipped %d, want 2", len(skipped))
	}
	if kept[0].Password != "x" {
		t.Error("first occurrence within a batch should win")
	}
}

func TestImport(t *testing.T) {
	repo := &fakeRepo{entries: []vault.Entry{{Title: "Mail", Username: "a@b.com"}}}
	result := &ImportResult{
		Entries: []vault.EntryInput{
			{Title: "Mail", Username: "a@b.com", Password: "x"},
			{Title: "Bank", Password: "y"},
		},
		Skipped:  []SkippedItem{{Title: "Note", Reason: "secure note"}},
		Warnings: []string{"row 3: something"},
	}

	summary, err := Import(repo, result)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if summary.Imported != 1 {
		t.Errorf("Imported = %d, want 1", summary.Imported)
	}
	if len(summary.Skipped) != 2 || len(summary.Warnings) != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(repo.added) != 1 {
		t.Errorf("AddEntriesBulk called %d times, want 1", len(repo.added))
	}
}

func TestImportNothingNew(t *testing.T) {
	repo := &fakeRepo{entries: []vault.Entry{{Title: "Mail"}}}
	summary, err := Import(repo, &ImportResult{Entries: []vault.EntryInput{{Title: "Mail", Password: "x"}}})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Imported != 0 || len(repo.added) != 0 {
		t.Error("nothing should be written when every entry is a duplicate")
	}
}

func TestImportPropagatesBulkError(t *testing.T) {
	bulkErr := &vault.BulkImportError{Index: 0, Err: vault.ErrEmptyPassword}
	repo := &fakeRepo{err: bulkErr}

	_, err := Import(repo, &ImportResult{Entries: []vault.EntryInput{{Title: "x"}}})
	var target *vault.BulkImportError
	if !errors.As(err, &target) {
		t.Fatalf("expected *vault.BulkImportError, got %v", err)
	}
}

func TestImportIntoVault(t *testing.T) {
	secretKey, err := crypto.GenerateSecretKey()
	if err != nil {
		t.Fatal(err)
	}
	store := vault.NewStore(filepath.Join(t.TempDir(), "vault.enc"))
	sess, err := store.Create("Correct1!", secretKey)
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	data := "name,url,username,password,note\nMail,,a@b.com,xyz,\nBank,,me,p@ss,\nMail,,a@b.com,again,\n"
	result, err := (&GenericCSVParser{}).Parse([]byte(data), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	summary, err := Import(sess, result)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if summary.Imported != 2 || len(summary.Skipped) != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	entries, _ := sess.Entries()
	if len(entries) != 2 {
		t.Errorf("vault has %d entries, want 2", len(entries))
	}
	logs, _ := sess.Logs()
	if logs[0].Details != "Imported 2 entries" {
		t.Errorf("logs[0].Details = %q", logs[0].Details)
	}
}
