package vault

import (
	"strings"
	"time"

	"github.com/forest6511/harpocrates/pkg/audit"
)

// Document is the decrypted vault payload.
type Document struct {
	Version   string        `json:"version"`
	CreatedAt string        `json:"created_at"`
	Entries   []Entry       `json:"entries"`
	Logs      []audit.Entry `json:"logs"`
}

// Entry is a stored credential.
type Entry struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	URL       string `json:"url"`
	Notes     string `json:"notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// EntryInput holds the user-supplied fields of a new entry.
type EntryInput struct {
	Title    string
	Username string
	Password string
	URL      string
	Notes    string
}

// validateTitle rejects blank titles, which no entry may have.
func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// Validate checks an imported item: it needs a title and a password.
func (in EntryInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if in.Password == "" {
		return ErrEmptyPassword
	}
	return nil
}

// EntryPatch describes a partial update. A nil field is left unchanged; a
// non-nil field is applied as given, including the empty string.
type EntryPatch struct {
	Title    *string
	Username *string
	Password *string
	URL      *string
	Notes    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Title == nil && p.Username == nil && p.Password == nil && p.URL == nil && p.Notes == nil
}

func (p EntryPatch) apply(e *Entry) error {
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
		e.Title = *p.Title
	}
	if p.Username != nil {
		e.Username = *p.Username
	}
	if p.Password != nil {
		e.Password = *p.Password
	}
	if p.URL != nil {
		e.URL = *p.URL
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	return nil
}

// newDocument returns the minimal document written at vault creation.
func newDocument(now time.Time) *Document {
	return &Document{
		Version:   CurrentVersion,
		CreatedAt: formatTime(now),
		Entries:   []Entry{},
		Logs:      []audit.Entry{},
	}
}

// clone returns a deep copy. Entry and audit.Entry hold only strings, so
// copying the slices is enough.
func (d *Document) clone() *Document {
	c := &Document{
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		Entries:   make([]Entry, len(d.Entries)),
		Logs:      make([]audit.Entry, len(d.Logs)),
	}
	copy(c.Entries, d.Entries)
	copy(c.Logs, d.Logs)
	return c
}

// wipe overwrites the document's references so the garbage collector can
// drop the plaintext. Go strings are immutable, so this is best effort.
func (d *Document) wipe() {
	for i := range d.Entries {
		d.Entries[i] = Entry{}
	}
	d.Entries = nil
	d.Logs = nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
