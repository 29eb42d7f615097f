package vault

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/forest6511/harpocrates/pkg/audit"
)

// Entries returns a copy of all entries in insertion order.
func (s *Session) Entries() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrVaultLocked
	}
	entries := make([]Entry, len(s.doc.Entries))
	copy(entries, s.doc.Entries)
	return entries, nil
}

// IndexOf returns the position of the entry with the given id, or -1.
func (s *Session) IndexOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1
	}
	for i := range s.doc.Entries {
		if s.doc.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) newEntry(in EntryInput) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Username:  in.Username,
		Password:  in.Password,
		URL:       in.URL,
		Notes:     in.Notes,
		CreatedAt: formatTime(s.store.now()),
	}
}

// AddEntry stores a new entry and records a CREATE event. Only the title is
// required; every other field may be empty.
func (s *Session) AddEntry(in EntryInput) (Entry, error) {
	if err := validateTitle(in.Title); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added Entry
	err := s.mutate(func(doc *Document) error {
		added = s.newEntry(in)
		doc.Entries = append(doc.Entries, added)
		doc.Logs = audit.Append(doc.Logs, audit.ActionCreate, "Entry added: "+added.Title, s.store.now())
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return added, nil
}

// UpdateEntry applies patch to the entry at index. It returns false with a
// nil error when index is out of range.
func (s *Session) UpdateEntry(index int, patch EntryPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrVaultLocked
	}
	if index < 0 || index >= len(s.doc.Entries) {
		return false, nil
	}

	err := s.mutate(func(doc *Document) error {
		e := &doc.Entries[index]
		original := e.Title
		if err := patch.apply(e); err != nil {
			return err
		}
		now := s.store.now()
		e.UpdatedAt = formatTime(now)
		doc.Logs = audit.Append(doc.Logs, audit.ActionUpdate, "Modified: "+original, now)
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteEntry removes the entry at index. It returns false with a nil error
// when index is out of range.
func (s *Session) DeleteEntry(index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrVaultLocked
	}
	if index < 0 || index >= len(s.doc.Entries) {
		return false, nil
	}

	err := s.mutate(func(doc *Document) error {
		title := doc.Entries[index].Title
		entries := make([]Entry, 0, len(doc.Entries)-1)
		entries = append(entries, doc.Entries[:index]...)
		doc.Entries = append(entries, doc.Entries[index+1:]...)
		doc.Logs = audit.Append(doc.Logs, audit.ActionDelete, "Entry removed: "+title, s.store.now())
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddEntriesBulk inserts items as one transaction: either every item is
// stored with a single IMPORT event and one save, or nothing changes in
// memory or on disk.
func (s *Session) AddEntriesBulk(items []EntryInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrVaultLocked
	}
	if len(items) == 0 {
		return nil
	}

	return s.mutate(func(doc *Document) error {
		for i, in := range items {
			if err := in.Validate(); err != nil {
				return &BulkImportError{Index: i, Title: in.Title, Err: err}
			}
			doc.Entries = append(doc.Entries, s.newEntry(in))
		}
		doc.Logs = audit.Append(doc.Logs, audit.ActionImport,
			fmt.Sprintf("Imported %d entries", len(items)), s.store.now())
		return nil
	})
}
