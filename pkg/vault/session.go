package vault

import (
	"sync"

	"github.com/gofrs/flock"

	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/crypto"
)

// Session is an unlocked vault. It owns the derived key, the persistent salt
// and the decrypted document until Close. Every mutation is persisted before
// it returns; if persisting fails the in-memory document is rolled back.
type Session struct {
	store *Store
	lock  *flock.Flock

	mu     sync.Mutex // Concurrency control
	key    []byte     // Derived session key (wiped on Close)
	salt   []byte     // Persistent vault salt
	doc    *Document
	closed bool
}

func newSession(store *Store, key, salt []byte, doc *Document, lock *flock.Flock) *Session {
	return &Session{
		store: store,
		lock:  lock,
		key:   key,
		salt:  salt,
		doc:   doc,
	}
}

// Path returns the vault file path
func (s *Session) Path() string {
	return s.store.path
}

// Version returns the document version
func (s *Session) Version() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrVaultLocked
	}
	return s.doc.Version, nil
}

// CreatedAt returns the vault creation timestamp
func (s *Session) CreatedAt() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrVaultLocked
	}
	return s.doc.CreatedAt, nil
}

// IsLocked returns whether the session has been closed
func (s *Session) IsLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Save encrypts the current document with a fresh nonce and atomically
// replaces the vault file.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrVaultLocked
	}
	return s.save()
}

func (s *Session) save() error {
	raw, err := sealDocument(s.doc, s.key, s.salt)
	if err != nil {
		return err
	}
	if err := s.store.checkDiskSpaceForWrite(len(raw)); err != nil {
		return err
	}
	return atomicWriteFile(s.store.path, raw, s.store.beforeRename)
}

// mutate runs fn on the live document and persists the result. On any
// failure the document is restored from a snapshot taken before fn ran.
// Callers hold s.mu.
func (s *Session) mutate(fn func(doc *Document) error) error {
	if s.closed {
		return ErrVaultLocked
	}
	snapshot := s.doc.clone()
	if err := fn(s.doc); err != nil {
		s.doc = snapshot
		return err
	}
	if err := s.save(); err != nil {
		s.doc = snapshot
		return err
	}
	return nil
}

// Close wipes the key and drops the document. Later calls return
// ErrVaultLocked. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipe()
}

func (s *Session) wipe() {
	if s.closed {
		return
	}
	crypto.SecureWipe(s.key)
	s.key = nil
	if s.doc != nil {
		s.doc.wipe()
		s.doc = nil
	}
	releaseLock(s.lock)
	s.lock = nil
	s.closed = true
}

// Logs returns a copy of the audit log, newest first.
func (s *Session) Logs() ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrVaultLocked
	}
	logs := make([]audit.Entry, len(s.doc.Logs))
	copy(logs, s.doc.Logs)
	return logs, nil
}

// AppendAudit records an event and persists the vault.
func (s *Session) AppendAudit(action, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutate(func(doc *Document) error {
		doc.Logs = audit.Append(doc.Logs, action, details, s.store.now())
		return nil
	})
}

// VerifyIntegrity reports whether the audit hash chain is intact.
// A closed session reports false.
func (s *Session) VerifyIntegrity() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return audit.Valid(s.doc.Logs)
}

// AuditVerify returns the detailed chain verification result.
func (s *Session) AuditVerify() (*audit.VerifyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrVaultLocked
	}
	return audit.Verify(s.doc.Logs), nil
}

// ReadFile returns the on-disk vault bytes after checking they decrypt with
// this session's key.
func (s *Session) ReadFile() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrVaultLocked
	}

	raw, err := s.store.ReadRaw()
	if err != nil {
		return nil, err
	}
	_, sealed, err := splitFile(raw)
	if err != nil {
		return nil, err
	}
	plaintext, err := crypto.Decrypt(s.key, sealed)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	crypto.SecureWipe(plaintext)
	return raw, nil
}
