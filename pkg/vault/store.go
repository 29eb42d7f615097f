package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/crypto"
)

// File permission constants
const (
	FileMode = 0600 // Vault file: owner read/write only
	DirMode  = 0700 // Vault directory: owner access only
)

// LockSuffix names the advisory lock file created next to the vault.
const LockSuffix = ".lock"

// Store locates a vault file on disk and opens sessions on it.
// A Store holds no key material; see Session.
type Store struct {
	path         string
	useLock      bool
	logger       *slog.Logger
	now          func() time.Time
	beforeRename writeHook
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithFileLock makes sessions hold an exclusive advisory lock on
// <path>.lock until Close. Without it, concurrent writers resolve as
// last-writer-wins.
func WithFileLock() StoreOption {
	return func(s *Store) { s.useLock = true }
}

// WithLogger sets the logger used for advisory warnings.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store for the vault file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the vault file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) dir() string {
	return filepath.Dir(s.path)
}

// Exists reports whether the vault file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Create initializes a new vault:
// 1. Generate salt
// 2. Derive the session key from password, secret key and salt
// 3. Build an empty document with a "Vault Created" audit entry
// 4. Persist and return the unlocked session
func (s *Store) Create(password, secretKey string) (*Session, error) {
	if password == "" {
		return nil, ErrPasswordEmpty
	}
	if err := crypto.ValidateSecretKey(secretKey); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir(), DirMode); err != nil {
		return nil, &IOError{Op: "mkdir", Path: s.dir(), Err: err}
	}

	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}

	if s.Exists() {
		releaseLock(lock)
		return nil, ErrVaultAlreadyExists
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		releaseLock(lock)
		return nil, err
	}

	now := s.now()
	doc := newDocument(now)
	doc.Logs = audit.Append(doc.Logs, audit.ActionSystem, "Vault Created", now)

	sess := newSession(s, crypto.DeriveSessionKey(password, secretKey, salt), salt, doc, lock)
	if err := sess.Save(); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// Load opens an existing vault. A wrong password and a wrong secret key are
// indistinguishable and both yield ErrAuthenticationFailed. Documents written
// by older versions are migrated and saved once before Load returns.
func (s *Store) Load(password, secretKey string) (*Session, error) {
	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}

	sess, err := s.load(password, secretKey, lock)
	if err != nil {
		releaseLock(lock)
		return nil, err
	}
	return sess, nil
}

func (s *Store) load(password, secretKey string, lock *flock.Flock) (*Session, error) {
	raw, err := s.ReadRaw()
	if err != nil {
		return nil, err
	}

	salt, sealed, err := splitFile(raw)
	if err != nil {
		return nil, err
	}
	salt = append([]byte(nil), salt...)

	key := crypto.DeriveSessionKey(password, secretKey, salt)
	doc, err := openDocument(key, sealed)
	if err != nil {
		crypto.SecureWipe(key)
		return nil, err
	}

	steps, err := migrate(doc, s.now())
	if err != nil {
		crypto.SecureWipe(key)
		doc.wipe()
		return nil, err
	}

	s.checkAndWarnPermissions()

	sess := newSession(s, key, salt, doc, lock)
	if len(steps) > 0 {
		s.logger.Info("vault document upgraded", "steps", len(steps), "version", doc.Version)
		if err := sess.Save(); err != nil {
			sess.wipe()
			return nil, err
		}
	}
	return sess, nil
}

// ReadRaw returns the vault file bytes without decrypting them.
func (s *Store) ReadRaw() ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrVaultNotFound
		}
		return nil, &IOError{Op: "read", Path: s.path, Err: err}
	}
	return raw, nil
}

// WriteRaw atomically replaces the vault file with raw after checking that it
// opens with the given credentials. Used by restore.
func (s *Store) WriteRaw(raw []byte, password, secretKey string) error {
	if err := VerifyRaw(raw, password, secretKey); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir(), DirMode); err != nil {
		return &IOError{Op: "mkdir", Path: s.dir(), Err: err}
	}

	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer releaseLock(lock)

	if err := s.checkDiskSpaceForWrite(len(raw)); err != nil {
		return err
	}
	return atomicWriteFile(s.path, raw, s.beforeRename)
}

// VerifyRaw checks that raw is a vault file that decrypts and parses with the
// given credentials. It does not migrate.
func VerifyRaw(raw []byte, password, secretKey string) error {
	salt, sealed, err := splitFile(raw)
	if err != nil {
		return err
	}
	key := crypto.DeriveSessionKey(password, secretKey, salt)
	defer crypto.SecureWipe(key)

	doc, err := openDocument(key, sealed)
	if err != nil {
		return err
	}
	defer doc.wipe()

	if _, err := migrationPath(doc.Version); err != nil {
		return err
	}
	return nil
}

// checkAndWarnPermissions logs a warning when the vault directory or file is
// readable by others. This is advisory only and does not block operations.
func (s *Store) checkAndWarnPermissions() {
	if info, err := os.Stat(s.dir()); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			s.logger.Warn("vault directory has insecure permissions",
				"path", s.dir(), "perm", fmt.Sprintf("%04o", perm), "expected", "0700")
		}
	}
	if info, err := os.Stat(s.path); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			s.logger.Warn("vault file has insecure permissions",
				"path", s.path, "perm", fmt.Sprintf("%04o", perm), "expected", "0600")
		}
	}
}
