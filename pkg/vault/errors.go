package vault

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrVaultAlreadyExists   = errors.New("vault: vault already exists at this path")
	ErrVaultNotFound        = errors.New("vault: vault not found at this path")
	ErrVaultLocked          = errors.New("vault: vault is locked")
	ErrVaultBusy            = errors.New("vault: vault is in use by another process")
	ErrAuthenticationFailed = errors.New("vault: authentication failed: wrong master password or secret key, or the file was modified")
	ErrVaultCorrupted       = errors.New("vault: vault is corrupted")
	ErrUnsupportedVersion   = errors.New("vault: unsupported document version")
	ErrInsufficientDisk     = errors.New("vault: insufficient disk space")
	ErrPasswordEmpty        = errors.New("vault: master password must not be empty")
	ErrInvalidEntry         = errors.New("vault: invalid entry")
)

// Validation errors wrap ErrInvalidEntry.
var (
	ErrEmptyTitle    = fmt.Errorf("%w: title must not be empty", ErrInvalidEntry)
	ErrEmptyPassword = fmt.Errorf("%w: password must not be empty", ErrInvalidEntry)
)

// IOError reports a failed file operation while reading or persisting the
// vault. The wrapped error is the original system error.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("vault: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// BulkImportError reports the item that caused a bulk insert to be rolled
// back. Nothing from the batch was kept or persisted.
type BulkImportError struct {
	Index int
	Title string
	Err   error
}

func (e *BulkImportError) Error() string {
	return fmt.Sprintf("vault: bulk import rolled back at item %d (%q): %v", e.Index, e.Title, e.Err)
}

func (e *BulkImportError) Unwrap() error { return e.Err }

// ErrorKind classifies vault failures so callers can tell wrong credentials
// apart from a disk error or a damaged file.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindAuthentication
	KindCorruption
	KindIO
	KindBulkImport
	KindLocked
	KindOther
)

// String returns a human-readable representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not found"
	case KindAuthentication:
		return "authentication failure"
	case KindCorruption:
		return "corruption"
	case KindIO:
		return "i/o failure"
	case KindBulkImport:
		return "bulk import failure"
	case KindLocked:
		return "locked"
	default:
		return "other"
	}
}

// KindOf returns the kind of err.
func KindOf(err error) ErrorKind {
	var ioErr *IOError
	var bulkErr *BulkImportError

	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrVaultNotFound):
		return KindNotFound
	case errors.Is(err, ErrAuthenticationFailed):
		return KindAuthentication
	case errors.Is(err, ErrVaultCorrupted), errors.Is(err, ErrUnsupportedVersion):
		return KindCorruption
	case errors.As(err, &bulkErr):
		return KindBulkImport
	case errors.As(err, &ioErr), errors.Is(err, ErrInsufficientDisk):
		return KindIO
	case errors.Is(err, ErrVaultLocked), errors.Is(err, ErrVaultBusy):
		return KindLocked
	default:
		return KindOther
	}
}
