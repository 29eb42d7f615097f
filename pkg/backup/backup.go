package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/vault"
)

// PreviousSuffix names the copy of the replaced vault kept by an
// overwriting restore.
const PreviousSuffix = ".pre-restore"

// ConflictMode specifies what restore does when the target vault exists.
type ConflictMode int

const (
	// ConflictError refuses to touch an existing vault.
	ConflictError ConflictMode = iota
	// ConflictSkip leaves the existing vault in place and reports it.
	ConflictSkip
	// ConflictOverwrite replaces the vault, keeping a copy of the old file.
	ConflictOverwrite
)

// RestoreOptions configures the restore operation.
type RestoreOptions struct {
	// OnConflict specifies how to handle an existing vault.
	OnConflict ConflictMode
	// DryRun verifies the backup against the credentials without writing.
	DryRun bool
}

// RestoreResult contains the result of a restore operation.
type RestoreResult struct {
	Header *Header
	// Restored is false for dry runs and skipped conflicts.
	Restored bool
	// Skipped is set when ConflictSkip left an existing vault untouched.
	Skipped bool
	DryRun  bool
	// PreviousPath is the copy of the overwritten vault, if any.
	PreviousPath string
}

// VerifyResult contains the result of a verify operation.
type VerifyResult struct {
	Valid  bool
	Header *Header
	// Kind classifies a failed credential check.
	Kind vault.ErrorKind
	// Error is set if verification failed.
	Error string
}

// Backup writes the session's vault file into a backup container at dst and
// records a BACKUP audit event. The bytes are those on disk, checked to open
// with the session key, so the backup needs the same password and secret key.
func Backup(sess *vault.Session, dst string) (*Header, error) {
	if samePath(sess.Path(), dst) {
		return nil, ErrSamePath
	}

	raw, err := sess.ReadFile()
	if err != nil {
		return nil, err
	}
	version, err := sess.Version()
	if err != nil {
		return nil, err
	}
	entries, err := sess.Entries()
	if err != nil {
		return nil, err
	}
	logs, err := sess.Logs()
	if err != nil {
		return nil, err
	}

	header := &Header{
		Version:      FormatVersion,
		CreatedAt:    time.Now().UTC(),
		VaultVersion: version,
		EntryCount:   len(entries),
		LogCount:     len(logs),
	}
	data, err := Encode(header, raw)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), vault.DirMode); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := vault.AtomicWriteFile(dst, data); err != nil {
		return nil, err
	}

	if err := sess.AppendAudit(audit.ActionBackup, "Backup created: "+filepath.Base(dst)); err != nil {
		return header, err
	}
	return header, nil
}

// Verify checks a backup's container checksum and that its vault opens with
// the given credentials. Failures are reported in the result, not as errors.
func Verify(path, password, secretKey string) (*VerifyResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return &VerifyResult{Valid: false, Kind: vault.KindIO, Error: err.Error()}, nil
	}

	header, payload, err := Decode(data)
	if err != nil {
		return &VerifyResult{Valid: false, Kind: vault.KindCorruption, Error: err.Error()}, nil
	}
	if err := vault.VerifyRaw(payload, password, secretKey); err != nil {
		return &VerifyResult{Valid: false, Header: header, Kind: vault.KindOf(err), Error: err.Error()}, nil
	}
	return &VerifyResult{Valid: true, Header: header}, nil
}

// Restore replaces the vault behind store with the one in the backup at src.
// The payload must open with password and secretKey before anything is
// written. The restored vault records a RESTORE audit event.
func Restore(src string, store *vault.Store, password, secretKey string, opts RestoreOptions) (*RestoreResult, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	header, payload, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := vault.VerifyRaw(payload, password, secretKey); err != nil {
		return nil, err
	}

	result := &RestoreResult{Header: header}
	if opts.DryRun {
		result.DryRun = true
		return result, nil
	}

	if store.Exists() {
		switch opts.OnConflict {
		case ConflictError:
			return nil, fmt.Errorf("%w: %s (use --force to overwrite)", ErrVaultExists, store.Path())
		case ConflictSkip:
			result.Skipped = true
			return result, nil
		case ConflictOverwrite:
			previous, err := store.ReadRaw()
			if err != nil {
				return nil, err
			}
			result.PreviousPath = store.Path() + PreviousSuffix
			if err := vault.AtomicWriteFile(result.PreviousPath, previous); err != nil {
				return nil, err
			}
		}
	}

	if err := store.WriteRaw(payload, password, secretKey); err != nil {
		return nil, err
	}
	result.Restored = true

	sess, err := store.Load(password, secretKey)
	if err != nil {
		return result, err
	}
	defer sess.Close()

	details := fmt.Sprintf("Restored from backup created %s", header.CreatedAt.UTC().Format(time.RFC3339))
	if err := sess.AppendAudit(audit.ActionRestore, details); err != nil {
		return result, err
	}
	return result, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
