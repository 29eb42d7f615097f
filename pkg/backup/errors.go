// Package backup copies a vault file into a self-describing backup container
// and restores it.
package backup

import "errors"

// Backup/Restore errors
var (
	// ErrInvalidMagic indicates the file is not a backup container.
	ErrInvalidMagic = errors.New("invalid backup file: magic number mismatch")

	// ErrUnsupportedVersion indicates the container format version is not supported.
	ErrUnsupportedVersion = errors.New("unsupported backup format version")

	// ErrIntegrityFailed indicates the payload checksum does not match the header.
	ErrIntegrityFailed = errors.New("backup integrity check failed: checksum mismatch")

	// ErrTruncated indicates the container ends before its declared payload.
	ErrTruncated = errors.New("backup file truncated")

	// ErrVaultExists indicates restore would overwrite an existing vault.
	ErrVaultExists = errors.New("vault already exists at restore target")

	// ErrSamePath indicates the backup destination is the vault file itself.
	ErrSamePath = errors.New("backup destination is the vault file")
)
