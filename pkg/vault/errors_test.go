package vault

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"not found", ErrVaultNotFound, KindNotFound},
		{"auth", ErrAuthenticationFailed, KindAuthentication},
		{"wrapped auth", fmt.Errorf("load: %w", ErrAuthenticationFailed), KindAuthentication},
		{"corrupted", ErrVaultCorrupted, KindCorruption},
		{"unsupported version", ErrUnsupportedVersion, KindCorruption},
		{"io", &IOError{Op: "write", Path: "/x", Err: os.ErrPermission}, KindIO},
		{"disk", ErrInsufficientDisk, KindIO},
		{"bulk", &BulkImportError{Index: 1, Err: ErrEmptyTitle}, KindBulkImport},
		{"locked", ErrVaultLocked, KindLocked},
		{"busy", ErrVaultBusy, KindLocked},
		{"other", errors.New("boom"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIOErrorUnwrap(t *testing.T) {
	err := &IOError{Op: "rename", Path: "/tmp/vault", Err: os.ErrPermission}
	if !errors.Is(err, os.ErrPermission) {
		t.Error("IOError should unwrap to the system error")
	}
	if got := err.Error(); got != "vault: rename /tmp/vault: permission denied" {
		t.Errorf("Error() = %q", got)
	}
}
