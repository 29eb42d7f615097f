package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/forest6511/harpocrates/pkg/vault"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input       string
		want        time.Duration
		expectError bool
	}{
		{"24h", 24 * time.Hour, false},
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"1m", 30 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"90m30s", 90*time.Minute + 30*time.Second, false},
		{"5", 0, true},
		{"xd", 0, true},
		{"-3d", 0, true},
		{"10q", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("parseDuration(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDuration(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnlockError(t *testing.T) {
	t.Run("authentication hides the cause", func(t *testing.T) {
		err := unlockError(fmt.Errorf("load: %w", vault.ErrAuthenticationFailed))
		if !errors.Is(err, errAuthFailed) {
			t.Errorf("unlockError() = %v, want errAuthFailed", err)
		}
	})

	tests := []struct {
		name string
		err  error
	}{
		{"locked", vault.ErrVaultBusy},
		{"corrupted", vault.ErrVaultCorrupted},
		{"unsupported version", vault.ErrUnsupportedVersion},
		{"other", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := unlockError(tt.err)
			if errors.Is(err, errAuthFailed) {
				t.Errorf("unlockError(%v) must not report an authentication failure", tt.err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("unlockError(%v) = %v, want it to wrap the cause", tt.err, err)
			}
		})
	}
}
