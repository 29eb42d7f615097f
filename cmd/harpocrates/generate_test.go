package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/forest6511/harpocrates/internal/config"
	"github.com/forest6511/harpocrates/pkg/security"
)

func TestValidateGenerateFlags(t *testing.T) {
	tests := []struct {
		name        string
		length      int
		count       int
		exclude     string
		expectError bool
	}{
		{
			name:        "valid defaults",
			length:      security.DefaultPasswordLength,
			count:       defaultPasswordCount,
			expectError: false,
		},
		{
			name:        "zero length uses default",
			length:      0,
			count:       1,
			expectError: false,
		},
		{
			name:        "minimum length",
			length:      security.MinPasswordLength,
			count:       1,
			expectError: false,
		},
		{
			name:        "maximum length",
			length:      security.MaxPasswordLength,
			count:       1,
			expectError: false,
		},
		{
			name:        "length too short",
			length:      security.MinPasswordLength - 1,
			count:       1,
			expectError: true,
		},
		{
			name:        "length too long",
			length:      security.MaxPasswordLength + 1,
			count:       1,
			expectError: true,
		},
		{
			name:        "count zero",
			length:      24,
			count:       0,
			expectError: true,
		},
		{
			name:        "count too high",
			length:      24,
			count:       maxPasswordCount + 1,
			expectError: true,
		},
		{
			name:        "maximum count",
			length:      24,
			count:       maxPasswordCount,
			expectError: false,
		},
		{
			name:        "exclude at limit",
			length:      24,
			count:       1,
			exclude:     strings.Repeat("a", maxExcludeLength),
			expectError: false,
		},
		{
			name:        "exclude too long",
			length:      24,
			count:       1,
			exclude:     strings.Repeat("a", maxExcludeLength+1),
			expectError: true,
		},
	}

	origCount := generateCount
	defer func() { generateCount = origCount }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generateCount = tt.count
			err := validateGenerateFlags(security.GenerateOptions{Length: tt.length, Exclude: tt.exclude})
			if tt.expectError && err == nil {
				t.Error("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGenerateOptions(t *testing.T) {
	origCfg, origLength, origExclude := cfg, generateLength, generateExclude
	defer func() { cfg, generateLength, generateExclude = origCfg, origLength, origExclude }()

	cfg = config.Default()
	cfg.Generator.Length = 32
	cfg.Generator.Exclude = "0O"

	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "generate"}
		cmd.Flags().StringVar(&generateExclude, "exclude", "", "")
		return cmd
	}

	t.Run("config defaults apply", func(t *testing.T) {
		generateLength = 0
		cmd := newCmd()
		opts := generateOptions(cmd)
		if opts.Length != 32 {
			t.Errorf("Length = %d, want 32", opts.Length)
		}
		if opts.Exclude != "0O" {
			t.Errorf("Exclude = %q, want %q", opts.Exclude, "0O")
		}
	})

	t.Run("flags override config", func(t *testing.T) {
		generateLength = 12
		cmd := newCmd()
		if err := cmd.Flags().Set("exclude", ""); err != nil {
			t.Fatal(err)
		}
		opts := generateOptions(cmd)
		if opts.Length != 12 {
			t.Errorf("Length = %d, want 12", opts.Length)
		}
		if opts.Exclude != "" {
			t.Errorf("Exclude = %q, want empty", opts.Exclude)
		}
	})
}
