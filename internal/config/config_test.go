package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/forest6511/harpocrates/pkg/breach"
	"github.com/forest6511/harpocrates/pkg/security"
)

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("failed to chmod config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvVault, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.Generator.Length != security.DefaultPasswordLength {
		t.Errorf("Generator.Length = %d", cfg.Generator.Length)
	}
	if cfg.Breach.Endpoint != breach.DefaultBaseURL || cfg.Breach.Timeout != breach.DefaultTimeout {
		t.Errorf("unexpected breach defaults: %+v", cfg.Breach)
	}
	if filepath.Base(cfg.VaultPath) != VaultFileName {
		t.Errorf("VaultPath = %q", cfg.VaultPath)
	}
	if cfg.FileLock || cfg.MCP.AllowMasked || cfg.Breach.Cache {
		t.Error("opt-in features should default to off")
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	t.Setenv(EnvVault, "")
	t.Setenv(EnvLogLevel, "")

	path := writeConfig(t, `
vault_path: /tmp/work/vault.enc
file_lock: true
log_level: debug
generator:
  length: 32
  exclude: "0Ol1"
breach:
  endpoint: http://127.0.0.1:8080
  timeout: 2s
  cache_ttl: 12h
  cache: true
mcp:
  allow_masked: true
`, 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.VaultPath != "/tmp/work/vault.enc" || !cfg.FileLock || cfg.LogLevel != "debug" {
		t.Errorf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Generator.Length != 32 || cfg.Generator.Exclude != "0Ol1" {
		t.Errorf("unexpected generator: %+v", cfg.Generator)
	}
	if cfg.Breach.Timeout != 2*time.Second || cfg.Breach.CacheTTL != 12*time.Hour || !cfg.Breach.Cache {
		t.Errorf("unexpected breach: %+v", cfg.Breach)
	}
	if !cfg.MCP.AllowMasked {
		t.Error("mcp.allow_masked should be true")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "vault_path: /from/file.enc\nlog_level: info\n", 0600)
	t.Setenv(EnvVault, "/from/env.enc")
	t.Setenv(EnvLogLevel, "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.VaultPath != "/from/env.enc" {
		t.Errorf("VaultPath = %q, want env override", cfg.VaultPath)
	}
	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want env override", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvVault, "")
	t.Setenv(EnvLogLevel, "")

	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "vault_path: [unterminated"},
		{"bad log level", "log_level: loud"},
		{"short generator", "generator:\n  length: 4"},
		{"long generator", "generator:\n  length: 1000"},
		{"bad duration", "breach:\n  timeout: soon"},
		{"bad endpoint", "breach:\n  endpoint: ftp://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content, 0600)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	path := writeConfig(t, "log_level: info\n", 0644)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigInsecure) {
		t.Errorf("expected ErrConfigInsecure, got %v", err)
	}
}

func TestLoad_RejectsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink handling differs on Windows")
	}
	target := writeConfig(t, "log_level: info\n", 0600)
	link := filepath.Join(t.TempDir(), "link.yaml")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := Load(link)
	if !errors.Is(err, ErrConfigSymlink) {
		t.Errorf("expected ErrConfigSymlink, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	t.Setenv(EnvVault, "")
	t.Setenv(EnvLogLevel, "")

	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := Default()
	cfg.FileLock = true
	cfg.Generator.Length = 24

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != ConfigFileMode {
		t.Errorf("permissions = %o, want %o", info.Mode().Perm(), ConfigFileMode)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.FileLock || loaded.Generator.Length != 24 || loaded.Breach.Timeout != cfg.Breach.Timeout {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error", "INFO"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q) error: %v", s, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv(EnvConfig, "/custom/config.yaml")
	if got := DefaultPath(); got != "/custom/config.yaml" {
		t.Errorf("DefaultPath() = %q", got)
	}
}
