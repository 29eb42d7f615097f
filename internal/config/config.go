// Package config loads the harpocrates configuration file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/harpocrates/pkg/breach"
	"github.com/forest6511/harpocrates/pkg/security"
)

// File and directory names under the home directory.
const (
	DirName        = ".harpocrates"
	FileName       = "config.yaml"
	VaultFileName  = "vault.enc"
	CacheFileName  = "hibp-cache.db"
	ConfigFileMode = 0600
)

// Environment overrides.
const (
	EnvConfig   = "HARPOCRATES_CONFIG"
	EnvVault    = "HARPOCRATES_VAULT"
	EnvLogLevel = "HARPOCRATES_LOG_LEVEL"
)

// ErrConfigInsecure is returned when the config file has insecure permissions
var ErrConfigInsecure = errors.New("config file has insecure permissions")

// ErrConfigSymlink is returned when the config file is a symlink
var ErrConfigSymlink = errors.New("config file is a symlink")

// ErrConfigNotOwnedByUser is returned when the config file is not owned by current user
var ErrConfigNotOwnedByUser = errors.New("config file not owned by current user")

// Config is the on-disk configuration. Zero values mean "use the default".
type Config struct {
	VaultPath string          `yaml:"vault_path"`
	FileLock  bool            `yaml:"file_lock"`
	LogLevel  string          `yaml:"log_level"`
	Generator GeneratorConfig `yaml:"generator"`
	Breach    BreachConfig    `yaml:"breach"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// GeneratorConfig holds password generator defaults.
type GeneratorConfig struct {
	Length  int    `yaml:"length"`
	Exclude string `yaml:"exclude"`
}

// BreachConfig configures the breach range client and its cache.
type BreachConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
	CachePath string        `yaml:"cache_path"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	// Cache keeps fetched ranges on disk. The cache file is not encrypted
	// and its prefixes reveal which hash ranges the vault's passwords fall in.
	Cache bool `yaml:"cache"`
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	// AllowMasked enables the entry_get_masked tool.
	AllowMasked bool `yaml:"allow_masked"`
}

// Dir returns the harpocrates home directory (~/.harpocrates).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DirName
	}
	return filepath.Join(home, DirName)
}

// DefaultPath returns the config file location, honouring HARPOCRATES_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return filepath.Join(Dir(), FileName)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the config file at path. A missing file yields the defaults.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	f, err := openConfigFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		if err := checkFile(f); err != nil {
			return nil, err
		}
		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkFile enforces 0600 and ownership on the opened descriptor.
func checkFile(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("%w: %o (expected 0600)", ErrConfigInsecure, perm)
	}
	return checkFileOwnership(info)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvVault); v != "" {
		c.VaultPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) applyDefaults() {
	if c.VaultPath == "" {
		c.VaultPath = filepath.Join(Dir(), VaultFileName)
	}
	c.VaultPath = expandHome(c.VaultPath)
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.Generator.Length == 0 {
		c.Generator.Length = security.DefaultPasswordLength
	}
	if c.Breach.Endpoint == "" {
		c.Breach.Endpoint = breach.DefaultBaseURL
	}
	if c.Breach.Timeout == 0 {
		c.Breach.Timeout = breach.DefaultTimeout
	}
	if c.Breach.CacheTTL == 0 {
		c.Breach.CacheTTL = breach.DefaultCacheTTL
	}
	if c.Breach.CachePath == "" {
		c.Breach.CachePath = filepath.Join(Dir(), CacheFileName)
	}
	c.Breach.CachePath = expandHome(c.Breach.CachePath)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Generator.Length < security.MinPasswordLength || c.Generator.Length > security.MaxPasswordLength {
		return fmt.Errorf("invalid generator.length: %d (must be %d-%d)",
			c.Generator.Length, security.MinPasswordLength, security.MaxPasswordLength)
	}
	if c.Breach.Timeout < 0 {
		return fmt.Errorf("invalid breach.timeout: %s", c.Breach.Timeout)
	}
	if c.Breach.CacheTTL < 0 {
		return fmt.Errorf("invalid breach.cache_ttl: %s", c.Breach.CacheTTL)
	}
	if !strings.HasPrefix(c.Breach.Endpoint, "https://") && !strings.HasPrefix(c.Breach.Endpoint, "http://") {
		return fmt.Errorf("invalid breach.endpoint: %q", c.Breach.Endpoint)
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log_level: %q (must be debug, info, warn or error)", s)
	}
	return level, nil
}

// Save writes c to path with 0600 permissions, creating the directory.
func Save(path string, c *Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, ConfigFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, ConfigFileMode)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
