package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/harpocrates/internal/config"
	"github.com/forest6511/harpocrates/internal/mcp"
	"github.com/forest6511/harpocrates/pkg/crypto"
	"github.com/forest6511/harpocrates/pkg/security"
	"github.com/forest6511/harpocrates/pkg/vault"
)

// Credentials are read from these variables before prompting, so scripts
// and the MCP server share one convention.
const (
	envPassword  = mcp.EnvPassword
	envSecretKey = mcp.EnvSecretKey
)

// errAuthFailed is the single message shown for a wrong password, a wrong
// secret key or a modified file.
var errAuthFailed = errors.New("authentication failed: wrong master password or secret key")

var (
	cfg    *config.Config
	logger *slog.Logger

	flagVault   string
	flagVerbose bool
	flagLock    bool

	stdin = bufio.NewReader(os.Stdin)
)

var rootCmd = &cobra.Command{
	Use:   "harpocrates",
	Short: "harpocrates is an encrypted local credential vault",
	Long: `harpocrates keeps credentials in a single encrypted file protected by a
master password and a secret key. Both factors are needed to open the vault.`,
	SilenceUsage: true,
	// PersistentPreRunE runs before every subcommand and loads the
	// configuration and logger.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.DefaultPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if flagVault != "" {
			cfg.VaultPath = flagVault
		}
		if flagLock {
			cfg.FileLock = true
		}
		return setupLogging(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", "", "Vault file path (default ~/.harpocrates/vault.enc)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagLock, "lock", false, "Hold an exclusive lock on the vault while it is open")

	rootCmd.AddCommand(initCmd)
}

func setupLogging(w io.Writer) error {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// newStore returns a store for the configured vault path.
func newStore() *vault.Store {
	opts := []vault.StoreOption{vault.WithLogger(logger)}
	if cfg.FileLock {
		opts = append(opts, vault.WithFileLock())
	}
	return vault.NewStore(cfg.VaultPath, opts...)
}

// initCmd creates a new vault and shows its secret key once.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new vault",
	Long: `Create a new vault protected by a master password and a freshly generated
secret key. The secret key is shown once and never stored: keep it safe, the
vault cannot be opened without it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		store := newStore()
		if store.Exists() {
			return fmt.Errorf("a vault already exists at %s", store.Path())
		}

		password, err := readNewPassword()
		if err != nil {
			return err
		}

		strength := security.CalculatePasswordStrength(password)
		fmt.Fprintf(out, "Password strength: %s\n", strength)
		if strength == security.PasswordWeak {
			fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("warning: the master password is weak; consider a longer passphrase"))
		}

		secretKey, err := crypto.GenerateSecretKey()
		if err != nil {
			return err
		}

		sess, err := store.Create(password, secretKey)
		if err != nil {
			return fmt.Errorf("failed to create vault: %w", err)
		}
		sess.Close()

		fmt.Fprintf(out, "%s %s\n\n", successStyle.Render("Vault created at"), store.Path())
		fmt.Fprintln(out, headerStyle.Render("Your secret key (shown only once):"))
		fmt.Fprintln(out, keyStyle.Render(secretKey))
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Without this key and your master password the vault cannot be opened.")
		return nil
	},
}

// readNewPassword reads and confirms a new master password.
func readNewPassword() (string, error) {
	if p := os.Getenv(envPassword); p != "" {
		return p, nil
	}
	password1, err := readSecret("Enter master password: ", "")
	if err != nil {
		return "", err
	}
	password2, err := readSecret("Confirm master password: ", "")
	if err != nil {
		return "", err
	}
	if password1 != password2 {
		return "", errors.New("passwords do not match")
	}
	if password1 == "" {
		return "", vault.ErrPasswordEmpty
	}
	return password1, nil
}

// promptCredentials returns the master password and secret key from the
// environment or the terminal.
func promptCredentials() (password, secretKey string, err error) {
	password, err = readSecret("Enter master password: ", envPassword)
	if err != nil {
		return "", "", err
	}
	secretKey, err = readSecret("Enter secret key: ", envSecretKey)
	if err != nil {
		return "", "", err
	}
	return password, strings.TrimSpace(secretKey), nil
}

// openVault prompts for credentials and unlocks the configured vault.
func openVault() (*vault.Session, error) {
	store := newStore()
	if !store.Exists() {
		return nil, fmt.Errorf("no vault at %s (run 'harpocrates init' first)", store.Path())
	}
	password, secretKey, err := promptCredentials()
	if err != nil {
		return nil, err
	}
	sess, err := store.Load(password, secretKey)
	if err != nil {
		return nil, unlockError(err)
	}
	logger.Debug("vault unlocked", "path", store.Path())
	return sess, nil
}

// unlockError maps load failures to user-facing messages. Authentication
// failures never say which factor was wrong.
func unlockError(err error) error {
	switch vault.KindOf(err) {
	case vault.KindAuthentication:
		return errAuthFailed
	case vault.KindLocked:
		return fmt.Errorf("vault is in use by another process: %w", err)
	case vault.KindCorruption:
		return fmt.Errorf("vault file is damaged: %w", err)
	default:
		return fmt.Errorf("failed to unlock vault: %w", err)
	}
}

// readSecret returns the value of env when set, otherwise reads a line
// without echo from the terminal.
func readSecret(prompt, env string) (string, error) {
	if env != "" {
		if v := os.Getenv(env); v != "" {
			return v, nil
		}
	}

	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		// Fallback for piped input
		return readLine()
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	defer crypto.SecureWipe(b)
	return string(b), nil
}

// readLine reads a single line from stdin, trimming the trailing newline.
func readLine() (string, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	value := strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(value, "\r"), nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	answer, err := readLine()
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// parseDuration parses a duration string like "30d", "1y", "24h"
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("duration too short: %s", s)
	}

	unit := s[len(s)-1]
	valueStr := s[:len(s)-1]

	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", valueStr)
	}
	if value < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}

	switch unit {
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(value) * 30 * 24 * time.Hour, nil
	case 'y':
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		// Try standard time.ParseDuration
		return time.ParseDuration(s)
	}
}
