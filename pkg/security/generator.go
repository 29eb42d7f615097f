package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Character set constants
const (
	CharsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	CharsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	CharsetDigits    = "0123456789"
	CharsetSymbols   = "!@#$%^&*()-_=+"

	MinPasswordLength     = 8
	MaxPasswordLength     = 256
	DefaultPasswordLength = 20
)

// ErrEmptyCharset is returned when every character class is disabled or
// excluded.
var ErrEmptyCharset = errors.New("security: character set is empty: enable at least one character type")

// GenerateOptions selects the character classes of a generated password.
type GenerateOptions struct {
	Length    int    // 0 means DefaultPasswordLength
	NoUpper   bool   // Exclude uppercase letters
	NoLower   bool   // Exclude lowercase letters
	NoDigits  bool   // Exclude digits
	NoSymbols bool   // Exclude symbols
	Exclude   string // Characters to remove from every class
}

// Generate returns a CSPRNG password containing at least one character from
// every enabled class.
func Generate(opts GenerateOptions) (string, error) {
	length := opts.Length
	if length == 0 {
		length = DefaultPasswordLength
	}
	if length < MinPasswordLength || length > MaxPasswordLength {
		return "", fmt.Errorf("security: password length must be between %d and %d", MinPasswordLength, MaxPasswordLength)
	}

	var classes []string
	for _, c := range []struct {
		skip    bool
		charset string
	}{
		{opts.NoUpper, CharsetUppercase},
		{opts.NoLower, CharsetLowercase},
		{opts.NoDigits, CharsetDigits},
		{opts.NoSymbols, CharsetSymbols},
	} {
		if c.skip {
			continue
		}
		if set := removeChars(c.charset, opts.Exclude); set != "" {
			classes = append(classes, set)
		}
	}
	if len(classes) == 0 {
		return "", ErrEmptyCharset
	}

	password := make([]byte, 0, length)

	// One guaranteed character per class
	for _, set := range classes {
		ch, err := randomChar(set)
		if err != nil {
			return "", err
		}
		password = append(password, ch)
	}

	alphabet := strings.Join(classes, "")
	for len(password) < length {
		ch, err := randomChar(alphabet)
		if err != nil {
			return "", err
		}
		password = append(password, ch)
	}

	if err := shuffle(password); err != nil {
		return "", err
	}
	return string(password), nil
}

// randomChar picks a uniformly random byte of charset.
func randomChar(charset string) (byte, error) {
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, fmt.Errorf("security: failed to generate random number: %w", err)
	}
	return charset[idx.Int64()], nil
}

// shuffle performs a Fisher-Yates shuffle with crypto/rand.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("security: failed to generate random number: %w", err)
		}
		b[i], b[j.Int64()] = b[j.Int64()], b[i]
	}
	return nil
}

// removeChars removes specified characters from a string
func removeChars(s, chars string) string {
	if chars == "" {
		return s
	}
	var result strings.Builder
	for _, c := range s {
		if !strings.ContainsRune(chars, c) {
			result.WriteRune(c)
		}
	}
	return result.String()
}
