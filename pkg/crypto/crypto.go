// Package crypto provides the cryptographic primitives for harpocrates.
//
// The vault key is derived from two factors: the master password (something
// you know) and a randomly generated secret key (something you have). Neither
// factor alone is enough to derive the key.
//
// # Security Features
//
//   - Argon2id key derivation (64 MiB memory, 4 iterations, 4 threads)
//   - AES-256-GCM authenticated encryption with a fresh 96-bit nonce per call
//   - 256-bit secret keys rendered as URL-safe base64
//   - Secure memory wiping for sensitive data
//
// # Example Usage
//
//	secretKey, _ := crypto.GenerateSecretKey()
//	salt, _ := crypto.GenerateSalt()
//	key := crypto.DeriveSessionKey("password", secretKey, salt)
//	defer crypto.SecureWipe(key)
//
//	blob, err := crypto.Encrypt(key, plaintext) // nonce || ciphertext || tag
//	plaintext, err := crypto.Decrypt(key, blob)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. These are fixed: the derivation cost is the vault's
// brute-force throttle and there is no API to lower it.
const (
	// Argon2Memory is the memory cost in KiB (64 MiB).
	Argon2Memory = 64 * 1024

	// Argon2Time is the number of iterations.
	Argon2Time = 4

	// Argon2Threads is the degree of parallelism.
	Argon2Threads = 4

	// KeyLength is the length of session keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// TagLength is the length of the GCM authentication tag in bytes.
	TagLength = 16

	// SaltLength is the length of the per-vault salt in bytes.
	SaltLength = 16

	// SecretKeyBytes is the amount of entropy in a secret key.
	SecretKeyBytes = 32
)

// secretKeySeparator joins the two factors before derivation.
const secretKeySeparator = ":"

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrDecryptionFailed indicates authentication tag verification failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the blob cannot hold a nonce and a tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

	// ErrInvalidSecretKey indicates a secret key that does not decode to 32 bytes.
	ErrInvalidSecretKey = errors.New("crypto: invalid secret key format")
)

// GenerateSecretKey returns 32 CSPRNG bytes encoded as unpadded URL-safe
// base64. The result is shown to the user once and never persisted.
func GenerateSecretKey() (string, error) {
	b := make([]byte, SecretKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto: failed to generate secret key: %w", err)
	}
	defer SecureWipe(b)
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateSecretKey reports whether s looks like a key produced by
// GenerateSecretKey. It only checks the encoding; a wrong but well-formed key
// still fails later as an authentication error.
func ValidateSecretKey(s string) error {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(b) != SecretKeyBytes {
		return ErrInvalidSecretKey
	}
	SecureWipe(b)
	return nil
}

// GenerateSalt returns a fresh 16-byte salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveSessionKey derives the 256-bit vault key from both factors and the
// vault salt using Argon2id. The call takes hundreds of milliseconds and is
// deliberately not cancellable.
func DeriveSessionKey(password, secretKey string, salt []byte) []byte {
	secret := []byte(password + secretKeySeparator + secretKey)
	defer SecureWipe(secret)
	return argon2.IDKey(secret, salt, Argon2Time, Argon2Memory, Argon2Threads, KeyLength)
}

// Encrypt seals plaintext with AES-256-GCM under key.
//
// A new random nonce is generated for every call and prepended to the
// output, so the result is nonce || ciphertext || tag. Callers never supply
// nonces.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceLength, NonceLength+len(plaintext)+gcm.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt.
//
// The authentication tag is verified before any plaintext is returned. A
// wrong key and a tampered blob are indistinguishable and both yield
// ErrDecryptionFailed.
func Decrypt(key, blob []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < NonceLength+gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	nonce, ciphertext := blob[:NonceLength], blob[NonceLength:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
