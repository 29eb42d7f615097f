package vault

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/forest6511/harpocrates/pkg/crypto"
)

// File layout: salt(16) || nonce(12) || ciphertext || tag(16).
// The version lives inside the encrypted document; nothing else is stored
// in plaintext.
const (
	headerLength  = crypto.SaltLength
	minFileLength = crypto.SaltLength + crypto.NonceLength + crypto.TagLength
)

// splitFile separates the plaintext salt from the sealed payload.
func splitFile(raw []byte) (salt, sealed []byte, err error) {
	if len(raw) < minFileLength {
		return nil, nil, fmt.Errorf("%w: file is %d bytes, need at least %d",
			ErrVaultCorrupted, len(raw), minFileLength)
	}
	return raw[:headerLength], raw[headerLength:], nil
}

// sealDocument serializes and encrypts doc, returning the full file bytes.
func sealDocument(doc *Document, key, salt []byte) ([]byte, error) {
	plaintext, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to marshal document: %w", err)
	}
	defer crypto.SecureWipe(plaintext)

	sealed, err := crypto.Encrypt(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to encrypt document: %w", err)
	}

	raw := make([]byte, 0, len(salt)+len(sealed))
	raw = append(raw, salt...)
	return append(raw, sealed...), nil
}

// openDocument decrypts and parses a sealed payload. Tag failures map to
// ErrAuthenticationFailed, parse failures on authenticated bytes to
// ErrVaultCorrupted.
func openDocument(key, sealed []byte) (*Document, error) {
	plaintext, err := crypto.Decrypt(key, sealed)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	defer crypto.SecureWipe(plaintext)

	return parseDocument(plaintext)
}

func parseDocument(plaintext []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(plaintext))
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultCorrupted, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrVaultCorrupted)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("%w: missing version", ErrVaultCorrupted)
	}
	return &doc, nil
}
