package backup

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Magic number for backup files: "HRPC_BKP"
var MagicNumber = [8]byte{'H', 'R', 'P', 'C', '_', 'B', 'K', 'P'}

// Current backup format version.
const FormatVersion = 1

// ChecksumAlgo names the payload checksum written into every header.
const ChecksumAlgo = "sha256"

// maxHeaderLength bounds the header JSON read from untrusted input.
const maxHeaderLength = 1024 * 1024

// Header describes a backup. It is stored in plaintext and carries no secrets;
// the payload is the vault file exactly as it was on disk.
type Header struct {
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	VaultVersion string    `json:"vault_version"`
	EntryCount   int       `json:"entry_count"`
	LogCount     int       `json:"log_count"`
	ChecksumAlgo string    `json:"checksum_algorithm"`
	Checksum     string    `json:"checksum"`
}

// Encode lays out magic || len(header) || header || len(payload) || payload,
// filling in the header checksum from payload.
func Encode(header *Header, payload []byte) ([]byte, error) {
	h := *header
	h.ChecksumAlgo = ChecksumAlgo
	h.Checksum = checksum(payload)

	var buf bytes.Buffer
	if err := WriteHeader(&buf, &h); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, fmt.Errorf("failed to write payload length: %w", err)
	}
	buf.Write(payload)

	*header = h
	return buf.Bytes(), nil
}

// Decode parses a container and checks the payload against the header
// checksum. It needs no credentials.
func Decode(data []byte) (*Header, []byte, error) {
	r := bytes.NewReader(data)
	header, err := ReadHeader(r)
	if err != nil {
		return nil, nil, err
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return nil, nil, fmt.Errorf("%w: missing payload length", ErrTruncated)
	}
	if int64(payloadLen) > int64(r.Len()) {
		return nil, nil, fmt.Errorf("%w: payload declares %d bytes, %d remain", ErrTruncated, payloadLen, r.Len())
	}
	if int64(payloadLen) < int64(r.Len()) {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrIntegrityFailed, int64(r.Len())-int64(payloadLen))
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if header.ChecksumAlgo != ChecksumAlgo {
		return nil, nil, fmt.Errorf("%w: unknown checksum algorithm %q", ErrUnsupportedVersion, header.ChecksumAlgo)
	}
	if subtle.ConstantTimeCompare([]byte(checksum(payload)), []byte(header.Checksum)) != 1 {
		return nil, nil, ErrIntegrityFailed
	}
	return header, payload, nil
}

// WriteHeader writes the magic number and header to the writer.
func WriteHeader(w io.Writer, header *Header) error {
	if _, err := w.Write(MagicNumber[:]); err != nil {
		return fmt.Errorf("failed to write magic number: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Header length (4 bytes, big-endian)
	if err := binary.Write(w, binary.BigEndian, uint32(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header length: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// ReadHeader reads and validates the magic number and header from the reader.
func ReadHeader(r io.Reader) (*Header, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrInvalidMagic
		}
		return nil, fmt.Errorf("failed to read magic number: %w", err)
	}
	if magic != MagicNumber {
		return nil, ErrInvalidMagic
	}

	var headerLen uint32
	if err := binary.Read(r, binary.BigEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("%w: missing header length", ErrTruncated)
	}
	if headerLen > maxHeaderLength {
		return nil, fmt.Errorf("header too large: %d bytes", headerLen)
	}

	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, fmt.Errorf("%w: header", ErrTruncated)
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, fmt.Errorf("failed to unmarshal header: %w", err)
	}

	if header.Version < 1 || header.Version > FormatVersion {
		return nil, fmt.Errorf("%w: got %d, max supported %d",
			ErrUnsupportedVersion, header.Version, FormatVersion)
	}
	return &header, nil
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
