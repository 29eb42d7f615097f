// Package importer parses password manager exports into vault entries.
// Supports a generic CSV layout plus 1Password CSV, Bitwarden JSON and
// LastPass CSV.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/harpocrates/pkg/vault"
)

// Source represents the source export format.
type Source string

const (
	SourceCSV       Source = "csv"
	Source1Password Source = "1password"
	SourceBitwarden Source = "bitwarden"
	SourceLastPass  Source = "lastpass"
)

// ErrUnrecognizedFormat is returned when a CSV header lacks the columns
// needed to build entries.
var ErrUnrecognizedFormat = errors.New("importer: unrecognized format")

// ImportResult contains the results of a parse.
type ImportResult struct {
	// Entries are the successfully parsed entries, in file order.
	Entries []vault.EntryInput

	// Warnings are non-fatal issues encountered during parsing.
	Warnings []string

	// Skipped are items that were skipped with reasons.
	Skipped []SkippedItem
}

// SkippedItem represents an item that was skipped during import.
type SkippedItem struct {
	Title  string
	Reason string
}

func newResult() *ImportResult {
	return &ImportResult{
		Entries:  make([]vault.EntryInput, 0),
		Warnings: make([]string, 0),
		Skipped:  make([]SkippedItem, 0),
	}
}

// Parser is the interface for export format parsers.
type Parser interface {
	// Parse parses the input data and returns entries ready for insertion.
	Parse(data []byte, opts ParseOptions) (*ImportResult, error)

	// Source returns the source type for this parser.
	Source() Source
}

// ParseOptions contains options for parsing.
type ParseOptions struct {
	// KeepFolders prefixes titles with the source folder ("Work/GitHub").
	KeepFolders bool
}

func newEntryInput(title, username, password, url, notes string) vault.EntryInput {
	return vault.EntryInput{
		Title:    title,
		Username: username,
		Password: password,
		URL:      url,
		Notes:    notes,
	}
}

// Signature returns the duplicate-detection key for an entry:
// the normalized, lower-cased "title|username".
func Signature(title, username string) string {
	return strings.ToLower(NormalizeValue(title)) + "|" + strings.ToLower(NormalizeValue(username))
}

// FallbackTitle generates a title when the source item has none.
// 1. Use the URL hostname
// 2. If no URL, use "Imported item N"
func FallbackTitle(url string, counter int) string {
	if url != "" {
		if hostname := extractHostname(url); hostname != "" {
			return hostname
		}
	}
	return fmt.Sprintf("Imported item %d", counter)
}

// extractHostname extracts the hostname from a URL.
func extractHostname(urlStr string) string {
	// Simple hostname extraction without full URL parsing
	urlStr = strings.TrimPrefix(urlStr, "https://")
	urlStr = strings.TrimPrefix(urlStr, "http://")

	// Remove path
	if idx := strings.Index(urlStr, "/"); idx != -1 {
		urlStr = urlStr[:idx]
	}

	// Remove port
	if idx := strings.Index(urlStr, ":"); idx != -1 {
		urlStr = urlStr[:idx]
	}

	return strings.TrimPrefix(urlStr, "www.")
}

// DecodeHTMLEntities decodes common HTML entities found in LastPass exports.
func DecodeHTMLEntities(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&apos;", "'")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

// NormalizeValue trims whitespace and normalizes Unicode to NFC.
func NormalizeValue(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFC.String(s)
	return s
}

// IsEmptyOrWhitespace checks if a string is empty or contains only whitespace.
func IsEmptyOrWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// joinNotes joins the non-empty parts with newlines.
func joinNotes(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if !IsEmptyOrWhitespace(p) {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

// withFolder prefixes title with folder when requested.
func withFolder(title, folder string, opts ParseOptions) string {
	if !opts.KeepFolders || folder == "" {
		return title
	}
	return folder + "/" + title
}

// GetParser returns a parser for the given source.
func GetParser(source Source) (Parser, error) {
	switch source {
	case SourceCSV:
		return &GenericCSVParser{}, nil
	case Source1Password:
		return &OnePasswordParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported import source: %s", source)
	}
}

// ValidSources returns a list of valid source names.
func ValidSources() []string {
	return []string{
		string(SourceCSV),
		string(Source1Password),
		string(SourceBitwarden),
		string(SourceLastPass),
	}
}

// DetectSource guesses the export format from its content.
// JSON objects are Bitwarden; CSV headers are matched against the known
// column sets; anything else falls back to the generic CSV heuristics.
func DetectSource(data []byte) Source {
	trimmed := bytes.TrimSpace(stripBOM(data))
	if bytes.HasPrefix(trimmed, []byte("{")) {
		return SourceBitwarden
	}

	line := trimmed
	if idx := bytes.IndexByte(line, '\n'); idx != -1 {
		line = line[:idx]
	}
	header := string(bytes.TrimSpace(line))

	switch {
	case strings.Contains(header, op1ColOTPAuth) && strings.Contains(header, op1ColTitle):
		return Source1Password
	case strings.Contains(strings.ToLower(header), lpColGrouping):
		return SourceLastPass
	default:
		return SourceCSV
	}
}

// stripBOM removes a UTF-8 byte order mark.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
