package importer

import (
	"fmt"
	"strings"
)

// LastPassParser parses LastPass CSV export files:
// url,username,password,totp,extra,name,grouping,fav
type LastPassParser struct{}

// LastPass CSV column names (header-based parsing).
const (
	lpColURL      = "url"
	lpColUsername = "username"
	lpColPassword = "password"
	lpColTOTP     = "totp"
	lpColExtra    = "extra"
	lpColName     = "name"
	lpColGrouping = "grouping"
)

// lpSecureNoteURL marks Secure Notes in LastPass exports.
const lpSecureNoteURL = "http://sn"

// Source returns the source type for this parser.
func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

// Parse parses LastPass CSV data.
func (p *LastPassParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
	result := newResult()

	header, rows, err := readCSV(data, result)
	if err != nil {
		return nil, err
	}

	// LastPass uses lowercase column names
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	if _, ok := colIndex[lpColName]; !ok {
		return nil, fmt.Errorf("%w: missing required column: %s", ErrUnrecognizedFormat, lpColName)
	}
	if _, ok := colIndex[lpColPassword]; !ok {
		return nil, fmt.Errorf("%w: missing required column: %s", ErrUnrecognizedFormat, lpColPassword)
	}

	// Track for title fallback
	itemCounter := 1

	for _, row := range rows {
		getValue := func(col string) string {
			return DecodeHTMLEntities(row.get(colIndex, col))
		}

		name := getValue(lpColName)
		url := getValue(lpColURL)
		password := DecodeHTMLEntities(row.raw(colIndex, lpColPassword))

		if url == lpSecureNoteURL {
			result.Skipped = append(result.Skipped, SkippedItem{Title: name, Reason: "secure note"})
			continue
		}
		if IsEmptyOrWhitespace(password) {
			result.Skipped = append(result.Skipped, SkippedItem{Title: name, Reason: "no password"})
			continue
		}

		title := name
		if title == "" {
			title = FallbackTitle(url, itemCounter)
			itemCounter++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: empty name, using %q", row.num, title))
		}

		var totp string
		if v := getValue(lpColTOTP); v != "" {
			totp = "TOTP: " + v
		}
		notes := joinNotes(getValue(lpColExtra), totp)

		entry := newEntryInput(withFolder(title, getValue(lpColGrouping), opts),
			getValue(lpColUsername), password, url, notes)
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}
