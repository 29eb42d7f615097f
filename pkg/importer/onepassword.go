package importer

import (
	"fmt"
	"strings"
)

// OnePasswordParser parses 1Password CSV export files:
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
type OnePasswordParser struct{}

// 1Password CSV column names (header-based parsing).
const (
	op1ColTitle    = "Title"
	op1ColWebsite  = "Website"
	op1ColUsername = "Username"
	op1ColPassword = "Password"
	op1ColOTPAuth  = "OTPAuth"
	op1ColArchived = "Archived"
	op1ColTags     = "Tags"
	op1ColNotes    = "Notes"
)

// Source returns the source type for this parser.
func (p *OnePasswordParser) Source() Source {
	return Source1Password
}

// Parse parses 1Password CSV data.
func (p *OnePasswordParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
	result := newResult()

	header, rows, err := readCSV(data, result)
	if err != nil {
		return nil, err
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.TrimSpace(col)] = i
	}

	if _, ok := colIndex[op1ColTitle]; !ok {
		return nil, fmt.Errorf("%w: missing required column: %s", ErrUnrecognizedFormat, op1ColTitle)
	}
	if _, ok := colIndex[op1ColPassword]; !ok {
		return nil, fmt.Errorf("%w: missing required column: %s", ErrUnrecognizedFormat, op1ColPassword)
	}

	// Track for title fallback
	itemCounter := 1

	for _, row := range rows {
		title := row.get(colIndex, op1ColTitle)
		website := row.get(colIndex, op1ColWebsite)
		password := row.raw(colIndex, op1ColPassword)

		if IsEmptyOrWhitespace(password) {
			result.Skipped = append(result.Skipped, SkippedItem{Title: title, Reason: "no password"})
			continue
		}
		if strings.EqualFold(row.get(colIndex, op1ColArchived), "true") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: %q is archived in 1Password", row.num, title))
		}

		if title == "" {
			title = FallbackTitle(website, itemCounter)
			itemCounter++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: empty title, using %q", row.num, title))
		}

		var otp, tags string
		if v := row.get(colIndex, op1ColOTPAuth); v != "" {
			otp = "TOTP: " + v
		}
		if v := row.get(colIndex, op1ColTags); v != "" {
			tags = "Tags: " + v
		}
		notes := joinNotes(row.get(colIndex, op1ColNotes), otp, tags)

		// 1Password tags are comma-separated; the first one acts as the folder
		folder, _, _ := strings.Cut(row.get(colIndex, op1ColTags), ",")

		entry := newEntryInput(withFolder(title, strings.TrimSpace(folder), opts),
			row.get(colIndex, op1ColUsername), password, website, notes)
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}
