package importer

import (
	"fmt"
	"strings"
)

// GenericCSVParser parses CSV exports by recognizing common header names.
// Each field maps from the first header present among its aliases.
type GenericCSVParser struct{}

// Header aliases, first match wins.
var (
	genericTitleCols    = []string{"name", "login_name", "title"}
	genericURLCols      = []string{"url", "login_uri", "website"}
	genericUsernameCols = []string{"username", "login_username"}
	genericPasswordCols = []string{"password", "login_password"}
	genericNotesCols    = []string{"notes", "note", "extra"}
)

// Source returns the source type for this parser.
func (p *GenericCSVParser) Source() Source {
	return SourceCSV
}

// Parse parses CSV data with a recognizable header. The header must name a
// title, a username and a password column.
func (p *GenericCSVParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
	result := newResult()

	header, rows, err := readCSV(data, result)
	if err != nil {
		return nil, err
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		key := strings.ToLower(NormalizeValue(col))
		if _, dup := colIndex[key]; !dup {
			colIndex[key] = i
		}
	}

	titleCol := firstPresent(colIndex, genericTitleCols)
	usernameCol := firstPresent(colIndex, genericUsernameCols)
	passwordCol := firstPresent(colIndex, genericPasswordCols)
	if titleCol == "" || usernameCol == "" || passwordCol == "" {
		return nil, fmt.Errorf("%w: CSV header needs title, username and password columns", ErrUnrecognizedFormat)
	}
	urlCol := firstPresent(colIndex, genericURLCols)
	notesCol := firstPresent(colIndex, genericNotesCols)

	for _, row := range rows {
		title := row.get(colIndex, titleCol)
		password := row.raw(colIndex, passwordCol)
		if title == "" || IsEmptyOrWhitespace(password) {
			result.Skipped = append(result.Skipped, SkippedItem{
				Title:  title,
				Reason: fmt.Sprintf("row %d: missing title or password", row.num),
			})
			continue
		}

		entry := newEntryInput(title, row.get(colIndex, usernameCol), password,
			row.get(colIndex, urlCol), row.get(colIndex, notesCol))
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// firstPresent returns the first alias present in colIndex, or "".
func firstPresent(colIndex map[string]int, aliases []string) string {
	for _, a := range aliases {
		if _, ok := colIndex[a]; ok {
			return a
		}
	}
	return ""
}
