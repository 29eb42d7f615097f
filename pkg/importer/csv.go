package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// csvRow is one data row with its 1-based line number in the file.
type csvRow struct {
	num    int
	values []string
}

// get returns the trimmed value of the named column, or "".
func (r csvRow) get(colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(r.values) {
		return NormalizeValue(r.values[idx])
	}
	return ""
}

// raw returns the untouched value of the named column. Passwords are read
// raw so leading or trailing spaces survive.
func (r csvRow) raw(colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(r.values) {
		return r.values[idx]
	}
	return ""
}

// readCSV reads the header and all well-formed rows. Malformed rows and
// rows with a column count mismatch become warnings.
func readCSV(data []byte, result *ImportResult) ([]string, []csvRow, error) {
	reader := csv.NewReader(bytes.NewReader(stripBOM(data)))
	reader.LazyQuotes = true    // Handle malformed exports
	reader.FieldsPerRecord = -1 // Column count is checked per row below

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var rows []csvRow
	rowNum := 1 // 1-indexed (header is row 1)
	for {
		rowNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: failed to parse: %v", rowNum, err))
			continue
		}

		if len(row) != len(header) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: column count mismatch (expected %d, got %d)",
					rowNum, len(header), len(row)))
			continue
		}
		rows = append(rows, csvRow{num: rowNum, values: row})
	}
	return header, rows, nil
}
