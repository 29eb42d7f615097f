package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// FilterOptions narrows a listing. Zero values disable a filter.
type FilterOptions struct {
	Action string    // exact action, case-insensitive
	Since  time.Time // entries at or after this time
	Until  time.Time // entries at or before this time
	Limit  int       // maximum number of entries (most recent first)
}

// Filter returns the entries of logs matching opts, newest first.
// Entries whose timestamp cannot be parsed are skipped by time filters.
func Filter(logs []Entry, opts FilterOptions) []Entry {
	action := strings.ToUpper(opts.Action)
	timed := !opts.Since.IsZero() || !opts.Until.IsZero()

	var filtered []Entry
	for _, e := range logs {
		if action != "" && e.Action != action {
			continue
		}
		if timed {
			ts, err := e.Time()
			if err != nil {
				continue
			}
			if !opts.Since.IsZero() && ts.Before(opts.Since) {
				continue
			}
			if !opts.Until.IsZero() && ts.After(opts.Until) {
				continue
			}
		}
		filtered = append(filtered, e)
		if opts.Limit > 0 && len(filtered) == opts.Limit {
			break
		}
	}
	return filtered
}

// Export renders entries as json or csv.
func Export(logs []Entry, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		if logs == nil {
			logs = []Entry{}
		}
		return json.MarshalIndent(logs, "", "  ")
	case FormatCSV:
		return formatCSV(logs), nil
	default:
		return nil, fmt.Errorf("audit: unsupported format: %s", format)
	}
}

func formatCSV(logs []Entry) []byte {
	var b strings.Builder
	b.WriteString("timestamp,action,details,prev_hash\n")
	for _, e := range logs {
		fmt.Fprintf(&b, "%s,%s,%s,%s\n",
			csvEscape(e.Timestamp),
			csvEscape(e.Action),
			csvEscape(e.Details),
			csvEscape(e.PrevHash),
		)
	}
	return []byte(b.String())
}

// csvEscape quotes a field when needed. Fields starting with =, +, - or @
// are quoted too so spreadsheets do not evaluate them as formulas.
func csvEscape(field string) string {
	if field == "" {
		return field
	}

	needsQuoting := strings.ContainsAny(field[:1], "=+-@") ||
		strings.ContainsAny(field, ",\"\n\r")
	if !needsQuoting {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
