package audit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var logs []Entry
	logs = Append(logs, ActionSystem, "Vault Created", base)
	logs = Append(logs, ActionCreate, "Entry added: a", base.Add(1*time.Hour))
	logs = Append(logs, ActionCreate, "Entry added: b", base.Add(2*time.Hour))
	logs = Append(logs, ActionDelete, "Entry removed: a", base.Add(3*time.Hour))

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no filter", FilterOptions{}, []string{ActionDelete, ActionCreate, ActionCreate, ActionSystem}},
		{"by action lower case", FilterOptions{Action: "create"}, []string{ActionCreate, ActionCreate}},
		{"limit keeps newest", FilterOptions{Limit: 2}, []string{ActionDelete, ActionCreate}},
		{"since", FilterOptions{Since: base.Add(2 * time.Hour)}, []string{ActionDelete, ActionCreate}},
		{"until", FilterOptions{Until: base.Add(30 * time.Minute)}, []string{ActionSystem}},
		{"no match", FilterOptions{Action: ActionHIBPAlert}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(logs, tt.opts)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Action != tt.want[i] {
					t.Errorf("entry %d action = %s, want %s", i, got[i].Action, tt.want[i])
				}
			}
		})
	}
}

func TestExportJSON(t *testing.T) {
	logs := Append(nil, ActionSystem, "Vault Created", time.Now())
	data, err := Export(logs, FormatJSON)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	var decoded []Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != logs[0] {
		t.Errorf("decoded = %+v, want %+v", decoded, logs)
	}

	empty, err := Export(nil, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != "[]" {
		t.Errorf("empty export = %s, want []", empty)
	}
}

func TestExportCSV(t *testing.T) {
	logs := Append(nil, ActionCreate, `=HYPERLINK("x"), added`, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	data, err := Export(logs, FormatCSV)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if lines[0] != "timestamp,action,details,prev_hash" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], `"=HYPERLINK(""x""), added"`) {
		t.Errorf("formula field not escaped: %q", lines[1])
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	if _, err := Export(nil, "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestCSVEscape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"+1", `"+1"`},
		{"-cmd", `"-cmd"`},
		{"@sum", `"@sum"`},
		{"line\nbreak", "\"line\nbreak\""},
	}
	for _, tt := range tests {
		if got := csvEscape(tt.in); got != tt.want {
			t.Errorf("csvEscape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
