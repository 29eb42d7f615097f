package importer

import (
	"errors"
	"testing"
)

const onePasswordHeader = "Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes\n"

func TestOnePasswordParser_Parse(t *testing.T) {
	tests := []struct {
		name         string
		csvData      string
		opts         ParseOptions
		wantEntries  int
		wantSkipped  int
		wantWarnings int
		checkFirst   func(t *testing.T, r *ImportResult)
	}{
		{
			name:        "standard login",
			csvData:     onePasswordHeader + `GitHub,https://github.com,octocat,hunter2,otpauth://totp/x,false,false,"dev,work",Main account`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, r *ImportResult) {
				e := r.Entries[0]
				if e.Title != "GitHub" || e.Username != "octocat" || e.Password != "hunter2" {
					t.Errorf("unexpected entry: %+v", e)
				}
				if e.URL != "https://github.com" {
					t.Errorf("URL = %q", e.URL)
				}
				want := "Main account\nTOTP: otpauth://totp/x\nTags: dev,work"
				if e.Notes != want {
					t.Errorf("Notes = %q, want %q", e.Notes, want)
				}
			},
		},
		{
			name:        "first tag as folder",
			csvData:     onePasswordHeader + `GitHub,,octocat,hunter2,,false,false,"dev, work",`,
			opts:        ParseOptions{KeepFolders: true},
			wantEntries: 1,
			checkFirst: func(t *testing.T, r *ImportResult) {
				if r.Entries[0].Title != "dev/GitHub" {
					t.Errorf("Title = %q, want dev/GitHub", r.Entries[0].Title)
				}
			},
		},
		{
			name:         "archived items are imported with a warning",
			csvData:      onePasswordHeader + `Old,,u,p,,false,true,,`,
			wantEntries:  1,
			wantWarnings: 1,
		},
		{
			name:        "no password",
			csvData:     onePasswordHeader + `Note,,,,,false,false,,just a note`,
			wantSkipped: 1,
		},
		{
			name:         "empty title uses counter",
			csvData:      onePasswordHeader + `,,u,p,,false,false,,`,
			wantEntries:  1,
			wantWarnings: 1,
			checkFirst: func(t *testing.T, r *ImportResult) {
				if r.Entries[0].Title != "Imported item 1" {
					t.Errorf("Title = %q", r.Entries[0].Title)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := (&OnePasswordParser{}).Parse([]byte(tt.csvData), tt.opts)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(result.Entries) != tt.wantEntries {
				t.Errorf("got %d entries, want %d", len(result.Entries), tt.wantEntries)
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("got %d skipped, want %d", len(result.Skipped), tt.wantSkipped)
			}
			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("got %d warnings, want %d: %v", len(result.Warnings), tt.wantWarnings, result.Warnings)
			}
			if tt.checkFirst != nil && len(result.Entries) > 0 {
				tt.checkFirst(t, result)
			}
		})
	}
}

func TestOnePasswordParser_MissingTitle(t *testing.T) {
	_, err := (&OnePasswordParser{}).Parse([]byte("Website,Username,Password\n"), ParseOptions{})
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Errorf("expected ErrUnrecognizedFormat, got %v", err)
	}
}
