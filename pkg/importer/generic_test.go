package importer

import (
	"errors"
	"testing"
)

func TestGenericCSVParser_Parse(t *testing.T) {
	tests := []struct {
		name        string
		csvData     string
		wantEntries int
		wantSkipped int
		wantErr     error
		checkFirst  func(t *testing.T, r *ImportResult)
	}{
		{
			name: "chrome export",
			csvData: `name,url,username,password,note
Mail,https://mail.example.com,a@b.com,xyz,personal
Bank,https://bank.example,me,p@ss,`,
			wantEntries: 2,
			checkFirst: func(t *testing.T, r *ImportResult) {
				e := r.Entries[0]
				if e.Title != "Mail" || e.Username != "a@b.com" || e.Password != "xyz" {
					t.Errorf("unexpected entry: %+v", e)
				}
				if e.URL != "https://mail.example.com" || e.Notes != "personal" {
					t.Errorf("unexpected url/notes: %+v", e)
				}
			},
		},
		{
			name: "bitwarden csv columns",
			csvData: `folder,favorite,type,name,notes,fields,reprompt,login_uri,login_username,login_password,login_totp
,,login,GitHub,,,0,https://github.com,octocat,hunter2,`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, r *ImportResult) {
				e := r.Entries[0]
				if e.Title != "GitHub" || e.Username != "octocat" || e.Password != "hunter2" || e.URL != "https://github.com" {
					t.Errorf("unexpected entry: %+v", e)
				}
			},
		},
		{
			name: "header case and whitespace",
			csvData: ` Title , Username ,PASSWORD
Mail,a@b.com,xyz`,
			wantEntries: 1,
		},
		{
			name: "rows without title or password are skipped",
			csvData: `title,username,password
,user,pass
NoPass,user,
Ok,user,pass`,
			wantEntries: 1,
			wantSkipped: 2,
		},
		{
			name: "password whitespace is preserved",
			csvData: `title,username,password
Mail,a@b.com," spaced "`,
			wantEntries: 1,
			checkFirst: func(t *testing.T, r *ImportResult) {
				if r.Entries[0].Password != " spaced " {
					t.Errorf("Password = %q", r.Entries[0].Password)
				}
			},
		},
		{
			name: "missing username column",
			csvData: `title,password
Mail,xyz`,
			wantErr: ErrUnrecognizedFormat,
		},
		{
			name:    "unrelated csv",
			csvData: "a,b,c\n1,2,3",
			wantErr: ErrUnrecognizedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &GenericCSVParser{}
			result, err := p.Parse([]byte(tt.csvData), ParseOptions{})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(result.Entries) != tt.wantEntries {
				t.Errorf("got %d entries, want %d", len(result.Entries), tt.wantEntries)
			}
			if len(result.Skipped) != tt.wantSkipped {
				t.Errorf("got %d skipped, want %d: %+v", len(result.Skipped), tt.wantSkipped, result.Skipped)
			}
			if tt.checkFirst != nil && len(result.Entries) > 0 {
				tt.checkFirst(t, result)
			}
		})
	}
}

func TestGenericCSVParser_ColumnMismatch(t *testing.T) {
	data := "title,username,password\nMail,a,b\nBroken,a\n"
	result, err := (&GenericCSVParser{}).Parse([]byte(data), ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 1 {
		t.Errorf("got %d entries, want 1", len(result.Entries))
	}
	if len(result.Warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(result.Warnings))
	}
}

func TestGenericCSVParser_EmptyInput(t *testing.T) {
	if _, err := (&GenericCSVParser{}).Parse(nil, ParseOptions{}); err == nil {
		t.Error("expected error for empty input")
	}
}
