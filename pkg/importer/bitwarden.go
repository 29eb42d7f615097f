package importer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BitwardenParser parses Bitwarden JSON export files.
// Only login items carry a password; other item types are skipped.
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

// Bitwarden custom field types.
const (
	bitwardenFieldText    = 0
	bitwardenFieldHidden  = 1
	bitwardenFieldBoolean = 2
)

// bitwardenExport represents the top-level Bitwarden export structure.
type bitwardenExport struct {
	Encrypted bool              `json:"encrypted"`
	Items     []bitwardenItem   `json:"items"`
	Folders   []bitwardenFolder `json:"folders"`
}

// bitwardenFolder represents a Bitwarden folder.
type bitwardenFolder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// bitwardenItem represents a Bitwarden vault item.
type bitwardenItem struct {
	Type     int                    `json:"type"`
	Name     string                 `json:"name"`
	Notes    string                 `json:"notes"`
	FolderID *string                `json:"folderId"`
	Login    *bitwardenLogin        `json:"login"`
	Fields   []bitwardenCustomField `json:"fields"`
}

// bitwardenLogin represents Bitwarden login data.
type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
	TOTP     string         `json:"totp"`
}

// bitwardenURI represents a Bitwarden URI entry.
type bitwardenURI struct {
	URI string `json:"uri"`
}

// bitwardenCustomField represents a Bitwarden custom field.
type bitwardenCustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  int    `json:"type"`
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden JSON data.
func (p *BitwardenParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
	result := newResult()

	var export bitwardenExport
	if err := json.Unmarshal(stripBOM(data), &export); err != nil {
		return nil, fmt.Errorf("failed to parse Bitwarden JSON: %w", err)
	}
	if export.Encrypted {
		return nil, fmt.Errorf("%w: encrypted Bitwarden exports are not supported, export as unencrypted JSON", ErrUnrecognizedFormat)
	}

	// Build folder lookup map
	folderMap := make(map[string]string)
	for _, f := range export.Folders {
		folderMap[f.ID] = f.Name
	}

	// Track for title fallback
	itemCounter := 1

	for i := range export.Items {
		item := &export.Items[i]
		if item.Type != bitwardenTypeLogin {
			result.Skipped = append(result.Skipped, SkippedItem{
				Title:  item.Name,
				Reason: bitwardenTypeName(item.Type),
			})
			continue
		}
		if item.Login == nil || IsEmptyOrWhitespace(item.Login.Password) {
			result.Skipped = append(result.Skipped, SkippedItem{Title: item.Name, Reason: "no password"})
			continue
		}

		url := p.primaryURL(item.Login)
		title := NormalizeValue(item.Name)
		if title == "" {
			title = FallbackTitle(url, itemCounter)
			itemCounter++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("item %d: empty name, using %q", i+1, title))
		}

		var folder string
		if item.FolderID != nil {
			folder = folderMap[*item.FolderID]
		}

		entry := newEntryInput(withFolder(title, folder, opts),
			NormalizeValue(item.Login.Username), item.Login.Password, url, p.notes(item))
		result.Entries = append(result.Entries, entry)
	}

	return result, nil
}

// primaryURL returns the first non-empty URI.
func (p *BitwardenParser) primaryURL(login *bitwardenLogin) string {
	for _, u := range login.URIs {
		if u.URI != "" {
			return u.URI
		}
	}
	return ""
}

// notes folds everything the flat entry has no field for into the notes:
// the item notes, TOTP seed, additional URIs and custom fields.
func (p *BitwardenParser) notes(item *bitwardenItem) string {
	parts := []string{item.Notes}

	if item.Login.TOTP != "" {
		parts = append(parts, "TOTP: "+item.Login.TOTP)
	}

	primary := p.primaryURL(item.Login)
	for _, u := range item.Login.URIs {
		if u.URI != "" && u.URI != primary {
			parts = append(parts, "URL: "+u.URI)
		}
	}

	for _, cf := range item.Fields {
		name := strings.TrimSpace(cf.Name)
		if name == "" {
			name = "custom_field"
		}
		switch cf.Type {
		case bitwardenFieldHidden, bitwardenFieldText, bitwardenFieldBoolean:
			parts = append(parts, name+": "+cf.Value)
		}
	}

	return joinNotes(parts...)
}

func bitwardenTypeName(t int) string {
	switch t {
	case bitwardenTypeSecureNote:
		return "secure note"
	case bitwardenTypeCard:
		return "card"
	case bitwardenTypeIdentity:
		return "identity"
	default:
		return fmt.Sprintf("unsupported item type: %d", t)
	}
}
