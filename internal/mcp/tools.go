package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/harpocrates/internal/cli"
	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/security"
)

// Audit listing bounds.
const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

// EntryListInput represents input for entry_list tool.
type EntryListInput struct {
	Query string `json:"query,omitempty" jsonschema:"case-insensitive substring matched against title, username, url and notes"`
}

// EntryListOutput represents output for entry_list tool.
type EntryListOutput struct {
	Entries []EntryInfo `json:"entries"`
}

// EntryInfo represents an entry without its secrets.
type EntryInfo struct {
	Position  int    `json:"position"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Username  string `json:"username,omitempty"`
	URL       string `json:"url,omitempty"`
	HasNotes  bool   `json:"has_notes"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// EntryGetMaskedInput represents input for entry_get_masked tool.
type EntryGetMaskedInput struct {
	Selector string `json:"selector" jsonschema:"#position, id, id prefix or exact title"`
}

// EntryGetMaskedOutput represents output for entry_get_masked tool.
type EntryGetMaskedOutput struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	MaskedPassword string `json:"masked_password"`
	PasswordLength int    `json:"password_length"`
	Strength       string `json:"strength"`
}

// AuditListInput represents input for audit_list tool.
type AuditListInput struct {
	Action string `json:"action,omitempty" jsonschema:"only events with this action, e.g. CREATE or HIBP_ALERT"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of events (default 50, max 1000)"`
}

// AuditListOutput represents output for audit_list tool.
type AuditListOutput struct {
	Events []audit.Entry `json:"events"`
	Total  int           `json:"total"`
}

// AuditVerifyInput represents input for audit_verify tool.
type AuditVerifyInput struct{}

// AuditVerifyOutput represents output for audit_verify tool.
type AuditVerifyOutput struct {
	Valid        bool     `json:"valid"`
	RecordsTotal int      `json:"records_total"`
	Errors       []string `json:"errors,omitempty"`
}

// SecurityScoreInput represents input for security_score tool.
type SecurityScoreInput struct{}

// SecurityScoreOutput represents output for security_score tool.
type SecurityScoreOutput struct {
	Overall     int                      `json:"overall"`
	Components  security.ScoreComponents `json:"components"`
	IssueCounts map[string]int           `json:"issue_counts"`
	Suggestions []string                 `json:"suggestions"`
}

// handleEntryList handles the entry_list tool call.
func (s *Server) handleEntryList(_ context.Context, _ *mcp.CallToolRequest, input EntryListInput) (*mcp.CallToolResult, EntryListOutput, error) {
	entries, err := s.sess.Entries()
	if err != nil {
		return nil, EntryListOutput{}, fmt.Errorf("failed to list entries: %w", err)
	}

	indexes := make([]int, 0, len(entries))
	if strings.TrimSpace(input.Query) != "" {
		indexes = append(indexes, cli.Search(input.Query, entries)...)
	} else {
		for i := range entries {
			indexes = append(indexes, i)
		}
	}

	// Convert to output format (no passwords!)
	output := EntryListOutput{Entries: make([]EntryInfo, 0, len(indexes))}
	for _, i := range indexes {
		e := entries[i]
		output.Entries = append(output.Entries, EntryInfo{
			Position:  i + 1,
			ID:        e.ID,
			Title:     e.Title,
			Username:  e.Username,
			URL:       e.URL,
			HasNotes:  e.Notes != "",
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	return nil, output, nil
}

// handleEntryGetMasked handles the entry_get_masked tool call.
func (s *Server) handleEntryGetMasked(_ context.Context, _ *mcp.CallToolRequest, input EntryGetMaskedInput) (*mcp.CallToolResult, EntryGetMaskedOutput, error) {
	if !s.allowMasked {
		return nil, EntryGetMaskedOutput{}, errors.New("entry_get_masked is disabled: set mcp.allow_masked in the config file")
	}
	if strings.TrimSpace(input.Selector) == "" {
		return nil, EntryGetMaskedOutput{}, errors.New("selector is required")
	}

	entries, err := s.sess.Entries()
	if err != nil {
		return nil, EntryGetMaskedOutput{}, fmt.Errorf("failed to list entries: %w", err)
	}
	i, err := cli.SelectOne(input.Selector, entries)
	if err != nil {
		return nil, EntryGetMaskedOutput{}, err
	}

	e := entries[i]
	return nil, EntryGetMaskedOutput{
		ID:             e.ID,
		Title:          e.Title,
		MaskedPassword: maskValue(e.Password),
		PasswordLength: len([]rune(e.Password)),
		Strength:       security.CalculatePasswordStrength(e.Password).String(),
	}, nil
}

// maskValue masks a password by rune count:
// | Length  | Format          | Example   |
// |---------|-----------------|-----------|
// | 1-4     | All *           | ****      |
// | 5-8     | Show last 2     | ******XY  |
// | 9+      | Show last 4     | ****WXYZ  |
func maskValue(value string) string {
	runes := []rune(value)
	length := len(runes)

	switch {
	case length == 0:
		return ""
	case length <= 4:
		return strings.Repeat("*", length)
	case length <= 8:
		return strings.Repeat("*", length-2) + string(runes[length-2:])
	default:
		return strings.Repeat("*", length-4) + string(runes[length-4:])
	}
}

// handleAuditList handles the audit_list tool call.
func (s *Server) handleAuditList(_ context.Context, _ *mcp.CallToolRequest, input AuditListInput) (*mcp.CallToolResult, AuditListOutput, error) {
	limit := input.Limit
	switch {
	case limit < 0:
		return nil, AuditListOutput{}, errors.New("limit must not be negative")
	case limit == 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}

	logs, err := s.sess.Logs()
	if err != nil {
		return nil, AuditListOutput{}, fmt.Errorf("failed to read audit log: %w", err)
	}

	events := audit.Filter(logs, audit.FilterOptions{Action: input.Action, Limit: limit})
	if events == nil {
		events = []audit.Entry{}
	}
	return nil, AuditListOutput{Events: events, Total: len(logs)}, nil
}

// handleAuditVerify handles the audit_verify tool call.
func (s *Server) handleAuditVerify(_ context.Context, _ *mcp.CallToolRequest, _ AuditVerifyInput) (*mcp.CallToolResult, AuditVerifyOutput, error) {
	result, err := s.sess.AuditVerify()
	if err != nil {
		return nil, AuditVerifyOutput{}, fmt.Errorf("failed to verify audit log: %w", err)
	}
	if !result.Valid {
		s.logger.Warn("audit chain verification failed", "errors", len(result.Errors))
	}
	return nil, AuditVerifyOutput{
		Valid:        result.Valid,
		RecordsTotal: result.RecordsTotal,
		Errors:       result.Errors,
	}, nil
}

// handleSecurityScore handles the security_score tool call.
func (s *Server) handleSecurityScore(_ context.Context, _ *mcp.CallToolRequest, _ SecurityScoreInput) (*mcp.CallToolResult, SecurityScoreOutput, error) {
	entries, err := s.sess.Entries()
	if err != nil {
		return nil, SecurityScoreOutput{}, fmt.Errorf("failed to list entries: %w", err)
	}

	score, err := security.NewCalculator(security.NoLimits()).CalculateScore(entries, false)
	if err != nil {
		return nil, SecurityScoreOutput{}, fmt.Errorf("failed to compute score: %w", err)
	}

	counts := make(map[string]int)
	for _, issue := range score.Issues {
		counts[string(issue.Type)]++
	}
	suggestions := score.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return nil, SecurityScoreOutput{
		Overall:     score.Overall,
		Components:  score.Components,
		IssueCounts: counts,
		Suggestions: suggestions,
	}, nil
}
