package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/crypto"
	"github.com/forest6511/harpocrates/pkg/vault"
)

const testPassword = "Correct1!"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testVault creates a vault file and returns its path and secret key.
func testVault(t *testing.T, inputs ...vault.EntryInput) (path, secretKey string) {
	t.Helper()
	secretKey, err := crypto.GenerateSecretKey()
	if err != nil {
		t.Fatalf("failed to generate secret key: %v", err)
	}
	path = filepath.Join(t.TempDir(), "vault.enc")

	sess, err := vault.NewStore(path).Create(testPassword, secretKey)
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	defer sess.Close()

	if len(inputs) > 0 {
		if err := sess.AddEntriesBulk(inputs); err != nil {
			t.Fatalf("failed to add entries: %v", err)
		}
	}
	return path, secretKey
}

// testServer returns a server over an unlocked session.
func testServer(t *testing.T, allowMasked bool, inputs ...vault.EntryInput) *Server {
	t.Helper()
	path, secretKey := testVault(t, inputs...)
	sess, err := vault.NewStore(path).Load(testPassword, secretKey)
	if err != nil {
		t.Fatalf("failed to load vault: %v", err)
	}
	t.Cleanup(sess.Close)
	return newServer(sess, allowMasked, discardLogger, "test")
}

var sampleEntries = []vault.EntryInput{
	{Title: "Mail", Username: "me@example.com", Password: "hunter2hunter2", URL: "https://mail.example"},
	{Title: "Bank", Username: "me", Password: "abc", Notes: "pin in safe"},
	{Title: "Forum", Password: "hunter2hunter2"},
}

func TestNewServer_NoCredentials(t *testing.T) {
	path, _ := testVault(t)
	t.Setenv(EnvPassword, "")
	t.Setenv(EnvSecretKey, "")

	_, err := NewServer(&ServerOptions{VaultPath: path, Logger: discardLogger})
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestNewServer_InvalidPassword(t *testing.T) {
	path, secretKey := testVault(t)

	_, err := NewServer(&ServerOptions{
		VaultPath: path,
		Password:  "Wrong1!",
		SecretKey: secretKey,
		Logger:    discardLogger,
	})
	if vault.KindOf(err) != vault.KindAuthentication {
		t.Errorf("expected authentication failure, got %v", err)
	}
}

func TestNewServer_FromEnvironment(t *testing.T) {
	path, secretKey := testVault(t)
	t.Setenv(EnvPassword, testPassword)
	t.Setenv(EnvSecretKey, secretKey)

	server, err := NewServer(&ServerOptions{VaultPath: path, Logger: discardLogger})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	defer server.Close()

	if os.Getenv(EnvPassword) != "" || os.Getenv(EnvSecretKey) != "" {
		t.Error("credential environment variables should be cleared")
	}

	logs, err := server.sess.Logs()
	if err != nil {
		t.Fatal(err)
	}
	if logs[0].Action != audit.ActionLogin {
		t.Errorf("expected LOGIN event, got %s", logs[0].Action)
	}
}

func TestServer_Close(t *testing.T) {
	server := testServer(t, false)
	if err := server.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if !server.sess.IsLocked() {
		t.Error("session should be locked after Close")
	}

	_, _, err := server.handleEntryList(context.Background(), nil, EntryListInput{})
	if !errors.Is(err, vault.ErrVaultLocked) {
		t.Errorf("expected ErrVaultLocked after Close, got %v", err)
	}
}

func TestHandleEntryList(t *testing.T) {
	server := testServer(t, false, sampleEntries...)
	ctx := context.Background()

	_, output, err := server.handleEntryList(ctx, nil, EntryListInput{})
	if err != nil {
		t.Fatalf("handleEntryList failed: %v", err)
	}
	if len(output.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(output.Entries))
	}
	if output.Entries[1].Position != 2 || output.Entries[1].Title != "Bank" || !output.Entries[1].HasNotes {
		t.Errorf("unexpected entry: %+v", output.Entries[1])
	}
	for _, e := range output.Entries {
		if e.ID == "" {
			t.Error("entry id is empty")
		}
	}

	_, output, err = server.handleEntryList(ctx, nil, EntryListInput{Query: "EXAMPLE"})
	if err != nil {
		t.Fatalf("handleEntryList failed: %v", err)
	}
	if len(output.Entries) != 1 || output.Entries[0].Title != "Mail" {
		t.Errorf("query should match Mail only, got %+v", output.Entries)
	}
}

func TestHandleEntryGetMasked(t *testing.T) {
	server := testServer(t, true, sampleEntries...)
	ctx := context.Background()

	_, output, err := server.handleEntryGetMasked(ctx, nil, EntryGetMaskedInput{Selector: "mail"})
	if err != nil {
		t.Fatalf("handleEntryGetMasked failed: %v", err)
	}
	if output.MaskedPassword != "**********ter2" {
		t.Errorf("MaskedPassword = %q", output.MaskedPassword)
	}
	if output.PasswordLength != 14 || output.Strength != "Good" {
		t.Errorf("unexpected output: %+v", output)
	}

	if _, _, err := server.handleEntryGetMasked(ctx, nil, EntryGetMaskedInput{}); err == nil {
		t.Error("expected error for empty selector")
	}
	if _, _, err := server.handleEntryGetMasked(ctx, nil, EntryGetMaskedInput{Selector: "missing"}); err == nil {
		t.Error("expected error for unknown entry")
	}
}

func TestHandleEntryGetMasked_Disabled(t *testing.T) {
	server := testServer(t, false, sampleEntries...)

	_, _, err := server.handleEntryGetMasked(context.Background(), nil, EntryGetMaskedInput{Selector: "Mail"})
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Errorf("expected disabled error, got %v", err)
	}
}

func TestHandleAuditList(t *testing.T) {
	server := testServer(t, false, sampleEntries...)
	ctx := context.Background()

	_, output, err := server.handleAuditList(ctx, nil, AuditListInput{})
	if err != nil {
		t.Fatalf("handleAuditList failed: %v", err)
	}
	// Vault Created + Imported 3 entries
	if output.Total != 2 || len(output.Events) != 2 {
		t.Fatalf("unexpected output: %+v", output)
	}
	if output.Events[0].Action != audit.ActionImport {
		t.Errorf("newest event should be IMPORT, got %s", output.Events[0].Action)
	}

	_, output, err = server.handleAuditList(ctx, nil, AuditListInput{Action: "system"})
	if err != nil {
		t.Fatalf("handleAuditList failed: %v", err)
	}
	if len(output.Events) != 1 || output.Events[0].Details != "Vault Created" {
		t.Errorf("unexpected filtered events: %+v", output.Events)
	}

	_, output, _ = server.handleAuditList(ctx, nil, AuditListInput{Limit: 1})
	if len(output.Events) != 1 {
		t.Errorf("limit not applied: %d events", len(output.Events))
	}

	if _, _, err := server.handleAuditList(ctx, nil, AuditListInput{Limit: -1}); err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestHandleAuditVerify(t *testing.T) {
	server := testServer(t, false, sampleEntries...)

	_, output, err := server.handleAuditVerify(context.Background(), nil, AuditVerifyInput{})
	if err != nil {
		t.Fatalf("handleAuditVerify failed: %v", err)
	}
	if !output.Valid || output.RecordsTotal != 2 {
		t.Errorf("unexpected output: %+v", output)
	}
}

func TestHandleSecurityScore(t *testing.T) {
	server := testServer(t, false, sampleEntries...)

	_, output, err := server.handleSecurityScore(context.Background(), nil, SecurityScoreInput{})
	if err != nil {
		t.Fatalf("handleSecurityScore failed: %v", err)
	}
	if output.Overall <= 0 || output.Overall > 100 {
		t.Errorf("Overall = %d", output.Overall)
	}
	if output.IssueCounts["weak"] == 0 {
		t.Error("the 3-character password should be reported as weak")
	}
	if output.IssueCounts["duplicate"] == 0 {
		t.Error("the reused password should be reported")
	}
}

func TestServer_InMemorySession(t *testing.T) {
	server := testServer(t, false, sampleEntries...)
	ctx := context.Background()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect failed: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect failed: %v", err)
	}
	defer clientSession.Close()

	tools, err := clientSession.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"entry_list", "audit_list", "audit_verify", "security_score"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
	if names["entry_get_masked"] {
		t.Error("entry_get_masked should not be registered when masking is disabled")
	}

	result, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "entry_list",
		Arguments: map[string]any{"query": "bank"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("entry_list returned a tool error: %+v", result.Content)
	}
	for _, c := range result.Content {
		if text, ok := c.(*mcp.TextContent); ok && strings.Contains(text.Text, "abc") {
			t.Error("tool output must not contain passwords")
		}
	}
}
