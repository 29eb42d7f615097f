// Package mcp implements the MCP (Model Context Protocol) server for
// harpocrates. Agents can list entries and audit events; they never receive
// a plaintext password.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/harpocrates/pkg/audit"
	"github.com/forest6511/harpocrates/pkg/vault"
)

// Credential environment variables. Both are cleared after reading.
const (
	EnvPassword  = "HARPOCRATES_PASSWORD"
	EnvSecretKey = "HARPOCRATES_SECRET_KEY"
)

// ErrNoCredentials is returned when neither options nor environment supply
// both unlock factors.
var ErrNoCredentials = errors.New("no credentials provided: set HARPOCRATES_PASSWORD and HARPOCRATES_SECRET_KEY environment variables")

// Server represents the MCP server for harpocrates.
type Server struct {
	server      *mcp.Server
	sess        *vault.Session
	allowMasked bool
	logger      *slog.Logger
}

// ServerOptions contains configuration options for the MCP server.
type ServerOptions struct {
	// VaultPath is the path to the vault file.
	VaultPath string

	// Password and SecretKey unlock the vault. Empty values are read from
	// HARPOCRATES_PASSWORD and HARPOCRATES_SECRET_KEY.
	Password  string
	SecretKey string

	// AllowMasked enables entry_get_masked.
	AllowMasked bool

	// FileLock holds the vault's advisory lock while the server runs.
	FileLock bool

	Logger  *slog.Logger
	Version string
}

// NewServer unlocks the vault and creates a new MCP server instance.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts == nil {
		opts = &ServerOptions{}
	}
	if opts.VaultPath == "" {
		return nil, errors.New("vault path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	password, secretKey := opts.Password, opts.SecretKey
	if password == "" {
		password = os.Getenv(EnvPassword)
	}
	if secretKey == "" {
		secretKey = os.Getenv(EnvSecretKey)
	}
	// Clear the environment variables after reading for security
	os.Unsetenv(EnvPassword)
	os.Unsetenv(EnvSecretKey)

	if password == "" || secretKey == "" {
		return nil, ErrNoCredentials
	}

	storeOpts := []vault.StoreOption{vault.WithLogger(logger)}
	if opts.FileLock {
		storeOpts = append(storeOpts, vault.WithFileLock())
	}
	sess, err := vault.NewStore(opts.VaultPath, storeOpts...).Load(password, secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock vault: %w", err)
	}

	if err := sess.AppendAudit(audit.ActionLogin, "MCP server session opened"); err != nil {
		sess.Close()
		return nil, err
	}

	return newServer(sess, opts.AllowMasked, logger, opts.Version), nil
}

func newServer(sess *vault.Session, allowMasked bool, logger *slog.Logger, version string) *Server {
	if version == "" {
		version = "dev"
	}
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "harpocrates",
			Version: version,
		},
		nil,
	)

	s := &Server{
		server:      mcpServer,
		sess:        sess,
		allowMasked: allowMasked,
		logger:      logger,
	}
	s.registerTools()
	return s
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_list",
		Description: "List vault entries with id, title, username and url. Optionally filter by a case-insensitive query. Does NOT return passwords or notes.",
	}, s.handleEntryList)

	if s.allowMasked {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "entry_get_masked",
			Description: "Get a masked version of an entry's password (e.g. '****WXYZ') with its length and strength. Select the entry by #position, id, id prefix or title.",
		}, s.handleEntryGetMasked)
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "audit_list",
		Description: "List audit log events, newest first. Optionally filter by action and limit the count.",
	}, s.handleAuditList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "audit_verify",
		Description: "Verify the audit log hash chain and report any broken links.",
	}, s.handleAuditVerify)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "security_score",
		Description: "Compute the vault security score from password strength, reuse and age. Entry titles are not included.",
	}, s.handleSecurityScore)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	defer s.sess.Close()

	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close closes the server and locks the vault.
func (s *Server) Close() error {
	s.sess.Close()
	return nil
}
