package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/texmerge/internal/config"
	"github.com/dshills/texmerge/internal/pipeline"
	"github.com/dshills/texmerge/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "texmerge"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	pipeline *pipeline.Pipeline
	cfg      *config.Config
	logger   *zap.Logger
	lock     pipeline.RunLock
}

// NewServer creates a new MCP server instance backed by the configured
// run store
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return newServer(cfg, store, logger), nil
}

func newServer(cfg *config.Config, store storage.Storage, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		pipeline: pipeline.New(cfg.Pipeline(), logger.Named("pipeline")),
		cfg:      cfg,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin
// closes. The store is closed on return.
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()

	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the run store without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(mergeSourcesTool(), s.handleMergeSources)
	s.mcp.AddTool(rankRootsTool(), s.handleRankRoots)
	s.mcp.AddTool(searchParagraphsTool(), s.handleSearchParagraphs)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
