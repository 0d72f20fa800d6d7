package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/dshills/texmerge/internal/discover"
	"github.com/dshills/texmerge/internal/source"
	"github.com/dshills/texmerge/internal/storage"
	"github.com/dshills/texmerge/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeNoSources       = -32001 // Path holds no source files
	ErrorCodeMergeInProgress = -32002 // Another merge is already running
	ErrorCodeRunNotFound     = -32003 // Requested run is not stored
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

const recentRunsLimit = 5

// handleMergeSources handles the merge_sources tool invocation
func (s *Server) handleMergeSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	root := getStringDefault(args, "root", "")
	force := getBoolDefault(args, "force", false)

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeMergeInProgress, "another merge is already running", nil)
	}
	defer s.lock.Release()

	out, err := s.merge(ctx, path, root, force)
	if err != nil {
		return nil, mergeError(err, root)
	}

	run := out.run
	response := map[string]interface{}{
		"run_id":                run.ID,
		"cached":                out.cached,
		"roots":                 out.merged.Roots,
		"paragraphs":            len(out.merged.Provenance),
		"candidates_considered": run.CandidatesConsidered,
		"candidates_used":       run.CandidatesUsed,
		"groups":                run.Groups,
		"duration_ms":           run.Duration.Milliseconds(),
		"text":                  out.merged.Text,
		"provenance":            out.merged.Provenance,
	}
	if len(run.Warnings) > 0 {
		response["warnings"] = run.Warnings
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

type mergeOutcome struct {
	run    *storage.Run
	merged types.MergedCorpus
	cached bool
}

// merge loads path, reuses a stored run for identical input and settings
// unless force is set, and otherwise runs the pipeline and stores the result
func (s *Server) merge(ctx context.Context, path, root string, force bool) (*mergeOutcome, error) {
	corpus, err := source.Load(path, s.cfg.SourceOptions())
	if err != nil {
		return nil, err
	}
	if corpus.Len() == 0 {
		return nil, types.ErrEmptyCorpus
	}

	corpusHash := source.ContentHash(corpus)
	configHash := s.cfg.RunKey(root)

	if !force {
		run, err := s.storage.GetRunByHash(ctx, corpusHash, configHash)
		switch {
		case err == nil:
			paragraphs, err := s.storage.ListParagraphs(ctx, run.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load stored paragraphs: %w", err)
			}
			s.logger.Debug("reusing stored run", zap.String("run_id", run.ID), zap.String("path", path))
			return &mergeOutcome{run: run, merged: run.ToMerged(paragraphs), cached: true}, nil
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("failed to look up stored run: %w", err)
		}
	}

	res, err := s.pipeline.Run(ctx, corpus, root)
	if err != nil {
		return nil, err
	}

	run, sources, paragraphs := storage.NewRunRecord(path, corpusHash, configHash, corpus, res)
	if err := s.storage.SaveRun(ctx, run, sources, paragraphs); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	s.logger.Info("run stored",
		zap.String("run_id", run.ID),
		zap.String("path", path),
		zap.Int("paragraphs", len(paragraphs)))

	return &mergeOutcome{run: run, merged: res.Merged}, nil
}

// mergeError maps pipeline and loader failures to MCP errors
func mergeError(err error, root string) error {
	switch {
	case errors.Is(err, types.ErrRootNotFound):
		return newMCPError(ErrorCodeInvalidParams, "root not found in sources", map[string]interface{}{
			"param": "root",
			"value": root,
		})
	case errors.Is(err, types.ErrEmptyCorpus):
		return newMCPError(ErrorCodeNoSources, "no source files found", nil)
	case errors.Is(err, source.ErrUnsupportedFormat):
		return newMCPError(ErrorCodeInvalidParams, "unsupported source format", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	default:
		return newMCPError(ErrorCodeInternalError, "merge failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handleRankRoots handles the rank_roots tool invocation
func (s *Server) handleRankRoots(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	corpus, err := source.Load(path, s.cfg.SourceOptions())
	if err != nil {
		return nil, mergeError(err, "")
	}
	if corpus.Len() == 0 {
		return nil, mergeError(types.ErrEmptyCorpus, "")
	}

	ranked := s.pipeline.Rank(corpus)
	response := map[string]interface{}{
		"path":       path,
		"files":      corpus.Len(),
		"guess_main": discover.GuessMain(corpus),
		"candidates": ranked,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchParagraphs handles the search_paragraphs tool invocation
func (s *Server) handleSearchParagraphs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", storage.DefaultSearchLimit)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	runID := getStringDefault(args, "run_id", "")
	if runID != "" {
		if _, err := s.storage.GetRun(ctx, runID); errors.Is(err, storage.ErrNotFound) {
			return nil, newMCPError(ErrorCodeRunNotFound, "run not found", map[string]interface{}{
				"param": "run_id",
				"value": runID,
			})
		}
	}

	hits, err := s.storage.SearchParagraphs(ctx, query, limit, runID)
	if errors.Is(err, storage.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query has no search terms", map[string]interface{}{
			"param": "query",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]interface{}{
			"run_id":          h.RunID,
			"paragraph_index": h.Index,
			"source_name":     h.SourceName,
			"hash":            h.Hash,
			"content":         h.Content,
			"score":           h.Score,
		})
	}

	response := map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	runs, err := s.storage.ListRuns(ctx, recentRunsLimit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list runs", map[string]interface{}{
			"error": err.Error(),
		})
	}

	recent := make([]map[string]interface{}, 0, len(runs))
	for _, r := range runs {
		recent = append(recent, map[string]interface{}{
			"run_id":     r.ID,
			"path":       r.SourcePath,
			"roots":      r.Roots,
			"paragraphs": r.ParagraphCount,
			"created_at": r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"runs_count":       status.RunsCount,
			"sources_count":    status.SourcesCount,
			"paragraphs_count": status.ParagraphsCount,
			"store_size_mb":    fmt.Sprintf("%.2f", status.SizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_index_built":     status.Health.FTSIndexBuilt,
		},
		"build_mode":  status.BuildMode,
		"recent_runs": recent,
	}
	if !status.LastRunAt.IsZero() {
		response["last_run_at"] = status.LastRunAt.Format("2006-01-02T15:04:05Z07:00")
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError is a tool failure carrying a JSON-RPC error code
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is absolute and readable. Directories,
// single files and archives are all accepted.
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrPathNotFound
	} else if err != nil {
		return ErrPathNotReadable
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Path validation errors
var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
