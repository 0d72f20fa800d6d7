// Package mcp implements the Model Context Protocol (MCP) server for texmerge.
//
// The MCP server exposes four tools:
//   - merge_sources: Consolidate a LaTeX project into one deduplicated body
//   - rank_roots: Rank files as plausible root documents
//   - search_paragraphs: Full-text search over stored merge output
//   - get_status: Report run store statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The MCP server is typically started via the serve command:
//
//	texmerge serve
//
// # Tool: merge_sources
//
//	Request:
//	{
//	  "name": "merge_sources",
//	  "arguments": {
//	    "path": "/papers/2401.01234.tar.gz",
//	    "root": "main.tex",
//	    "force": false
//	  }
//	}
//
//	Response:
//	{
//	  "run_id": "8f0c...",
//	  "cached": false,
//	  "roots": ["main.tex"],
//	  "paragraphs": 42,
//	  "text": "...",
//	  "provenance": [{"paragraph_index": 0, "source_name": "main.tex", "hash": "..."}]
//	}
//
// A merge whose input files and output-affecting settings match a stored
// run returns that run with "cached": true. Only one merge runs at a time.
//
// # Tool: search_paragraphs
//
//	Request:
//	{
//	  "name": "search_paragraphs",
//	  "arguments": {"query": "gradient descent", "limit": 10}
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments, unknown root)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Path holds no source files
//   - -32002: Merge in progress
//   - -32003: Run not found
//   - -32004: Empty query
//
// # Logging
//
// The server logs to stderr through zap; stdout is reserved for the
// protocol.
package mcp
