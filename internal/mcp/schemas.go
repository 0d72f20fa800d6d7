package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// mergeSourcesTool returns the tool definition for merge_sources
func mergeSourcesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "merge_sources",
		Description: "Consolidate a multi-file LaTeX project into one deduplicated plain body with paragraph provenance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a source directory, a .tex file, or a tar/tar.gz/zip archive",
				},
				"root": map[string]interface{}{
					"type":        "string",
					"description": "Corpus key of the root file to use instead of discovery (e.g. 'main.tex')",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, ignore a stored run for identical input and settings",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// rankRootsTool returns the tool definition for rank_roots
func rankRootsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "rank_roots",
		Description: "Rank the files of a LaTeX project as plausible root documents",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a source directory, a .tex file, or an archive",
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchParagraphsTool returns the tool definition for search_paragraphs
func searchParagraphsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_paragraphs",
		Description: "Full-text search over paragraphs of stored merge runs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms; all terms must match",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one run",
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report run store statistics and the most recent runs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
