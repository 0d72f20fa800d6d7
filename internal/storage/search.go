package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultSearchLimit caps results when the caller passes no limit
const DefaultSearchLimit = 10

// ErrEmptyQuery is returned when a search query has no terms
var ErrEmptyQuery = errors.New("empty search query")

// searchParagraphs performs FTS5 search with BM25 ranking
func searchParagraphs(ctx context.Context, q querier, query string, limit int, runID string) ([]ParagraphHit, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	sqlQuery := `
		SELECT
			p.id, p.run_id, p.paragraph_index, p.source_name, p.hash, p.content,
			bm25(paragraphs_fts) AS score
		FROM paragraphs_fts
		INNER JOIN paragraphs p ON paragraphs_fts.rowid = p.id
		WHERE paragraphs_fts MATCH ?
	`
	args := []interface{}{sanitized}
	if runID != "" {
		sqlQuery += " AND p.run_id = ?"
		args = append(args, runID)
	}

	// Order by BM25 score (lower is better) and limit
	sqlQuery += " ORDER BY score, p.run_id, p.paragraph_index LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []ParagraphHit
	for rows.Next() {
		var h ParagraphHit
		if err := rows.Scan(&h.ID, &h.RunID, &h.Index, &h.SourceName, &h.Hash, &h.Content, &h.Score); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// sanitizeFTSQuery turns free text into a conjunction of quoted FTS5
// phrases, so operators and syntax characters match literally.
func sanitizeFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}
