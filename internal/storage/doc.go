// Package storage provides SQLite-based persistence for merge runs.
//
// The storage layer manages:
//   - Run metadata (source path, corpus and config hashes, statistics)
//   - The source files each run read
//   - Merged paragraphs with their provenance
//   - Full-text search over paragraphs
//
// # Database Schema
//
// Tables:
//   - runs: one row per merge, keyed by a UUID
//   - run_sources: file names and sizes per run
//   - paragraphs: merged output paragraphs in order
//   - paragraphs_fts: FTS5 index over paragraph content
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.texmerge/runs.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	run := storage.NewRun(path, corpusHash, configHash)
//	run.Text = merged.Text
//	if err := db.SaveRun(ctx, run, sources, paragraphs); err != nil {
//	    return err
//	}
//
// # Caching
//
// A run is reusable when neither the input nor the output-affecting
// settings changed:
//
//	cached, err := db.GetRunByHash(ctx, corpusHash, configHash)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // run the pipeline
//	}
//
// # Full-Text Search
//
// Query using BM25 ranking:
//
//	hits, err := db.SearchParagraphs(ctx, "gradient descent", 10, "")
//	for _, hit := range hits {
//	    fmt.Printf("%s #%d (%s)\n", hit.RunID, hit.Index, hit.SourceName)
//	}
//
// Query terms are matched as quoted phrases so FTS5 operators in user input
// are treated as text.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,sqlite_fts5"
//
// Pure Go Build (purego tag, the default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
