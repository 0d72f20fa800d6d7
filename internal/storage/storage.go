package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/texmerge/pkg/types"
)

// Storage defines the interface for persisting and querying merge runs
type Storage interface {
	// Run operations
	SaveRun(ctx context.Context, run *Run, sources []RunSource, paragraphs []Paragraph) error
	GetRun(ctx context.Context, id string) (*Run, error)
	GetRunByHash(ctx context.Context, corpusHash, configHash string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Source and paragraph operations
	ListSources(ctx context.Context, runID string) ([]*RunSource, error)
	ListParagraphs(ctx context.Context, runID string) ([]*Paragraph, error)

	// Search operations
	SearchParagraphs(ctx context.Context, query string, limit int, runID string) ([]ParagraphHit, error)

	// Status operations
	GetStatus(ctx context.Context) (*StoreStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage
}

// Run is one stored consolidation result
type Run struct {
	ID                   string
	SourcePath           string
	CorpusHash           string
	ConfigHash           string
	Roots                []string
	Text                 string
	CandidatesConsidered int
	CandidatesUsed       int
	Groups               int
	ParagraphCount       int
	Warnings             []string
	Duration             time.Duration
	CreatedAt            time.Time
}

// RunSource is one input file read by a run
type RunSource struct {
	ID        int64
	RunID     string
	Name      string
	SizeBytes int
	IsRoot    bool
}

// Paragraph is one merged output paragraph
type Paragraph struct {
	ID         int64
	RunID      string
	Index      int
	SourceName string
	Hash       string
	Content    string
}

// ParagraphHit is a full-text search match
type ParagraphHit struct {
	Paragraph
	Score float64 // BM25, lower is better
}

// StoreStatus summarises the contents of the store
type StoreStatus struct {
	RunsCount       int
	SourcesCount    int
	ParagraphsCount int
	LastRunAt       time.Time
	SizeMB          float64
	BuildMode       string
	Health          HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
}

// NewRun creates a run with a fresh identifier
func NewRun(sourcePath, corpusHash, configHash string) *Run {
	return &Run{
		ID:         uuid.NewString(),
		SourcePath: sourcePath,
		CorpusHash: corpusHash,
		ConfigHash: configHash,
		CreatedAt:  time.Now(),
	}
}

// ParagraphsFromMerged pairs the merged text's paragraphs with their
// provenance. Text and provenance are expected to line up one to one;
// surplus entries on either side are ignored.
func ParagraphsFromMerged(m types.MergedCorpus, split func(string) []string) []Paragraph {
	texts := split(m.Text)
	n := len(texts)
	if len(m.Provenance) < n {
		n = len(m.Provenance)
	}
	out := make([]Paragraph, 0, n)
	for i := 0; i < n; i++ {
		p := m.Provenance[i]
		out = append(out, Paragraph{
			Index:      p.ParagraphIndex,
			SourceName: p.SourceName,
			Hash:       p.Hash,
			Content:    texts[i],
		})
	}
	return out
}

// ToMerged rebuilds the merged artifact from a stored run and its paragraphs
func (r *Run) ToMerged(paragraphs []*Paragraph) types.MergedCorpus {
	prov := make([]types.Provenance, len(paragraphs))
	for i, p := range paragraphs {
		prov[i] = types.Provenance{
			ParagraphIndex: p.Index,
			SourceName:     p.SourceName,
			Hash:           p.Hash,
		}
	}
	roots := r.Roots
	if roots == nil {
		roots = []string{}
	}
	return types.MergedCorpus{
		Text:       r.Text,
		Provenance: prov,
		Roots:      roots,
	}
}
