package storage

import (
	"github.com/dshills/texmerge/internal/dedup"
	"github.com/dshills/texmerge/internal/pipeline"
	"github.com/dshills/texmerge/pkg/types"
)

// NewRunRecord converts a pipeline result into the rows SaveRun stores.
// Every corpus file becomes a source; files merged as roots are flagged.
func NewRunRecord(sourcePath, corpusHash, configHash string, corpus *types.Corpus, res *pipeline.Result) (*Run, []RunSource, []Paragraph) {
	run := NewRun(sourcePath, corpusHash, configHash)
	run.Roots = res.Merged.Roots
	run.Text = res.Merged.Text
	if res.Stats != nil {
		run.CandidatesConsidered = res.Stats.CandidatesConsidered
		run.CandidatesUsed = res.Stats.CandidatesUsed
		run.Groups = res.Stats.Groups
		run.Warnings = res.Stats.Warnings
		run.Duration = res.Stats.Duration
	}

	roots := types.NewHashSet(res.Merged.Roots...)
	files := corpus.Files()
	sources := make([]RunSource, len(files))
	for i, f := range files {
		sources[i] = RunSource{
			Name:      f.Name,
			SizeBytes: len(f.Content),
			IsRoot:    roots.Has(f.Name),
		}
	}

	return run, sources, ParagraphsFromMerged(res.Merged, dedup.SplitMerged)
}
