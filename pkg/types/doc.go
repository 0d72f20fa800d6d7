// Package types provides shared type definitions for texmerge.
//
// This package defines the domain types passed between the pipeline stages:
// the input corpus, root ranking results, fingerprinted candidates and the
// merged output with its provenance.
//
// # Corpus
//
// A Corpus is an ordered set of named source files. Names are forward-slash
// keys relative to the project root, and insertion order is the discovery
// order used later when candidates are grouped and merged:
//
//	corpus := types.NewCorpus(
//	    types.SourceFile{Name: "main.tex", Content: mainTeX},
//	    types.SourceFile{Name: "sections/intro.tex", Content: introTeX},
//	)
//
// # Candidates
//
// CandidateRoot is one plausible root document after expansion, cleaning
// and fingerprinting. Its ParagraphHashes set drives near-duplicate
// detection, and DuplicateGroup collects candidates that overlap above the
// configured threshold.
//
// # Output
//
// MergedCorpus is the single artifact of a run. Provenance has one entry per
// output paragraph, in output order:
//
//	if err := merged.Validate(); err != nil {
//	    return err
//	}
package types
