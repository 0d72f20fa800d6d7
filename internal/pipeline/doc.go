// Package pipeline consolidates a corpus of LaTeX sources into one merged
// body text with paragraph provenance.
//
// # Basic Usage
//
//	p := pipeline.New(pipeline.DefaultConfig(), logger)
//
//	res, err := p.Run(ctx, corpus, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Merged.Text)
//
// # Stages
//
//  1. Root selection: an explicit root, the single best ranked root, or
//     every eligible candidate (the default "merge" mode)
//  2. Per candidate (parallel): expand includes, extract and clean the
//     body, fingerprint paragraphs
//  3. Group near-duplicates and choose the best member of each group
//  4. Merge the bests, cut at the appendix marker and trim
//
// # Error Handling
//
// Only two conditions are fatal: an empty corpus (types.ErrEmptyCorpus) and
// an explicit root that is not in the corpus (types.ErrRootNotFound).
// Malformed markup never fails a run. Unresolved includes stay literal and
// an exhausted expansion depth is reported in Statistics.Warnings. A run
// where every candidate cleans to nothing returns an empty MergedCorpus and
// a nil error.
//
// # Concurrent Processing
//
// Candidates are processed by a worker pool bounded by Config.Workers:
//
//	semaphore := make(chan struct{}, workers)
//	g, gctx := errgroup.WithContext(ctx)
//
// Results are stored by candidate position, so output never depends on
// scheduling. Context cancellation stops the pool between candidates.
package pipeline
