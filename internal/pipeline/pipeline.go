package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/texmerge/internal/cleaner"
	"github.com/dshills/texmerge/internal/dedup"
	"github.com/dshills/texmerge/internal/discover"
	"github.com/dshills/texmerge/internal/expander"
	"github.com/dshills/texmerge/internal/fingerprint"
	"github.com/dshills/texmerge/internal/masker"
	"github.com/dshills/texmerge/pkg/types"
)

// Root selection modes
const (
	RootModeMerge  = "merge"  // every eligible candidate is merged
	RootModeSingle = "single" // only the best ranked root is used
)

// Config contains configuration for a pipeline run
type Config struct {
	ProtectedEnvs       []string       // masked during expansion (default: masker.DefaultProtectedEnvs)
	DropEnvs            []string       // removed from bodies (default: cleaner.DefaultDropEnvs)
	InlineCommands      []string       // annotation commands removed (default: cleaner.DefaultInlineCommands)
	AppendixMarkers     []string       // merged text is cut at the first match (default: cleaner.DefaultAppendixMarkers)
	MaxDepth            int            // expansion passes (default: expander.DefaultMaxDepth)
	Threshold           float64        // Jaccard grouping threshold; 0 groups everything
	Hints               discover.Hints // filename keywords
	RootMode            string         // RootModeMerge or RootModeSingle
	Workers             int            // concurrent candidates (default: runtime.NumCPU())
	Postprocess         bool           // replace citations, math delimiters and floats
	BalancedSetupBlocks bool           // brace-aware setup block removal
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		ProtectedEnvs:   masker.DefaultProtectedEnvs,
		DropEnvs:        cleaner.DefaultDropEnvs,
		InlineCommands:  cleaner.DefaultInlineCommands,
		AppendixMarkers: cleaner.DefaultAppendixMarkers,
		MaxDepth:        expander.DefaultMaxDepth,
		Threshold:       dedup.DefaultThreshold,
		Hints:           discover.DefaultHints(),
		RootMode:        RootModeMerge,
		Workers:         runtime.NumCPU(),
	}
}

// Statistics contains statistics about a pipeline run
type Statistics struct {
	CandidatesConsidered int           `json:"candidates_considered"`
	CandidatesUsed       int           `json:"candidates_used"`
	CandidatesEmpty      int           `json:"candidates_empty"`
	Groups               int           `json:"groups"`
	Paragraphs           int           `json:"paragraphs"`
	Duration             time.Duration `json:"duration"`
	Warnings             []string      `json:"warnings,omitempty"`
}

// Result is the output of a pipeline run.
type Result struct {
	Merged     types.MergedCorpus
	Candidates []*types.CandidateRoot // non-empty candidates, selection order
	Groups     []*types.DuplicateGroup
	Deps       map[string][]string // files touched per selected root
	Stats      *Statistics
}

// Pipeline coordinates expansion, cleaning, fingerprinting and merging
type Pipeline struct {
	cfg      Config
	expander *expander.Expander
	scorer   *discover.Scorer
	logger   *zap.Logger
}

// New creates a Pipeline. A nil config uses DefaultConfig and a nil
// logger disables logging.
func New(cfg *Config, logger *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	def := DefaultConfig()
	if c.DropEnvs == nil {
		c.DropEnvs = def.DropEnvs
	}
	if c.InlineCommands == nil {
		c.InlineCommands = def.InlineCommands
	}
	if c.AppendixMarkers == nil {
		c.AppendixMarkers = def.AppendixMarkers
	}
	if c.RootMode == "" {
		c.RootMode = RootModeMerge
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		cfg:      c,
		expander: expander.New(expander.Options{MaxDepth: c.MaxDepth, ProtectedEnvs: c.ProtectedEnvs}, logger),
		scorer:   discover.New(c.Hints),
		logger:   logger,
	}
}

// Run consolidates corpus with the default configuration.
func Run(ctx context.Context, corpus *types.Corpus, explicitRoot string) (*Result, error) {
	return New(nil, nil).Run(ctx, corpus, explicitRoot)
}

// Run consolidates corpus into one merged body. explicitRoot, when not
// empty, must name a corpus file and becomes the only candidate.
func (p *Pipeline) Run(ctx context.Context, corpus *types.Corpus, explicitRoot string) (*Result, error) {
	if corpus.Len() == 0 {
		return nil, types.ErrEmptyCorpus
	}

	startTime := time.Now()
	stats := &Statistics{}

	roots, err := p.selectRoots(corpus, explicitRoot)
	if err != nil {
		return nil, err
	}
	stats.CandidatesConsidered = len(roots)
	p.logger.Debug("roots selected", zap.Strings("roots", roots), zap.String("mode", p.cfg.RootMode))

	results, err := p.processCandidates(ctx, corpus, roots, stats)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Deps:       make(map[string][]string, len(roots)),
		Candidates: make([]*types.CandidateRoot, 0, len(results)),
		Stats:      stats,
	}
	for _, r := range results {
		res.Deps[r.Name] = r.Deps
		if r.ExpandedBody == "" {
			stats.CandidatesEmpty++
			continue
		}
		res.Candidates = append(res.Candidates, r)
	}
	stats.CandidatesUsed = len(res.Candidates)

	res.Groups = dedup.Group(res.Candidates, p.cfg.Threshold)
	bests := make([]*types.CandidateRoot, 0, len(res.Groups))
	for _, g := range res.Groups {
		bests = append(bests, dedup.ChooseBest(g))
	}
	stats.Groups = len(res.Groups)

	merged := dedup.Truncate(dedup.Merge(bests), p.cfg.AppendixMarkers)
	merged.Text = strings.TrimSpace(merged.Text)
	if merged.Text == "" {
		merged.Provenance = []types.Provenance{}
	}
	res.Merged = merged
	stats.Paragraphs = len(merged.Provenance)
	stats.Duration = time.Since(startTime)

	p.logger.Info("merge complete",
		zap.Int("candidates", stats.CandidatesConsidered),
		zap.Int("used", stats.CandidatesUsed),
		zap.Int("groups", stats.Groups),
		zap.Int("paragraphs", stats.Paragraphs),
		zap.Duration("duration", stats.Duration))

	return res, nil
}

// selectRoots returns the names of the candidates to process.
func (p *Pipeline) selectRoots(corpus *types.Corpus, explicitRoot string) ([]string, error) {
	if explicitRoot != "" {
		if !corpus.Has(explicitRoot) {
			return nil, fmt.Errorf("%w: %s", types.ErrRootNotFound, explicitRoot)
		}
		return []string{explicitRoot}, nil
	}

	if p.cfg.RootMode == RootModeSingle {
		best, err := p.scorer.Best(corpus)
		if err != nil {
			return nil, err
		}
		return []string{best}, nil
	}
	return discover.Candidates(corpus), nil
}

// processCandidates builds a CandidateRoot per name concurrently. The
// returned slice is in the order of names; empty bodies are kept with an
// empty ExpandedBody so callers can count them.
func (p *Pipeline) processCandidates(ctx context.Context, corpus *types.Corpus, names []string, stats *Statistics) ([]*types.CandidateRoot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]*types.CandidateRoot, len(names))
	warnings := make([]string, len(names))

	// Create worker pool with semaphore
	semaphore := make(chan struct{}, p.cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	var processed int32

	for i, name := range names {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
				// Acquire semaphore
			}
			defer func() { <-semaphore }()

			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], warnings[i] = p.buildCandidate(corpus, name)
			atomic.AddInt32(&processed, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, w := range warnings {
		if w != "" {
			stats.Warnings = append(stats.Warnings, w)
		}
	}
	p.logger.Debug("candidates processed", zap.Int32("count", atomic.LoadInt32(&processed)))
	return results, nil
}

// buildCandidate expands, cleans and fingerprints one root.
func (p *Pipeline) buildCandidate(corpus *types.Corpus, name string) (*types.CandidateRoot, string) {
	text, _ := corpus.Get(name)
	expanded, deps := p.expander.Expand(text, name, corpus)

	var warning string
	if strings.HasPrefix(expanded, expander.DepthWarning) {
		warning = fmt.Sprintf("%s: max expansion depth reached", name)
		p.logger.Warn("max expansion depth reached", zap.String("root", name))
	}

	body := p.Clean(expanded)
	cand := &types.CandidateRoot{
		Name:      name,
		NameScore: p.scorer.ScoreName(name),
		Deps:      deps,
	}
	if body == "" {
		p.logger.Debug("candidate has empty body", zap.String("root", name))
		cand.ParagraphHashes = types.NewHashSet()
		return cand, warning
	}

	cand.ExpandedBody = body
	cand.Paragraphs, cand.ParagraphHashes = fingerprint.Fingerprint(body)
	p.logger.Debug("candidate built",
		zap.String("root", name),
		zap.Int("deps", len(deps)),
		zap.Int("paragraphs", len(cand.Paragraphs)))
	return cand, warning
}

// Clean turns expanded source into trimmed body text using the configured
// cleaning steps.
func (p *Pipeline) Clean(expanded string) string {
	body := cleaner.ExtractBody(expanded)
	if p.cfg.BalancedSetupBlocks {
		body = cleaner.DropSetupBlocksBalanced(body)
	} else {
		body = cleaner.DropSetupBlocks(body)
	}
	body = cleaner.DropNoiseCommands(body)
	body = cleaner.Clean(body, p.cfg.DropEnvs, p.cfg.InlineCommands)
	if p.cfg.Postprocess {
		body = cleaner.Postprocess(body)
	}
	return strings.TrimSpace(body)
}

// Rank ranks corpus roots with the configured hints.
func (p *Pipeline) Rank(corpus *types.Corpus) []types.RankedRoot {
	return p.scorer.Rank(corpus)
}
