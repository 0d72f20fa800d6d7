package discover

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/texmerge/internal/expander"
	"github.com/dshills/texmerge/pkg/types"
)

var (
	magicRootRE = regexp.MustCompile(`(?im)^\s*%+\s*!TEX\s+root\s*=\s*(\S+)`)
	subfilesRE  = regexp.MustCompile(`\\documentclass\[([^\]\s]+)\]\{subfiles\}`)
	docClassRE  = regexp.MustCompile(`(?i)\\documentclass\b`)
	beginDocRE  = regexp.MustCompile(`(?i)\\begin\{document\}`)
)

// Hints are the filename keywords used by the scorers.
type Hints struct {
	Positive  []string // +5 per substring hit in ScoreName
	Negative  []string // -4 per substring hit in ScoreName
	MainNames []string // exact basenames that earn the name-hint signal
}

// DefaultHints returns the built-in keyword lists.
func DefaultHints() Hints {
	return Hints{
		Positive:  []string{"main", "paper", "camera", "arxiv", "acl", "iclr", "neurips", "emnlp", "root", "ms"},
		Negative:  []string{"supp", "appendix", "gen", "generation", "demo", "draft"},
		MainNames: []string{"main.tex", "paper.tex", "root.tex", "ms.tex"},
	}
}

// Scorer ranks root candidates with a fixed set of hints.
type Scorer struct {
	hints Hints
}

// New creates a Scorer. Empty hint lists fall back to the defaults.
func New(h Hints) *Scorer {
	def := DefaultHints()
	if h.Positive == nil {
		h.Positive = def.Positive
	}
	if h.Negative == nil {
		h.Negative = def.Negative
	}
	if h.MainNames == nil {
		h.MainNames = def.MainNames
	}
	return &Scorer{hints: h}
}

var defaultScorer = New(DefaultHints())

// Depth returns the number of non-empty segments of a corpus name.
func Depth(name string) int {
	n := 0
	for _, seg := range strings.Split(name, "/") {
		if seg != "" {
			n++
		}
	}
	return n
}

// ScoreName scores name with the default hints.
func ScoreName(name string) int { return defaultScorer.ScoreName(name) }

// ScoreName applies the filename heuristic.
func (s *Scorer) ScoreName(name string) int {
	lo := strings.ToLower(name)
	score := 0
	for _, k := range s.hints.Positive {
		if strings.Contains(lo, k) {
			score += 5
		}
	}
	for _, k := range s.hints.Negative {
		if strings.Contains(lo, k) {
			score -= 4
		}
	}
	return score + max(0, 6-Depth(name))
}

// Signals computes root signals with the default hints.
func Signals(name, text string) types.RootSignals { return defaultScorer.Signals(name, text) }

// Signals computes the root signals of one file.
func (s *Scorer) Signals(name, text string) types.RootSignals {
	base := strings.ToLower(path.Base(name))
	hint := false
	for _, m := range s.hints.MainNames {
		if base == strings.ToLower(m) {
			hint = true
			break
		}
	}
	return types.RootSignals{
		DocumentClass: strings.Contains(text, `\documentclass`),
		BeginDocument: strings.Contains(text, `\begin{document}`),
		TitleOrAuthor: strings.Contains(text, `\title{`) || strings.Contains(text, `\author{`),
		NameHint:      hint,
		Depth:         Depth(name),
		MagicRoot:     magicRootRE.MatchString(text),
		Subfiles:      subfilesRE.MatchString(text),
	}
}

// ScoreSignals applies the signal-weighted heuristic.
func ScoreSignals(sig types.RootSignals) int {
	score := 0
	if sig.DocumentClass {
		score += 20
	}
	if sig.BeginDocument {
		score += 40
	}
	if sig.TitleOrAuthor {
		score += 10
	}
	if sig.NameHint {
		score += 50
	}
	return score + max(0, 20-sig.Depth)
}

// FollowMagicRoot returns the corpus file named by a "% !TEX root"
// comment in text. The target is resolved against the directory of name,
// then against the corpus root.
func FollowMagicRoot(name, text string, corpus *types.Corpus) (string, bool) {
	m := magicRootRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return expander.Resolve(name, m[1], corpus)
}

// FollowSubfiles returns the main file named by \documentclass[X]{subfiles}.
func FollowSubfiles(name, text string, corpus *types.Corpus) (string, bool) {
	m := subfilesRE.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return expander.Resolve(name, m[1], corpus)
}

// Rank ranks corpus files with the default hints.
func Rank(corpus *types.Corpus) []types.RankedRoot { return defaultScorer.Rank(corpus) }

// Rank returns scored candidates, best first. A resolvable magic root
// yields a single entry. Otherwise resolvable subfiles targets are ranked
// alone, and failing that every file is scored. Ties keep corpus order.
func (s *Scorer) Rank(corpus *types.Corpus) []types.RankedRoot {
	if corpus.Len() == 0 {
		return nil
	}

	var specials []string
	seen := make(map[string]bool)
	for _, f := range corpus.Files() {
		if target, ok := FollowMagicRoot(f.Name, f.Content, corpus); ok {
			return []types.RankedRoot{s.rankOne(corpus, target)}
		}
		if target, ok := FollowSubfiles(f.Name, f.Content, corpus); ok && !seen[target] {
			seen[target] = true
			specials = append(specials, target)
		}
	}

	names := specials
	if len(names) == 0 {
		names = corpus.Names()
	}
	ranked := make([]types.RankedRoot, 0, len(names))
	for _, n := range names {
		ranked = append(ranked, s.rankOne(corpus, n))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func (s *Scorer) rankOne(corpus *types.Corpus, name string) types.RankedRoot {
	text, _ := corpus.Get(name)
	sig := s.Signals(name, text)
	return types.RankedRoot{Score: ScoreSignals(sig), Name: name, Signals: sig}
}

// Best returns the top-ranked root with the default hints.
func Best(corpus *types.Corpus) (string, error) { return defaultScorer.Best(corpus) }

// Best returns the name of the top-ranked root.
func (s *Scorer) Best(corpus *types.Corpus) (string, error) {
	ranked := s.Rank(corpus)
	if len(ranked) == 0 {
		return "", types.ErrEmptyCorpus
	}
	return ranked[0].Name, nil
}

// IsRootCandidate reports whether text declares a document class or
// begins a document.
func IsRootCandidate(text string) bool {
	return docClassRE.MatchString(text) || beginDocRE.MatchString(text)
}

// Candidates returns the names of eligible root files in corpus order.
func Candidates(corpus *types.Corpus) []string {
	var out []string
	for _, f := range corpus.Files() {
		if IsRootCandidate(f.Content) {
			out = append(out, f.Name)
		}
	}
	return out
}

// guessPriority is the fixed basename order used by GuessMain.
var guessPriority = []string{"main.tex", "paper.tex", "root.tex", "ms.tex", "arxiv.tex"}

// GuessMain picks a main file from names alone: the first top-level key
// matching a well-known main name (case-insensitive), else the shallowest
// and then shortest key. It returns "" for an empty corpus.
func GuessMain(corpus *types.Corpus) string {
	names := corpus.Names()
	if len(names) == 0 {
		return ""
	}
	lower := make(map[string]string, len(names))
	for _, n := range names {
		lower[strings.ToLower(n)] = n
	}
	for _, p := range guessPriority {
		if n, ok := lower[p]; ok {
			return n
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		di, dj := strings.Count(names[i], "/"), strings.Count(names[j], "/")
		if di != dj {
			return di < dj
		}
		return len(names[i]) < len(names[j])
	})
	return names[0]
}
