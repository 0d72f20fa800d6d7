package dedup

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/texmerge/internal/cleaner"
	"github.com/dshills/texmerge/internal/fingerprint"
	"github.com/dshills/texmerge/pkg/types"
)

const (
	// DefaultThreshold is the Jaccard similarity at which two candidates
	// are treated as versions of the same document
	DefaultThreshold = 0.8

	// ParagraphSeparator joins merged paragraphs
	ParagraphSeparator = "\n\n"
)

// Group partitions candidates into near-duplicate groups. Every candidate
// lands in exactly one group.
func Group(cands []*types.CandidateRoot, threshold float64) []*types.DuplicateGroup {
	var groups []*types.DuplicateGroup
	for _, c := range cands {
		placed := false
		for _, g := range groups {
			if fingerprint.Jaccard(c.ParagraphHashes, g.Anchor().ParagraphHashes) >= threshold {
				g.Members = append(g.Members, c)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &types.DuplicateGroup{Members: []*types.CandidateRoot{c}})
		}
	}
	return groups
}

// ChooseBest returns the member with the longest body, breaking ties by
// name score and then by position. It returns nil for an empty group.
func ChooseBest(g *types.DuplicateGroup) *types.CandidateRoot {
	var best *types.CandidateRoot
	bestLen := -1
	for _, m := range g.Members {
		n := bodyLen(m)
		if best == nil || n > bestLen || (n == bestLen && m.NameScore > best.NameScore) {
			best, bestLen = m, n
		}
	}
	return best
}

// Merge combines bests into one corpus. See the package documentation for
// ordering. An empty input yields an empty corpus.
func Merge(bests []*types.CandidateRoot) types.MergedCorpus {
	out := types.MergedCorpus{Provenance: []types.Provenance{}, Roots: []string{}}
	if len(bests) == 0 {
		return out
	}

	ordered := make([]*types.CandidateRoot, len(bests))
	copy(ordered, bests)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].NameScore != ordered[j].NameScore {
			return ordered[i].NameScore > ordered[j].NameScore
		}
		return bodyLen(ordered[i]) > bodyLen(ordered[j])
	})

	var paras []string
	used := types.NewHashSet()
	for i, b := range ordered {
		out.Roots = append(out.Roots, b.Name)
		for _, p := range paragraphs(b) {
			h := fingerprint.Hash(p)
			if i > 0 && used.Has(h) {
				continue
			}
			used.Add(h)
			out.Provenance = append(out.Provenance, types.Provenance{
				ParagraphIndex: len(paras),
				SourceName:     b.Name,
				Hash:           h,
			})
			paras = append(paras, p)
		}
	}
	out.Text = strings.Join(paras, ParagraphSeparator)
	return out
}

// Truncate cuts merged text at the earliest marker match, keeping
// provenance aligned with the paragraphs that remain. The paragraph
// holding the marker keeps its text before the marker and is rehashed.
func Truncate(m types.MergedCorpus, patterns []string) types.MergedCorpus {
	k := cleaner.MarkerIndex(m.Text, patterns)
	if k < 0 {
		return m
	}

	paras := SplitMerged(m.Text)
	if len(paras) != len(m.Provenance) {
		// Text no longer lines up with provenance; cut text only.
		m.Text = m.Text[:k]
		m.Provenance = nil
		return m
	}

	out := types.MergedCorpus{Roots: m.Roots, Provenance: []types.Provenance{}}
	var kept []string
	offset := 0
	for i, p := range paras {
		if k < offset+len(p)+len(ParagraphSeparator) {
			head := p[:min(k-offset, len(p))]
			if strings.TrimSpace(head) != "" {
				out.Provenance = append(out.Provenance, types.Provenance{
					ParagraphIndex: len(kept),
					SourceName:     m.Provenance[i].SourceName,
					Hash:           fingerprint.Hash(head),
				})
				kept = append(kept, head)
			}
			break
		}
		out.Provenance = append(out.Provenance, m.Provenance[i])
		kept = append(kept, p)
		offset += len(p) + len(ParagraphSeparator)
	}
	out.Text = strings.Join(kept, ParagraphSeparator)
	return out
}

// SplitMerged splits merged text back into its paragraphs. Empty text
// has none.
func SplitMerged(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, ParagraphSeparator)
}

func paragraphs(c *types.CandidateRoot) []string {
	if c.Paragraphs != nil {
		return c.Paragraphs
	}
	return fingerprint.Split(c.ExpandedBody)
}

// bodyLen counts characters, not bytes.
func bodyLen(c *types.CandidateRoot) int {
	return utf8.RuneCountInString(c.ExpandedBody)
}
