package dedup

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/texmerge/internal/fingerprint"
	"github.com/dshills/texmerge/pkg/types"
)

func candidate(name, body string, nameScore int) *types.CandidateRoot {
	paras, hashes := fingerprint.Fingerprint(body)
	return &types.CandidateRoot{
		Name:            name,
		ExpandedBody:    body,
		Paragraphs:      paras,
		ParagraphHashes: hashes,
		NameScore:       nameScore,
		Deps:            []string{name},
	}
}

func groupNames(groups []*types.DuplicateGroup) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = g.Names()
	}
	return out
}

func TestGroup_Partition(t *testing.T) {
	cands := []*types.CandidateRoot{
		candidate("a", "p1\n\np2\n\np3\n\np4\n\np5", 0),
		candidate("b", "x1\n\nx2", 0),
		candidate("c", "p1\n\np2\n\np3\n\np4\n\np5\n\np6", 0), // 5/6 with a
		candidate("d", "x1\n\nx2\n\nx3", 0),                   // 2/3 with b
		candidate("e", "", 0),
	}

	groups := Group(cands, DefaultThreshold)
	want := [][]string{{"a", "c"}, {"b"}, {"d"}, {"e"}}
	if diff := cmp.Diff(want, groupNames(groups)); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}

	seen := map[string]int{}
	for _, g := range groups {
		for _, m := range g.Members {
			seen[m.Name]++
		}
	}
	assert.Len(t, seen, len(cands))
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}
}

func TestGroup_IdenticalSetsClusterInAnyOrder(t *testing.T) {
	a := candidate("a", "same\n\ntext", 0)
	b := candidate("b", "same\n\n\ntext  ", 0)
	c := candidate("c", "other", 0)

	orders := [][]*types.CandidateRoot{{a, b, c}, {c, b, a}, {b, c, a}}
	for _, order := range orders {
		groups := Group(order, 1.0)
		require.Len(t, groups, 2)
		for _, g := range groups {
			names := g.Names()
			if len(names) == 2 {
				assert.ElementsMatch(t, []string{"a", "b"}, names)
			}
		}
	}
}

func TestGroup_ComparesAgainstAnchorOnly(t *testing.T) {
	// b is close to a, c is close to b but not to a
	a := candidate("a", "1\n\n2\n\n3\n\n4", 0)
	b := candidate("b", "1\n\n2\n\n3\n\n4\n\n5", 0)
	c := candidate("c", "2\n\n3\n\n4\n\n5\n\n6", 0)

	groups := Group([]*types.CandidateRoot{a, b, c}, 0.6)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, groupNames(groups))

	groups = Group([]*types.CandidateRoot{b, c, a}, 0.6)
	assert.Equal(t, [][]string{{"b", "c", "a"}}, groupNames(groups))
}

func TestChooseBest(t *testing.T) {
	short := candidate("short", "abc", 100)
	long := candidate("long", "abcdef", 0)
	assert.Same(t, long, ChooseBest(&types.DuplicateGroup{Members: []*types.CandidateRoot{short, long}}))

	tieLow := candidate("low", "abcd", 1)
	tieHigh := candidate("high", "wxyz", 2)
	assert.Same(t, tieHigh, ChooseBest(&types.DuplicateGroup{Members: []*types.CandidateRoot{tieLow, tieHigh}}))

	first := candidate("first", "abcd", 1)
	second := candidate("second", "wxyz", 1)
	assert.Same(t, first, ChooseBest(&types.DuplicateGroup{Members: []*types.CandidateRoot{first, second}}))

	// rune length, not byte length
	ascii := candidate("ascii", "abcde", 0)
	wide := candidate("wide", "éééé", 0)
	assert.Same(t, ascii, ChooseBest(&types.DuplicateGroup{Members: []*types.CandidateRoot{wide, ascii}}))

	assert.Nil(t, ChooseBest(&types.DuplicateGroup{}))
}

func TestMerge_Scenario(t *testing.T) {
	a := candidate("A", "Para1\n\nPara2", 0)
	b := candidate("B", "Para1\n\nPara3", 0)

	groups := Group([]*types.CandidateRoot{a, b}, DefaultThreshold)
	require.Len(t, groups, 2)

	bests := make([]*types.CandidateRoot, len(groups))
	for i, g := range groups {
		bests[i] = ChooseBest(g)
	}
	merged := Merge(bests)

	assert.Equal(t, "Para1\n\nPara2\n\nPara3", merged.Text)
	assert.Equal(t, 1, strings.Count(merged.Text, "Para1"))
	assert.Equal(t, []string{"A", "B"}, merged.Roots)

	want := []types.Provenance{
		{ParagraphIndex: 0, SourceName: "A", Hash: fingerprint.Hash("Para1")},
		{ParagraphIndex: 1, SourceName: "A", Hash: fingerprint.Hash("Para2")},
		{ParagraphIndex: 2, SourceName: "B", Hash: fingerprint.Hash("Para3")},
	}
	if diff := cmp.Diff(want, merged.Provenance); diff != "" {
		t.Errorf("provenance mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, merged.Validate())
}

func TestMerge_CompletenessAndUniqueness(t *testing.T) {
	a := candidate("a.tex", "shared one\n\nonly a\n\nshared  two", 1)
	b := candidate("b.tex", "shared one\n\nonly b\n\nshared\ntwo", 1)

	merged := Merge([]*types.CandidateRoot{a, b})
	paras := fingerprint.Split(merged.Text)
	require.Len(t, merged.Provenance, len(paras))

	counts := map[string]int{}
	for _, p := range paras {
		counts[fingerprint.Hash(p)]++
	}
	for _, p := range []string{"shared one", "only a", "shared two", "only b"} {
		assert.Equal(t, 1, counts[fingerprint.Hash(p)], p)
	}
	assert.Len(t, counts, 4)
}

func TestMerge_Ordering(t *testing.T) {
	low := candidate("low", "L", 1)
	highShort := candidate("hs", "H", 5)
	highLong := candidate("hl", "HHH", 5)

	merged := Merge([]*types.CandidateRoot{low, highShort, highLong})
	assert.Equal(t, []string{"hl", "hs", "low"}, merged.Roots)
	assert.Equal(t, "HHH\n\nH\n\nL", merged.Text)
}

func TestMerge_PrimaryKeepsInternalDuplicates(t *testing.T) {
	a := candidate("a", "x\n\nx\n\ny", 9)
	b := candidate("b", "z\n\nz", 0)

	merged := Merge([]*types.CandidateRoot{a, b})
	assert.Equal(t, "x\n\nx\n\ny\n\nz", merged.Text)
	assert.Len(t, merged.Provenance, 4)
}

func TestMerge_Empty(t *testing.T) {
	merged := Merge(nil)
	assert.True(t, merged.IsEmpty())
	assert.Empty(t, merged.Provenance)
	assert.Empty(t, merged.Roots)
}

func TestTruncate(t *testing.T) {
	a := candidate("a", "Intro\n\nBody \\appendix tail\n\nMore", 0)
	merged := Merge([]*types.CandidateRoot{a})

	tests := []struct {
		name     string
		patterns []string
		text     string
		hashes   []string
	}{
		{
			name:     "cut inside paragraph",
			patterns: []string{`\\appendix\b`},
			text:     "Intro\n\nBody ",
			hashes:   []string{fingerprint.Hash("Intro"), fingerprint.Hash("Body")},
		},
		{
			name:     "cut at paragraph start",
			patterns: []string{`(?m)^More`},
			text:     "Intro\n\nBody \\appendix tail",
			hashes:   []string{fingerprint.Hash("Intro"), fingerprint.Hash("Body \\appendix tail")},
		},
		{
			name:     "cut everything",
			patterns: []string{`intro`},
			text:     "",
			hashes:   []string{},
		},
		{
			name:     "no marker",
			patterns: []string{`\\bibliography`},
			text:     merged.Text,
			hashes: []string{
				fingerprint.Hash("Intro"), fingerprint.Hash("Body \\appendix tail"), fingerprint.Hash("More"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(merged, tt.patterns)
			assert.Equal(t, tt.text, got.Text)

			hashes := make([]string, len(got.Provenance))
			for i, p := range got.Provenance {
				hashes[i] = p.Hash
			}
			assert.Equal(t, tt.hashes, hashes)
			assert.NoError(t, got.Validate())
			assert.Equal(t, []string{"a"}, got.Roots)
		})
	}
}

func TestSplitMerged(t *testing.T) {
	assert.Nil(t, SplitMerged(""))
	assert.Equal(t, []string{"one"}, SplitMerged("one"))
	assert.Equal(t, []string{"one", "two\nlines"}, SplitMerged("one\n\ntwo\nlines"))
}
