package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/texmerge/pkg/types"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \n\n\t\n", []string{}},
		{"single", "one line\nsame para", []string{"one line\nsame para"}},
		{"blank line", "a\n\nb", []string{"a", "b"}},
		{"blank line with spaces", "a\n  \t\n  b", []string{"a", "  b"}},
		{"many blank lines", "a\n\n\n\nb\n\n", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "a b c", Canonical("  a\t b\n\nc  "))
	assert.Equal(t, "", Canonical(" \n "))
}

func TestHash_WhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, Hash("a  b"), Hash("a\nb"))
	assert.Equal(t, Hash(" x y "), Hash("x\ty"))
	assert.NotEqual(t, Hash("a b"), Hash("ab"))

	h := Hash("hello")
	assert.Len(t, h, 40)
	assert.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", h)
}

func TestFingerprint(t *testing.T) {
	paras, set := Fingerprint("Para1\n\nPara2\n\nPara1")
	assert.Equal(t, []string{"Para1", "Para2", "Para1"}, paras)
	require.Len(t, set, 2)
	assert.True(t, set.Has(Hash("Para1")))
	assert.True(t, set.Has(Hash("Para2")))
}

func TestJaccard(t *testing.T) {
	a := types.NewHashSet("1", "2", "3")
	b := types.NewHashSet("2", "3", "4")

	tests := []struct {
		name string
		x, y types.HashSet
		want float64
	}{
		{"both empty", types.NewHashSet(), types.NewHashSet(), 1.0},
		{"nil sets", nil, nil, 1.0},
		{"one empty", a, types.NewHashSet(), 0.0},
		{"identical", a, a, 1.0},
		{"overlap", a, b, 0.5},
		{"disjoint", types.NewHashSet("x"), types.NewHashSet("y"), 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.x, tt.y), 1e-9)
			assert.InDelta(t, tt.want, Jaccard(tt.y, tt.x), 1e-9)
		})
	}
}
