// Package fingerprint splits cleaned text into paragraphs and hashes them
// so near-duplicate bodies can be compared by set similarity.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/dshills/texmerge/pkg/types"
)

// paragraphBreak is a blank line: two newlines with only whitespace between.
var paragraphBreak = regexp.MustCompile(`\n[\s\pZ]*\n`)

// Split returns the paragraphs of text, dropping whitespace-only ones.
// Paragraph text is returned as found, without trimming.
func Split(text string) []string {
	parts := paragraphBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// Canonical collapses whitespace runs to a single space and trims.
func Canonical(p string) string {
	return strings.Join(strings.Fields(p), " ")
}

// Hash returns the hex SHA-1 digest of the canonical paragraph.
func Hash(p string) string {
	sum := sha1.Sum([]byte(Canonical(p)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint splits text and returns its paragraphs with their hash set.
func Fingerprint(text string) ([]string, types.HashSet) {
	paras := Split(text)
	set := types.NewHashSet()
	for _, p := range paras {
		set.Add(Hash(p))
	}
	return paras, set
}

// Jaccard returns |a∩b| / |a∪b|, or 1.0 when both sets are empty.
func Jaccard(a, b types.HashSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for h := range small {
		if large.Has(h) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
