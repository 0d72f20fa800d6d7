package types

import "errors"

// HashSet is a set of paragraph content digests (hex encoded).
type HashSet map[string]struct{}

// NewHashSet creates a set holding the given hashes.
func NewHashSet(hashes ...string) HashSet {
	s := make(HashSet, len(hashes))
	for _, h := range hashes {
		s[h] = struct{}{}
	}
	return s
}

// Has reports whether h is in the set.
func (s HashSet) Has(h string) bool {
	_, ok := s[h]
	return ok
}

// Add inserts h into the set.
func (s HashSet) Add(h string) {
	s[h] = struct{}{}
}

// CandidateRoot is one plausible root document after expansion, cleaning
// and fingerprinting.
type CandidateRoot struct {
	Name            string
	ExpandedBody    string // cleaned, trimmed body text
	Paragraphs      []string
	ParagraphHashes HashSet
	NameScore       int
	Deps            []string // files touched during expansion, root first
}

// Validate checks the candidate is usable by the merger.
func (c *CandidateRoot) Validate() error {
	if c.Name == "" {
		return errors.New("candidate name is required")
	}
	if c.ParagraphHashes == nil {
		return errors.New("paragraph hashes must be computed")
	}
	return nil
}

// DuplicateGroup is a cluster of near-duplicate candidates. The first
// member is the group anchor all later members were compared against.
type DuplicateGroup struct {
	Members []*CandidateRoot
}

// Anchor returns the first member of the group.
func (g *DuplicateGroup) Anchor() *CandidateRoot {
	if len(g.Members) == 0 {
		return nil
	}
	return g.Members[0]
}

// Names returns the member names in join order.
func (g *DuplicateGroup) Names() []string {
	names := make([]string, len(g.Members))
	for i, m := range g.Members {
		names[i] = m.Name
	}
	return names
}
