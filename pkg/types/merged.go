package types

import "fmt"

// Provenance maps one output paragraph back to the file it came from.
type Provenance struct {
	ParagraphIndex int    `json:"paragraph_index"`
	SourceName     string `json:"source_name"`
	Hash           string `json:"hash"`
}

// MergedCorpus is the single output artifact of a consolidation run.
type MergedCorpus struct {
	Text       string       `json:"text"`
	Provenance []Provenance `json:"provenance"`
	Roots      []string     `json:"roots"`
}

// IsEmpty reports whether the merge produced no text.
func (m *MergedCorpus) IsEmpty() bool {
	return m == nil || m.Text == ""
}

// Validate checks that provenance indices are dense and ordered.
func (m *MergedCorpus) Validate() error {
	for i, p := range m.Provenance {
		if p.ParagraphIndex != i {
			return fmt.Errorf("%w: entry %d has paragraph index %d", ErrInvalidProvenance, i, p.ParagraphIndex)
		}
		if p.SourceName == "" {
			return fmt.Errorf("%w: entry %d has no source", ErrInvalidProvenance, i)
		}
		if p.Hash == "" {
			return fmt.Errorf("%w: entry %d has no hash", ErrInvalidProvenance, i)
		}
	}
	return nil
}
