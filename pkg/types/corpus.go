package types

import "sort"

// SourceFile is one named text file of a corpus. Names are forward-slash,
// path-like keys (e.g. "sections/intro.tex").
type SourceFile struct {
	Name    string
	Content string
}

// Corpus is an ordered mapping from file name to SourceFile.
//
// Insertion order is preserved and is the discovery order used when
// candidates are grouped and merged.
type Corpus struct {
	files []SourceFile
	index map[string]int
}

// NewCorpus creates a corpus from the given files, in order. Later files
// with a duplicate name replace the content of the earlier entry.
func NewCorpus(files ...SourceFile) *Corpus {
	c := &Corpus{index: make(map[string]int, len(files))}
	for _, f := range files {
		c.Add(f.Name, f.Content)
	}
	return c
}

// CorpusFromMap builds a corpus from a plain map, ordering names
// lexicographically so the result is deterministic.
func CorpusFromMap(m map[string]string) *Corpus {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Corpus{index: make(map[string]int, len(m))}
	for _, name := range names {
		c.Add(name, m[name])
	}
	return c
}

// Add inserts a file. If the name already exists its content is replaced
// and its position is kept.
func (c *Corpus) Add(name, content string) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[name]; ok {
		c.files[i].Content = content
		return
	}
	c.index[name] = len(c.files)
	c.files = append(c.files, SourceFile{Name: name, Content: content})
}

// Get returns the file content for name.
func (c *Corpus) Get(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	i, ok := c.index[name]
	if !ok {
		return "", false
	}
	return c.files[i].Content, true
}

// Has reports whether name is a key of the corpus.
func (c *Corpus) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[name]
	return ok
}

// Names returns the file names in insertion order.
func (c *Corpus) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.files))
	for i, f := range c.files {
		names[i] = f.Name
	}
	return names
}

// Files returns a copy of the files in insertion order.
func (c *Corpus) Files() []SourceFile {
	if c == nil {
		return nil
	}
	out := make([]SourceFile, len(c.files))
	copy(out, c.files)
	return out
}

// Len returns the number of files.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.files)
}
