package masker

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	tokenOpen  = "\uE000"
	tokenClose = "\uE001"

	kindInline = 'i'
	kindBlock  = 'b'
)

// DefaultProtectedEnvs are the environments whose bodies must survive
// expansion and comment stripping unchanged.
var DefaultProtectedEnvs = []string{
	"verbatim", "Verbatim", "lstlisting", "lstlisting*", "minted", "tikzpicture",
}

// Entry is one masked span.
type Entry struct {
	Token    string
	Original string
}

// table maps token indices of one kind to the original spans.
type table struct {
	prefix string
	spans  []string
}

func (t *table) add(span string) string {
	tok := t.prefix + strconv.Itoa(len(t.spans)) + tokenClose
	t.spans = append(t.spans, span)
	return tok
}

// restore replaces every token of this table in text with its span.
func (t *table) restore(text string) string {
	if len(t.spans) == 0 || !strings.Contains(text, t.prefix) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for {
		i := strings.Index(text, t.prefix)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		rest := text[i+len(t.prefix):]

		end := strings.Index(rest, tokenClose)
		if end > 0 {
			if id, err := strconv.Atoi(rest[:end]); err == nil && id >= 0 && id < len(t.spans) {
				b.WriteString(t.spans[id])
				text = rest[end+len(tokenClose):]
				continue
			}
		}
		b.WriteString(t.prefix)
		text = rest
	}
}

// Masks is the side table for one logical masking scope. A single Masks
// may protect several texts (e.g. every file spliced into one expansion);
// Restore then handles tokens from all of them.
type Masks struct {
	nonce  string
	inline table
	block  table
}

// New creates an empty mask table with a fresh nonce.
func New() *Masks {
	m := &Masks{}
	m.setNonce(newNonce())
	return m
}

// Protect masks inline literals and then the named block environments in
// text, returning the masked text and its side table.
func Protect(text string, envs []string) (string, *Masks) {
	m := New()
	return m.Protect(text, envs), m
}

// Protect masks text into this table. See the package documentation for
// the matching rules.
func (m *Masks) Protect(text string, envs []string) string {
	if m.Len() == 0 {
		for strings.Contains(text, m.nonce) {
			m.setNonce(newNonce())
		}
	}
	text = m.maskInline(text)
	text = m.maskBlocks(text, envs)
	return text
}

// Restore replaces every token issued by this table, block spans first
// and inline spans second.
func (m *Masks) Restore(text string) string {
	text = m.block.restore(text)
	return m.inline.restore(text)
}

// Len returns the number of masked spans.
func (m *Masks) Len() int {
	return len(m.inline.spans) + len(m.block.spans)
}

// Entries returns every (token, original) pair in masking order.
func (m *Masks) Entries() []Entry {
	out := make([]Entry, 0, m.Len())
	for i, s := range m.inline.spans {
		out = append(out, Entry{Token: m.inline.prefix + strconv.Itoa(i) + tokenClose, Original: s})
	}
	for i, s := range m.block.spans {
		out = append(out, Entry{Token: m.block.prefix + strconv.Itoa(i) + tokenClose, Original: s})
	}
	return out
}

func (m *Masks) setNonce(nonce string) {
	m.nonce = nonce
	m.inline.prefix = tokenOpen + nonce + string(kindInline)
	m.block.prefix = tokenOpen + nonce + string(kindBlock)
}

func newNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// maskInline replaces \verb<d>...<d> spans.
func (m *Masks) maskInline(text string) string {
	const marker = `\verb`

	var b strings.Builder
	from := 0
	for {
		i := strings.Index(text[from:], marker)
		if i < 0 {
			break
		}
		start := from + i
		end := verbEnd(text, start+len(marker))
		if end < 0 {
			b.WriteString(text[from : start+len(marker)])
			from = start + len(marker)
			continue
		}
		b.WriteString(text[from:start])
		b.WriteString(m.inline.add(text[start:end]))
		from = end
	}
	if from == 0 {
		return text
	}
	b.WriteString(text[from:])
	return b.String()
}

// verbEnd returns the end offset of a \verb literal whose marker ends at
// pos, or -1 when the text at pos does not form one. A leading '*' is
// taken as the starred form first and as the delimiter second.
func verbEnd(text string, pos int) int {
	if pos < len(text) && text[pos] == '*' {
		if end := delimitedEnd(text, pos+1); end >= 0 {
			return end
		}
	}
	return delimitedEnd(text, pos)
}

func delimitedEnd(text string, pos int) int {
	if pos >= len(text) {
		return -1
	}
	d, size := utf8.DecodeRuneInString(text[pos:])
	if !isDelimiter(d) {
		return -1
	}
	body := text[pos+size:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[:nl]
	}
	k := strings.IndexRune(body, d)
	if k < 0 {
		return -1
	}
	return pos + size + k + size
}

func isDelimiter(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	if r < utf8.RuneSelf && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
		return false
	}
	return !unicode.IsSpace(r)
}

// maskBlocks replaces \begin{ENV}...\end{ENV} spans for each env in order.
func (m *Masks) maskBlocks(text string, envs []string) string {
	for _, env := range envs {
		begin := `\begin{` + env + `}`
		end := `\end{` + env + `}`
		for {
			i := strings.Index(text, begin)
			if i < 0 {
				break
			}
			k := strings.Index(text[i+len(begin):], end)
			if k < 0 {
				break
			}
			stop := i + len(begin) + k + len(end)
			text = text[:i] + m.block.add(text[i:stop]) + text[stop:]
		}
	}
	return text
}
