package expander

import (
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/texmerge/internal/masker"
	"github.com/dshills/texmerge/pkg/types"
)

const (
	// DefaultMaxDepth is the default number of rescans per text
	DefaultMaxDepth = 20

	// DepthWarning is prepended when MaxDepth passes did not reach a fixed point
	DepthWarning = "% WARNING: max expansion depth reached\n"
)

var (
	inputRE    = regexp.MustCompile(`\\(?:input|include)\{([^}]+)\}`)
	ifExistsRE = regexp.MustCompile(`(?s)\\InputIfFileExists\{([^}]+)\}\{([^}]*)\}\{([^}]*)\}`)
)

// Options configures an Expander.
type Options struct {
	MaxDepth      int      // rescans per text (default: DefaultMaxDepth)
	ProtectedEnvs []string // environments masked before scanning (default: masker.DefaultProtectedEnvs)
}

// Expander resolves inclusion directives.
type Expander struct {
	maxDepth  int
	protected []string
	logger    *zap.Logger
}

// New creates an Expander. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Expander {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.ProtectedEnvs == nil {
		opts.ProtectedEnvs = masker.DefaultProtectedEnvs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		maxDepth:  opts.MaxDepth,
		protected: opts.ProtectedEnvs,
		logger:    logger,
	}
}

// Expand flattens content, which is the text of the corpus file name.
// It returns the expanded text and the files touched, name first.
func Expand(content, name string, corpus *types.Corpus, maxDepth int) (string, []string) {
	return New(Options{MaxDepth: maxDepth}, nil).Expand(content, name, corpus)
}

// Expand flattens content, which is the text of the corpus file name.
// It returns the expanded text and the files touched, name first.
func (e *Expander) Expand(content, name string, corpus *types.Corpus) (string, []string) {
	w := &walk{
		Expander: e,
		corpus:   corpus,
		masks:    masker.New(),
		visited:  map[string]bool{name: true},
		deps:     []string{name},
	}
	out := w.expand(NormalizeNewlines(content), name)
	return w.masks.Restore(out), w.deps
}

// walk is the state of one top-level expansion.
type walk struct {
	*Expander
	corpus  *types.Corpus
	masks   *masker.Masks
	visited map[string]bool
	deps    []string
}

// expand returns text with its directives resolved. The result is still
// masked with w.masks.
func (w *walk) expand(text, name string) string {
	cur := w.masks.Protect(text, w.protected)

	passes := 0
	for passes < w.maxDepth {
		next := w.expandInputs(cur, name)
		next = w.expandConditionals(next, name)
		if next == cur {
			break
		}
		cur = next
		passes++
	}

	if passes >= w.maxDepth {
		w.logger.Warn("max expansion depth reached",
			zap.String("file", name), zap.Int("max_depth", w.maxDepth))
		cur = DepthWarning + cur
	}
	return cur
}

func (w *walk) expandInputs(text, name string) string {
	return replaceAllSubmatch(inputRE, text, func(m []string) string {
		key, ok := Resolve(name, m[1], w.corpus)
		if !ok {
			w.logger.Debug("unresolved include", zap.String("file", name), zap.String("target", m[1]))
			return m[0]
		}
		if w.visited[key] {
			w.logger.Debug("include cycle broken", zap.String("file", name), zap.String("target", key))
			return ""
		}
		w.visited[key] = true
		w.addDep(key)

		child, _ := w.corpus.Get(key)
		return w.expand(NormalizeNewlines(child), key)
	})
}

func (w *walk) expandConditionals(text, name string) string {
	return replaceAllSubmatch(ifExistsRE, text, func(m []string) string {
		if _, ok := Resolve(name, m[1], w.corpus); ok {
			return w.expand(m[2], name)
		}
		return m[3]
	})
}

func (w *walk) addDep(key string) {
	for _, d := range w.deps {
		if d == key {
			return
		}
	}
	w.deps = append(w.deps, key)
}

// Resolve maps an include target seen in file base to a corpus key.
func Resolve(base, target string, corpus *types.Corpus) (string, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", false
	}

	dir := path.Dir(base)
	if dir == "." || dir == "/" {
		dir = ""
	}

	withExt := target
	if !strings.HasSuffix(target, ".tex") {
		withExt = target + ".tex"
	}

	for _, key := range []string{
		joinKey(dir, target),
		joinKey(dir, withExt),
		cleanKey(target),
		cleanKey(withExt),
	} {
		if key != "" && corpus.Has(key) {
			return key, true
		}
	}
	return "", false
}

func joinKey(dir, target string) string {
	if strings.HasPrefix(target, "/") {
		return cleanKey(target)
	}
	return cleanKey(path.Join(dir, target))
}

func cleanKey(p string) string {
	p = path.Clean(strings.TrimLeft(p, "/"))
	if p == "." {
		return ""
	}
	return p
}

// NormalizeNewlines converts CRLF and CR line endings to LF.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// replaceAllSubmatch is ReplaceAllStringFunc with access to submatches.
func replaceAllSubmatch(re *regexp.Regexp, s string, fn func([]string) string) string {
	idx := re.FindAllStringSubmatchIndex(s, -1)
	if len(idx) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, loc := range idx {
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = s[loc[2*g]:loc[2*g+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
