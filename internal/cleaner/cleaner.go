package cleaner

import (
	"regexp"
	"strings"

	"github.com/dshills/texmerge/internal/expander"
	"github.com/dshills/texmerge/internal/masker"
)

// DefaultDropEnvs are the environments removed from the body by Clean.
var DefaultDropEnvs = []string{
	"tikzpicture", "minted", "lstlisting", "verbatim", "Verbatim",
	"framed", "mdframed", "tcolorbox",
}

// DefaultInlineCommands are single-argument editorial annotations.
var DefaultInlineCommands = []string{`\todo`, `\marginpar`}

// DefaultAppendixMarkers truncate the merged text at the appendix.
var DefaultAppendixMarkers = []string{`\\appendix\b`}

// NoiseCommands are layout-only commands dropped by DropNoiseCommands.
var NoiseCommands = []string{"maketitle", "vspace", "phantom"}

const (
	beginDocument = `\begin{document}`
	endDocument   = `\end{document}`
)

var (
	setupBlockREs = []*regexp.Regexp{
		regexp.MustCompile(`(?s)\\lstdefinelanguage\{[^}]+\}\s*\{.*?\}`),
		regexp.MustCompile(`(?s)\\lstset\{.*?\}`),
		regexp.MustCompile(`(?s)\\makeatletter.*?\\makeatother`),
	}
	loosenessRE = regexp.MustCompile(`\\looseness\s*=?\s*-?\d+`)
	noiseREs    = compileNoise(NoiseCommands)
	iffalseRE   = regexp.MustCompile(`(?s)\\iffalse\b.*?\\fi\b`)
	hspaceRunRE = regexp.MustCompile(`[ \t]{2,}`)
	blankRunRE  = regexp.MustCompile(`\n{3,}`)
)

func compileNoise(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		out = append(out, regexp.MustCompile(`\\`+regexp.QuoteMeta(n)+`\b\*?(?:\[[^\]]*\])?(?:\{[^{}]*\})?`))
	}
	return out
}

// ExtractBody returns the text between the first \begin{document} and the
// last \end{document} after it, or text unchanged when either is missing.
func ExtractBody(text string) string {
	i := strings.Index(text, beginDocument)
	if i < 0 {
		return text
	}
	start := i + len(beginDocument)
	j := strings.LastIndex(text[start:], endDocument)
	if j < 0 {
		return text
	}
	return text[start : start+j]
}

// DropSetupBlocks removes listing configuration and \makeatletter blocks
// using non-balanced matching. See the package documentation.
func DropSetupBlocks(text string) string {
	for _, re := range setupBlockREs {
		text = re.ReplaceAllString(text, "")
	}
	return text
}

// StripComments removes line comments outside protected regions. A '%'
// preceded by an odd number of backslashes is escaped and kept.
func StripComments(text string, protected []string) string {
	text = expander.NormalizeNewlines(text)
	masked, m := masker.Protect(text, protected)

	lines := strings.Split(masked, "\n")
	for i, line := range lines {
		if k := commentStart(line); k >= 0 {
			lines[i] = line[:k]
		}
	}
	return m.Restore(strings.Join(lines, "\n"))
}

// commentStart returns the offset of the first un-escaped '%' or -1.
func commentStart(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] != '%' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && line[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return -1
}

// DropEnvs deletes each named environment, header to footer. Matching is
// first \begin{ENV} to next \end{ENV}, without nesting.
func DropEnvs(text string, envs []string) string {
	for _, env := range envs {
		text = dropEnv(text, env)
	}
	return text
}

func dropEnv(text, env string) string {
	begin := `\begin{` + env + `}`
	end := `\end{` + env + `}`

	var b strings.Builder
	from := 0
	for {
		i := strings.Index(text[from:], begin)
		if i < 0 {
			break
		}
		start := from + i
		k := strings.Index(text[start+len(begin):], end)
		if k < 0 {
			break
		}
		b.WriteString(text[from:start])
		from = start + len(begin) + k + len(end)
	}
	if from == 0 {
		return text
	}
	b.WriteString(text[from:])
	return b.String()
}

// DropInlineCommands deletes single-argument annotation commands (with an
// optional [..] argument) and every \iffalse ... \fi block.
func DropInlineCommands(text string, commands []string) string {
	for _, cmd := range commands {
		re, err := regexp.Compile(regexp.QuoteMeta(cmd) + `(?:\[[^\]]*\])?\{[^{}]*\}`)
		if err != nil {
			continue
		}
		text = re.ReplaceAllString(text, "")
	}
	return iffalseRE.ReplaceAllString(text, "")
}

// DropNoiseCommands removes layout-only commands and collapses runs of
// horizontal whitespace and blank lines.
func DropNoiseCommands(text string) string {
	text = loosenessRE.ReplaceAllString(text, "")
	for _, re := range noiseREs {
		text = re.ReplaceAllString(text, "")
	}
	text = hspaceRunRE.ReplaceAllString(text, " ")
	return blankRunRE.ReplaceAllString(text, "\n\n")
}

// DropAfterMarkers truncates text at the earliest case-insensitive match
// of any pattern. Patterns that fail to compile are ignored.
func DropAfterMarkers(text string, patterns []string) string {
	if k := MarkerIndex(text, patterns); k >= 0 {
		return text[:k]
	}
	return text
}

// MarkerIndex returns the offset of the earliest case-insensitive match of
// any pattern, or -1.
func MarkerIndex(text string, patterns []string) int {
	best := -1
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			continue
		}
		if loc := re.FindStringIndex(text); loc != nil && (best < 0 || loc[0] < best) {
			best = loc[0]
		}
	}
	return best
}

// PrecleanForBody extracts the document body and drops setup blocks and
// layout noise.
func PrecleanForBody(text string) string {
	text = ExtractBody(text)
	text = DropSetupBlocks(text)
	return DropNoiseCommands(text)
}

// Clean strips comments (protecting dropEnvs), deletes dropEnvs and
// removes inline annotation commands.
func Clean(text string, dropEnvs, inlineCommands []string) string {
	text = StripComments(text, dropEnvs)
	text = DropEnvs(text, dropEnvs)
	return DropInlineCommands(text, inlineCommands)
}
