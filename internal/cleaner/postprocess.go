package cleaner

import (
	"regexp"
	"strings"
)

// CitationPlaceholder replaces citation commands in ReplaceCitations.
const CitationPlaceholder = "[CITATION]"

var (
	citationRE = regexp.MustCompile(`\\cite[tp]?\*?(?:\[[^\]]*\]){0,2}\{[^}]+\}`)
	mathREs    = []*regexp.Regexp{
		regexp.MustCompile(`(?s)\$\$(.*?)\$\$`),
		regexp.MustCompile(`\$(.*?)\$`),
		regexp.MustCompile(`(?s)\\\[(.*?)\\\]`),
		regexp.MustCompile(`(?s)\\\((.*?)\\\)`),
	}
	captionRE = regexp.MustCompile(`\\caption\{([^}]*)\}`)
)

// captionEnvs maps float environments to the label emitted for them.
var captionEnvs = []struct {
	env   string
	label string
}{
	{"figure", "[FIGURE]"},
	{"table", "[TABLE]"},
}

// ReplaceCitations substitutes \cite, \citep and \citet with a placeholder.
func ReplaceCitations(text string) string {
	return citationRE.ReplaceAllString(text, CitationPlaceholder)
}

// InlineEquations removes math delimiters and keeps their content.
func InlineEquations(text string) string {
	for _, re := range mathREs {
		text = re.ReplaceAllString(text, "$1")
	}
	return text
}

// ExtractCaptions replaces each figure and table with a single labelled
// caption line. Floats without a caption are dropped.
func ExtractCaptions(text string) string {
	for _, c := range captionEnvs {
		begin := `\begin{` + c.env + `}`
		end := `\end{` + c.env + `}`

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
			inner := text[start+len(begin) : start+len(begin)+k]
			b.WriteString(text[from:start])
			if m := captionRE.FindStringSubmatch(inner); m != nil {
				b.WriteString(c.label + " " + strings.TrimSpace(m[1]) + "\n")
			}
			from = start + len(begin) + k + len(end)
		}
		if from > 0 {
			b.WriteString(text[from:])
			text = b.String()
		}
	}
	return text
}

// Postprocess applies captions, citations and equations in that order.
func Postprocess(text string) string {
	text = ExtractCaptions(text)
	text = ReplaceCitations(text)
	return InlineEquations(text)
}
