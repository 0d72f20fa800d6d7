package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"body", "pre\\begin{document}BODY\\end{document}post", "BODY"},
		{"last end wins", "\\begin{document}a\\end{document}b\\end{document}", "a\\end{document}b"},
		{"no begin", "just text\\end{document}", "just text\\end{document}"},
		{"no end", "\\begin{document}open", "\\begin{document}open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBody(tt.in))
		})
	}
}

func TestDropSetupBlocks(t *testing.T) {
	in := "a\\lstset{basicstyle=\\ttfamily}b\\lstdefinelanguage{Foo} {keywords=x}c\\makeatletter\\def\\x{}\\makeatother d"
	assert.Equal(t, "abc d", DropSetupBlocks(in))
}

func TestDropSetupBlocks_GreedyLeavesNestedTail(t *testing.T) {
	in := "x\\lstset{a={b},c}y"
	assert.Equal(t, "x,c}y", DropSetupBlocks(in))
	assert.Equal(t, "xy", DropSetupBlocksBalanced(in))
}

func TestDropSetupBlocksBalanced(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"nested lstset", "1\\lstset{a={b{c}},d=\\}}2", "12"},
		{"language with option", "1\\lstdefinelanguage{Go}\n[x]{k={a},b}2", "12"},
		{"makeat block", "1\\makeatletter\\def\\a{}\\makeatother2", "12"},
		{"unterminated kept", "1\\lstset{a={b}", "1\\lstset{a={b}"},
		{"longer command name kept", "\\lstsetup{x}", "\\lstsetup{x}"},
		{"nothing to drop", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DropSetupBlocksBalanced(tt.in))
		})
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing comment", "text % note\nmore", "text \nmore"},
		{"whole line", "% only\nx", "\nx"},
		{"escaped percent", "50\\% done % drop", "50\\% done "},
		{"double backslash is a comment", "a\\\\% gone", "a\\\\"},
		{"triple backslash escapes", "a\\\\\\% kept", "a\\\\\\% kept"},
		{"inline verb protected", "\\verb|%x| y % z", "\\verb|%x| y "},
		{"crlf normalised", "a % b\r\nc", "a \nc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripComments(tt.in, DefaultDropEnvs))
		})
	}
}

func TestProtectedRegionIntegrity(t *testing.T) {
	block := "\\begin{verbatim}\n100% { literal\n\\end{verbatim}"
	in := "before % c\n" + block + "\nafter"

	stripped := StripComments(in, []string{"verbatim"})
	assert.Contains(t, stripped, block)
	assert.Equal(t, "before \n"+block+"\nafter", stripped)

	dropped := DropEnvs(stripped, []string{"framed", "tikzpicture"})
	assert.Contains(t, dropped, block)
}

func TestDropEnvs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		envs []string
		want string
	}{
		{"single", "a\\begin{tikzpicture}x\\end{tikzpicture}b", []string{"tikzpicture"}, "ab"},
		{"repeated", "\\begin{framed}1\\end{framed}-\\begin{framed}2\\end{framed}", []string{"framed"}, "-"},
		{"non-nested", "\\begin{framed}a\\begin{framed}b\\end{framed}c\\end{framed}", []string{"framed"}, "c\\end{framed}"},
		{"unterminated", "\\begin{minted}x", []string{"minted"}, "\\begin{minted}x"},
		{"other env untouched", "\\begin{figure}x\\end{figure}", []string{"framed"}, "\\begin{figure}x\\end{figure}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DropEnvs(tt.in, tt.envs))
		})
	}
}

func TestDropInlineCommands(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"todo", "a\\todo{fix this}b", "ab"},
		{"todo with option", "a\\todo[inline]{fix}b", "ab"},
		{"marginpar", "a\\marginpar{note}b", "ab"},
		{"nested braces not matched", "a\\todo{x{y}}b", "a\\todo{x{y}}b"},
		{"iffalse block", "a\\iffalse hidden \\fi b", "a b"},
		{"iffalse multiline", "a\\iffalse\nx\ny\n\\fi\nb", "a\nb"},
		{"fi prefix not a terminator", "a\\iffalse x \\fine \\fi b", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DropInlineCommands(tt.in, DefaultInlineCommands))
		})
	}
}

func TestDropNoiseCommands(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"looseness", "a\\looseness=-1 b", "a b"},
		{"maketitle", "\\maketitle\nx", "\nx"},
		{"vspace star", "a\\vspace*{2em}b", "ab"},
		{"phantom", "a\\phantom{x}b", "ab"},
		{"phantomsection kept", "\\phantomsection x", "\\phantomsection x"},
		{"spaces collapsed", "a  \t b", "a b"},
		{"blank lines collapsed", "a\n\n\n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DropNoiseCommands(tt.in))
		})
	}
}

func TestDropAfterMarkers(t *testing.T) {
	text := "intro\n\n\\APPENDIX\nextra\n\\section{Appendix} more"

	assert.Equal(t, "intro\n\n", DropAfterMarkers(text, DefaultAppendixMarkers))
	assert.Equal(t, "intro\n\n", DropAfterMarkers(text, []string{`\\section\{appendix\}`, `\\appendix\b`}))
	assert.Equal(t, text, DropAfterMarkers(text, []string{`nomatch`}))
	assert.Equal(t, text, DropAfterMarkers(text, []string{`(`}))
	assert.Equal(t, -1, MarkerIndex("", DefaultAppendixMarkers))
}

func TestPrecleanForBody(t *testing.T) {
	in := "\\documentclass{article}\n\\lstset{x}\n\\begin{document}\n\\maketitle\nHello  world.\n\\end{document}"
	assert.Equal(t, "\n\nHello world.\n", PrecleanForBody(in))
}

func TestClean(t *testing.T) {
	in := "Para one. % remark\n\\begin{tikzpicture}\\draw (0,0);\\end{tikzpicture}\nSee\\todo{cite}.\n\\iffalse old \\fi"
	assert.Equal(t, "Para one. \n\nSee.\n", Clean(in, DefaultDropEnvs, DefaultInlineCommands))
}

func TestCleanersAreTotal(t *testing.T) {
	inputs := []string{"", "{", "}", "\\", "%", "\\begin{", "\\end{document}", "\\verb", "$"}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_ = Clean(PrecleanForBody(in), DefaultDropEnvs, DefaultInlineCommands)
			_ = DropSetupBlocksBalanced(in)
			_ = Postprocess(in)
		})
	}
}
