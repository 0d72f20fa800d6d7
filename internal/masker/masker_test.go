package masker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtect_NoProtectedContent(t *testing.T) {
	src := "Plain text with \\emph{markup} and 50% of nothing."
	masked, m := Protect(src, DefaultProtectedEnvs)

	assert.Equal(t, src, masked)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, src, m.Restore(masked))
}

func TestProtect_BlockEnvironment(t *testing.T) {
	src := "before\n\\begin{verbatim}\n% not a comment\n{ unmatched\n\\end{verbatim}\nafter"
	masked, m := Protect(src, DefaultProtectedEnvs)

	require.Equal(t, 1, m.Len())
	assert.NotContains(t, masked, "not a comment")
	assert.NotContains(t, masked, "%")
	assert.True(t, strings.HasPrefix(masked, "before\n"))
	assert.True(t, strings.HasSuffix(masked, "\nafter"))
	assert.Equal(t, src, m.Restore(masked))
}

func TestProtect_BlockIsNotNested(t *testing.T) {
	src := `\begin{verbatim}a\begin{verbatim}b\end{verbatim}c\end{verbatim}`
	masked, m := Protect(src, []string{"verbatim"})

	require.Equal(t, 1, m.Len())
	assert.Equal(t, `\begin{verbatim}a\begin{verbatim}b\end{verbatim}`, m.Entries()[0].Original)
	assert.True(t, strings.HasSuffix(masked, `c\end{verbatim}`))
	assert.Equal(t, src, m.Restore(masked))
}

func TestProtect_UnterminatedBlockLeftAlone(t *testing.T) {
	src := "\\begin{minted}{go}\nfunc main() {}\n"
	masked, m := Protect(src, DefaultProtectedEnvs)

	assert.Equal(t, src, masked)
	assert.Equal(t, 0, m.Len())
}

func TestProtect_InlineVerb(t *testing.T) {
	tests := []struct {
		name string
		src  string
		span string
	}{
		{"pipe delimiter", `see \verb|a%b| here`, `\verb|a%b|`},
		{"plus delimiter", `see \verb+x{y+ here`, `\verb+x{y+`},
		{"starred", `see \verb*!a b! here`, `\verb*!a b!`},
		{"star as delimiter", `see \verb*a* here`, `\verb*a*`},
		{"unicode delimiter", "see \\verbéxé here", "\\verbéxé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked, m := Protect(tt.src, nil)
			require.Equal(t, 1, m.Len())
			assert.Equal(t, tt.span, m.Entries()[0].Original)
			assert.NotContains(t, masked, tt.span)
			assert.Equal(t, tt.src, m.Restore(masked))
		})
	}
}

func TestProtect_InlineVerbRejected(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"letter after marker", `\verbatim text`},
		{"space after marker", `\verb |x|`},
		{"digit delimiter", `\verb1x1`},
		{"closing delimiter on next line", "\\verb|abc\ndef|"},
		{"marker at end", `trailing \verb`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked, m := Protect(tt.src, nil)
			assert.Equal(t, 0, m.Len())
			assert.Equal(t, tt.src, masked)
		})
	}
}

func TestProtect_InlineInsideBlock(t *testing.T) {
	src := "\\begin{lstlisting}\n\\verb|q|\n\\end{lstlisting}\n\\verb!z!"
	masked, m := Protect(src, DefaultProtectedEnvs)

	assert.Equal(t, 3, m.Len())
	assert.NotContains(t, masked, `\verb`)
	assert.NotContains(t, masked, "lstlisting")
	assert.Equal(t, src, m.Restore(masked))
}

func TestProtect_Idempotent(t *testing.T) {
	src := "a \\verb|%| b\n\\begin{tikzpicture}\\draw{x};\\end{tikzpicture}"
	masked, m := Protect(src, DefaultProtectedEnvs)

	again := m.Protect(masked, DefaultProtectedEnvs)
	assert.Equal(t, masked, again)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, src, m.Restore(again))
}

func TestRestore_IgnoresForgedTokens(t *testing.T) {
	masked, m := Protect(`\verb|x|`, nil)
	require.Equal(t, 1, m.Len())

	forged := m.inline.prefix + "7" + tokenClose
	out := m.Restore(masked + " " + forged)
	assert.Equal(t, `\verb|x| `+forged, out)
}

func TestProtect_NonceAvoidsInput(t *testing.T) {
	m := New()
	taken := m.nonce
	src := "literal " + taken + " then \\verb|v|"

	masked := m.Protect(src, nil)
	assert.NotEqual(t, taken, m.nonce)
	assert.Equal(t, src, m.Restore(masked))
}

func TestMasks_SharedAcrossTexts(t *testing.T) {
	m := New()
	a := m.Protect("A \\verb|1|", nil)
	b := m.Protect("\\begin{verbatim}B\\end{verbatim}", []string{"verbatim"})

	joined := a + "\n" + b
	assert.Equal(t, "A \\verb|1|\n\\begin{verbatim}B\\end{verbatim}", m.Restore(joined))
}

func TestEntries_TokensAreSafe(t *testing.T) {
	_, m := Protect("\\verb|a| \\begin{verbatim}b\\end{verbatim}", DefaultProtectedEnvs)
	for _, e := range m.Entries() {
		assert.NotContains(t, e.Token, `\`)
		assert.NotContains(t, e.Token, "%")
		assert.NotContains(t, e.Token, "{")
		assert.NotContains(t, e.Token, " ")
		assert.NotContains(t, e.Token, "\n")
	}
}
