// Package masker protects verbatim-like regions of LaTeX source from
// text rewriting.
//
// Protected spans are cut out of the text and replaced by opaque tokens
// that reference a side table held by a Masks value. Later passes (macro
// expansion, comment stripping) operate on the masked text and can never
// alter the protected bytes; Restore splices the originals back.
//
// # Basic Usage
//
//	masked, m := masker.Protect(src, masker.DefaultProtectedEnvs)
//	out := rewrite(masked)
//	out = m.Restore(out)
//
// # Token Format
//
// A token is a private-use rune, a per-table random nonce, a kind letter,
// a decimal table index and a closing private-use rune. Tokens contain no
// backslash, brace, percent sign or whitespace, so LaTeX-oriented regular
// expressions never match inside them. The nonce is checked against the
// input before the first span is issued, so text that happens to contain
// token-like sequences cannot be confused with real tokens.
//
// # Matching Rules
//
// Inline literals are \verb or \verb* followed by any single delimiter
// character that is neither ASCII alphanumeric nor whitespace, closed by
// the same character on the same line.
//
// Block environments match from the first \begin{ENV} to the next
// \end{ENV}. Nesting is not tracked: protected environments do not nest in
// practice, and only the first/next pairing is used.
//
// Inline literals are masked first and block environments second; Restore
// undoes them in reverse order. Masking already masked text is a no-op.
package masker
