// Package expander flattens a LaTeX source tree by resolving file
// inclusion directives against an in-memory corpus.
//
// Supported directives:
//   - \input{TARGET} and \include{TARGET}
//   - \InputIfFileExists{FILE}{THEN}{ELSE}
//
// # Basic Usage
//
//	exp := expander.New(expander.Options{MaxDepth: 20}, logger)
//	flat, deps := exp.Expand(content, "main.tex", corpus)
//
// # Resolution
//
// TARGET is looked up relative to the including file's directory, with
// and without a ".tex" suffix, and then as a literal corpus key. The first
// hit wins. Unresolved directives stay in the text unchanged.
//
// # Cycles and Depth
//
// Each top-level Expand call keeps one visited set. A directive that
// resolves to an already visited file is replaced by the empty string.
// Each text is rescanned until a pass changes nothing or MaxDepth passes
// have run; in the latter case a "% WARNING" comment line is prepended.
//
// Verbatim-like regions are masked before any directive is scanned and
// stay masked while child files are spliced in, so directives quoted
// inside a listing are never expanded.
package expander
