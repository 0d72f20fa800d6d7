// Package discover ranks corpus files as plausible root documents.
//
// Two scoring modes coexist:
//
//   - ScoreName is a cheap filename heuristic used to order roots before
//     merging: +5 per positive keyword, -4 per negative keyword and a bonus
//     for shallow paths.
//   - ScoreSignals weights structural signals of a single file and is used
//     by Rank and Best to pick one root.
//
// A "% !TEX root = X" comment or a \documentclass[X]{subfiles} redirect
// that resolves to a corpus file short-circuits signal scoring. The magic
// root comment wins outright; subfiles targets are ranked among
// themselves.
//
// Only files with a \documentclass or \begin{document} are eligible as
// merge candidates (see Candidates). Everything else is assumed to be an
// include.
package discover
