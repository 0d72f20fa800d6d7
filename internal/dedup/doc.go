// Package dedup clusters near-duplicate root candidates and merges the
// best member of each cluster into one corpus with paragraph provenance.
//
// # Clustering
//
// Group is single-linkage and first-fit. Candidates are visited in the
// order given and each joins the first existing group whose anchor (first
// member) has Jaccard similarity >= threshold with it. The result depends
// on input order. This is intended: the output stays deterministic for a
// given corpus order and matches the documented behaviour. Do not replace
// it with a symmetric clustering.
//
// # Merging
//
// Merge orders the chosen bests by descending name score, then descending
// body length. The first is the primary and contributes every paragraph.
// Later bests contribute only paragraphs whose canonical hash has not been
// emitted yet.
package dedup
