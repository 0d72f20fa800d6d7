// Package cleaner strips comments and structurally irrelevant markup from
// flattened LaTeX text.
//
// Every function is total: when the structure it looks for is absent the
// input is returned unchanged. Nothing here validates markup.
//
// The usual order after expansion is
//
//	body := cleaner.PrecleanForBody(expanded)        // body, setup blocks, noise
//	body = cleaner.Clean(body, dropEnvs, inlineCmds) // comments, envs, todos
//
// # Known Limitation
//
// DropSetupBlocks matches from an opening command to the first closing
// brace (or \makeatother) without tracking brace depth, so a nested group
// inside \lstset{...} truncates the match early and leaves the tail in
// the text. DropSetupBlocksBalanced is the brace-aware alternative.
package cleaner
