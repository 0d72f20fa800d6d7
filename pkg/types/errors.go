package types

import "errors"

// Pipeline errors. Everything else degrades gracefully instead of failing.
var (
	// ErrEmptyCorpus is returned when no source files were supplied
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrRootNotFound is returned when an explicit root is not a corpus key
	ErrRootNotFound = errors.New("root not found")
	// ErrInvalidProvenance is returned by MergedCorpus.Validate
	ErrInvalidProvenance = errors.New("invalid provenance")
)
