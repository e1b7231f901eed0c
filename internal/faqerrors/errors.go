// Package faqerrors defines the error kinds shared across the RAG index
// subsystem, so callers can branch with errors.Is instead of string
// matching.
package faqerrors

import "errors"

var (
	// ErrCorpusUnavailable means the corpus file can't be read or parsed,
	// or a positional index is out of range. A missing corpus file is not
	// reported with it: the Corpus Store reads that as an empty corpus.
	ErrCorpusUnavailable = errors.New("corpus unavailable")

	// ErrCacheUnavailable means the cache file is absent. Not an error on
	// its own: it triggers a full rebuild.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrCacheCorrupt means the cache file is present but unreadable. It
	// is treated as ErrCacheUnavailable for recovery purposes, but callers
	// should log a warning when they see it.
	ErrCacheCorrupt = errors.New("cache corrupt")

	// ErrEmbedTransport covers network/HTTP failures talking to the
	// embedding provider.
	ErrEmbedTransport = errors.New("embedding transport error")

	// ErrEmbedRejected covers auth, quota, or malformed-response failures
	// from the embedding provider.
	ErrEmbedRejected = errors.New("embedding rejected")

	// ErrDimensionMismatch means a cached vector's length disagrees with
	// the embedder's current dimensionality. Fatal to the cache: the
	// cache is dropped and a full rebuild occurs.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrQueryDegenerate means the query text embedded to a zero vector.
	// Search returns an empty list for this, not an error.
	ErrQueryDegenerate = errors.New("query embedding is degenerate")
)
