// Package ledger persists the Fingerprint Ledger: the per-index digest
// map the Reconciler compares the current corpus against, plus the
// coarse whole-corpus digest used as a fast-path short-circuit.
//
// It uses the same JSON file read/write pattern as package cache, split
// into its own package because the ledger and the Cache Artifact are
// written, read, and invalidated independently. Deleting the indices file
// or the Cache Artifact forces full re-embedding; deleting the
// corpus-hash file only disables the fast path for one pass and does not
// by itself cause any record to be re-embedded.
package ledger

import (
	"encoding/json"
	"os"

	"github.com/fabfab/faqvec/internal/faqerrors"
)

// Ledger is the in-memory form of the Fingerprint Ledger.
type Ledger struct {
	// IndicesHash maps a stringified positional index to the record's
	// canonical-form digest at the time of the last successful embed for
	// that index.
	IndicesHash map[string]string
	// CorpusHash is the digest of the raw corpus file bytes as of the
	// last reconciliation, or empty if a record failed to embed in it.
	CorpusHash string
}

// New returns an empty Ledger.
func New() Ledger {
	return Ledger{IndicesHash: map[string]string{}}
}

// Load reads both ledger artifacts from their respective paths. A missing
// indices file is treated as an empty ledger (found=false); a missing
// corpus-hash file just leaves CorpusHash empty. Any other read or decode
// failure is reported as faqerrors.ErrCacheCorrupt, matching the Cache
// Codec's corruption handling, since a corrupt ledger forces the same
// full-rebuild recovery path.
func Load(indicesPath, corpusHashPath string) (l Ledger, found bool, err error) {
	l = New()

	data, err := os.ReadFile(indicesPath)
	switch {
	case os.IsNotExist(err):
		// no ledger yet; found stays false
	case err != nil:
		return Ledger{}, false, faqerrors.ErrCacheCorrupt
	default:
		if err := json.Unmarshal(data, &l.IndicesHash); err != nil {
			return Ledger{}, false, faqerrors.ErrCacheCorrupt
		}
		found = true
	}

	hashData, err := os.ReadFile(corpusHashPath)
	switch {
	case os.IsNotExist(err):
		// no corpus-hash artifact yet
	case err != nil:
		return Ledger{}, false, faqerrors.ErrCacheCorrupt
	default:
		var hash string
		if err := json.Unmarshal(hashData, &hash); err != nil {
			return Ledger{}, false, faqerrors.ErrCacheCorrupt
		}
		l.CorpusHash = hash
	}

	return l, found, nil
}

// Save writes both ledger artifacts. Per the Reconciler's durability
// ordering requirement, Save must only be called after the paired Cache
// Artifact has already been written durably.
func Save(indicesPath, corpusHashPath string, l Ledger) error {
	indicesData, err := json.MarshalIndent(l.IndicesHash, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(indicesPath, indicesData, 0o644); err != nil {
		return err
	}

	hashData, err := json.MarshalIndent(l.CorpusHash, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(corpusHashPath, hashData, 0o644)
}
