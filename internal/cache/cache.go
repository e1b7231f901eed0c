// Package cache is the Cache Codec: it serializes and deserializes the
// Vector Store's state to a single, self-describing on-disk artifact.
// MarshalIndent keeps the file human-inspectable; os.ReadFile's explicit
// os.IsNotExist branch distinguishes "no cache yet" from "corrupt cache."
package cache

import (
	"encoding/json"
	"os"
	"time"

	"github.com/fabfab/faqvec/internal/faqerrors"
	"github.com/fabfab/faqvec/internal/vectorstore"
)

// Artifact is the on-disk shape of the Cache Codec's single file.
// Dimensions must match the length of every Vector's Vector field; this
// is enforced by the Vector Store on insert, not re-validated here.
type Artifact struct {
	Dimensions int                  `json:"dimensions"`
	Vectors    []vectorstore.Chunk  `json:"vectors"`
	SavedAt    time.Time            `json:"saved_at"`
}

// Load reads a Cache Artifact from path and restores it into store. A
// missing file is a normal outcome (found=false, err=nil), not an error.
// A file that exists but can't be read (permissions, I/O error) or
// doesn't decode is reported as faqerrors.ErrCacheCorrupt. Either way
// the caller logs a warning and falls back to a full rebuild.
//
// If the store already declares a dimensionality (via Init) and the
// artifact's vectors disagree with it, the cache is fatal and reported as
// faqerrors.ErrDimensionMismatch without touching the store: the caller
// must drop the cache and rebuild from scratch rather than load vectors
// the current embedder can no longer score.
func Load(path string, store *vectorstore.Store) (found bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, faqerrors.ErrCacheCorrupt
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return false, faqerrors.ErrCacheCorrupt
	}

	if declared := store.Dimensions(); declared > 0 && a.Dimensions > 0 && a.Dimensions != declared {
		return false, faqerrors.ErrDimensionMismatch
	}

	store.Restore(a.Dimensions, a.Vectors)
	return true, nil
}

// Save serializes the store's current state to path, in a form Load can
// re-read. Pretty-printed for operator inspectability.
func Save(path string, store *vectorstore.Store) error {
	dimensions, chunks := store.Snapshot()
	a := Artifact{
		Dimensions: dimensions,
		Vectors:    chunks,
		SavedAt:    time.Now().UTC(),
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
