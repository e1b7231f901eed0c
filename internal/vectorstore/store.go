// Package vectorstore is the in-memory collection of embedded chunks the
// RAG index subsystem searches against. It owns its Chunks exclusively;
// callers never mutate a Chunk in place once inserted. A reader lock
// guards the linear cosine scan in Search; a writer lock guards mutation;
// they are never held at the same time.
package vectorstore

import (
	"math"
	"sort"
	"sync"

	"github.com/fabfab/faqvec/internal/faqerrors"
)

// Chunk is the unit stored in the Vector Store: a fragment of searchable
// text plus its embedding vector, tagged with the payload index of the
// source QA record.
type Chunk struct {
	PayloadIndex int       `json:"payload_index"`
	Text         string    `json:"text"`
	Vector       []float32 `json:"vector"`
}

// ScoredChunk is a Chunk tagged with its similarity score against a query
// vector.
type ScoredChunk struct {
	Chunk
	Score float64
}

// Store is the in-memory, single-process Vector Store. Zero value is not
// usable; construct with New.
type Store struct {
	mu         sync.RWMutex
	dimensions int
	chunks     []Chunk
}

// New constructs an empty, uninitialized Store.
func New() *Store {
	return &Store{}
}

// Init declares the embedding dimensionality. It preserves any
// previously loaded Chunks: load-before-init is a supported sequence.
func (s *Store) Init(dimensions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimensions = dimensions
}

// Dimensions returns the declared embedding dimensionality.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// Count returns the total number of Chunks in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// CountByPayloadIndex returns the number of Chunks whose PayloadIndex
// equals i.
func (s *Store) CountByPayloadIndex(i int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.chunks {
		if c.PayloadIndex == i {
			n++
		}
	}
	return n
}

// Insert appends Chunks to the store and returns the count inserted. Every
// inserted Chunk's vector length must equal the store's declared
// dimensions; insert is all-or-nothing for the batch.
func (s *Store) Insert(chunks []Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if s.dimensions > 0 && len(c.Vector) != s.dimensions {
			return 0, faqerrors.ErrDimensionMismatch
		}
	}

	s.chunks = append(s.chunks, chunks...)
	return len(chunks), nil
}

// DeleteByPayloadIndex removes every Chunk whose PayloadIndex equals i and
// returns the count removed.
func (s *Store) DeleteByPayloadIndex(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	removed := 0
	for _, c := range s.chunks {
		if c.PayloadIndex == i {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return removed
}

// Search returns the k Chunks with highest cosine similarity to
// queryVector, tagged with their score, in descending score order. Ties
// are broken by insertion order (earlier wins), since sort.SliceStable
// preserves the original relative order of equal elements.
func (s *Store) Search(queryVector []float32, k int) []ScoredChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]ScoredChunk, len(s.chunks))
	for i, c := range s.chunks {
		scored[i] = ScoredChunk{Chunk: c, Score: cosineSimilarity(queryVector, c.Vector)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k < 0 {
		k = 0
	}
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// Snapshot returns the current dimensions and a copy of the Chunk slice,
// for the Cache Codec to serialize. The caller owns the returned slice.
func (s *Store) Snapshot() (dimensions int, chunks []Chunk) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions, append([]Chunk(nil), s.chunks...)
}

// Restore replaces the in-memory state wholesale, as the Cache Codec does
// after reading a Cache Artifact back from disk.
func (s *Store) Restore(dimensions int, chunks []Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimensions = dimensions
	s.chunks = chunks
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
