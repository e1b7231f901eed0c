// Package search implements the Search API: embed a query, perform top-K
// cosine search, and resolve payloads against the Corpus Store.
package search

import (
	"context"
	"errors"

	"github.com/fabfab/faqvec/internal/corpus"
	"github.com/fabfab/faqvec/internal/embeddings"
	"github.com/fabfab/faqvec/internal/faqerrors"
	"github.com/fabfab/faqvec/internal/reconciler"
	"github.com/fabfab/faqvec/internal/vectorstore"
)

// overfetchFactor widens the top-K request to the Vector Store so that,
// after de-duplicating multi-chunk records down to one hit each, there
// are still enough candidates left to fill k results.
const overfetchFactor = 3

// Hit is a single resolved, ranked search result.
type Hit struct {
	PayloadIndex int
	Question     string
	Answer       string
	Category     string
	Audience     string
	Keywords     []string
	Similarity   float64
	Rank         int
}

// API is the Search API: embeds a query, asks the Vector Store for
// candidates, and resolves payloads against the Corpus Store.
type API struct {
	corpusStore *corpus.Store
	store       *vectorstore.Store
	embedder    embeddings.Client
	reconciler  *reconciler.Reconciler
	defaultK    int
	maxK        int
}

// New constructs a Search API wired to the given collaborators. defaultK
// and maxK bound the k parameter accepted from callers.
func New(corpusStore *corpus.Store, store *vectorstore.Store, embedder embeddings.Client, rec *reconciler.Reconciler, defaultK, maxK int) *API {
	return &API{
		corpusStore: corpusStore,
		store:       store,
		embedder:    embedder,
		reconciler:  rec,
		defaultK:    defaultK,
		maxK:        maxK,
	}
}

// Search runs the Search API contract: if not yet initialized, run the
// Reconciler synchronously; embed queryText; ask the Vector Store for
// top-(k*overfetchFactor); de-duplicate by payload index keeping the
// highest score; resolve against the Corpus Store; truncate to k.
//
// A zero-vector query embedding is not an error: it returns an empty hit
// list without surfacing faqerrors.ErrQueryDegenerate to the caller. A
// payload index that no longer resolves against the corpus is skipped
// silently, since it indicates a stale chunk pending reconciliation.
func (a *API) Search(ctx context.Context, queryText string, k int) ([]Hit, error) {
	if err := a.reconciler.EnsureReady(ctx); err != nil {
		return nil, err
	}

	k = clamp(k, a.defaultK, 1, a.maxK)

	queryVector, err := a.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, err
	}

	if isZeroVector(queryVector) {
		return []Hit{}, nil
	}

	candidates := a.store.Search(queryVector, k*overfetchFactor)

	// candidates arrives sorted by descending score, so the first chunk
	// seen for a given payload index is already its highest-scoring one;
	// de-duplication is just "keep the first occurrence."
	seen := make(map[int]bool, len(candidates))

	hits := make([]Hit, 0, k)
	for _, c := range candidates {
		if seen[c.PayloadIndex] {
			continue
		}
		seen[c.PayloadIndex] = true

		rec, err := a.corpusStore.Get(c.PayloadIndex)
		if err != nil {
			if errors.Is(err, faqerrors.ErrCorpusUnavailable) {
				// Stale chunk: reconciliation pending or failed for this
				// index. Skip it silently rather than fail the whole query.
				continue
			}
			return nil, err
		}

		hits = append(hits, Hit{
			PayloadIndex: c.PayloadIndex,
			Question:     rec.Question,
			Answer:       rec.Answer,
			Category:     rec.Category,
			Audience:     rec.Audience,
			Keywords:     rec.Keywords,
			Similarity:   c.Score,
			Rank:         len(hits) + 1,
		})

		if len(hits) >= k {
			break
		}
	}

	return hits, nil
}

func clamp(k, fallback, lo, hi int) int {
	if k <= 0 {
		k = fallback
	}
	if k < lo {
		k = lo
	}
	if k > hi {
		k = hi
	}
	return k
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
