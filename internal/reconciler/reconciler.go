// Package reconciler implements the Reconciler: the component that diffs
// the current corpus against the last-known fingerprints and drives
// add/replace/delete against the Vector Store through the Embedding
// Client.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fabfab/faqvec/internal/cache"
	"github.com/fabfab/faqvec/internal/chunking"
	"github.com/fabfab/faqvec/internal/corpus"
	"github.com/fabfab/faqvec/internal/embeddings"
	"github.com/fabfab/faqvec/internal/hashing"
	"github.com/fabfab/faqvec/internal/ledger"
	"github.com/fabfab/faqvec/internal/vectorstore"
)

// coalesceKey is the constant singleflight key reconciliation calls are
// coalesced under. There is only ever one reconciliation in flight, so a
// single key is sufficient.
const coalesceKey = "reconcile"

// Reconciler owns the lifecycle of bringing the Vector Store, Cache
// Artifact, and Fingerprint Ledger into agreement with the current
// Corpus Store.
type Reconciler struct {
	corpusStore *corpus.Store
	store       *vectorstore.Store
	embedder    embeddings.Client
	chunkCfg    chunking.Config

	cachePath            string
	ledgerIndicesPath    string
	ledgerCorpusHashPath string

	group singleflight.Group

	mu          sync.Mutex
	initialized bool
}

// New constructs a Reconciler wired to the given Corpus Store, Vector
// Store, and Embedding Client.
func New(
	corpusStore *corpus.Store,
	store *vectorstore.Store,
	embedder embeddings.Client,
	chunkCfg chunking.Config,
	cachePath, ledgerIndicesPath, ledgerCorpusHashPath string,
) *Reconciler {
	return &Reconciler{
		corpusStore:          corpusStore,
		store:                store,
		embedder:             embedder,
		chunkCfg:             chunkCfg,
		cachePath:            cachePath,
		ledgerIndicesPath:    ledgerIndicesPath,
		ledgerCorpusHashPath: ledgerCorpusHashPath,
	}
}

// EnsureReady runs the Reconciler exactly once if it has not yet run in
// this process. Concurrent callers of the first query coalesce onto the
// same reconciliation pass.
func (r *Reconciler) EnsureReady(ctx context.Context) error {
	r.mu.Lock()
	ready := r.initialized
	r.mu.Unlock()
	if ready {
		return nil
	}

	if err := r.Refresh(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.initialized = true
	r.mu.Unlock()
	return nil
}

// Refresh runs a single reconciliation pass unconditionally. It is called
// once at process start (via EnsureReady) and after each external CRUD
// mutation of the corpus. At most one reconciliation is in flight at any
// time: overlapping calls coalesce onto the same in-flight pass via
// singleflight, so a caller that arrives after a pass has started waits
// for it and observes its results rather than starting a redundant one.
func (r *Reconciler) Refresh(ctx context.Context) error {
	_, err, _ := r.group.Do(coalesceKey, func() (any, error) {
		return nil, r.reconcileOnce(ctx)
	})
	return err
}

func (r *Reconciler) reconcileOnce(ctx context.Context) error {
	raw, err := r.corpusStore.ReadRaw()
	if err != nil {
		return err
	}
	records, err := r.corpusStore.ReadAll()
	if err != nil {
		return err
	}

	currCorpusHash := hashing.CorpusFingerprint(raw)
	curr := make(map[int]string, len(records))
	for i, rec := range records {
		curr[i] = hashing.RecordFingerprint(rec)
	}

	prevLedger, _, err := ledger.Load(r.ledgerIndicesPath, r.ledgerCorpusHashPath)
	if err != nil {
		log.Printf("warning: fingerprint ledger unreadable, treating as absent: %v", err)
		prevLedger = ledger.New()
	}

	r.store.Init(r.embedder.Dimension())

	// An empty in-memory store means this is the first reconciliation in
	// this process: load any previously persisted Cache Artifact before
	// comparing against the ledger, so a restart doesn't discard
	// embeddings that are still valid. A corrupt or absent cache can't
	// back the ledger's claims, so either one forces every record to be
	// treated as new and fully re-embedded.
	if r.store.Count() == 0 {
		found, err := cache.Load(r.cachePath, r.store)
		if err != nil {
			log.Printf("warning: cache artifact corrupt, rebuilding from scratch: %v", err)
			prevLedger = ledger.New()
		} else if !found {
			prevLedger = ledger.New()
		}
	}

	// Fast path: corpus bytes are unchanged since the last reconciliation
	// and the Vector Store already holds data to match.
	if currCorpusHash != "" && currCorpusHash == prevLedger.CorpusHash && r.store.Count() > 0 {
		return nil
	}

	prev := prevLedger.IndicesHash
	var deleted, added, changed, unchanged []int

	for idxStr := range prev {
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		if _, ok := curr[idx]; !ok {
			deleted = append(deleted, idx)
		}
	}
	for idx := range curr {
		prevHash, ok := prev[strconv.Itoa(idx)]
		switch {
		case !ok:
			added = append(added, idx)
		case prevHash != curr[idx]:
			changed = append(changed, idx)
		default:
			unchanged = append(unchanged, idx)
		}
	}

	sort.Ints(deleted)
	sort.Ints(added)
	sort.Ints(changed)

	log.Printf("reconcile: %d deleted, %d added, %d changed, %d unchanged", len(deleted), len(added), len(changed), len(unchanged))

	for _, idx := range deleted {
		r.store.DeleteByPayloadIndex(idx)
		delete(prev, strconv.Itoa(idx))
	}

	for _, idx := range changed {
		// Drop stale chunks before re-embedding so no stale chunk ever
		// coexists with the replacement.
		r.store.DeleteByPayloadIndex(idx)
	}

	toEmbed := append(append([]int(nil), added...), changed...)
	sort.Ints(toEmbed)

	embedFailed := false
	for _, idx := range toEmbed {
		rec := records[idx]
		pieces := chunking.Split(idx, rec, r.chunkCfg)

		chunks := make([]vectorstore.Chunk, 0, len(pieces))
		embedErr := error(nil)
		for _, p := range pieces {
			vec, err := r.embedder.Embed(ctx, p.Text)
			if err != nil {
				embedErr = err
				break
			}
			chunks = append(chunks, vectorstore.Chunk{
				PayloadIndex: p.PayloadIndex,
				Text:         p.Text,
				Vector:       vec,
			})
		}

		if embedErr != nil {
			// Per-record failure: leave the record un-embedded, continue
			// reconciling the rest, and do not update the ledger for this
			// index so the next run retries it.
			log.Printf("warning: embedding failed for record %d: %v", idx, embedErr)
			if errors.Is(embedErr, context.Canceled) || errors.Is(embedErr, context.DeadlineExceeded) {
				return embedErr
			}
			embedFailed = true
			continue
		}

		if _, err := r.store.Insert(chunks); err != nil {
			log.Printf("warning: inserting chunks for record %d failed: %v", idx, err)
			embedFailed = true
			continue
		}

		prev[strconv.Itoa(idx)] = curr[idx]
	}

	if err := cache.Save(r.cachePath, r.store); err != nil {
		return fmt.Errorf("persist cache artifact: %w", err)
	}

	// The ledger is written only after the Cache Artifact is durable, so a
	// crash between the two leaves the cache ahead of the ledger, never the
	// other way around; the next run simply re-embeds anything the ledger
	// doesn't yet credit.
	corpusHash := currCorpusHash
	if embedFailed {
		// Leave the corpus digest unset so the next pass skips the fast
		// path and retries the records that failed.
		corpusHash = ""
	}
	newLedger := ledger.Ledger{IndicesHash: prev, CorpusHash: corpusHash}
	if err := ledger.Save(r.ledgerIndicesPath, r.ledgerCorpusHashPath, newLedger); err != nil {
		return fmt.Errorf("persist fingerprint ledger: %w", err)
	}

	return nil
}
