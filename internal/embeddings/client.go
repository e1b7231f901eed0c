// Package embeddings is the Embedding Client: it converts text into a
// fixed-dimension dense vector via an external HTTPS provider speaking
// the OpenAI-compatible {model, input} -> {data:[{embedding}]} wire
// format.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fabfab/faqvec/internal/faqerrors"
)

// Client converts text to a fixed-dimension dense vector. Retries are not
// automatic at this layer; the Reconciler chooses retry policy.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

type httpClient struct {
	baseURL   string
	apiKey    string
	model     string
	dimension int
	http      *http.Client

	// cache memoizes (model, text) -> vector within a process lifetime,
	// so embedding exactly the same text again (e.g. a repeated search
	// query) doesn't repeat the HTTP call. Chunk texts start with a tag
	// carrying the record's index and fields, so two records with
	// identical searchable text still embed as different texts. It never
	// changes which records the Reconciler decides to re-embed; it only
	// shortcuts the HTTP round trip.
	cache *lru.Cache[string, []float32]
}

// Option configures a Client constructed by New.
type Option func(*httpClient)

// WithTimeout overrides the default per-call HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) { c.http.Timeout = d }
}

// WithCacheSize overrides the default in-process memoization cache size.
func WithCacheSize(n int) Option {
	return func(c *httpClient) {
		cache, err := lru.New[string, []float32](n)
		if err == nil {
			c.cache = cache
		}
	}
}

// New constructs a Client backed by an OpenAI-compatible embeddings
// endpoint at baseURL (e.g. "https://api.openai.com/v1").
func New(baseURL, apiKey, model string, dimension int, opts ...Option) Client {
	cache, _ := lru.New[string, []float32](2048)

	c := &httpClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		http:      &http.Client{Timeout: 30 * time.Second},
		cache:     cache,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Dimension() int {
	return c.dimension
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) Embed(ctx context.Context, text string) ([]float32, error) {
	cacheKey := c.model + "\x00" + text
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v, nil
		}
	}

	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	reqBody, err := json.Marshal(embedRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", faqerrors.ErrEmbedRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", faqerrors.ErrEmbedTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faqerrors.ErrEmbedTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %s: %s", faqerrors.ErrEmbedRejected, resp.Status, string(data))
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %s: %s", faqerrors.ErrEmbedTransport, resp.Status, string(data))
	}

	var payload embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", faqerrors.ErrEmbedRejected, err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("%w: %s", faqerrors.ErrEmbedRejected, payload.Error.Message)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding data", faqerrors.ErrEmbedRejected)
	}

	raw := payload.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	if c.dimension > 0 && len(vec) != c.dimension {
		return nil, fmt.Errorf("%w: expected %d got %d", faqerrors.ErrDimensionMismatch, c.dimension, len(vec))
	}

	if c.cache != nil {
		c.cache.Add(cacheKey, vec)
	}

	return vec, nil
}
