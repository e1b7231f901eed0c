package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/faqvec/internal/chatapi"
	"github.com/fabfab/faqvec/internal/chunking"
	"github.com/fabfab/faqvec/internal/config"
	"github.com/fabfab/faqvec/internal/corpus"
	"github.com/fabfab/faqvec/internal/qarecord"
	"github.com/fabfab/faqvec/internal/reconciler"
	"github.com/fabfab/faqvec/internal/search"
	"github.com/fabfab/faqvec/internal/vectorstore"
)

type stubEmbedder struct{ dim int }

func (e *stubEmbedder) Dimension() int { return e.dim }
func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type stubChatClient struct{ reply string }

func (c *stubChatClient) Generate(ctx context.Context, messages []chatapi.ChatMessage) (string, error) {
	return c.reply, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	corpusStore, err := corpus.New(filepath.Join(dir, "corpus.json"))
	require.NoError(t, err)

	store := vectorstore.New()
	embedder := &stubEmbedder{dim: 2}
	rec := reconciler.New(
		corpusStore, store, embedder,
		chunking.Config{Size: 1000, Overlap: 100},
		filepath.Join(dir, "cache.json"),
		filepath.Join(dir, "ledger_indices.json"),
		filepath.Join(dir, "ledger_corpus_hash.json"),
	)

	searchAPI := search.New(corpusStore, store, embedder, rec, 10, 50)

	history, err := chatapi.NewHistoryStore(filepath.Join(dir, "chat"))
	require.NoError(t, err)

	orch := chatapi.NewOrchestrator(searchAPI, &stubChatClient{reply: "canned answer"}, history)

	return New(config.Config{}, corpusStore, rec, searchAPI, orch, history)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleCreateRecord_RejectsEmptyQuestion(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/records", qarecord.Record{Question: "", Answer: "a"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateRecord_ThenListRecords(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/api/records", qarecord.Record{Question: "q1", Answer: "a1"})
	require.Equal(t, http.StatusCreated, createRec.Code)

	listRec := doJSON(t, s, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, listRec.Code)

	var payload struct {
		Records []qarecord.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &payload))
	require.Len(t, payload.Records, 1)
	assert.Equal(t, "q1", payload.Records[0].Question)
}

func TestHandleGetRecord_UnknownIDReturnsNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/records/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSearch_RejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/search", map[string]any{"query": "  ", "k": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_ReturnsHitsForIndexedRecord(t *testing.T) {
	s := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/api/records", qarecord.Record{Question: "q1", Answer: "a1"})
	require.Equal(t, http.StatusCreated, createRec.Code)

	rec := doJSON(t, s, http.MethodPost, "/api/search", map[string]any{"query": "q1", "k": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Hits []search.Hit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.Hits)
}

func TestConversationLifecycle_CreateThenPostThenGetMessages(t *testing.T) {
	s := newTestServer(t)

	createConv := doJSON(t, s, http.MethodPost, "/api/conversations", nil)
	require.Equal(t, http.StatusCreated, createConv.Code)
	var convPayload struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(createConv.Body.Bytes(), &convPayload))
	require.NotEmpty(t, convPayload.ID)

	postMsg := doJSON(t, s, http.MethodPost, "/api/conversations/"+convPayload.ID+"/messages", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusOK, postMsg.Code)

	var msgPayload struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(postMsg.Body.Bytes(), &msgPayload))
	assert.Equal(t, "assistant", msgPayload.Message.Role)
	assert.Equal(t, "canned answer", msgPayload.Message.Content)

	getMsgs := doJSON(t, s, http.MethodGet, "/api/conversations/"+convPayload.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, getMsgs.Code)

	var history struct {
		Messages []chatapi.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(getMsgs.Body.Bytes(), &history))
	require.Len(t, history.Messages, 2)
}

func TestHandlePostMessage_RejectsEmptyContent(t *testing.T) {
	s := newTestServer(t)
	createConv := doJSON(t, s, http.MethodPost, "/api/conversations", nil)
	require.Equal(t, http.StatusCreated, createConv.Code)
	var convPayload struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(createConv.Body.Bytes(), &convPayload))

	rec := doJSON(t, s, http.MethodPost, "/api/conversations/"+convPayload.ID+"/messages", map[string]string{"content": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
