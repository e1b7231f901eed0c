package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/fabfab/faqvec/internal/chatapi"
	"github.com/fabfab/faqvec/internal/config"
	"github.com/fabfab/faqvec/internal/corpus"
	"github.com/fabfab/faqvec/internal/faqerrors"
	"github.com/fabfab/faqvec/internal/qarecord"
	"github.com/fabfab/faqvec/internal/reconciler"
	"github.com/fabfab/faqvec/internal/search"
)

// Server wires HTTP handlers to the underlying corpus, search, and chat
// services.
type Server struct {
	cfg          config.Config
	router       http.Handler
	corpusStore  *corpus.Store
	reconciler   *reconciler.Reconciler
	searchAPI    *search.API
	orchestrator *chatapi.Orchestrator
	history      *chatapi.HistoryStore
}

// New constructs a Server with the provided dependencies.
func New(
	cfg config.Config,
	corpusStore *corpus.Store,
	rec *reconciler.Reconciler,
	searchAPI *search.API,
	orchestrator *chatapi.Orchestrator,
	history *chatapi.HistoryStore,
) *Server {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Logger)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		cfg:          cfg,
		router:       mux,
		corpusStore:  corpusStore,
		reconciler:   rec,
		searchAPI:    searchAPI,
		orchestrator: orchestrator,
		history:      history,
	}

	mux.Get("/api/health", s.handleHealth)

	mux.Get("/api/records", s.handleListRecords)
	mux.Post("/api/records", s.handleCreateRecord)
	mux.Get("/api/records/{id}", s.handleGetRecord)
	mux.Put("/api/records/{id}", s.handleUpdateRecord)
	mux.Delete("/api/records/{id}", s.handleDeleteRecord)

	mux.Post("/api/search", s.handleSearch)

	mux.Post("/api/conversations", s.handleCreateConversation)
	mux.Get("/api/conversations/{id}/messages", s.handleGetMessages)
	mux.Post("/api/conversations/{id}/messages", s.handlePostMessage)

	return s
}

// ServeHTTP exposes the router so Server satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.corpusStore.ReadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("list records: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseRecordID(w, r)
	if !ok {
		return
	}
	rec, err := s.corpusStore.Get(idx)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec})
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec qarecord.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(rec.Question) == "" {
		writeError(w, http.StatusBadRequest, errors.New("question must not be empty"))
		return
	}

	idx, err := s.corpusStore.Add(rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("add record: %w", err))
		return
	}

	if err := s.reconciler.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reconcile after add: %w", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": idx, "record": rec})
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	var rec qarecord.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if err := s.corpusStore.Update(idx, rec); err != nil {
		if errors.Is(err, faqerrors.ErrCorpusUnavailable) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("update record: %w", err))
		return
	}

	if err := s.reconciler.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reconcile after update: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": idx, "record": rec})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	idx, ok := parseRecordID(w, r)
	if !ok {
		return
	}

	if err := s.corpusStore.Delete(idx); err != nil {
		if errors.Is(err, faqerrors.ErrCorpusUnavailable) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Errorf("delete record: %w", err))
		return
	}

	if err := s.reconciler.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("reconcile after delete: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": idx})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	payload.Query = strings.TrimSpace(payload.Query)
	if payload.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query must not be empty"))
		return
	}

	hits, err := s.searchAPI.Search(r.Context(), payload.Query, payload.K)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("search: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	if err := s.history.EnsureConversation(id); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("prepare conversation: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing conversation id"))
		return
	}

	msgs, err := s.history.LoadHistory(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("load history: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing conversation id"))
		return
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	payload.Content = strings.TrimSpace(payload.Content)
	if payload.Content == "" {
		writeError(w, http.StatusBadRequest, errors.New("content must not be empty"))
		return
	}

	answer, hits, err := s.orchestrator.Ask(r.Context(), id, payload.Content)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("generate response: %w", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": map[string]any{"role": "assistant", "content": answer},
		"hits":    hits,
	})
}

func parseRecordID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid record id %q", raw))
		return 0, false
	}
	return idx, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Printf("failed to write JSON response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
	})
}
