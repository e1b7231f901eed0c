package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabfab/faqvec/internal/chatapi"
	"github.com/fabfab/faqvec/internal/chunking"
	"github.com/fabfab/faqvec/internal/config"
	"github.com/fabfab/faqvec/internal/corpus"
	"github.com/fabfab/faqvec/internal/embeddings"
	"github.com/fabfab/faqvec/internal/reconciler"
	"github.com/fabfab/faqvec/internal/search"
	"github.com/fabfab/faqvec/internal/server"
	"github.com/fabfab/faqvec/internal/vectorstore"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("faqvec dev build")
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	corpusStore, err := corpus.New(cfg.Corpus.Path)
	if err != nil {
		log.Fatalf("failed to set up corpus store: %v", err)
	}

	history, err := chatapi.NewHistoryStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to set up chat history store: %v", err)
	}

	embedder := embeddings.New(cfg.Embed.BaseURL, cfg.Embed.APIKey, cfg.Embed.Model, cfg.Embed.Dimension, embeddings.WithTimeout(90*time.Second))

	store := vectorstore.New()

	chunkCfg := chunking.Config{Size: cfg.Chunk.Size, Overlap: cfg.Chunk.Overlap}
	rec := reconciler.New(corpusStore, store, embedder, chunkCfg, cfg.Corpus.CachePath, cfg.Corpus.LedgerIndicesPath, cfg.Corpus.LedgerCorpusHashPath)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rec.EnsureReady(ctx); err != nil {
		log.Fatalf("failed initial reconciliation: %v", err)
	}

	searchAPI := search.New(corpusStore, store, embedder, rec, cfg.Search.DefaultK, cfg.Search.MaxK)
	chatClient := chatapi.NewChatClient(cfg.Chat.Host, cfg.Chat.Model)
	orchestrator := chatapi.NewOrchestrator(searchAPI, chatClient, history)

	srv := server.New(cfg, corpusStore, rec, searchAPI, orchestrator, history)

	httpServer := &http.Server{
		Addr:    cfg.Address,
		Handler: srv,
	}

	log.Printf("starting server on %s (data dir: %s, embedding model: %s)", cfg.Address, cfg.DataDir, cfg.Embed.Model)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	waitForShutdown(httpServer)
}

func waitForShutdown(srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		if err := srv.Close(); err != nil {
			log.Printf("forced close failed: %v", err)
		}
	}

	log.Println("server stopped")
}
