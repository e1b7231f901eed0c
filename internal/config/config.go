package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config captures all runtime configuration for the application.
type Config struct {
	Address string
	DataDir string
	Corpus  CorpusConfig
	Embed   EmbeddingConfig
	Chunk   ChunkConfig
	Search  SearchConfig
	Chat    ChatConfig
}

// CorpusConfig describes where the authoritative corpus and its derived
// artifacts live on disk.
type CorpusConfig struct {
	Path                 string
	CachePath            string
	LedgerIndicesPath    string
	LedgerCorpusHashPath string
}

// EmbeddingConfig describes the embedding provider settings.
type EmbeddingConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// ChunkConfig controls how QA record text is split before embedding.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// SearchConfig bounds the k parameter accepted by the Search API.
type SearchConfig struct {
	DefaultK int
	MaxK     int
}

// ChatConfig groups the settings required to talk to the conversational
// LLM collaborator.
type ChatConfig struct {
	Host  string
	Model string
}

// FromEnv builds a Config by reading environment variables and applying
// sensible defaults. The resulting configuration is validated before it is
// returned.
func FromEnv() (Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")

	cfg := Config{
		Address: getEnv("SERVER_ADDR", "127.0.0.1:8080"),
		DataDir: dataDir,
		Corpus: CorpusConfig{
			Path:                 getEnv("CORPUS_PATH", filepath.Join(dataDir, "corpus.json")),
			CachePath:            getEnv("CACHE_PATH", filepath.Join(dataDir, "cache.json")),
			LedgerIndicesPath:    getEnv("LEDGER_INDICES_PATH", filepath.Join(dataDir, "ledger_indices.json")),
			LedgerCorpusHashPath: getEnv("LEDGER_CORPUS_HASH_PATH", filepath.Join(dataDir, "ledger_corpus_hash.json")),
		},
		Embed: EmbeddingConfig{
			APIKey:    getEnv("EMBEDDING_API_KEY", ""),
			BaseURL:   strings.TrimRight(getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"), "/"),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		},
		Chunk: ChunkConfig{
			Size:    getEnvInt("CHUNK_SIZE", 1000),
			Overlap: getEnvInt("CHUNK_OVERLAP", 100),
		},
		Search: SearchConfig{
			DefaultK: getEnvInt("SEARCH_DEFAULT_K", 10),
			MaxK:     getEnvInt("SEARCH_MAX_K", 50),
		},
		Chat: ChatConfig{
			Host:  strings.TrimRight(getEnv("CHAT_LLM_HOST", "http://localhost:11434"), "/"),
			Model: getEnv("CHAT_LLM_MODEL", "llama3.1:8b"),
		},
	}

	if !filepath.IsAbs(cfg.DataDir) {
		abs, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			return Config{}, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = abs
	}

	if cfg.Embed.APIKey == "" {
		return Config{}, fmt.Errorf("EMBEDDING_API_KEY must not be empty")
	}

	if cfg.Embed.Model == "" {
		return Config{}, fmt.Errorf("EMBEDDING_MODEL must not be empty")
	}

	if cfg.Embed.Dimension <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIMENSION must be positive")
	}

	if cfg.Corpus.Path == "" {
		return Config{}, fmt.Errorf("CORPUS_PATH must not be empty")
	}

	if cfg.Chunk.Size <= 0 {
		cfg.Chunk.Size = 1000
	}
	if cfg.Chunk.Overlap < 0 || cfg.Chunk.Overlap >= cfg.Chunk.Size {
		cfg.Chunk.Overlap = 100
	}

	if cfg.Search.DefaultK <= 0 {
		cfg.Search.DefaultK = 10
	}
	if cfg.Search.MaxK <= 0 {
		cfg.Search.MaxK = 50
	}
	if cfg.Search.DefaultK > cfg.Search.MaxK {
		cfg.Search.DefaultK = cfg.Search.MaxK
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
