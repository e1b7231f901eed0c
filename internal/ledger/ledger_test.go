package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	indicesPath := filepath.Join(dir, "indices.json")
	corpusHashPath := filepath.Join(dir, "corpus_hash.json")

	l := Ledger{
		IndicesHash: map[string]string{"0": "aaa", "1": "bbb"},
		CorpusHash:  "ccc",
	}
	require.NoError(t, Save(indicesPath, corpusHashPath, l))

	loaded, found, err := Load(indicesPath, corpusHashPath)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, l.IndicesHash, loaded.IndicesHash)
	assert.Equal(t, l.CorpusHash, loaded.CorpusHash)
}

func TestLoad_MissingFilesYieldEmptyLedger(t *testing.T) {
	dir := t.TempDir()
	loaded, found, err := Load(filepath.Join(dir, "indices.json"), filepath.Join(dir, "corpus_hash.json"))

	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, loaded.IndicesHash)
	assert.Empty(t, loaded.CorpusHash)
}

func TestLoad_CorruptIndicesFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	indicesPath := filepath.Join(dir, "indices.json")
	corpusHashPath := filepath.Join(dir, "corpus_hash.json")
	require.NoError(t, os.WriteFile(indicesPath, []byte("not json"), 0o644))

	_, _, err := Load(indicesPath, corpusHashPath)
	assert.Error(t, err)
}

func TestNew_ReturnsEmptyInitializedLedger(t *testing.T) {
	l := New()
	assert.NotNil(t, l.IndicesHash)
	assert.Empty(t, l.IndicesHash)
	assert.Empty(t, l.CorpusHash)
}
