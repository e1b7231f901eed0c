package corpus

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/faqvec/internal/qarecord"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "corpus.json"))
	require.NoError(t, err)
	return s
}

func TestReadAll_MissingFileIsEmptyCorpus(t *testing.T) {
	s := newStore(t)
	records, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAdd_ReturnsPositionalIndex(t *testing.T) {
	s := newStore(t)

	idx0, err := s.Add(qarecord.Record{Question: "q0"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx0)

	idx1, err := s.Add(qarecord.Record{Question: "q1"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx1)
}

func TestUpdate_ReplacesRecordInPlace(t *testing.T) {
	s := newStore(t)
	idx, err := s.Add(qarecord.Record{Question: "old"})
	require.NoError(t, err)

	require.NoError(t, s.Update(idx, qarecord.Record{Question: "new"}))

	rec, err := s.Get(idx)
	require.NoError(t, err)
	assert.Equal(t, "new", rec.Question)
}

func TestDelete_ShiftsLaterIndicesDown(t *testing.T) {
	s := newStore(t)
	_, err := s.Add(qarecord.Record{Question: "q0"})
	require.NoError(t, err)
	_, err = s.Add(qarecord.Record{Question: "q1"})
	require.NoError(t, err)
	_, err = s.Add(qarecord.Record{Question: "q2"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(0))

	records, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "q1", records[0].Question)
	assert.Equal(t, "q2", records[1].Question)
}

func TestGet_OutOfRangeReturnsError(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(0)
	assert.Error(t, err)
}

func TestReadRaw_MatchesReadAll(t *testing.T) {
	s := newStore(t)
	_, err := s.Add(qarecord.Record{Question: "q0"})
	require.NoError(t, err)

	raw, err := s.ReadRaw()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "q0")
}
