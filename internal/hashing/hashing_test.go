package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/faqvec/internal/qarecord"
)

func TestRecordFingerprint_KeywordOrderInvariant(t *testing.T) {
	a := qarecord.Record{
		Question: "How do I reset my password?",
		Answer:   "Use the forgot password link.",
		Category: "account",
		Audience: "customer",
		Keywords: []string{"password", "reset", "login"},
	}
	b := a
	b.Keywords = []string{"reset", "login", "password"}

	assert.Equal(t, RecordFingerprint(a), RecordFingerprint(b))
}

func TestRecordFingerprint_KeywordsUnmutated(t *testing.T) {
	a := qarecord.Record{Question: "q", Keywords: []string{"b", "a"}}
	original := append([]string(nil), a.Keywords...)

	RecordFingerprint(a)

	assert.Equal(t, original, a.Keywords)
}

func TestRecordFingerprint_FieldSensitive(t *testing.T) {
	base := qarecord.Record{Question: "q", Answer: "a", Category: "c", Audience: "aud", Keywords: []string{"k"}}

	variants := []qarecord.Record{
		{Question: "q2", Answer: "a", Category: "c", Audience: "aud", Keywords: []string{"k"}},
		{Question: "q", Answer: "a2", Category: "c", Audience: "aud", Keywords: []string{"k"}},
		{Question: "q", Answer: "a", Category: "c2", Audience: "aud", Keywords: []string{"k"}},
		{Question: "q", Answer: "a", Category: "c", Audience: "aud2", Keywords: []string{"k"}},
		{Question: "q", Answer: "a", Category: "c", Audience: "aud", Keywords: []string{"k2"}},
	}

	baseSum := RecordFingerprint(base)
	for _, v := range variants {
		assert.NotEqual(t, baseSum, RecordFingerprint(v))
	}
}

func TestRecordFingerprint_NoFieldStraddlingCollision(t *testing.T) {
	a := qarecord.Record{Question: "ab", Answer: "c"}
	b := qarecord.Record{Question: "a", Answer: "bc"}

	assert.NotEqual(t, RecordFingerprint(a), RecordFingerprint(b))
}

func TestCorpusFingerprint_Deterministic(t *testing.T) {
	raw := []byte(`[{"question":"q"}]`)
	require.Equal(t, CorpusFingerprint(raw), CorpusFingerprint(append([]byte(nil), raw...)))
}

func TestCorpusFingerprint_ChangesWithBytes(t *testing.T) {
	assert.NotEqual(t, CorpusFingerprint([]byte("[]")), CorpusFingerprint([]byte(`[{"question":"q"}]`)))
}
