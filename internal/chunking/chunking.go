// Package chunking splits a QA record's searchable text into fixed-size,
// overlapping windows ahead of embedding, and builds the inline metadata
// tag that is prefixed onto the text handed to the Embedding Client.
package chunking

import (
	"fmt"
	"strings"

	"github.com/fabfab/faqvec/internal/qarecord"
)

// Config controls chunk size and overlap. Size is the target number of
// characters per chunk; Overlap is how many trailing characters of one
// chunk are repeated at the start of the next.
type Config struct {
	Size    int
	Overlap int
}

// Piece is one window of text to be embedded for a given payload index.
type Piece struct {
	PayloadIndex int
	Text         string
}

// Split breaks a record's searchable text into one or more Pieces, each
// tagged with the record's payload index and prefixed with a defensive
// inline metadata tag. Records whose searchable text is smaller than the
// configured chunk size produce exactly one Piece.
func Split(payloadIndex int, r qarecord.Record, cfg Config) []Piece {
	size := cfg.Size
	if size <= 0 {
		size = 1000
	}
	overlap := cfg.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	text := r.SearchableText()
	tag := metadataTag(payloadIndex, r)

	windows := windowText(text, size, overlap)
	pieces := make([]Piece, 0, len(windows))
	for _, w := range windows {
		pieces = append(pieces, Piece{
			PayloadIndex: payloadIndex,
			Text:         tag + "\n\n" + w,
		})
	}
	return pieces
}

// windowText splits text into overlapping windows of at most size
// characters. A text shorter than or equal to size yields exactly one
// window (possibly empty).
func windowText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}

// metadataTag renders a defensive inline metadata tag carrying the same
// fields as the Chunk itself. The primary source of truth for resolving a
// Chunk back to its QA record remains the PayloadIndex field on the Chunk;
// this tag is redundancy for any path that doesn't preserve structured
// metadata end to end.
func metadataTag(payloadIndex int, r qarecord.Record) string {
	return fmt.Sprintf(
		"[INDEX:%d][QUESTION:%s][ANSWER:%s][CATEGORY:%s][AUDIENCE:%s][KEYWORDS:%s]",
		payloadIndex,
		r.Question,
		r.Answer,
		r.Category,
		r.Audience,
		strings.Join(r.Keywords, ","),
	)
}
