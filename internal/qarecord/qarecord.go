// Package qarecord defines the QA Record data model shared by the corpus
// store, hasher, reconciler, and search API.
package qarecord

// Record is a single question/answer entry with auxiliary fields. Its
// identity is positional: the record's zero-based index in the corpus
// slice at the time of the last reconciliation, not a stored field.
type Record struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category"`
	Audience string   `json:"audience"`
	Keywords []string `json:"keywords"`
}

// SearchableText is the concatenation of Question, Keywords, Category,
// and Audience, space-separated, with empty fields omitted. It is the
// text handed to the chunker ahead of embedding.
func (r Record) SearchableText() string {
	parts := make([]string, 0, 4)
	if r.Question != "" {
		parts = append(parts, r.Question)
	}
	if len(r.Keywords) > 0 {
		parts = append(parts, joinNonEmpty(r.Keywords, " "))
	}
	if r.Category != "" {
		parts = append(parts, r.Category)
	}
	if r.Audience != "" {
		parts = append(parts, r.Audience)
	}
	return joinNonEmpty(parts, " ")
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out == "" {
			out = p
			continue
		}
		out += sep + p
	}
	return out
}
