// Package hashing computes the fingerprints the Reconciler uses to detect
// which QA records have changed since the last reconciliation. Fingerprints
// are used only for change detection; there is no security claim attached
// to them, so md5 is picked purely for its speed and ubiquity.
package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/fabfab/faqvec/internal/qarecord"
)

// fieldSep separates canonical-form fields. A literal unit separator is
// used instead of a printable character so that no legitimate QA field
// content can forge a collision by straddling a field boundary.
const fieldSep = "\x1f"

// RecordFingerprint returns a 128-bit MD5 digest, rendered as lowercase
// hex, of the record's canonical form. The canonical form is insensitive
// to keyword ordering and sensitive to any edit of Question, Answer,
// Category, Audience, or the keyword set.
func RecordFingerprint(r qarecord.Record) string {
	keywords := make([]string, len(r.Keywords))
	copy(keywords, r.Keywords)
	sort.Strings(keywords)

	canonical := strings.Join([]string{
		r.Question,
		r.Answer,
		r.Category,
		r.Audience,
		strings.Join(keywords, ","),
	}, fieldSep)

	sum := md5.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// CorpusFingerprint returns a 128-bit MD5 digest, rendered as lowercase
// hex, of the raw corpus file bytes. It is used as a coarse fast-path
// short-circuit ahead of the per-record comparison.
func CorpusFingerprint(raw []byte) string {
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}
