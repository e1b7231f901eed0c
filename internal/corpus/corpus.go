// Package corpus is the Corpus Store: the authoritative list of QA
// records, read by the hasher, reconciler, and search API, and mutated by
// the external CRUD surface. Each write loads the whole file, mutates the
// in-memory slice, and marshals it back out; a gofrs/flock file lock
// guards writes against other processes touching the same path.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/fabfab/faqvec/internal/faqerrors"
	"github.com/fabfab/faqvec/internal/qarecord"
)

// Store is a file-backed, process-local handle on the corpus file. Safe
// for concurrent use by multiple goroutines in this process; a
// gofrs/flock file lock additionally guards writes against other
// processes touching the same path.
type Store struct {
	path string
	mu   sync.Mutex
}

// New constructs a Store rooted at path. The parent directory is created
// if missing; the file itself is not created until the first write.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create corpus directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the corpus file path, e.g. for the Corpus Hasher's
// whole-file fingerprint step.
func (s *Store) Path() string {
	return s.path
}

// ReadAll loads and parses the authoritative corpus file. A missing file
// reads as an empty corpus and is not reported as an error; a file that
// can't be read or parsed is reported as faqerrors.ErrCorpusUnavailable.
func (s *Store) ReadAll() ([]qarecord.Record, error) {
	data, err := s.readRaw()
	if err != nil {
		return nil, err
	}
	return parseRecords(data)
}

// ReadRaw returns the corpus file's raw bytes, for the Corpus Hasher's
// whole-file fingerprint.
func (s *Store) ReadRaw() ([]byte, error) {
	return s.readRaw()
}

func (s *Store) readRaw() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("[]"), nil
		}
		return nil, fmt.Errorf("%w: %v", faqerrors.ErrCorpusUnavailable, err)
	}
	return data, nil
}

func parseRecords(data []byte) ([]qarecord.Record, error) {
	var records []qarecord.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", faqerrors.ErrCorpusUnavailable, err)
	}
	return records, nil
}

// Get returns the record at position i. i must be within [0, len).
func (s *Store) Get(i int) (qarecord.Record, error) {
	records, err := s.ReadAll()
	if err != nil {
		return qarecord.Record{}, err
	}
	if i < 0 || i >= len(records) {
		return qarecord.Record{}, fmt.Errorf("%w: index %d out of range", faqerrors.ErrCorpusUnavailable, i)
	}
	return records[i], nil
}

// Add appends a record and returns its new positional index.
func (s *Store) Add(r qarecord.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("lock corpus file: %w", err)
	}
	defer lock.Unlock()

	records, err := s.ReadAll()
	if err != nil {
		return 0, err
	}

	records = append(records, r)
	if err := s.writeAll(records); err != nil {
		return 0, err
	}
	return len(records) - 1, nil
}

// Update replaces the record at position i in place.
func (s *Store) Update(i int, r qarecord.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock corpus file: %w", err)
	}
	defer lock.Unlock()

	records, err := s.ReadAll()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(records) {
		return fmt.Errorf("%w: index %d out of range", faqerrors.ErrCorpusUnavailable, i)
	}

	records[i] = r
	return s.writeAll(records)
}

// Delete removes the record at position i, shifting every later record's
// positional identity down by one. This is why a delete makes every
// later index look "changed" to the Reconciler's fingerprint diff: the
// record at that index is now a different record.
func (s *Store) Delete(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock corpus file: %w", err)
	}
	defer lock.Unlock()

	records, err := s.ReadAll()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(records) {
		return fmt.Errorf("%w: index %d out of range", faqerrors.ErrCorpusUnavailable, i)
	}

	records = append(records[:i], records[i+1:]...)
	return s.writeAll(records)
}

func (s *Store) writeAll(records []qarecord.Record) error {
	if records == nil {
		records = []qarecord.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	// Write to a sibling file and rename it over the corpus, so a reader
	// sees either the old or the new file, never a partly written one.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write corpus: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace corpus: %w", err)
	}
	return nil
}
