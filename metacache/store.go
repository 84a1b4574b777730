package metacache

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/zeebo/blake3"

	"github.com/comfygallery/comfymeta/extract"
)

// Record is one journal line: extracted fields for a file at a given
// (mtime, size) signature, or a tombstone.
type Record struct {
	Path    string         `json:"path"`
	Mtime   int64          `json:"mtime,omitempty"`
	Size    int64          `json:"size,omitempty"`
	Sig     string         `json:"sig,omitempty"`
	Fields  extract.Fields `json:"fields,omitempty"`
	Removed bool           `json:"remove,omitempty"`
	TS      int64          `json:"ts"`
}

// Store is an append-only JSONL journal of extraction results, replayed
// into memory on open. Append-only keeps writes cheap during indexing;
// Compact rewrites the journal atomically once tombstones accumulate.
type Store struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	latest map[string]Record
	log    *slog.Logger
}

// Open loads the journal at path, creating it (and its directory) when
// absent. Malformed lines are skipped: a torn final write must not poison
// the rest of the journal.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	s := &Store{
		path:   path,
		latest: make(map[string]Record),
		log:    slog.Default(),
	}

	if data, err := os.ReadFile(path); err == nil {
		s.replay(data)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s.file = file
	return s, nil
}

func (s *Store) replay(data []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	skipped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		if rec.Path == "" {
			continue
		}
		if rec.Removed {
			delete(s.latest, rec.Path)
			continue
		}
		s.latest[rec.Path] = rec
	}
	if skipped > 0 {
		s.log.Warn("metadata journal had malformed lines", "path", s.path, "skipped", skipped)
	}
}

// Signature hashes raw metadata bytes; a changed hash means the stored
// fields are stale even when mtime and size happen to match.
func Signature(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Get returns the stored fields when the (mtime, size) signature matches.
func (s *Store) Get(path string, mtime, size int64) (extract.Fields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.latest[path]
	if !ok || rec.Mtime != mtime || rec.Size != size {
		return nil, false
	}
	return rec.Fields, true
}

// HasValid reports whether an up-to-date entry exists for the file.
func (s *Store) HasValid(path string, mtime, size int64) bool {
	_, ok := s.Get(path, mtime, size)
	return ok
}

// Put inserts or replaces the stored fields for a file.
func (s *Store) Put(path string, mtime, size int64, raw []byte, fields extract.Fields) error {
	rec := Record{
		Path:   path,
		Mtime:  mtime,
		Size:   size,
		Fields: fields,
		TS:     time.Now().UnixNano(),
	}
	if len(raw) > 0 {
		rec.Sig = Signature(raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(rec); err != nil {
		return err
	}
	s.latest[path] = rec
	return nil
}

// Remove writes a tombstone for a deleted or modified file.
func (s *Store) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(Record{Path: path, Removed: true, TS: time.Now().UnixNano()}); err != nil {
		return err
	}
	delete(s.latest, path)
	return nil
}

// PurgePrefix removes every entry whose path starts with the prefix, the
// bulk operation behind folder deletes and moves.
func (s *Store) PurgePrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.latest {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if err := s.appendLocked(Record{Path: path, Removed: true, TS: time.Now().UnixNano()}); err != nil {
			return err
		}
		delete(s.latest, path)
	}
	return nil
}

func (s *Store) appendLocked(rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.file.Write(append(payload, '\n')); err != nil {
		return err
	}
	return nil
}

// Records returns a snapshot of every live entry, for rebuilding derived
// structures like the search index.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.latest))
	for _, rec := range s.latest {
		out = append(out, rec)
	}
	return out
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.latest)
}

// Compact rewrites the journal to its live entries only. The replacement
// is written atomically so a crash mid-compaction leaves the old journal
// intact.
func (s *Store) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	for _, rec := range s.latest {
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		buf.Write(payload)
		buf.WriteByte('\n')
	}

	if err := s.file.Close(); err != nil {
		return err
	}
	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return err
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.file = file
	return nil
}

// Close flushes and closes the journal handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
