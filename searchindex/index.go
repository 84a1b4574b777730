// Package searchindex provides full-text lookup over extracted prompt
// metadata for the gallery's search box.
package searchindex

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/comfygallery/comfymeta/extract"
)

// Entry is the indexed view of one image.
type Entry struct {
	Path     string
	Positive string
	Negative string
	Model    string
	Loras    string
	Mtime    int64
	Size     int64
}

// Result is one search hit.
type Result struct {
	Path     string
	Positive string
	Negative string
	Model    string
	Score    int
}

// Index is an in-memory inverted index over the searchable fields. All
// methods are safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	// token -> path -> occurrence count
	tokens map[string]map[string]int
}

func New() *Index {
	return &Index{
		entries: make(map[string]*Entry),
		tokens:  make(map[string]map[string]int),
	}
}

// IndexFile inserts or replaces the entry for a relative path.
func (ix *Index) IndexFile(path string, fields extract.Fields, mtime, size int64) {
	entry := &Entry{
		Path:     path,
		Positive: fields.Get(extract.FieldPositive),
		Negative: fields.Get(extract.FieldNegative),
		Model:    fields.Get(extract.FieldModel),
		Loras:    fields.Get(extract.FieldLoras),
		Mtime:    mtime,
		Size:     size,
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(path)
	ix.entries[path] = entry
	for token, count := range tokenCounts(entry.Positive, entry.Negative, entry.Model, entry.Loras, path) {
		postings, ok := ix.tokens[token]
		if !ok {
			postings = make(map[string]int)
			ix.tokens[token] = postings
		}
		postings[path] = count
	}
}

// Remove drops the entry for a path.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(path)
}

func (ix *Index) removeLocked(path string) {
	if _, ok := ix.entries[path]; !ok {
		return
	}
	delete(ix.entries, path)
	for token, postings := range ix.tokens {
		delete(postings, path)
		if len(postings) == 0 {
			delete(ix.tokens, token)
		}
	}
}

// Len reports the number of indexed files.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search matches every query term (prefix match per term, AND across
// terms) and ranks by total occurrence count, ties broken by path for a
// deterministic order.
func (ix *Index) Search(query string, limit int) []Result {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 20
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[string]int)
	for i, term := range terms {
		termScores := make(map[string]int)
		for token, postings := range ix.tokens {
			if !strings.HasPrefix(token, term) {
				continue
			}
			for path, count := range postings {
				termScores[path] += count
			}
		}
		if i == 0 {
			scores = termScores
			continue
		}
		for path := range scores {
			add, ok := termScores[path]
			if !ok {
				delete(scores, path)
				continue
			}
			scores[path] += add
		}
	}

	results := make([]Result, 0, len(scores))
	for path, score := range scores {
		e := ix.entries[path]
		if e == nil {
			continue
		}
		results = append(results, Result{
			Path:     e.Path,
			Positive: e.Positive,
			Negative: e.Negative,
			Model:    e.Model,
			Score:    score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func tokenCounts(texts ...string) map[string]int {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, token := range tokenize(text) {
			if len(token) < 2 {
				continue
			}
			counts[token]++
		}
	}
	return counts
}
