// Package metacache memoizes extraction results per image and persists
// them across runs.
package metacache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/comfygallery/comfymeta/extract"
	"github.com/comfygallery/comfymeta/pngmeta"
)

// ExtractFunc produces extracted fields from raw metadata. Injected so the
// cache can be exercised with a stub.
type ExtractFunc func(*pngmeta.ImageMetadata) extract.Fields

// DefaultSize bounds the number of memoized entries.
const DefaultSize = 1024

// Key builds the stable image identity: the URL when one exists, otherwise
// folder plus name.
func Key(url, folder, name string) string {
	if url != "" {
		return url
	}
	return folder + "/" + name
}

type entry struct {
	fields  extract.Fields
	raw     *pngmeta.ImageMetadata
	pending bool
}

// Cache memoizes extraction output per image identity. An entry stays
// valid for as long as the caller presents the identical raw metadata
// pointer with the identical pending flag; anything else re-extracts.
// Pure memoization: no TTL, no background expiry. Invalidation is driven
// entirely by the surrounding application (delete, move, global reset).
//
// The cache owns its entries; callers must not mutate a returned Fields.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *entry]
	fn      ExtractFunc
}

func New(size int, fn ExtractFunc) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, *entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, fn: fn}, nil
}

// Fields returns the extracted fields for the image, re-running extraction
// only when the stored raw-metadata reference or pending flag changed.
// Identity is pointer identity: an equal-by-value but distinct raw object
// still re-extracts.
func (c *Cache) Fields(key string, raw *pngmeta.ImageMetadata, pending bool) extract.Fields {
	c.mu.Lock()
	if e, ok := c.entries.Get(key); ok && e.raw == raw && e.pending == pending {
		c.mu.Unlock()
		return e.fields
	}
	c.mu.Unlock()

	// extraction runs outside the lock; a concurrent duplicate costs one
	// redundant extraction, never a wrong result
	fields := c.fn(raw)

	c.mu.Lock()
	c.entries.Add(key, &entry{fields: fields, raw: raw, pending: pending})
	c.mu.Unlock()
	return fields
}

// Invalidate drops the entry for the given image identity.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// InvalidateByURL drops the entry keyed by an image URL. Identities built
// by Key use the URL verbatim when one exists.
func (c *Cache) InvalidateByURL(url string) {
	c.Invalidate(url)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}

// Len reports the number of memoized entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}
