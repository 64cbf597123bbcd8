// Package chunk splits large markdown sources into line-aligned chunks.
//
// Chunks are the unit of cached rendering for large documents: editing one
// region of a big document only invalidates the chunk containing the edit.
package chunk

import (
	"strings"

	"github.com/alnah/go-mdrender/internal/cache"
	"github.com/alnah/go-mdrender/internal/hash"
)

// Sizes are measured in bytes of UTF-8 source.
const (
	// Threshold is the input length at which chunking starts.
	Threshold = 100_000

	// Size is the soft upper bound of a chunk. A single line longer than
	// Size still forms one chunk because boundaries never fall mid-line.
	Size = 50_000

	// DefaultCacheCapacity bounds the memoized chunk lists.
	DefaultCacheCapacity = 50
)

// Chunk is a contiguous, line-aligned slice of the source.
type Chunk struct {
	Index int
	Text  string
}

// Split divides text into chunks. Inputs shorter than Threshold yield a
// single chunk equal to the whole text. Concatenating the chunk texts in
// index order always reproduces text exactly.
func Split(text string) []Chunk {
	if len(text) < Threshold {
		return []Chunk{{Index: 0, Text: text}}
	}

	var (
		chunks []Chunk
		start  int // byte offset of the running chunk
		size   int // bytes accumulated in the running chunk
	)

	for pos := 0; pos < len(text); {
		lineLen := strings.IndexByte(text[pos:], '\n') + 1
		if lineLen == 0 {
			lineLen = len(text) - pos // last line without terminator
		}

		if size > 0 && size+lineLen > Size {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: text[start:pos]})
			start = pos
			size = 0
		}

		size += lineLen
		pos += lineLen
	}

	if size > 0 {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: text[start:]})
	}
	return chunks
}

// Chunker memoizes Split results so re-rendering an unchanged large document
// (e.g. toggling the preview) skips the line scan.
type Chunker struct {
	lists *cache.LRU[hash.Key, []Chunk]
}

// NewChunker creates a Chunker remembering up to capacity chunk lists.
func NewChunker(capacity int) *Chunker {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Chunker{lists: cache.New[hash.Key, []Chunk](capacity)}
}

// Split returns the chunks of text, served from cache when possible.
// The returned slice is shared; callers must not modify it.
func (c *Chunker) Split(text string) []Chunk {
	if len(text) < Threshold {
		return Split(text)
	}

	key := hash.SumWith("chunks", text)
	if chunks, ok := c.lists.Get(key); ok {
		return chunks
	}

	chunks := Split(text)
	c.lists.Set(key, chunks)
	return chunks
}

// Clear forgets every memoized chunk list.
func (c *Chunker) Clear() {
	c.lists.Clear()
}

// Stats reports the chunk-list cache state.
func (c *Chunker) Stats() cache.Stats {
	return c.lists.Stats()
}
