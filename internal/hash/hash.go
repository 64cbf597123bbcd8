// Package hash fingerprints source text for content-addressed caches.
//
// Keys are 64-bit xxhash digests. They are not collision-free: two different
// texts sharing a key will be served the same cached markup. Callers treat
// this as an accepted approximation and never compare source text on hit.
package hash

import "github.com/cespare/xxhash/v2"

// Key is the fingerprint of a text blob.
type Key uint64

// Sum returns the fingerprint of text in a single pass.
func Sum(text string) Key {
	return Key(xxhash.Sum64String(text))
}

// SumWith fingerprints text namespaced by prefix, so the same content cached
// under different purposes (e.g. chunk list vs rendered markup) never aliases.
func SumWith(prefix, text string) Key {
	d := xxhash.New()
	_, _ = d.WriteString(prefix)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(text)
	return Key(d.Sum64())
}
