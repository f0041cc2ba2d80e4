package fingerprint

import (
	"fmt"
	"hash/fnv"
)

// Hash derives the cache and dedup key for a piece of content text.
//
// The key is intentionally derived from the raw text alone: two posts that
// quote the same text share a fingerprint regardless of id, author, or media,
// so their verdicts amortize to one upstream analysis. FNV-1a is enough here;
// the cost of a collision is a slightly stale verdict on near-duplicate text.
// No normalization is applied, and the same raw bytes feed cache reads and
// writes alike.
func Hash(text string) string {
	h := fnv.New64a()
	h.Write([]byte(text))
	return fmt.Sprintf("v1:%016x", h.Sum64())
}
