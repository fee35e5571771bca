package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyGenerator generates dedup cache keys from genome identity strings.
type KeyGenerator struct {
	// Prefix for all cache keys (e.g., "evolve_")
	prefix string
}

// NewKeyGenerator creates a new cache key generator.
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "evolve_"
	}
	return &KeyGenerator{prefix: prefix}
}

// GenerateKey creates a deterministic cache key from a genome's structural
// identity. Two genomes with the same Key() always map to the same cache
// key, independent of candidate identity or fitness.
func (g *KeyGenerator) GenerateKey(genomeKey string) string {
	// Normalize so that incidental whitespace differences in genome keys
	// do not defeat deduplication.
	normalized := strings.TrimSpace(genomeKey)

	h := sha256.New()
	h.Write([]byte(normalized))
	hash := hex.EncodeToString(h.Sum(nil))

	// Truncate hash for readability
	return fmt.Sprintf("%s%s", g.prefix, hash[:32])
}
