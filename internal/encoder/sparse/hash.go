package sparse

import "github.com/OneOfOne/xxhash"

// Hash maps a token to its vector index: XXH32 with seed 0 over the token's
// UTF-8 bytes. Index consumers match terms by this value, so the algorithm
// and seed are fixed.
func Hash(token string) uint32 {
	return xxhash.ChecksumString32(token)
}
