package testutil

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"

	"dupcat/internal/dupcat"
)

// MD5Hex returns the MD5 checksum of data as a lowercase hex string.
func MD5Hex(data []byte) string {
	h := md5.Sum(data)
	return hex.EncodeToString(h[:])
}

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// PairOf returns the digest pair the catalog stores for content.
func PairOf(data []byte) dupcat.DigestPair {
	return dupcat.DigestPair{Fast: MD5Hex(data), Strong: SHA256Hex(data)}
}

// CountingHasher wraps a Hasher and counts PairFor invocations, so
// tests can assert which files were actually re-hashed.
type CountingHasher struct {
	Inner dupcat.Hasher
	Calls int
}

func (c *CountingHasher) PairFor(path string, size int64) (dupcat.DigestPair, error) {
	c.Calls++
	return c.Inner.PairFor(path, size)
}
