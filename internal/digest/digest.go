// Package digest computes the dual content digests (MD5 fast, SHA-256
// strong) that identify a file's content in the catalog.
package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"dupcat/internal/dupcat"
)

// Algorithm names a supported digest algorithm.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA256 Algorithm = "sha256"
)

// DefaultThreshold is the file size above which the two digests of a
// pair are computed concurrently.
const DefaultThreshold = 1 << 20 // 1 MiB

// newHash returns a fresh hash for the algorithm. The allow-list is
// fixed; requesting anything else is a programmer error, not a
// recoverable condition.
func newHash(alg Algorithm) hash.Hash {
	switch alg {
	case MD5:
		return md5.New()
	case SHA256:
		return sha256.New()
	default:
		panic(fmt.Sprintf("unsupported digest algorithm %q", alg))
	}
}

// File computes a single digest of the file's full content and returns
// it hex encoded. Unreadable files yield a recoverable error.
func File(path string, alg Algorithm) (string, error) {
	h := newHash(alg)

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Engine computes digest pairs, optionally hashing the fast and strong
// digests of large files concurrently. The fan-out is a latency
// optimization only: the resulting pair is identical either way.
type Engine struct {
	threshold  int64
	sequential bool
}

// NewEngine creates an Engine. Files larger than threshold hash their
// two digests as two concurrent reads unless sequential forces the
// single-pass path. A threshold of 0 selects DefaultThreshold.
func NewEngine(threshold int64, sequential bool) *Engine {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold, sequential: sequential}
}

// PairFor computes the (fast, strong) digest pair of the file at path.
// size is the file's stat size, used only to pick the strategy.
func (e *Engine) PairFor(path string, size int64) (dupcat.DigestPair, error) {
	if e.sequential || size <= e.threshold {
		return sequentialPair(path)
	}
	return concurrentPair(path)
}

// sequentialPair reads the file once, feeding both hashes.
func sequentialPair(path string) (dupcat.DigestPair, error) {
	fast := newHash(MD5)
	strong := newHash(SHA256)

	f, err := os.Open(path)
	if err != nil {
		return dupcat.DigestPair{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(io.MultiWriter(fast, strong), f); err != nil {
		return dupcat.DigestPair{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return dupcat.DigestPair{
		Fast:   hex.EncodeToString(fast.Sum(nil)),
		Strong: hex.EncodeToString(strong.Sum(nil)),
	}, nil
}

// concurrentPair hashes the two digests as two goroutines, each with
// its own read handle, and joins both before returning. The first
// error wins; the other computation is still awaited.
func concurrentPair(path string) (dupcat.DigestPair, error) {
	var fast, strong string
	errs := make(chan error, 2)

	go func() {
		var err error
		fast, err = File(path, MD5)
		errs <- err
	}()
	go func() {
		var err error
		strong, err = File(path, SHA256)
		errs <- err
	}()

	var first error
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return dupcat.DigestPair{}, first
	}

	return dupcat.DigestPair{Fast: fast, Strong: strong}, nil
}

// Compile-time check that Engine implements dupcat.Hasher
var _ dupcat.Hasher = (*Engine)(nil)
