// Package hash computes source-file fingerprints used to detect stale
// sidecar indices.
package hash

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// fingerprintWindow is how many leading bytes participate in the hash.
// Hashing the whole file would make opening very large libraries as
// expensive as rescanning them.
const fingerprintWindow = 64 * 1024

// Fingerprint hashes the first 64 KiB of the file together with its total
// size using xxHash64. Edits beyond the window that keep the size identical
// are not detected.
func Fingerprint(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	return FingerprintReader(f, info.Size())
}

// FingerprintReader hashes up to the fingerprint window from r, mixing in
// the declared total size.
func FingerprintReader(r io.Reader, size int64) (uint64, error) {
	digest := xxhash.New()

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(size))
	if _, err := digest.Write(sizeBuf[:]); err != nil {
		return 0, err
	}

	if _, err := io.CopyN(digest, r, fingerprintWindow); err != nil && err != io.EOF {
		return 0, err
	}

	return digest.Sum64(), nil
}

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
