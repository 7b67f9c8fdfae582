// Package compress detects and transparently decodes compressed library
// streams. Detection is sniff-based: the first bytes of the stream are
// matched against the magic numbers of the supported frame formats, so
// callers never need to inspect file extensions.
package compress

import (
	"bufio"
	"io"
)

// Type identifies a stream compression format.
type Type uint8

const (
	// TypeNone means the stream is plain text.
	TypeNone Type = iota
	// TypeGzip is the gzip frame format (RFC 1952).
	TypeGzip
	// TypeZstd is the zstandard frame format.
	TypeZstd
	// TypeS2 is the s2/snappy stream format.
	TypeS2
	// TypeLZ4 is the lz4 frame format.
	TypeLZ4
)

// String returns the canonical lowercase name of the compression type.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	case TypeS2:
		return "s2"
	case TypeLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
	magicS2   = []byte{0xff, 0x06, 0x00, 0x00}
)

// Detect inspects the leading bytes of a stream and reports its
// compression format. A prefix shorter than the longest magic number is
// matched against whatever formats it can still identify; anything
// unrecognized is TypeNone.
func Detect(prefix []byte) Type {
	switch {
	case hasPrefix(prefix, magicGzip):
		return TypeGzip
	case hasPrefix(prefix, magicZstd):
		return TypeZstd
	case hasPrefix(prefix, magicLZ4):
		return TypeLZ4
	case hasPrefix(prefix, magicS2):
		return TypeS2
	default:
		return TypeNone
	}
}

func hasPrefix(b, magic []byte) bool {
	if len(b) < len(magic) {
		return false
	}
	for i := range magic {
		if b[i] != magic[i] {
			return false
		}
	}

	return true
}

// sniffLen covers the longest supported magic number.
const sniffLen = 4

// NewReader sniffs r and returns a reader yielding the decompressed
// stream along with the detected format. Plain streams pass through
// unchanged. The returned reader owns r's remaining bytes; callers must
// not read from r directly afterwards.
func NewReader(r io.Reader) (io.ReadCloser, Type, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	prefix, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return nil, TypeNone, err
	}

	switch t := Detect(prefix); t {
	case TypeGzip:
		rc, err := newGzipReader(br)

		return rc, t, err
	case TypeZstd:
		rc, err := newZstdReader(br)

		return rc, t, err
	case TypeS2:
		return newS2Reader(br), t, nil
	case TypeLZ4:
		return newLZ4Reader(br), t, nil
	default:
		return io.NopCloser(br), TypeNone, nil
	}
}
