//go:build cgo

package compress

import (
	"io"

	"github.com/valyala/gozstd"
)

type zstdReader struct {
	*gozstd.Reader
}

func (r zstdReader) Close() error {
	r.Release()

	return nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	return zstdReader{gozstd.NewReader(r)}, nil
}
