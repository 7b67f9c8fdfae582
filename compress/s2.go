package compress

import (
	"io"

	"github.com/klauspost/compress/s2"
)

func newS2Reader(r io.Reader) io.ReadCloser {
	return io.NopCloser(s2.NewReader(r))
}
