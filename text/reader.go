package text

import (
	"bufio"
	"io"
	"strings"
)

// line is one physical line with its exact byte position in the stream.
type line struct {
	// text has the trailing line terminator removed but is otherwise
	// untouched.
	text string
	// start is the byte offset of the line's first character.
	start uint64
	// number is the 1-based line number.
	number int
}

// lineReader reads physical lines while tracking exact byte offsets. The
// terminator width is taken per line from the bytes actually read, so LF
// and CRLF files both index correctly. One line of pushback is supported
// so scanners can stop at a marker and let the next consumer re-read it.
type lineReader struct {
	r      *bufio.Reader
	offset uint64
	lineNo int

	last       line
	pushedBack bool
}

// newLineReader starts reading at the given absolute byte offset, which
// callers must have positioned the underlying stream to.
func newLineReader(r io.Reader, offset uint64) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 1<<16), offset: offset}
}

// readLine returns the next line. At end of input it returns io.EOF; a
// final line without a terminator is still returned (with nil error).
func (lr *lineReader) readLine() (line, error) {
	if lr.pushedBack {
		lr.pushedBack = false

		return lr.last, nil
	}

	raw, err := lr.r.ReadString('\n')
	if len(raw) == 0 {
		return line{}, io.EOF
	}

	lr.lineNo++
	ln := line{
		text:   strings.TrimRight(raw, "\r\n"),
		start:  lr.offset,
		number: lr.lineNo,
	}
	lr.offset += uint64(len(raw))
	lr.last = ln

	if err != nil && err != io.EOF {
		return line{}, err
	}

	return ln, nil
}

// unread pushes the last-read line back so the next readLine returns it
// again. Only one line of pushback is held.
func (lr *lineReader) unread() {
	lr.pushedBack = true
}
