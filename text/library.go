package text

import (
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/speclib/speclib/annotation"
	"github.com/speclib/speclib/attribute"
	"github.com/speclib/speclib/compress"
	"github.com/speclib/speclib/cv"
	"github.com/speclib/speclib/errs"
	"github.com/speclib/speclib/index"
	"github.com/speclib/speclib/internal/collision"
	"github.com/speclib/speclib/internal/hash"
	"github.com/speclib/speclib/internal/options"
	"github.com/speclib/speclib/internal/pool"
	"github.com/speclib/speclib/spectrum"
)

// ProgressFunc is called periodically during an index-building scan.
type ProgressFunc func(bytesRead uint64, spectra, clusters int64)

// commitInterval bounds how many records accumulate between index commits
// during a scan.
const commitInterval = 10000

type indexChoice uint8

const (
	indexAuto indexChoice = iota
	indexMemory
	indexSQLite
	indexNone
)

type libraryConfig struct {
	resolver    cv.Resolver
	annotations annotation.Parser
	indexKind   indexChoice
	progress    ProgressFunc
}

// Option configures how a library is opened.
type Option = options.Option[*libraryConfig]

// WithResolver injects the CV resolver used to type attribute values.
func WithResolver(r cv.Resolver) Option {
	return options.NoError(func(c *libraryConfig) { c.resolver = r })
}

// WithAnnotationParser injects the peak annotation grammar.
func WithAnnotationParser(p annotation.Parser) Option {
	return options.NoError(func(c *libraryConfig) { c.annotations = p })
}

// WithMemoryIndex forces an in-memory index, rebuilding on every open.
func WithMemoryIndex() Option {
	return options.NoError(func(c *libraryConfig) { c.indexKind = indexMemory })
}

// WithSQLiteIndex forces a persistent sidecar index, creating it when
// absent and rebuilding it when stale.
func WithSQLiteIndex() Option {
	return options.NoError(func(c *libraryConfig) { c.indexKind = indexSQLite })
}

// WithoutIndex skips index construction entirely; only sequential
// iteration is available.
func WithoutIndex() Option {
	return options.NoError(func(c *libraryConfig) { c.indexKind = indexNone })
}

// WithProgress installs a callback invoked at every index commit during a
// scan.
func WithProgress(fn ProgressFunc) Option {
	return options.NoError(func(c *libraryConfig) { c.progress = fn })
}

func defaultConfig() libraryConfig {
	return libraryConfig{
		resolver:    cv.NewStaticResolver(),
		annotations: annotation.RawParser{},
	}
}

// Library is an open spectral library in the native text format. A
// Library is not safe for concurrent use: random access mutates the
// underlying stream's seek position.
type Library struct {
	path string

	file   *os.File
	stream *lineReader
	owned  io.Closer

	seekable bool
	consumed bool
	closed   bool

	header *header
	idx    index.Index

	resolver    cv.Resolver
	annotations annotation.Parser
	progress    ProgressFunc
	diags       []Diagnostic
}

// Open opens the library file at path. Compressed files (gzip, zstd, s2,
// lz4) are detected by magic number and read sequentially; random access
// on them returns ErrNotSeekable.
func Open(path string, opts ...Option) (*Library, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var prefix [4]byte
	n, err := io.ReadFull(f, prefix[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		f.Close()

		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()

		return nil, err
	}

	if compress.Detect(prefix[:n]) != compress.TypeNone {
		if cfg.indexKind == indexMemory || cfg.indexKind == indexSQLite {
			f.Close()

			return nil, fmt.Errorf("%w: %s is compressed", errs.ErrNotSeekable, path)
		}
		rc, _, err := compress.NewReader(f)
		if err != nil {
			f.Close()

			return nil, err
		}
		lib, err := newStreamLibrary(rc, cfg)
		if err != nil {
			rc.Close()
			f.Close()

			return nil, err
		}
		lib.path = path
		lib.owned = multiCloser{rc, f}

		return lib, nil
	}

	lib := &Library{
		path:        path,
		file:        f,
		owned:       f,
		seekable:    true,
		resolver:    cfg.resolver,
		annotations: cfg.annotations,
		progress:    cfg.progress,
	}

	lr := newLineReader(f, 0)
	lib.header, err = readHeader(lr, lib.resolver, &lib.diags)
	if err != nil {
		f.Close()

		return nil, err
	}

	if err := lib.setupIndex(cfg.indexKind); err != nil {
		f.Close()

		return nil, err
	}

	return lib, nil
}

// NewReader reads a library from an already-open stream. Only sequential
// iteration is available; random access returns ErrNotSeekable.
func NewReader(r io.Reader, opts ...Option) (*Library, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.indexKind == indexMemory || cfg.indexKind == indexSQLite {
		return nil, fmt.Errorf("%w: stream input", errs.ErrNotSeekable)
	}

	rc, _, err := compress.NewReader(r)
	if err != nil {
		return nil, err
	}
	lib, err := newStreamLibrary(rc, cfg)
	if err != nil {
		rc.Close()

		return nil, err
	}
	lib.owned = rc

	return lib, nil
}

func newStreamLibrary(r io.Reader, cfg libraryConfig) (*Library, error) {
	lib := &Library{
		resolver:    cfg.resolver,
		annotations: cfg.annotations,
		progress:    cfg.progress,
	}
	lib.stream = newLineReader(r, 0)

	var err error
	lib.header, err = readHeader(lib.stream, lib.resolver, &lib.diags)
	if err != nil {
		return nil, err
	}

	return lib, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var firstErr error
	for _, c := range m {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// setupIndex builds or loads the index according to the preference
// policy: an existing sidecar wins, otherwise an in-memory index is built
// by scanning.
func (l *Library) setupIndex(choice indexChoice) error {
	if choice == indexNone {
		return nil
	}
	if choice == indexAuto {
		if index.SidecarExists(l.path) {
			choice = indexSQLite
		} else {
			choice = indexMemory
		}
	}

	if choice == indexMemory {
		l.idx = index.NewMemory()

		return l.buildIndex()
	}

	sidecar, err := index.OpenSQLite(index.SidecarPath(l.path))
	if err != nil {
		return err
	}
	l.idx = sidecar

	fp, err := hash.Fingerprint(l.path)
	if err != nil {
		sidecar.Close()

		return err
	}
	stored, ok, err := sidecar.Fingerprint()
	if err != nil {
		sidecar.Close()

		return err
	}
	if ok && stored == fp {
		return nil
	}
	if err := sidecar.Reset(); err != nil {
		sidecar.Close()

		return err
	}
	if err := l.buildIndex(); err != nil {
		sidecar.Close()

		return err
	}

	return sidecar.SetFingerprint(fp)
}

// buildIndex scans the file once from the first entry marker, recording
// every entry's start offset. Record extents are only known once the next
// marker or EOF is seen, so the scan keeps one pending record.
func (l *Library) buildIndex() error {
	if _, err := l.file.Seek(int64(l.header.contentOffset), io.SeekStart); err != nil {
		return err
	}
	lr := newLineReader(l.file, l.header.contentOffset)
	names := collision.NewTracker()

	var (
		pending    bool
		isCluster  bool
		key        int64
		start      uint64
		name       string
		nSpectra   int64
		nClusters  int64
		sinceCheck int
	)

	flush := func() error {
		if !pending {
			return nil
		}
		pending = false
		if isCluster {
			if err := l.idx.AddCluster(index.Record{
				Number: key, Position: nClusters, Offset: start,
			}); err != nil {
				return err
			}
			nClusters++
		} else {
			if name == "" {
				l.diags = append(l.diags, Diagnostic{
					Code:    WarnMissingSpectrumName,
					Message: fmt.Sprintf("spectrum %d has no name attribute", key),
				})
			} else if first, dup := names.Track(name, key); dup {
				l.diags = append(l.diags, Diagnostic{
					Code: WarnDuplicateSpectrumName,
					Message: fmt.Sprintf("spectrum %d reuses name %q of spectrum %d; name lookups resolve to the first",
						key, name, first),
				})
			}
			if err := l.idx.Add(index.Record{
				Number: key, Position: nSpectra, Offset: start, Name: name,
			}); err != nil {
				return err
			}
			nSpectra++
		}
		sinceCheck++
		if sinceCheck >= commitInterval {
			sinceCheck = 0
			if err := l.idx.Commit(); err != nil {
				return err
			}
			if l.progress != nil {
				l.progress(lr.offset, nSpectra, nClusters)
			}
		}

		return nil
	}

	for {
		ln, err := lr.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		text := strings.TrimSpace(ln.text)
		if m := spectrumMarker.FindStringSubmatch(text); m != nil {
			if err := flush(); err != nil {
				return err
			}
			k, err := markerKey(m, text)
			if err != nil {
				return &ParseError{
					Line: text, LineNumber: ln.number, State: "index scan", Err: err,
				}
			}
			pending, isCluster, key, start, name = true, false, k, ln.start, ""

			continue
		}
		if m := clusterMarker.FindStringSubmatch(text); m != nil {
			if err := flush(); err != nil {
				return err
			}
			k, err := markerKey(m, text)
			if err != nil {
				return &ParseError{
					Line: text, LineNumber: ln.number, State: "index scan", Err: err,
				}
			}
			pending, isCluster, key, start = true, true, k, ln.start

			continue
		}

		if pending && !isCluster && name == "" {
			if m := spectrumNamePattern.FindStringSubmatch(text); m != nil {
				name = m[1]
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}
	if err := l.idx.Commit(); err != nil {
		return err
	}
	if l.progress != nil {
		l.progress(lr.offset, nSpectra, nClusters)
	}

	return nil
}

// recordPool recycles the per-record scratch buffers used by readRecord.
var recordPool = pool.NewSlice[line](64)

// readRecord collects the lines of one entry into lines, from its start
// marker up to the first blank line, the next top-level marker, or end
// of input. Leading blank lines are skipped; the next record's marker is
// pushed back.
func readRecord(lr *lineReader, lines []line) ([]line, error) {
	lines = lines[:0]
	for {
		ln, err := lr.readLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		text := strings.TrimSpace(ln.text)
		if len(lines) == 0 {
			if text == "" {
				continue
			}
		} else {
			if text == "" {
				return lines, nil
			}
			if isTopLevelMarker(text) {
				lr.unread()

				return lines, nil
			}
		}
		lines = append(lines, ln)
	}
}

// Attributes returns the library's header attributes.
func (l *Library) Attributes() *attribute.Store { return l.header.attrs }

// AttributeSets returns the library's attribute set templates.
func (l *Library) AttributeSets() *Sets { return l.header.sets }

// FormatVersion returns the declared library format version.
func (l *Library) FormatVersion() string {
	v, err := l.header.attrs.Get(attribute.FormatVersion)
	if err != nil {
		return DefaultVersion
	}

	return attribute.FormatValue(v)
}

// Diagnostics returns the recoverable conditions accumulated so far.
func (l *Library) Diagnostics() []Diagnostic { return l.diags }

// Count returns the number of indexed spectra.
func (l *Library) Count() (int64, error) {
	if l.idx == nil {
		return 0, fmt.Errorf("%w: library opened without an index", errs.ErrIndexLookup)
	}

	return l.idx.Count()
}

// CountClusters returns the number of indexed clusters.
func (l *Library) CountClusters() (int64, error) {
	if l.idx == nil {
		return 0, fmt.Errorf("%w: library opened without an index", errs.ErrIndexLookup)
	}

	return l.idx.CountClusters()
}

// Index exposes the underlying index, nil when opened WithoutIndex or
// from a stream.
func (l *Library) Index() index.Index { return l.idx }

func (l *Library) randomAccess() error {
	if l.closed {
		return errs.ErrClosed
	}
	if !l.seekable {
		return errs.ErrNotSeekable
	}
	if l.idx == nil {
		return fmt.Errorf("%w: library opened without an index", errs.ErrIndexLookup)
	}

	return nil
}

// GetSpectrum reads the spectrum with the given key via the index.
func (l *Library) GetSpectrum(number int64) (*spectrum.Spectrum, error) {
	if err := l.randomAccess(); err != nil {
		return nil, err
	}
	rec, err := l.idx.ByNumber(number)
	if err != nil {
		return nil, err
	}

	return l.spectrumAt(rec)
}

// GetSpectrumByName reads the first spectrum with the given name.
func (l *Library) GetSpectrumByName(name string) (*spectrum.Spectrum, error) {
	if err := l.randomAccess(); err != nil {
		return nil, err
	}
	rec, err := l.idx.ByName(name)
	if err != nil {
		return nil, err
	}

	return l.spectrumAt(rec)
}

func (l *Library) spectrumAt(rec index.Record) (*spectrum.Spectrum, error) {
	entry, err := l.parseAt(rec.Offset, rec.Position)
	if err != nil {
		return nil, err
	}
	spec, ok := entry.(*spectrum.Spectrum)
	if !ok {
		return nil, fmt.Errorf("%w: record %d is not a spectrum", errs.ErrIndexLookup, rec.Number)
	}

	return spec, nil
}

// GetCluster reads the cluster with the given key via the index.
func (l *Library) GetCluster(number int64) (*spectrum.SpectrumCluster, error) {
	if err := l.randomAccess(); err != nil {
		return nil, err
	}
	rec, err := l.idx.ClusterByNumber(number)
	if err != nil {
		return nil, err
	}
	entry, err := l.parseAt(rec.Offset, -1)
	if err != nil {
		return nil, err
	}
	cluster, ok := entry.(*spectrum.SpectrumCluster)
	if !ok {
		return nil, fmt.Errorf("%w: record %d is not a cluster", errs.ErrIndexLookup, rec.Number)
	}
	cluster.Index = rec.Position

	return cluster, nil
}

// parseAt seeks to offset and parses exactly one record.
func (l *Library) parseAt(offset uint64, specIndex int64) (spectrum.Entry, error) {
	if _, err := l.file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	lr := newLineReader(l.file, offset)
	lines, err := readRecord(lr, recordPool.Get())
	defer recordPool.Put(lines)
	if err != nil {
		return nil, err
	}

	p := newEntryParser(l.header.sets, l.resolver, l.annotations, &l.diags, specIndex)

	return p.parse(lines)
}

// All yields every entry in file order. For seekable files it can be
// ranged over repeatedly; stream input can only be consumed once. A record
// that fails to parse is yielded as an error and iteration continues with
// the next record.
func (l *Library) All() iter.Seq2[spectrum.Entry, error] {
	return func(yield func(spectrum.Entry, error) bool) {
		if l.closed {
			yield(nil, errs.ErrClosed)

			return
		}

		var lr *lineReader
		if l.seekable {
			if _, err := l.file.Seek(int64(l.header.contentOffset), io.SeekStart); err != nil {
				yield(nil, err)

				return
			}
			lr = newLineReader(l.file, l.header.contentOffset)
		} else {
			if l.consumed {
				yield(nil, fmt.Errorf("%w: stream already consumed", errs.ErrNotSeekable))

				return
			}
			l.consumed = true
			lr = l.stream
		}

		buf := recordPool.Get()
		defer func() { recordPool.Put(buf) }()

		var nSpectra, nClusters int64
		for {
			lines, err := readRecord(lr, buf)
			buf = lines
			if err != nil {
				yield(nil, err)

				return
			}
			if len(lines) == 0 {
				return
			}

			p := newEntryParser(l.header.sets, l.resolver, l.annotations, &l.diags, nSpectra)
			entry, err := p.parse(lines)
			if err != nil {
				if !yield(nil, err) {
					return
				}

				continue
			}
			switch e := entry.(type) {
			case *spectrum.Spectrum:
				nSpectra++
				if !yield(e, nil) {
					return
				}
			case *spectrum.SpectrumCluster:
				e.Index = nClusters
				nClusters++
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

// Close releases the underlying stream and index. Close is idempotent.
func (l *Library) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if l.idx != nil {
		if err := l.idx.Close(); err != nil {
			firstErr = err
		}
	}
	if l.owned != nil {
		if err := l.owned.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
