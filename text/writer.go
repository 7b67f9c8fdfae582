package text

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/speclib/speclib/annotation"
	"github.com/speclib/speclib/attribute"
	"github.com/speclib/speclib/errs"
	"github.com/speclib/speclib/internal/options"
	"github.com/speclib/speclib/spectrum"
)

type writerConfig struct {
	version string
	compact bool
}

// WriterOption configures a Writer.
type WriterOption = options.Option[*writerConfig]

// WithVersion sets the format version written when the library header
// does not declare one.
func WithVersion(v string) WriterOption {
	return options.NoError(func(c *writerConfig) { c.version = v })
}

// WithCompactInterpretations controls whether a lone interpretation
// member's attributes are inlined into its interpretation instead of
// getting an explicit <InterpretationMember> block. Both forms are valid;
// the compact one is the default.
func WithCompactInterpretations(enabled bool) WriterOption {
	return options.NoError(func(c *writerConfig) { c.compact = enabled })
}

// Writer serializes a library to the native text format. The blocks must
// be written in file order: header first, then entries. A Writer emits at
// most one library and closes its underlying stream exactly once.
type Writer struct {
	w     *bufio.Writer
	owned io.Closer

	version string
	compact bool

	wroteLibrary bool
	closed       bool
}

// NewWriter writes to w. If w is an io.Closer it is closed by Close.
func NewWriter(w io.Writer, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{version: DefaultVersion, compact: true}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	out := &Writer{w: bufio.NewWriter(w), version: cfg.version, compact: cfg.compact}
	if c, ok := w.(io.Closer); ok {
		out.owned = c
	}

	return out, nil
}

// Create creates the file at path and writes the library to it.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(f, opts...)
	if err != nil {
		f.Close()

		return nil, err
	}

	return w, nil
}

// WriteHeader writes the <mzSpecLib> block: the library attributes with
// the format version forced first, followed by every attribute set
// template grouped by kind.
func (w *Writer) WriteHeader(attrs *attribute.Store, sets *Sets) error {
	if w.closed {
		return errs.ErrClosed
	}
	w.write("<mzSpecLib>\n")

	version := w.version
	if attrs != nil {
		if v, err := attrs.Get(attribute.FormatVersion); err == nil {
			version = attribute.FormatValue(v)
		}
	}
	w.write(attribute.FormatVersion + "=" + version + "\n")

	if attrs != nil {
		for attr := range attrs.All() {
			if attr.Key == attribute.FormatVersion {
				continue
			}
			w.writeAttribute(attr)
		}
	}

	if sets != nil {
		for _, kind := range []attribute.SetKind{
			attribute.SetKindSpectrum,
			attribute.SetKindAnalyte,
			attribute.SetKindInterpretation,
			attribute.SetKindCluster,
		} {
			for _, set := range sets.Kind(kind) {
				w.write(fmt.Sprintf("<AttributeSet %s=%s>\n", kind, set.Name))
				for _, attr := range set.Attributes() {
					w.writeAttribute(attr)
				}
				if set.Len() > 0 {
					w.write("\n")
				}
			}
		}
	}

	return w.w.Flush()
}

func (w *Writer) write(s string) {
	_, _ = w.w.WriteString(s)
}

func (w *Writer) writeAttribute(attr attribute.Attribute) {
	if attr.GroupID != 0 {
		w.write(fmt.Sprintf("[%d]%s=%s\n", attr.GroupID, attr.Key, attribute.FormatValue(attr.Value)))

		return
	}
	w.write(attr.Key + "=" + attribute.FormatValue(attr.Value) + "\n")
}

// writeAttributes emits attrs, skipping ones stamped by an applied
// attribute set; the set's reference attribute stands in for them.
func (w *Writer) writeAttributes(attrs []attribute.Attribute, appliedSets []string) {
	for _, attr := range attrs {
		if attr.OwnerID != "" &&
			(attr.OwnerID == allSetName || slices.Contains(appliedSets, attr.OwnerID)) {
			continue
		}
		w.writeAttribute(attr)
	}
}

// WriteSpectrum writes one spectrum entry, terminated by a blank line.
func (w *Writer) WriteSpectrum(s *spectrum.Spectrum) error {
	if w.closed {
		return errs.ErrClosed
	}

	w.write(fmt.Sprintf("<Spectrum=%d>\n", s.Key))
	w.writeAttributes(s.Attributes(), s.AppliedSets())

	for _, a := range s.AnalyteList() {
		w.write(fmt.Sprintf("<Analyte=%s>\n", a.ID))
		w.writeAttributes(a.Attributes(), a.AppliedSets())
	}

	nInterps := s.Interpretations.Len()
	for _, interp := range s.Interpretations.All() {
		attrs := interp.Attributes()
		if len(s.Analytes) == 1 {
			// The mixture membership is self-evident with one analyte.
			attrs = slices.DeleteFunc(attrs, func(a attribute.Attribute) bool {
				return a.Key == attribute.AnalyteMixture
			})
		}
		if len(attrs) == 0 && nInterps == 1 && len(interp.Members) == 0 {
			continue
		}

		w.write(fmt.Sprintf("<Interpretation=%s>\n", interp.ID))
		w.writeAttributes(attrs, interp.AppliedSets())

		if nInterps == 1 && len(interp.Members) == 1 && w.compact {
			for _, member := range interp.MemberList() {
				w.writeAttributes(member.Attributes(), member.AppliedSets())
			}
		} else {
			for _, member := range interp.MemberList() {
				w.write(fmt.Sprintf("<InterpretationMember=%s>\n", member.ID))
				w.writeAttributes(member.Attributes(), member.AppliedSets())
			}
		}
	}

	w.write("<Peaks>\n")
	for _, peak := range s.Peaks {
		w.write(attribute.FormatValue(peak.MZ))
		w.write("\t")
		w.write(attribute.FormatValue(peak.Intensity))
		w.write("\t")
		w.write(annotation.Join(peak.Annotations))
		for _, agg := range peak.Aggregations {
			w.write("\t")
			w.write(formatAggregation(agg))
		}
		w.write("\n")
	}
	w.write("\n")

	return w.w.Flush()
}

// WriteCluster writes one cluster entry, terminated by a blank line.
func (w *Writer) WriteCluster(c *spectrum.SpectrumCluster) error {
	if w.closed {
		return errs.ErrClosed
	}

	w.write(fmt.Sprintf("<Cluster=%d>\n", c.Key))
	w.writeAttributes(c.Attributes(), c.AppliedSets())
	w.write("\n")

	return w.w.Flush()
}

// WriteLibrary serializes an entire open library, header and all entries,
// in file order. A Writer emits at most one library.
func (w *Writer) WriteLibrary(lib *Library) error {
	if w.closed {
		return errs.ErrClosed
	}
	if w.wroteLibrary {
		return errs.ErrAlreadyWriting
	}
	w.wroteLibrary = true

	if err := w.WriteHeader(lib.Attributes(), lib.AttributeSets()); err != nil {
		return err
	}
	for entry, err := range lib.All() {
		if err != nil {
			return err
		}
		switch e := entry.(type) {
		case *spectrum.Spectrum:
			if err := w.WriteSpectrum(e); err != nil {
				return err
			}
		case *spectrum.SpectrumCluster:
			if err := w.WriteCluster(e); err != nil {
				return err
			}
		}
	}

	return nil
}

// Close flushes buffered output and closes the underlying stream if the
// Writer owns it. Close is idempotent; writes after Close fail with
// ErrClosed.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.w.Flush()
	if w.owned != nil {
		if cerr := w.owned.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	return err
}

func formatAggregation(v attribute.Value) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.4g", n)
	case int64:
		return strconv.FormatInt(n, 10)
	case string:
		return n
	default:
		return attribute.FormatValue(v)
	}
}
