package text

import "fmt"

// WarningCode classifies the recoverable conditions the reader tolerates.
type WarningCode uint8

const (
	// WarnMissingFormatVersion: the header lacked the library format
	// version attribute; the current default was backfilled.
	WarnMissingFormatVersion WarningCode = iota + 1
	// WarnVersionInMarker: the <mzSpecLib> marker carried an inline version
	// tag, which is no longer part of the format and is ignored.
	WarnVersionInMarker
	// WarnDuplicateFormatVersion: the header declared the format version
	// more than once; later declarations are ignored.
	WarnDuplicateFormatVersion
	// WarnInterleavedSections: a section marker appeared out of its usual
	// order but could still be recovered, such as an <Analyte> after an
	// <Interpretation> already started.
	WarnInterleavedSections
	// WarnSpaceDelimitedPeaks: a peak line used spaces instead of tabs.
	WarnSpaceDelimitedPeaks
	// WarnMissingSpectrumName: a spectrum had no name attribute when the
	// index was built; it was indexed with an empty name.
	WarnMissingSpectrumName
	// WarnDuplicateSpectrumName: two spectra carry the same name; name
	// lookups resolve to the first.
	WarnDuplicateSpectrumName
)

func (c WarningCode) String() string {
	switch c {
	case WarnMissingFormatVersion:
		return "missing format version"
	case WarnVersionInMarker:
		return "version tag in library marker"
	case WarnDuplicateFormatVersion:
		return "duplicate format version"
	case WarnInterleavedSections:
		return "interleaved sections"
	case WarnSpaceDelimitedPeaks:
		return "space-delimited peak line"
	case WarnMissingSpectrumName:
		return "missing spectrum name"
	case WarnDuplicateSpectrumName:
		return "duplicate spectrum name"
	default:
		return "unknown warning"
	}
}

// Diagnostic is one recoverable condition observed while reading. Readers
// accumulate diagnostics instead of aborting, so a bulk conversion can
// report every oddity alongside the successfully parsed records.
type Diagnostic struct {
	Code WarningCode
	// Line is the 1-based line number in the source file, 0 when unknown.
	Line int
	// Message describes the condition and any recovery taken.
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", d.Line, d.Code, d.Message)
	}

	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// ParseError is a fatal failure while parsing one record. It carries
// enough position context to locate the bad input and unwraps to one of
// the errs sentinels.
type ParseError struct {
	// Line is the offending line's text.
	Line string
	// LineNumber is the 1-based line number relative to where reading
	// began: the record start for random access, the first entry for a
	// sequential scan.
	LineNumber int
	// State names the parser state at the time of failure.
	State string
	// Key is the key of the record being parsed, 0 when none was seen.
	Key int64
	// Err is the underlying sentinel-wrapped cause.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v (line %d, state %s, record %d): %q",
		e.Err, e.LineNumber, e.State, e.Key, e.Line)
}

func (e *ParseError) Unwrap() error { return e.Err }
