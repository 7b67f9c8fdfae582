// Package errs defines the sentinel error values shared across the library.
//
// Callers match against these with errors.Is; concrete error types such as
// text.ParseError wrap one of them and add positional context.
package errs

import "errors"

var (
	// ErrMissingHeader indicates the file does not begin with the
	// <mzSpecLib> library marker.
	ErrMissingHeader = errors.New("missing library header marker")

	// ErrMalformedAttribute indicates an attribute line matched neither the
	// plain nor the grouped attribute grammar.
	ErrMalformedAttribute = errors.New("malformed attribute line")

	// ErrMalformedPeakLine indicates a peak line did not start with a number
	// or carried the wrong number of fields.
	ErrMalformedPeakLine = errors.New("malformed peak line")

	// ErrIllegalMarker indicates a section marker appeared in a nesting
	// position that cannot be recovered, such as <Analyte> inside a cluster.
	ErrIllegalMarker = errors.New("illegal section marker")

	// ErrMissingAttribute is returned when a requested attribute is not
	// present on a store.
	ErrMissingAttribute = errors.New("attribute not found")

	// ErrAmbiguousAttribute is returned when a single-value lookup matches
	// more than one attribute and no group disambiguates them.
	ErrAmbiguousAttribute = errors.New("attribute is repeated, use GetAll or a group id")

	// ErrInvalidGroup is returned when an attribute references a group id
	// that was never allocated on its store.
	ErrInvalidGroup = errors.New("invalid attribute group id")

	// ErrUnknownAttributeSet is returned when a record references an
	// attribute set name the library header never declared.
	ErrUnknownAttributeSet = errors.New("unknown attribute set")

	// ErrIndexLookup is returned when the index holds no record for the
	// requested key, name, or position.
	ErrIndexLookup = errors.New("no index record found")

	// ErrNotSeekable is returned when random access is requested on a
	// stream that does not support seeking, including compressed input.
	ErrNotSeekable = errors.New("random access requires a seekable, uncompressed source")

	// ErrAlreadyWriting is returned when a writer is asked to write a
	// second library.
	ErrAlreadyWriting = errors.New("writer already produced a library")

	// ErrClosed is returned when an operation is attempted on a closed
	// library or writer.
	ErrClosed = errors.New("already closed")

	// ErrUnknownFormat is returned by the registry when no backend claims
	// the given file.
	ErrUnknownFormat = errors.New("could not infer library format")

	// ErrUnknownTerm is returned by CV resolvers for unrecognized CURIEs.
	ErrUnknownTerm = errors.New("unknown controlled vocabulary term")

	// ErrStaleIndex indicates a sidecar index no longer matches the library
	// file it was built from.
	ErrStaleIndex = errors.New("sidecar index is stale")
)
