package text

import (
	"fmt"
	"io"
	"strings"

	"github.com/speclib/speclib/attribute"
	"github.com/speclib/speclib/cv"
	"github.com/speclib/speclib/errs"
)

// header is the decoded library preamble: global attributes, attribute
// set templates, and the byte offset where entry records begin.
type header struct {
	attrs         *attribute.Store
	sets          *Sets
	contentOffset uint64
}

// readHeader consumes the <mzSpecLib> block and any attribute set
// declarations, stopping at the first entry marker (which is pushed back
// for the record scanner) or end of input.
func readHeader(lr *lineReader, resolver cv.Resolver, diags *[]Diagnostic) (*header, error) {
	warn := func(code WarningCode, lineNo int, msg string) {
		if diags != nil {
			*diags = append(*diags, Diagnostic{Code: code, Line: lineNo, Message: msg})
		}
	}

	first, err := lr.readLine()
	if err == io.EOF {
		return nil, errs.ErrMissingHeader
	}
	if err != nil {
		return nil, err
	}
	m := libraryMarker.FindStringSubmatch(strings.TrimSpace(first.text))
	if m == nil {
		return nil, fmt.Errorf("%w: file starts with %q", errs.ErrMissingHeader, first.text)
	}
	if m[1] != "" {
		warn(WarnVersionInMarker, first.number,
			fmt.Sprintf("library marker carries version tag %q, ignored", m[1]))
	}

	h := &header{attrs: attribute.NewStore(), sets: NewSets()}
	h.contentOffset = lr.offset

	var currentSet *attribute.Set
	var currentKind attribute.SetKind
	flushSet := func() {
		if currentSet != nil {
			h.sets.Add(currentKind, currentSet)
			currentSet = nil
		}
	}

	// Source group tags in the header are remapped the same way record
	// attributes are.
	sourceGroup, workingGroup := 0, 0

	for {
		ln, err := lr.readLine()
		if err == io.EOF {
			h.contentOffset = lr.offset

			break
		}
		if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(ln.text)
		if isTopLevelMarker(text) {
			lr.unread()
			h.contentOffset = ln.start

			break
		}
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if m := setMarker.FindStringSubmatch(text); m != nil {
			flushSet()
			kind, _ := attribute.ParseSetKind(m[1])
			currentKind = kind
			currentSet = attribute.NewSet(strings.TrimSpace(m[2]))
			sourceGroup, workingGroup = 0, 0

			continue
		}

		pa, err := decodeAttributeLine(text, resolver)
		if err != nil {
			return nil, &ParseError{
				Line:       text,
				LineNumber: ln.number,
				State:      "library header",
				Err:        fmt.Errorf("%w: %s", errs.ErrMalformedAttribute, err.Error()),
			}
		}

		if currentSet != nil {
			// Templates keep their source group tags; application remaps.
			if pa.group != 0 {
				currentSet.AddGroupedAttribute(pa.key, pa.value, pa.group)
			} else {
				currentSet.AddAttribute(pa.key, pa.value)
			}

			continue
		}

		if pa.key == attribute.FormatVersion && h.attrs.Has(attribute.FormatVersion) {
			warn(WarnDuplicateFormatVersion, ln.number,
				fmt.Sprintf("extra format version %v ignored", pa.value))

			continue
		}

		if pa.group != 0 {
			if pa.group != sourceGroup {
				sourceGroup = pa.group
				workingGroup = h.attrs.NextGroupID()
			}
			if err := h.attrs.AddWithGroup(pa.key, pa.value, workingGroup); err != nil {
				return nil, err
			}
		} else {
			h.attrs.Add(pa.key, pa.value)
		}
	}
	flushSet()

	if !h.attrs.Has(attribute.FormatVersion) {
		warn(WarnMissingFormatVersion, 0,
			"library does not declare a format version, assuming "+DefaultVersion)
		h.attrs.Prepend(attribute.FormatVersion, DefaultVersion)
	}

	return h, nil
}
