// Package text implements the native plain-text serialization of spectral
// libraries: a line-oriented grammar with nested sections, CV-typed
// attribute lines, reusable attribute set templates, and an offset index
// that gives random access into arbitrarily large files.
package text

import "regexp"

// Format version written when a library does not declare one.
const DefaultVersion = "1.0"

// Section markers. A marker always forces a state transition; the value
// after "=" is the entry key or section id.
var (
	libraryMarker  = regexp.MustCompile(`^<mzSpecLib\s*(.+)?>`)
	spectrumMarker = regexp.MustCompile(`^<Spectrum(?:\s*=\s*(.+))?>`)
	clusterMarker  = regexp.MustCompile(`^<Cluster(?:\s*=\s*(.+))>`)
	analyteMarker  = regexp.MustCompile(`^<Analyte(?:\s*=\s*(.+))>`)
	interpMarker   = regexp.MustCompile(`^<Interpretation(?:\s*=\s*(.+))>`)
	memberMarker   = regexp.MustCompile(`^<InterpretationMember(?:\s*=\s*(.+))>`)
	peaksMarker    = regexp.MustCompile(`^<Peaks>`)
	setMarker      = regexp.MustCompile(`^<AttributeSet (Spectrum|Analyte|Interpretation|Cluster)\s*=\s*(.+)>`)
)

// Attribute line grammar. The accession prefix may itself contain colons
// and dots (nested CURIEs); the id part is digits or the X placeholder.
var (
	keyValuePattern = regexp.MustCompile(
		`^(?P<term>(?P<accession>[A-Za-z0-9:.]+:(?:\d|X)+)\|(?P<name>[^=]+?))\s*=\s*(?P<value>.*)$`)
	groupedKeyValuePattern = regexp.MustCompile(
		`^\[(?P<group>\d+)\](?P<term>(?P<accession>[A-Za-z0-9:.]+:(?:\d|X)+)\|(?P<name>[^=]+?))\s*=\s*(?P<value>.*)$`)
)

// Peak line shapes. Conforming peak lines are tab-delimited; the fallback
// pattern tolerates legacy space-delimited lines.
var (
	peakStartPattern    = regexp.MustCompile(`^\d+(?:\.\d+)?`)
	fallbackPeakPattern = regexp.MustCompile(
		`^(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)(?:\s+(.+))?$`)
)

// spectrumNamePattern matches the library spectrum name attribute by
// accession during the index scan, without running the full attribute
// grammar on every line.
var spectrumNamePattern = regexp.MustCompile(
	`^MS:1003061\|(?:library )?spectrum name\s*=\s*(.+)`)

// isTopLevelMarker reports whether line begins a new library entry.
func isTopLevelMarker(line string) bool {
	return spectrumMarker.MatchString(line) || clusterMarker.MatchString(line)
}
