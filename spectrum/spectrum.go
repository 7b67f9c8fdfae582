// Package spectrum defines the entry model of a spectral library: spectra
// with their analytes, interpretations and peak lists, and spectrum
// clusters. Entries carry open attribute stores, so any controlled
// vocabulary term can be attached beyond the fields modeled here.
package spectrum

import (
	"github.com/speclib/speclib/attribute"
)

// Entry is a top-level library record, either a *Spectrum or a
// *SpectrumCluster.
type Entry interface {
	// EntryKey returns the record's library-unique key.
	EntryKey() int64
}

// Spectrum is a single library spectrum entry. Key and Index identify the
// record inside its library and are serialized in the entry marker and as
// dedicated attributes respectively, never stored in the attribute list.
type Spectrum struct {
	*attribute.Store

	// Key is the library-unique spectrum key from the <Spectrum=K> marker.
	Key int64
	// Index is the zero-based ordinal position of the spectrum.
	Index int64

	Analytes        map[string]*Analyte
	Interpretations *InterpretationCollection
	Peaks           []Peak

	analyteOrder []string
}

// NewSpectrum creates an empty spectrum with the given key.
func NewSpectrum(key int64) *Spectrum {
	return &Spectrum{
		Store:           attribute.NewStore(),
		Key:             key,
		Index:           -1,
		Analytes:        make(map[string]*Analyte),
		Interpretations: NewInterpretationCollection(),
	}
}

// EntryKey implements Entry.
func (s *Spectrum) EntryKey() int64 { return s.Key }

// Name returns the library spectrum name, or the empty string when the
// attribute is absent.
func (s *Spectrum) Name() string {
	v, err := s.Get(attribute.SpectrumName)
	if err != nil {
		return ""
	}
	name, _ := v.(string)

	return name
}

// SetName replaces or adds the library spectrum name attribute.
func (s *Spectrum) SetName(name string) {
	s.Replace(attribute.SpectrumName, name)
}

// AddAnalyte registers a under its ID, replacing any previous analyte
// with the same ID.
func (s *Spectrum) AddAnalyte(a *Analyte) {
	if _, ok := s.Analytes[a.ID]; !ok {
		s.analyteOrder = append(s.analyteOrder, a.ID)
	}
	s.Analytes[a.ID] = a
}

// Analyte returns the analyte with the given ID, or nil.
func (s *Spectrum) Analyte(id string) *Analyte {
	return s.Analytes[id]
}

// AnalyteList returns the analytes in insertion order.
func (s *Spectrum) AnalyteList() []*Analyte {
	out := make([]*Analyte, 0, len(s.analyteOrder))
	for _, id := range s.analyteOrder {
		out = append(out, s.Analytes[id])
	}

	return out
}

// BackfillInterpretations attaches every analyte to each interpretation
// that has no analytes of its own. Readers use this after a spectrum body
// ends so that interpretations written without explicit mixture members
// still resolve to the full analyte set.
func (s *Spectrum) BackfillInterpretations() {
	for _, interp := range s.Interpretations.All() {
		if len(interp.Analytes) > 0 {
			continue
		}
		for _, a := range s.AnalyteList() {
			interp.AddAnalyte(a)
		}
	}
}
