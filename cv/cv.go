// Package cv defines the controlled-vocabulary boundary.
//
// Full ontology loading (PSI-MS, UO, UNIMOD) is an external concern; the
// parser and writer only need a term's declared value type to coerce raw
// attribute values, so the interface is deliberately small and injectable.
// StaticResolver covers the terms with structural meaning to the library
// format; unknown terms fall back to best-guess casting at the call site.
package cv

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/speclib/speclib/attribute"
	"github.com/speclib/speclib/errs"
)

// ValueType is the value type a CV term declares for its attribute values.
type ValueType uint8

const (
	TypeUnknown ValueType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeTerm
)

func (v ValueType) String() string {
	switch v {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeTerm:
		return "Term"
	default:
		return "Unknown"
	}
}

// Term describes one controlled vocabulary entry: its identity, declared
// value type, optional unit accessions, and ancestry for is-a tests.
type Term struct {
	Accession string
	Name      string
	ValueType ValueType
	Units     []string
	Parents   []string
}

// IsOfType reports whether the term is, or descends from, the given
// accession.
func (t Term) IsOfType(accession string) bool {
	return t.Accession == accession || slices.Contains(t.Parents, accession)
}

// Coerce converts a raw string into the value type this term declares,
// falling back to best-guess casting when the type is unknown or the raw
// text does not parse as declared.
func (t Term) Coerce(raw string) attribute.Value {
	switch t.ValueType {
	case TypeString:
		return raw
	case TypeInt:
		if v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			return v
		}
	case TypeFloat:
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return v
		}
	case TypeBool:
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			return v
		}
	case TypeTerm:
		if v, ok := attribute.ParseTerm(raw); ok {
			return v
		}
	}

	return attribute.TryCast(raw)
}

// Resolver looks up term definitions by CURIE.
type Resolver interface {
	FindTermFor(curie string) (Term, error)
}

// StaticResolver resolves terms from a fixed in-memory table.
type StaticResolver struct {
	terms map[string]Term
}

// NewStaticResolver creates a resolver seeded with the built-in table plus
// any caller-supplied terms, which override built-ins on collision.
func NewStaticResolver(extra ...Term) *StaticResolver {
	r := &StaticResolver{terms: make(map[string]Term, len(builtinTerms)+len(extra))}
	for _, t := range builtinTerms {
		r.terms[t.Accession] = t
	}
	for _, t := range extra {
		r.terms[t.Accession] = t
	}

	return r
}

// FindTermFor returns the term for the given CURIE accession.
func (r *StaticResolver) FindTermFor(curie string) (Term, error) {
	if t, ok := r.terms[curie]; ok {
		return t, nil
	}

	return Term{}, fmt.Errorf("%w: %s", errs.ErrUnknownTerm, curie)
}

// NopResolver knows no terms; every attribute value is best-guess cast.
type NopResolver struct{}

func (NopResolver) FindTermFor(curie string) (Term, error) {
	return Term{}, fmt.Errorf("%w: %s", errs.ErrUnknownTerm, curie)
}

// builtinTerms covers the vocabulary the format engine itself depends on.
// Domain semantics of other accessions are out of scope; they pass through
// with best-guess value types.
var builtinTerms = []Term{
	{Accession: "MS:1003186", Name: "library format version", ValueType: TypeString},
	{Accession: "MS:1003061", Name: "library spectrum name", ValueType: TypeString},
	{Accession: "MS:1003237", Name: "library spectrum key", ValueType: TypeInt},
	{Accession: "MS:1003062", Name: "library spectrum index", ValueType: TypeInt},
	{Accession: "MS:1003212", Name: "library attribute set name", ValueType: TypeString},
	{Accession: "MS:1003163", Name: "analyte mixture members", ValueType: TypeString},
	{Accession: "MS:1003254", Name: "peak attribute", ValueType: TypeTerm},
	{Accession: "MS:1003188", Name: "library name", ValueType: TypeString},
	{Accession: "MS:1003187", Name: "library identifier", ValueType: TypeString},
	{Accession: "MS:1003190", Name: "library version", ValueType: TypeString},
	{Accession: "MS:1003189", Name: "library description", ValueType: TypeString},
	{Accession: "MS:1003191", Name: "library URI", ValueType: TypeString},
	{Accession: "MS:1000041", Name: "charge state", ValueType: TypeInt},
	{Accession: "MS:1003208", Name: "experimental precursor monoisotopic m/z", ValueType: TypeFloat, Units: []string{"MS:1000040"}},
	{Accession: "MS:1000045", Name: "collision energy", ValueType: TypeFloat, Units: []string{"UO:0000266"}},
	{Accession: "MS:1000044", Name: "dissociation method", ValueType: TypeTerm},
	{Accession: "MS:1003320", Name: "cluster size", ValueType: TypeInt},
	{Accession: "MS:1003057", Name: "scan number", ValueType: TypeInt},
	{Accession: "MS:1000894", Name: "retention time", ValueType: TypeFloat, Units: []string{"UO:0000010", "UO:0000031"}},
}
