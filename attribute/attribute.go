// Package attribute implements the ordered, group-aware attribute model
// shared by every entity in a spectral library: spectra, analytes,
// interpretations, interpretation members, clusters, and the library header
// itself.
//
// An attribute is a (key, value, group) triple. The key is a controlled
// vocabulary term reference of the form "ACCESSION|NAME". Values are
// dynamically typed scalars, or Term references when the value itself names
// a CV term. Attributes that are semantically linked (a value and its unit,
// for example) share a group id that is local to their store.
package attribute

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a dynamically typed attribute value. It holds one of: string,
// int64, float64, bool, or Term. All permitted types are comparable, so
// values can be tested with ==.
type Value any

// Term is a controlled vocabulary term reference, used both as a value
// ("MS:1000422|beam-type CID") and inside attribute keys.
type Term struct {
	Accession string
	Name      string
}

func (t Term) String() string {
	return t.Accession + "|" + t.Name
}

// ParseTerm splits an "ACCESSION|NAME" reference. It reports false when the
// string has no pipe or the accession does not look like a CURIE.
func ParseTerm(s string) (Term, bool) {
	acc, name, ok := strings.Cut(s, "|")
	if !ok || name == "" || !IsCURIE(acc) {
		return Term{}, false
	}

	return Term{Accession: acc, Name: name}, true
}

// IsCURIE reports whether s has the PREFIX:ID shape of a compact URI, e.g.
// "MS:1000041". The ID portion must be digits or the placeholder "X".
func IsCURIE(s string) bool {
	prefix, id, ok := strings.Cut(s, ":")
	if !ok || prefix == "" || id == "" {
		return false
	}
	for _, r := range prefix {
		ok := r == '.' || r == ':' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	// Nested CURIEs like "A:B:123" keep everything before the last colon as
	// the prefix.
	if i := strings.LastIndexByte(id, ':'); i >= 0 {
		id = id[i+1:]
	}
	for _, r := range id {
		if (r < '0' || r > '9') && r != 'X' {
			return false
		}
	}

	return true
}

// Accession returns the CURIE portion of an "ACCESSION|NAME" key, or the
// whole key when it has no pipe.
func Accession(key string) string {
	acc, _, _ := strings.Cut(key, "|")
	return acc
}

// Attribute is one entry in a Store.
type Attribute struct {
	// Key is the CV term reference "ACCESSION|NAME". Plain names without an
	// accession are tolerated for non-CV metadata.
	Key string

	// Value is the typed value.
	Value Value

	// GroupID links semantically related attributes on the same store.
	// Zero means ungrouped.
	GroupID int

	// OwnerID names the attribute set this attribute was stamped from, or
	// is empty for directly assigned attributes. Writers elide owned
	// attributes because re-applying the set reproduces them.
	OwnerID string
}

func (a Attribute) String() string {
	if a.GroupID == 0 {
		return fmt.Sprintf("%s=%s", a.Key, FormatValue(a.Value))
	}

	return fmt.Sprintf("[%d]%s=%s", a.GroupID, a.Key, FormatValue(a.Value))
}

// TryCast converts a raw string into the most specific Value it can:
// int64, then float64, then Term, falling back to the string itself.
func TryCast(s string) Value {
	if s == "" {
		return s
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if t, ok := ParseTerm(s); ok {
		return t
	}

	return s
}

// FormatValue renders a Value in its canonical text form, the inverse of
// TryCast. Integral floats keep a trailing ".0" so their type survives a
// round trip.
func FormatValue(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return formatFloat(val)
	case float32:
		return formatFloat(float64(val))
	case bool:
		return strconv.FormatBool(val)
	case Term:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}

	return strconv.FormatFloat(v, 'g', -1, 64)
}
