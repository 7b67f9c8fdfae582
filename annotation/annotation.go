// Package annotation defines the boundary to the peak-annotation grammar.
//
// Fragment-ion labels ("b2-H2O/0.5ppm", "y1^2", ...) have their own string
// grammar maintained outside this module. The text backend only needs to
// carry annotations through parse/write cycles, so the default parser keeps
// the raw text verbatim; a full grammar implementation can be injected
// wherever a Parser is accepted.
package annotation

import "strings"

// Annotation is one parsed peak annotation. Its String form is what the
// text writer serializes.
type Annotation interface {
	String() string
}

// Parser converts the annotation column of a peak line into annotation
// objects. The unannotated marker "?" is handled by the caller and never
// reaches the parser.
type Parser interface {
	Parse(s string) ([]Annotation, error)
}

// Raw is an annotation kept as its original text.
type Raw string

func (r Raw) String() string {
	return string(r)
}

// RawParser is the default Parser: it splits the column on commas and keeps
// each label verbatim, which round-trips any input without understanding it.
type RawParser struct{}

// Parse splits s into raw annotations.
func (RawParser) Parse(s string) ([]Annotation, error) {
	parts := strings.Split(s, ",")
	out := make([]Annotation, 0, len(parts))
	for _, part := range parts {
		out = append(out, Raw(part))
	}

	return out, nil
}

// Join renders annotations back to their column form; an empty list is the
// unannotated marker.
func Join(annotations []Annotation) string {
	if len(annotations) == 0 {
		return "?"
	}
	parts := make([]string, len(annotations))
	for i, a := range annotations {
		parts[i] = a.String()
	}

	return strings.Join(parts, ",")
}
