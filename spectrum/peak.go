package spectrum

import (
	"github.com/speclib/speclib/annotation"
	"github.com/speclib/speclib/attribute"
)

// Peak is a single centroided peak in a spectrum's peak list.
type Peak struct {
	MZ        float64
	Intensity float64
	// Annotations explain the peak's origin. An empty list serializes as
	// the "?" placeholder.
	Annotations []annotation.Annotation
	// Aggregations carry the optional per-peak statistics declared by the
	// spectrum's peak attribute terms, in declaration order.
	Aggregations []attribute.Value
}
