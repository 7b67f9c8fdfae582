package spectrum

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/speclib/speclib/attribute"
)

// Analyte describes one molecule a spectrum is attributed to. IDs are
// free-form strings, conventionally small decimal numbers.
type Analyte struct {
	*attribute.Store

	ID string
}

// NewAnalyte creates an empty analyte with the given ID.
func NewAnalyte(id string) *Analyte {
	return &Analyte{Store: attribute.NewStore(), ID: id}
}

// ChargeState returns the analyte's charge state attribute, or 0 when it
// is absent or not an integer.
func (a *Analyte) ChargeState() int64 {
	v, err := a.Get(attribute.ChargeState)
	if err != nil {
		return 0
	}
	z, _ := v.(int64)

	return z
}

// Interpretation groups the analytes that jointly explain a spectrum,
// along with per-interpretation attributes. The analyte mixture members
// attribute is kept in sync with the member set: it lists the member IDs
// in numeric order, and is absent while no analytes are attached.
type Interpretation struct {
	*attribute.Store

	ID       string
	Analytes map[string]*Analyte
	Members  map[string]*InterpretationMember

	order       []string
	memberOrder []string
}

// NewInterpretation creates an empty interpretation with the given ID.
func NewInterpretation(id string) *Interpretation {
	return &Interpretation{
		Store:    attribute.NewStore(),
		ID:       id,
		Analytes: make(map[string]*Analyte),
		Members:  make(map[string]*InterpretationMember),
	}
}

// AddAnalyte adds a to the interpretation's member set and refreshes the
// mixture members attribute.
func (i *Interpretation) AddAnalyte(a *Analyte) {
	if _, ok := i.Analytes[a.ID]; !ok {
		i.order = append(i.order, a.ID)
	}
	i.Analytes[a.ID] = a
	i.updateMixture()
}

// RemoveAnalyte removes the analyte with the given ID, if present, and
// refreshes the mixture members attribute.
func (i *Interpretation) RemoveAnalyte(id string) {
	if _, ok := i.Analytes[id]; !ok {
		return
	}
	delete(i.Analytes, id)
	for n, v := range i.order {
		if v == id {
			i.order = append(i.order[:n], i.order[n+1:]...)

			break
		}
	}
	i.updateMixture()
}

// AnalyteIDs returns the member analyte IDs in insertion order.
func (i *Interpretation) AnalyteIDs() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)

	return out
}

func (i *Interpretation) updateMixture() {
	if len(i.order) == 0 {
		i.Remove(attribute.AnalyteMixture)

		return
	}
	ids := make([]string, len(i.order))
	copy(ids, i.order)
	sortAnalyteIDs(ids)
	i.Replace(attribute.AnalyteMixture, strings.Join(ids, ","))
}

// sortAnalyteIDs orders ids numerically when every id parses as an
// integer, lexicographically otherwise.
func sortAnalyteIDs(ids []string) {
	for _, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			slices.Sort(ids)

			return
		}
	}
	slices.SortFunc(ids, func(a, b string) int {
		na, _ := strconv.ParseInt(a, 10, 64)
		nb, _ := strconv.ParseInt(b, 10, 64)

		return cmp.Compare(na, nb)
	})
}

// AddMember registers an interpretation member, replacing any previous
// member with the same ID.
func (i *Interpretation) AddMember(m *InterpretationMember) {
	if _, ok := i.Members[m.ID]; !ok {
		i.memberOrder = append(i.memberOrder, m.ID)
	}
	i.Members[m.ID] = m
}

// MemberList returns the interpretation members in insertion order.
func (i *Interpretation) MemberList() []*InterpretationMember {
	out := make([]*InterpretationMember, 0, len(i.memberOrder))
	for _, id := range i.memberOrder {
		out = append(out, i.Members[id])
	}

	return out
}

// InterpretationMember holds attributes scoped to a single analyte inside
// an interpretation. Its ID refers to the analyte it qualifies.
type InterpretationMember struct {
	*attribute.Store

	ID string
}

// NewInterpretationMember creates an empty member qualifying the analyte
// with the given ID.
func NewInterpretationMember(id string) *InterpretationMember {
	return &InterpretationMember{Store: attribute.NewStore(), ID: id}
}

// InterpretationCollection keeps a spectrum's interpretations in
// insertion order while allowing lookup by ID.
type InterpretationCollection struct {
	byID  map[string]*Interpretation
	order []*Interpretation
}

// NewInterpretationCollection creates an empty collection.
func NewInterpretationCollection() *InterpretationCollection {
	return &InterpretationCollection{byID: make(map[string]*Interpretation)}
}

// Add appends interp to the collection. Adding an ID that already exists
// replaces the stored interpretation in place.
func (c *InterpretationCollection) Add(interp *Interpretation) {
	if _, ok := c.byID[interp.ID]; ok {
		for n, v := range c.order {
			if v.ID == interp.ID {
				c.order[n] = interp

				break
			}
		}
	} else {
		c.order = append(c.order, interp)
	}
	c.byID[interp.ID] = interp
}

// Get returns the interpretation with the given ID, or nil.
func (c *InterpretationCollection) Get(id string) *Interpretation {
	return c.byID[id]
}

// Len returns the number of interpretations.
func (c *InterpretationCollection) Len() int { return len(c.order) }

// All returns the interpretations in insertion order. The returned slice
// is shared; callers must not modify it.
func (c *InterpretationCollection) All() []*Interpretation {
	return c.order
}
