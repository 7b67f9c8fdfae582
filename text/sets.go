package text

import (
	"github.com/speclib/speclib/attribute"
)

// setTable keeps one kind's attribute sets in declaration order.
type setTable struct {
	names  []string
	byName map[string]*attribute.Set
}

func newSetTable() *setTable {
	t := &setTable{byName: make(map[string]*attribute.Set)}
	// Every kind implicitly has an "all" set applied to new entities.
	t.add(attribute.NewSet(allSetName))

	return t
}

func (t *setTable) add(set *attribute.Set) {
	if _, ok := t.byName[set.Name]; !ok {
		t.names = append(t.names, set.Name)
	}
	t.byName[set.Name] = set
}

func (t *setTable) get(name string) (*attribute.Set, bool) {
	set, ok := t.byName[name]

	return set, ok
}

func (t *setTable) list() []*attribute.Set {
	out := make([]*attribute.Set, 0, len(t.names))
	for _, name := range t.names {
		out = append(out, t.byName[name])
	}

	return out
}

const allSetName = "all"

// Sets indexes a library's attribute set templates by entity kind and
// name. Each kind carries an implicit "all" template that is stamped onto
// every new entity of that kind without a reference attribute.
type Sets struct {
	tables map[attribute.SetKind]*setTable
}

// NewSets creates an empty registry with the implicit "all" templates.
func NewSets() *Sets {
	return &Sets{tables: map[attribute.SetKind]*setTable{
		attribute.SetKindSpectrum:       newSetTable(),
		attribute.SetKindAnalyte:        newSetTable(),
		attribute.SetKindInterpretation: newSetTable(),
		attribute.SetKindCluster:        newSetTable(),
	}}
}

// Add registers set under the given kind, replacing any previous set with
// the same name.
func (s *Sets) Add(kind attribute.SetKind, set *attribute.Set) {
	s.tables[kind].add(set)
}

// Get returns the named set of the given kind.
func (s *Sets) Get(kind attribute.SetKind, name string) (*attribute.Set, bool) {
	return s.tables[kind].get(name)
}

// Kind returns the sets of one kind in declaration order, the implicit
// "all" template first.
func (s *Sets) Kind(kind attribute.SetKind) []*attribute.Set {
	return s.tables[kind].list()
}

// applyAll stamps the kind's implicit "all" template onto target when the
// template is non-empty.
func (s *Sets) applyAll(kind attribute.SetKind, target *attribute.Store) {
	if set, ok := s.Get(kind, allSetName); ok && set.Len() > 0 {
		set.ApplyImplicit(target)
	}
}
