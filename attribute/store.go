package attribute

import (
	"fmt"
	"iter"
	"slices"

	"github.com/speclib/speclib/errs"
)

// Store is an ordered, append-biased collection of attributes with a
// monotonic group-id counter scoped to this store.
//
// Group ids are local: two stores may both contain group 1 without any
// relationship between them. Templates stamped onto a store always receive
// fresh group ids from that store's counter, so applications never collide.
//
// The zero value could not allocate group ids safely across copies; use
// NewStore.
type Store struct {
	attrs        []Attribute
	groupCounter int
	appliedSets  []string
}

// NewStore creates an empty attribute store.
func NewStore() *Store {
	return &Store{}
}

// Add appends an ungrouped attribute.
func (s *Store) Add(key string, value Value) {
	s.attrs = append(s.attrs, Attribute{Key: key, Value: value})
}

// AddWithGroup appends an attribute tagged with a group id previously
// obtained from NextGroupID on this store.
func (s *Store) AddWithGroup(key string, value Value, group int) error {
	if group < 1 || group > s.groupCounter {
		return fmt.Errorf("%w: %d not allocated by this store", errs.ErrInvalidGroup, group)
	}
	s.attrs = append(s.attrs, Attribute{Key: key, Value: value, GroupID: group})

	return nil
}

// add appends a fully populated attribute without validating its group.
// Used by Set application and header backfilling, which manage group ids
// themselves.
func (s *Store) add(attr Attribute) {
	if attr.GroupID > s.groupCounter {
		s.groupCounter = attr.GroupID
	}
	s.attrs = append(s.attrs, attr)
}

// Prepend inserts an ungrouped attribute before every existing one. The
// format-version attribute is required to come first in a library header,
// so backfilling it cannot simply append.
func (s *Store) Prepend(key string, value Value) {
	s.attrs = slices.Insert(s.attrs, 0, Attribute{Key: key, Value: value})
}

// NextGroupID allocates a fresh group id, local to this store.
func (s *Store) NextGroupID() int {
	s.groupCounter++
	return s.groupCounter
}

// Has reports whether at least one attribute with the given key exists.
func (s *Store) Has(key string) bool {
	for _, attr := range s.attrs {
		if attr.Key == key {
			return true
		}
	}

	return false
}

// Get returns the value of the single attribute with the given key.
//
// Returns errs.ErrMissingAttribute when absent and errs.ErrAmbiguousAttribute
// when the key is repeated; repeated keys are retrieved with GetAll or
// disambiguated with GetInGroup.
func (s *Store) Get(key string) (Value, error) {
	var (
		found Value
		n     int
	)
	for _, attr := range s.attrs {
		if attr.Key == key {
			if n == 0 {
				found = attr.Value
			}
			n++
		}
	}
	switch n {
	case 0:
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingAttribute, key)
	case 1:
		return found, nil
	default:
		return nil, fmt.Errorf("%w: %s", errs.ErrAmbiguousAttribute, key)
	}
}

// GetAll returns the values of every attribute with the given key, in
// insertion order.
func (s *Store) GetAll(key string) ([]Value, error) {
	var values []Value
	for _, attr := range s.attrs {
		if attr.Key == key {
			values = append(values, attr.Value)
		}
	}
	if values == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingAttribute, key)
	}

	return values, nil
}

// GetInGroup returns the value of the attribute with the given key inside
// the given group.
func (s *Store) GetInGroup(key string, group int) (Value, error) {
	for _, attr := range s.attrs {
		if attr.Key == key && attr.GroupID == group {
			return attr.Value, nil
		}
	}

	return nil, fmt.Errorf("%w: %s in group %d", errs.ErrMissingAttribute, key, group)
}

// GetAttribute returns the first raw attribute with the given key.
func (s *Store) GetAttribute(key string) (Attribute, error) {
	for _, attr := range s.attrs {
		if attr.Key == key {
			return attr, nil
		}
	}

	return Attribute{}, fmt.Errorf("%w: %s", errs.ErrMissingAttribute, key)
}

// Group returns every attribute tagged with the given group id, in
// insertion order.
func (s *Store) Group(group int) []Attribute {
	var members []Attribute
	for _, attr := range s.attrs {
		if attr.GroupID == group && group != 0 {
			members = append(members, attr)
		}
	}

	return members
}

// Remove drops every attribute with the given key. The store is rebuilt
// without the matching entries; group ids of survivors are untouched.
func (s *Store) Remove(key string) {
	s.attrs = slices.DeleteFunc(s.attrs, func(attr Attribute) bool {
		return attr.Key == key
	})
}

// RemoveInGroup drops attributes matching both key and group.
func (s *Store) RemoveInGroup(key string, group int) {
	s.attrs = slices.DeleteFunc(s.attrs, func(attr Attribute) bool {
		return attr.Key == key && attr.GroupID == group
	})
}

// Replace sets the value of the first attribute with the given key,
// appending a new attribute when none exists.
func (s *Store) Replace(key string, value Value) {
	for i := range s.attrs {
		if s.attrs[i].Key == key {
			s.attrs[i].Value = value
			return
		}
	}
	s.Add(key, value)
}

// Len returns the number of attributes in the store.
func (s *Store) Len() int {
	return len(s.attrs)
}

// All iterates the attributes in insertion order.
func (s *Store) All() iter.Seq[Attribute] {
	return func(yield func(Attribute) bool) {
		for _, attr := range s.attrs {
			if !yield(attr) {
				return
			}
		}
	}
}

// Attributes returns a copy of the attribute sequence.
func (s *Store) Attributes() []Attribute {
	return slices.Clone(s.attrs)
}

// AppliedSets returns the names of attribute sets stamped onto this store,
// in application order.
func (s *Store) AppliedSets() []string {
	return slices.Clone(s.appliedSets)
}

// HasAppliedSet reports whether the named set was stamped onto this store.
func (s *Store) HasAppliedSet(name string) bool {
	return slices.Contains(s.appliedSets, name)
}

func (s *Store) markSetApplied(name string) {
	if !slices.Contains(s.appliedSets, name) {
		s.appliedSets = append(s.appliedSets, name)
	}
}

// Equal reports whether two stores hold the same attributes, in the same
// order, with the same grouping and ownership.
func (s *Store) Equal(other *Store) bool {
	if s == nil || other == nil {
		return s == other
	}

	return slices.Equal(s.attrs, other.attrs)
}
