package attribute

// Set is a named, reusable template of attributes that can be stamped onto
// any number of stores. Templates keep their own internal group ids; every
// application remaps them to fresh ids allocated by the target store, so
// two stores carrying the same set never share group ids.
type Set struct {
	Name  string
	attrs []Attribute
}

// NewSet creates an empty attribute set template.
func NewSet(name string) *Set {
	return &Set{Name: name}
}

// AddAttribute appends an ungrouped attribute to the template.
func (set *Set) AddAttribute(key string, value Value) {
	set.attrs = append(set.attrs, Attribute{Key: key, Value: value})
}

// AddGroupedAttribute appends an attribute tagged with a template-local
// group id. Template group ids only relate attributes within the template;
// they are rewritten on application.
func (set *Set) AddGroupedAttribute(key string, value Value, group int) {
	set.attrs = append(set.attrs, Attribute{Key: key, Value: value, GroupID: group})
}

// Attributes returns the template's attributes with their template-local
// group ids.
func (set *Set) Attributes() []Attribute {
	out := make([]Attribute, len(set.attrs))
	copy(out, set.attrs)

	return out
}

// Len returns the number of attributes in the template.
func (set *Set) Len() int {
	return len(set.attrs)
}

// Apply stamps the template onto target and records a reference attribute
// ("library attribute set name" = set name) so writers can serialize the
// application instead of the stamped attributes. refGroup tags the
// reference attribute itself when the application was grouped in the
// source; pass 0 for ungrouped.
func (set *Set) Apply(target *Store, refGroup int) {
	target.add(Attribute{Key: AttributeSetName, Value: set.Name, GroupID: refGroup})
	set.stamp(target)
}

// ApplyImplicit stamps the template onto target without a reference
// attribute. The "all" set of each kind is applied this way to every new
// entity.
func (set *Set) ApplyImplicit(target *Store) {
	set.stamp(target)
}

func (set *Set) stamp(target *Store) {
	target.markSetApplied(set.Name)

	// One fresh group id per distinct template group, allocated the first
	// time the group is seen during this application.
	remapped := make(map[int]int)
	for _, attr := range set.attrs {
		group := 0
		if attr.GroupID != 0 {
			fresh, ok := remapped[attr.GroupID]
			if !ok {
				fresh = target.NextGroupID()
				remapped[attr.GroupID] = fresh
			}
			group = fresh
		}
		target.add(Attribute{
			Key:     attr.Key,
			Value:   attr.Value,
			GroupID: group,
			OwnerID: set.Name,
		})
	}
}

// SetKind partitions attribute sets by the entity kind they apply to.
type SetKind uint8

const (
	SetKindSpectrum SetKind = iota + 1
	SetKindAnalyte
	SetKindInterpretation
	SetKindCluster
)

func (k SetKind) String() string {
	switch k {
	case SetKindSpectrum:
		return "Spectrum"
	case SetKindAnalyte:
		return "Analyte"
	case SetKindInterpretation:
		return "Interpretation"
	case SetKindCluster:
		return "Cluster"
	default:
		return "Unknown"
	}
}

// ParseSetKind maps the section label used in library headers to a SetKind.
func ParseSetKind(label string) (SetKind, bool) {
	switch label {
	case "Spectrum", "spectrum":
		return SetKindSpectrum, true
	case "Analyte", "analyte":
		return SetKindAnalyte, true
	case "Interpretation", "interpretation":
		return SetKindInterpretation, true
	case "Cluster", "cluster":
		return SetKindCluster, true
	default:
		return 0, false
	}
}
