// Package collision detects spectrum name collisions during index builds.
//
// Spectrum names are supposed to be unique within a library, but nothing
// in the format enforces it. Name lookups resolve to the first spectrum
// carrying the name; the tracker lets the index scan surface every later
// claimant instead of silently shadowing it.
package collision

// Tracker records spectrum names as an index scan encounters them and
// reports when a name is claimed by more than one spectrum.
type Tracker struct {
	firstKey map[string]int64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{firstKey: make(map[string]int64)}
}

// Track records that the spectrum with the given key carries name. It
// returns the key of the first spectrum seen with the same name and
// whether this call collided with it. Empty names are never tracked.
func (t *Tracker) Track(name string, key int64) (int64, bool) {
	if name == "" {
		return 0, false
	}
	if first, ok := t.firstKey[name]; ok {
		return first, true
	}
	t.firstKey[name] = key

	return key, false
}

// Count returns the number of distinct names seen so far.
func (t *Tracker) Count() int {
	return len(t.firstKey)
}

// Reset clears all tracked names so the tracker can serve another scan.
func (t *Tracker) Reset() {
	clear(t.firstKey)
}
