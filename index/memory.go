package index

import "iter"

// Memory is an in-process Index. It is rebuilt on every library open and
// discarded on close.
type Memory struct {
	specs    []Record
	clusters []Record

	byNumber        map[int64]int
	byName          map[string]int
	clusterByNumber map[int64]int

	pending        []Record
	pendingCluster []Record
}

var _ Index = (*Memory)(nil)

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{
		byNumber:        make(map[int64]int),
		byName:          make(map[string]int),
		clusterByNumber: make(map[int64]int),
	}
}

// Add implements Index.
func (m *Memory) Add(rec Record) error {
	m.pending = append(m.pending, rec)

	return nil
}

// AddCluster implements Index.
func (m *Memory) AddCluster(rec Record) error {
	m.pendingCluster = append(m.pendingCluster, rec)

	return nil
}

// Commit implements Index.
func (m *Memory) Commit() error {
	for _, rec := range m.pending {
		m.byNumber[rec.Number] = len(m.specs)
		if rec.Name != "" {
			if _, ok := m.byName[rec.Name]; !ok {
				m.byName[rec.Name] = len(m.specs)
			}
		}
		m.specs = append(m.specs, rec)
	}
	for _, rec := range m.pendingCluster {
		m.clusterByNumber[rec.Number] = len(m.clusters)
		m.clusters = append(m.clusters, rec)
	}
	m.pending = m.pending[:0]
	m.pendingCluster = m.pendingCluster[:0]

	return nil
}

// ByNumber implements Index.
func (m *Memory) ByNumber(number int64) (Record, error) {
	n, ok := m.byNumber[number]
	if !ok {
		return Record{}, lookupErr("spectrum", "number", number)
	}

	return m.specs[n], nil
}

// ByName implements Index.
func (m *Memory) ByName(name string) (Record, error) {
	n, ok := m.byName[name]
	if !ok {
		return Record{}, lookupErr("spectrum", "name", name)
	}

	return m.specs[n], nil
}

// ByPosition implements Index.
func (m *Memory) ByPosition(pos int64) (Record, error) {
	if pos < 0 || pos >= int64(len(m.specs)) {
		return Record{}, lookupErr("spectrum", "position", pos)
	}

	return m.specs[pos], nil
}

// ClusterByNumber implements Index.
func (m *Memory) ClusterByNumber(number int64) (Record, error) {
	n, ok := m.clusterByNumber[number]
	if !ok {
		return Record{}, lookupErr("cluster", "number", number)
	}

	return m.clusters[n], nil
}

// ClusterByPosition implements Index.
func (m *Memory) ClusterByPosition(pos int64) (Record, error) {
	if pos < 0 || pos >= int64(len(m.clusters)) {
		return Record{}, lookupErr("cluster", "position", pos)
	}

	return m.clusters[pos], nil
}

// Count implements Index.
func (m *Memory) Count() (int64, error) { return int64(len(m.specs)), nil }

// CountClusters implements Index.
func (m *Memory) CountClusters() (int64, error) { return int64(len(m.clusters)), nil }

// All implements Index.
func (m *Memory) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, rec := range m.specs {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Clusters implements Index.
func (m *Memory) Clusters() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, rec := range m.clusters {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Close implements Index.
func (m *Memory) Close() error { return nil }
