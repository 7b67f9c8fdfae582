package spectrum

import "github.com/speclib/speclib/attribute"

// SpectrumCluster is a grouping of similar library spectra. Clusters
// carry only attributes; the member spectra reference the cluster key
// from their own attribute lists.
type SpectrumCluster struct {
	*attribute.Store

	// Key is the library-unique cluster key from the <Cluster=K> marker.
	Key int64
	// Index is the zero-based ordinal position of the cluster.
	Index int64
}

// NewCluster creates an empty cluster with the given key.
func NewCluster(key int64) *SpectrumCluster {
	return &SpectrumCluster{Store: attribute.NewStore(), Key: key, Index: -1}
}

// EntryKey implements Entry.
func (c *SpectrumCluster) EntryKey() int64 { return c.Key }

// Size returns the declared cluster size attribute, or 0 when absent.
func (c *SpectrumCluster) Size() int64 {
	v, err := c.Get(attribute.ClusterSize)
	if err != nil {
		return 0
	}
	n, _ := v.(int64)

	return n
}
