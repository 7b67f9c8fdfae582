// Package index maps library entry keys, names and ordinal positions to
// byte offsets in the source file, enabling random access without
// re-scanning. Two implementations are provided: an in-memory index built
// on every open, and a SQLite sidecar index that persists across opens.
package index

import (
	"fmt"
	"iter"

	"github.com/speclib/speclib/errs"
)

// Record locates one library entry.
type Record struct {
	// Number is the entry key from the entry marker.
	Number int64
	// Position is the zero-based ordinal of the entry within its kind.
	Position int64
	// Offset is the byte offset of the entry marker line.
	Offset uint64
	// Name is the library spectrum name, empty for clusters and unnamed
	// spectra.
	Name string
}

// Index resolves spectra and clusters to their byte offsets. Add and
// AddCluster buffer records until Commit; lookups observe only committed
// records.
type Index interface {
	// Add buffers a spectrum record.
	Add(rec Record) error
	// AddCluster buffers a cluster record.
	AddCluster(rec Record) error
	// Commit makes all buffered records visible to lookups.
	Commit() error

	// ByNumber returns the spectrum record with the given key.
	ByNumber(number int64) (Record, error)
	// ByName returns the first spectrum record with the given name.
	ByName(name string) (Record, error)
	// ByPosition returns the spectrum record at the given ordinal.
	ByPosition(pos int64) (Record, error)
	// ClusterByNumber returns the cluster record with the given key.
	ClusterByNumber(number int64) (Record, error)
	// ClusterByPosition returns the cluster record at the given ordinal.
	ClusterByPosition(pos int64) (Record, error)

	// Count returns the number of committed spectrum records.
	Count() (int64, error)
	// CountClusters returns the number of committed cluster records.
	CountClusters() (int64, error)
	// All yields committed spectrum records in position order.
	All() iter.Seq2[Record, error]
	// Clusters yields committed cluster records in position order.
	Clusters() iter.Seq2[Record, error]

	// Close releases the index's resources.
	Close() error
}

func lookupErr(kind, field string, v any) error {
	return fmt.Errorf("%w: no %s with %s %v", errs.ErrIndexLookup, kind, field, v)
}
