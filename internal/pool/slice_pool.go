// Package pool provides typed sync.Pool wrappers for reusable slices.
//
// Record parsing allocates a scratch slice per record; pooling those
// buffers keeps sequential iteration over large libraries from churning
// the allocator.
package pool

import "sync"

// Slice pools reusable []T scratch buffers. Create one with NewSlice;
// the zero value is not usable.
type Slice[T any] struct {
	p sync.Pool
}

// NewSlice creates a pool whose buffers start with the given capacity.
func NewSlice[T any](capacity int) *Slice[T] {
	return &Slice[T]{p: sync.Pool{
		New: func() any {
			s := make([]T, 0, capacity)

			return &s
		},
	}}
}

// Get returns an empty slice with whatever capacity the pooled buffer
// retained from previous use.
func (sp *Slice[T]) Get() []T {
	ptr, _ := sp.p.Get().(*[]T)

	return (*ptr)[:0]
}

// Put returns s to the pool. The caller must not use s afterwards; the
// elements it held stay reachable until overwritten, so do not pool
// slices of secret data.
func (sp *Slice[T]) Put(s []T) {
	s = s[:0]
	sp.p.Put(&s)
}
