package speclib

import (
	"fmt"
	"strings"

	"github.com/speclib/speclib/errs"
	"github.com/speclib/speclib/text"
)

// Backend describes one library format implementation: a name it can be
// requested by, the file extensions it claims, and its opener.
type Backend struct {
	Name       string
	Extensions []string
	Open       func(path string, opts ...text.Option) (*text.Library, error)
}

// Registry maps format names and file extensions to backends. It is
// constructed explicitly and passed by reference; there is no implicit
// global registration side effect.
type Registry struct {
	backends []Backend
}

// NewRegistry creates a registry holding the given backends.
func NewRegistry(backends ...Backend) *Registry {
	return &Registry{backends: backends}
}

// Register appends a backend. Later registrations win ties on extension.
func (r *Registry) Register(b Backend) {
	r.backends = append(r.backends, b)
}

// ByName returns the backend registered under the given format name.
func (r *Registry) ByName(name string) (Backend, bool) {
	for _, b := range r.backends {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}

	return Backend{}, false
}

// compression suffixes stripped before extension matching.
var compressedSuffixes = []string{".gz", ".zst", ".lz4", ".s2"}

// ForPath picks the backend whose extension matches path. Compression
// suffixes are ignored for the purpose of matching.
func (r *Registry) ForPath(path string) (Backend, error) {
	name := strings.ToLower(path)
	for _, suffix := range compressedSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}

	for i := len(r.backends) - 1; i >= 0; i-- {
		for _, ext := range r.backends[i].Extensions {
			if strings.HasSuffix(name, "."+ext) {
				return r.backends[i], nil
			}
		}
	}

	return Backend{}, fmt.Errorf("%w: %s", errs.ErrUnknownFormat, path)
}

// TextBackend is the native text format backend.
func TextBackend() Backend {
	return Backend{
		Name:       "text",
		Extensions: []string{"mzspeclib.txt", "mzlb.txt", "mzlib.txt"},
		Open:       text.Open,
	}
}

// DefaultRegistry returns a registry with every built-in backend.
func DefaultRegistry() *Registry {
	return NewRegistry(TextBackend())
}

// Open opens a library file, picking the backend by file extension from
// the default registry.
func Open(path string, opts ...text.Option) (*text.Library, error) {
	backend, err := DefaultRegistry().ForPath(path)
	if err != nil {
		return nil, err
	}

	return backend.Open(path, opts...)
}
