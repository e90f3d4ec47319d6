package common

import "fmt"

// Registry maps names to stable numeric ids. Ids are positions in the
// manifest the registry was built from, so two binaries compiled from the
// same manifest agree on every id regardless of initialization order.
type Registry struct {
	kind  string
	first int
	names []string
	ids   map[string]int
}

// NewRegistry builds a registry whose ids start at first. It fails when
// the manifest does not fit into limit ids or repeats a name.
func NewRegistry(kind string, first, limit int, manifest ...string) (*Registry, error) {
	if first+len(manifest) > limit {
		return nil, &CapacityExceededError{Kind: kind, Limit: limit}
	}

	r := &Registry{
		kind:  kind,
		first: first,
		names: append([]string{}, manifest...),
		ids:   make(map[string]int, len(manifest)),
	}
	for i, name := range manifest {
		if _, ok := r.ids[name]; ok {
			return nil, fmt.Errorf("%s %q listed twice", kind, name)
		}
		r.ids[name] = first + i
	}
	return r, nil
}

// MustRegistry is NewRegistry for package initialization; misconfigured
// manifests stop the process before anything is sent.
func MustRegistry(kind string, first, limit int, manifest ...string) *Registry {
	r, err := NewRegistry(kind, first, limit, manifest...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(name string) (int, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// MustLookup panics on names missing from the manifest.
func (r *Registry) MustLookup(name string) int {
	id, ok := r.ids[name]
	if !ok {
		panic(fmt.Sprintf("%s %q is not in the manifest", r.kind, name))
	}
	return id
}

func (r *Registry) Name(id int) (string, bool) {
	i := id - r.first
	if i < 0 || i >= len(r.names) {
		return "", false
	}
	return r.names[i], true
}

func (r *Registry) Len() int { return len(r.names) }
