// Package registry maps collection names to collections.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/internal/collection"
)

var (
	// ErrNotFound is returned when no collection has the requested name.
	ErrNotFound = errors.New("collection not found")

	// ErrInvalidName is returned for names that cannot be used as a collection name.
	ErrInvalidName = errors.New("invalid collection name")
)

// ErrSchemaConflict is returned when a collection is requested with a
// dimension or metric different from the existing one.
type ErrSchemaConflict struct {
	Name               string
	ExistingDimension  int
	ExistingMetric     distance.Metric
	RequestedDimension int
	RequestedMetric    distance.Metric
}

func (e *ErrSchemaConflict) Error() string {
	return fmt.Sprintf("collection %q exists with dimension %d/%s, requested %d/%s",
		e.Name, e.ExistingDimension, e.ExistingMetric, e.RequestedDimension, e.RequestedMetric)
}

// Registry owns the collections of one store. It never takes a collection
// lock while holding its own.
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*collection.Collection
	opts        []collection.Option
}

// New creates an empty registry. opts are applied to every collection it
// creates.
func New(opts ...collection.Option) *Registry {
	return &Registry{
		collections: make(map[string]*collection.Collection),
		opts:        opts,
	}
}

// ValidateName checks that name is usable as a collection name. Names become
// path segments in blob stores, so separators and dot segments are rejected.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// GetOrCreate returns the collection called name, creating it when absent.
// created reports whether this call created it. Concurrent calls for the same
// name converge on one instance.
func (r *Registry) GetOrCreate(name string, dimension int, metric distance.Metric) (c *collection.Collection, created bool, err error) {
	if err := ValidateName(name); err != nil {
		return nil, false, err
	}

	r.mu.RLock()
	c, ok := r.collections[name]
	r.mu.RUnlock()
	if ok {
		return c, false, conflict(c, dimension, metric)
	}

	fresh, err := collection.New(name, dimension, metric, r.opts...)
	if err != nil {
		return nil, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.collections[name]; ok {
		return c, false, conflict(c, dimension, metric)
	}
	r.collections[name] = fresh
	return fresh, true, nil
}

func conflict(c *collection.Collection, dimension int, metric distance.Metric) error {
	if c.Dimension() == dimension && c.Metric() == metric {
		return nil
	}
	return &ErrSchemaConflict{
		Name:               c.Name(),
		ExistingDimension:  c.Dimension(),
		ExistingMetric:     c.Metric(),
		RequestedDimension: dimension,
		RequestedMetric:    metric,
	}
}

// Put installs c under its name, replacing any existing collection.
func (r *Registry) Put(c *collection.Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[c.Name()] = c
}

// Get returns the collection called name.
func (r *Registry) Get(name string) (*collection.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return c, nil
}

// Delete removes the collection called name and reports whether it existed.
func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.collections[name]; !ok {
		return false
	}
	delete(r.collections, name)
	return true
}

// List returns all collections sorted by name.
func (r *Registry) List() []*collection.Collection {
	r.mu.RLock()
	out := make([]*collection.Collection, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, c)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *collection.Collection) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out
}

// Len returns the number of collections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.collections)
}
