// Package lazy provides a value cell that is computed on first access.
package lazy

import "sync"

// Value holds a T that is either unresolved (only a resolver is known) or
// resolved. The resolver runs at most once, even under concurrent first
// reads; a resolved zero value is cached like any other value. Set moves
// the cell to the resolved state and the resolver is never consulted again.
type Value[T any] struct {
	mu       sync.Mutex
	resolve  func() T
	value    T
	resolved bool
}

// New returns an unresolved cell backed by resolve. A nil resolver resolves
// to the zero value.
func New[T any](resolve func() T) *Value[T] {
	return &Value[T]{resolve: resolve}
}

// Of returns a cell that is already resolved to v.
func Of[T any](v T) *Value[T] {
	return &Value[T]{value: v, resolved: true}
}

// Get returns the cached value, running the resolver on the first call.
// A resolver must not read its own cell.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.resolved {
		if v.resolve != nil {
			v.value = v.resolve()
		}
		v.resolved = true
		v.resolve = nil
	}
	return v.value
}

// Set overwrites the value and discards the resolver.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	v.resolved = true
	v.resolve = nil
	v.mu.Unlock()
}

// IsResolved reports whether the value has been computed or set.
func (v *Value[T]) IsResolved() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.resolved
}

// Index is a cell whose unresolved state is a raw table index read from a
// binary. The owner supplies the lookup at read time, so the cell holds no
// reference back into the table it points at. Index 0 is the zero value of
// a reference and resolves to the zero T without calling the lookup.
type Index[T any] struct {
	mu       sync.Mutex
	index    uint32
	value    T
	resolved bool
}

// NewIndex returns an unresolved cell for index.
func NewIndex[T any](index uint32) *Index[T] {
	return &Index[T]{index: index}
}

// Raw returns the index the cell was created with.
func (c *Index[T]) Raw() uint32 { return c.index }

// Get returns the cached value, calling lookup with the stored index on
// the first read.
func (c *Index[T]) Get(lookup func(index uint32) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resolved {
		if c.index != 0 && lookup != nil {
			c.value = lookup(c.index)
		}
		c.resolved = true
	}
	return c.value
}

// Set overwrites the value; the stored index is no longer consulted.
func (c *Index[T]) Set(value T) {
	c.mu.Lock()
	c.value = value
	c.resolved = true
	c.mu.Unlock()
}

// IsResolved reports whether the cell has been read or set.
func (c *Index[T]) IsResolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}
