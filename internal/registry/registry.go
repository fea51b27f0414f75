// Package registry tracks which product identifiers have been created
// during a run.
//
// The registry is the only piece of state shared by every virtual user.
// Writers allocate identifiers through an atomic counter; readers pick
// targets from the contiguous range [1, mark]. Identifiers are never
// deleted, so a value observed at read time stays valid for the rest of
// the run.
package registry

import (
	"fmt"
	"math/rand"
	"sync/atomic"
)

const (
	// MissingBase is the lower bound of the identifier range reserved for
	// requests that must target a product that was never created.
	// AllocateNext refuses to cross it, so the allocated range and the
	// missing range cannot collide.
	MissingBase int64 = 1 << 40

	// missingSpan is the width of the reserved missing range.
	missingSpan int64 = 1 << 20
)

// Registry holds the high-water mark of created product identifiers.
// The zero value is not usable; call New.
type Registry struct {
	mark atomic.Int64
}

// New creates an empty registry. One registry is shared per run.
func New() *Registry {
	return &Registry{}
}

// AllocateNext atomically advances the high-water mark and returns the
// new identifier. No two callers ever receive the same value.
//
// Crossing into the reserved missing range would break the guarantee
// that PickMissing identifiers were never allocated, so that case
// panics instead of returning a compromised identifier.
func (r *Registry) AllocateNext() int64 {
	id := r.mark.Add(1)
	if id >= MissingBase {
		panic(fmt.Sprintf("registry: allocated id %d crossed into the reserved missing range (>= %d)", id, MissingBase))
	}
	return id
}

// Mark returns the current high-water mark.
func (r *Registry) Mark() int64 {
	return r.mark.Load()
}

// PickExisting returns a uniformly random created identifier. ok is
// false while nothing has been created yet; callers are expected to
// fall back to a create action in that case.
//
// The read races benignly with concurrent allocation: the snapshot of
// the mark may be slightly stale, but every identifier at or below it
// has been issued.
func (r *Registry) PickExisting(rng *rand.Rand) (id int64, ok bool) {
	mark := r.mark.Load()
	if mark < 1 {
		return 0, false
	}
	return 1 + rng.Int63n(mark), true
}

// PickMissing returns an identifier guaranteed to lie outside any value
// ever returned by AllocateNext in this run.
func (r *Registry) PickMissing(rng *rand.Rand) int64 {
	return MissingBase + rng.Int63n(missingSpan)
}

// Reset clears the mark between independent runs. Must not be called
// while virtual users are active.
func (r *Registry) Reset() {
	r.mark.Store(0)
}
