package handle

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// ReleaseFunc releases the native resource behind an owning cell.
type ReleaseFunc func(ptr unsafe.Pointer)

// Cell owns exactly one non-null foreign pointer. It is shared by every holder
// of its Tag through explicit reference counting: the creator holds the first
// reference, Retain adds one and Release drops one. When the last reference is
// dropped the release function runs exactly once, and only for owning
// categories (Context and ExecutionEngine).
//
// Every access goes through Read or Write, which take the cell's read or
// write lock for the duration of the callback.
type Cell struct {
	mu       sync.RWMutex
	ptr      unsafe.Pointer
	category Category
	release  ReleaseFunc

	refs     atomic.Int64
	disposed atomic.Bool
	poison   atomic.Pointer[PoisonedError]
}

// NewCell wraps ptr in a cell declared with category c. The returned cell
// holds one reference. release may be nil; it is ignored for alias
// categories.
func NewCell(c Category, ptr unsafe.Pointer, release ReleaseFunc) (*Cell, error) {
	if ptr == nil {
		return nil, ErrNilPointer
	}
	if !c.Valid() {
		return nil, ErrInvalidCategory
	}
	cell := &Cell{ptr: ptr, category: c, release: release}
	cell.refs.Store(1)
	return cell, nil
}

// Category returns the category the cell was declared with.
func (c *Cell) Category() Category {
	return c.category
}

// Read calls f with the pointer while holding the read lock.
//
// Read panics with *CategoryError if want is not the cell's category, with
// *PoisonedError if an earlier accessor panicked, and with ErrDisposed if the
// cell has been released. If f panics the cell is poisoned and the panic
// continues.
func (c *Cell) Read(want Category, f func(ptr unsafe.Pointer)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.access(want, f)
}

// Write is Read with the exclusive lock. Use it for any call that mutates
// state inside the foreign object.
func (c *Cell) Write(want Category, f func(ptr unsafe.Pointer)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access(want, f)
}

func (c *Cell) access(want Category, f func(ptr unsafe.Pointer)) {
	if want != c.category {
		panic(&CategoryError{Want: want, Have: c.category})
	}
	if p := c.poison.Load(); p != nil {
		panic(p)
	}
	if c.disposed.Load() {
		panic(ErrDisposed)
	}

	defer func() {
		if r := recover(); r != nil {
			c.poison.CompareAndSwap(nil, &PoisonedError{Category: c.category, Cause: r})
			panic(r)
		}
	}()
	f(c.ptr)
}

// Retire runs f under the exclusive lock and then marks the cell disposed,
// so any holder that still has a reference fails loudly on its next access
// instead of touching a pointer the foreign library has already freed.
// The release function is not run.
func (c *Cell) Retire(want Category, f func(ptr unsafe.Pointer)) {
	c.RetireIf(want, func(ptr unsafe.Pointer) bool {
		f(ptr)
		return true
	})
}

// RetireIf is Retire for callers that only learn under the lock whether the
// foreign library freed the pointer. The cell is marked disposed iff f
// returns true, before the lock is released.
func (c *Cell) RetireIf(want Category, f func(ptr unsafe.Pointer) bool) (retired bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access(want, func(ptr unsafe.Pointer) {
		retired = f(ptr)
	})
	if retired {
		c.disposed.Store(true)
	}
	return retired
}

// Retain adds a reference. It fails once the last reference has been
// released, so a disposed cell can never be resurrected.
func (c *Cell) Retain() bool {
	for {
		n := c.refs.Load()
		if n <= 0 {
			return false
		}
		if c.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference, disposing the cell when it was the last one.
func (c *Cell) Release() {
	switch n := c.refs.Add(-1); {
	case n == 0:
		c.dispose()
	case n < 0:
		panic(ErrOverRelease)
	}
}

func (c *Cell) dispose() {
	if !c.disposed.CompareAndSwap(false, true) {
		return
	}
	if !c.category.Owning() || c.release == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release(c.ptr)
}

// Refs returns the current reference count.
func (c *Cell) Refs() int64 {
	return c.refs.Load()
}

// Disposed reports whether the last reference has been released.
func (c *Cell) Disposed() bool {
	return c.disposed.Load()
}

// Poisoned reports whether an accessor panicked while holding the lock.
func (c *Cell) Poisoned() bool {
	return c.poison.Load() != nil
}

// Pointer is the constraint satisfied by the typed foreign pointer kinds in
// package llvmc.
type Pointer interface {
	~unsafe.Pointer
}

// View is Read with the pointer converted to its typed form.
func View[P Pointer](c *Cell, want Category, f func(P)) {
	c.Read(want, func(ptr unsafe.Pointer) { f(P(ptr)) })
}

// Mutate is Write with the pointer converted to its typed form.
func Mutate[P Pointer](c *Cell, want Category, f func(P)) {
	c.Write(want, func(ptr unsafe.Pointer) { f(P(ptr)) })
}
