package handle

import (
	"fmt"
	"sync/atomic"
)

// Tag is an opaque identifier for a foreign object. Two tags are equal iff
// they have the same category and id. The zero Tag is never issued.
type Tag struct {
	Category Category
	ID       uint64
}

// IsZero reports whether t is the zero Tag.
func (t Tag) IsZero() bool {
	return t.ID == 0
}

// String formats the tag as "<category>#<id>".
func (t Tag) String() string {
	return fmt.Sprintf("%s#%d", t.Category, t.ID)
}

// Allocator issues tags from a single counter shared by every category, so
// an id is never handed out twice by one allocator even across categories
// and even after the object it named has been disposed.
//
// The zero value is ready to use. Thread-safe.
type Allocator struct {
	next atomic.Uint64
}

// Next returns a fresh tag of the given category.
func (a *Allocator) Next(c Category) Tag {
	return Tag{Category: c, ID: a.next.Add(1)}
}

// Issued returns how many tags have been allocated so far.
func (a *Allocator) Issued() uint64 {
	return a.next.Load()
}
