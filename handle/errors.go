package handle

import (
	"errors"
	"fmt"
)

var (
	// ErrNilPointer is returned when a cell would be built around a nil pointer.
	ErrNilPointer = errors.New("handle: nil foreign pointer")

	// ErrInvalidCategory is returned when a cell is declared with an unknown category.
	ErrInvalidCategory = errors.New("handle: invalid category")

	// ErrDisposed is the panic value for access to a cell whose last
	// reference has already been released.
	ErrDisposed = errors.New("handle: access to disposed cell")

	// ErrOverRelease is the panic value for releasing more references than
	// were retained.
	ErrOverRelease = errors.New("handle: cell released more times than retained")
)

// CategoryError is the panic value raised when a cell is accessed under a
// category other than the one it was declared with. Reinterpreting a
// foreign pointer as the wrong kind of object is never recoverable.
type CategoryError struct {
	Want Category // category requested by the caller
	Have Category // category the cell was declared with
}

// Error names both categories.
func (e *CategoryError) Error() string {
	return fmt.Sprintf("handle: category mismatch: cell holds %s, accessed as %s", e.Have, e.Want)
}

// PoisonedError is the panic value raised when a cell is accessed after a
// previous accessor panicked while holding its lock. The state of the foreign
// object after a partial update cannot be trusted.
type PoisonedError struct {
	Category Category
	Cause    any // value the earlier accessor panicked with
}

// Error names the poisoned category and the original panic.
func (e *PoisonedError) Error() string {
	return fmt.Sprintf("handle: %s cell poisoned by earlier panic: %v", e.Category, e.Cause)
}

// Unwrap returns the original panic value if it was an error.
func (e *PoisonedError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
