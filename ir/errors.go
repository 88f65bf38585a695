//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"errors"
	"fmt"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
)

// ErrAbsent is matched by every construction failure. A failed operation
// allocates no tag; errors.Is(err, ErrAbsent) is the uniform "no result"
// check, and the wrapped reason names the cause.
var ErrAbsent = errors.New("ir: absent")

// Reasons wrapped by *AbsentError.
var (
	ErrStale           = errors.New("ir: handle is not live")
	ErrNullResult      = errors.New("ir: LLVM returned null")
	ErrBlockNotIndexed = errors.New("ir: block was not created through this registry")
	ErrNoBlock         = errors.New("ir: no such block")
	ErrNoInsertBlock   = errors.New("ir: builder is not positioned")
	ErrBlockTerminated = errors.New("ir: block already has a terminator")
	ErrModuleSealed    = errors.New("ir: module is bound to an execution engine")
	ErrNotEnum         = errors.New("ir: type is not an enum")
	ErrUnknownVariant  = errors.New("ir: unknown enum variant")
	ErrParamIndex      = errors.New("ir: parameter index out of range")
	ErrNoFunction      = errors.New("ir: no function with that name")
)

// ErrBrokenFunction is returned by VerifyFunction for a malformed function.
var ErrBrokenFunction = errors.New("ir: function failed verification")

// AbsentError describes why a construction operation produced no result.
type AbsentError struct {
	Op     string
	Tag    handle.Tag // offending input, zero when the failure is not tied to one
	Reason error
}

// Error names the operation, the offending tag if any, and the reason.
func (e *AbsentError) Error() string {
	if e.Tag.IsZero() {
		return fmt.Sprintf("ir: %s: %v", e.Op, e.Reason)
	}
	return fmt.Sprintf("ir: %s: %s: %v", e.Op, e.Tag, e.Reason)
}

// Is reports true for ErrAbsent.
func (e *AbsentError) Is(target error) bool {
	return target == ErrAbsent
}

// Unwrap returns the reason.
func (e *AbsentError) Unwrap() error {
	return e.Reason
}
