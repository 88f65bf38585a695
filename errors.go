//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package safellvm

import (
	"errors"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/internal/bindings"
	"github.com/UnionCompilerDesign/safe-llvm/ir"
	"github.com/UnionCompilerDesign/safe-llvm/jit"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
)

// MessageError is a failure LLVM described in words: verification,
// engine creation, writing a module.
type MessageError = llvmc.MessageError

// Common errors
var (
	// ErrNotLoaded indicates libLLVM is not loaded.
	ErrNotLoaded = bindings.ErrNotLoaded

	// ErrLibraryNotFound indicates no libLLVM could be found.
	ErrLibraryNotFound = bindings.ErrLibraryNotFound

	// ErrAbsent is matched by every failed construction operation.
	ErrAbsent = ir.ErrAbsent

	// ErrSymbolNotFound indicates a JIT lookup found no such function.
	ErrSymbolNotFound = jit.ErrSymbolNotFound

	// ErrEngineClosed indicates a call on a closed engine.
	ErrEngineClosed = jit.ErrEngineClosed
)

// IsAbsent reports whether err means an operation produced no result.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrAbsent)
}

// Diagnostic returns LLVM's message carried by err, or "" if err did not
// come from LLVM.
func Diagnostic(err error) string {
	var me *MessageError
	if errors.As(err, &me) {
		return me.Message
	}
	return ""
}

// Poisoned returns the poisoning error if v, a recovered panic value, came
// from accessing a poisoned handle.
func Poisoned(v any) (*handle.PoisonedError, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	var pe *handle.PoisonedError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
