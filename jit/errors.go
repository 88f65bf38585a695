//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package jit

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineClosed is returned by every call on a closed engine.
	ErrEngineClosed = errors.New("jit: engine closed")
	// ErrSymbolNotFound is matched by *SymbolError.
	ErrSymbolNotFound = errors.New("jit: symbol not found")
	// ErrEmptyName is returned for calls with an empty function name.
	ErrEmptyName = errors.New("jit: empty function name")
	// ErrModuleBound is returned when a module is already bound to an engine.
	ErrModuleBound = errors.New("jit: module already bound to an engine")
	// ErrModuleNotFound is returned when the module handle is not live.
	ErrModuleNotFound = errors.New("jit: module not found")
	// ErrUnknownBackend is returned for a Target naming no known backend.
	ErrUnknownBackend = errors.New("jit: unknown backend")
)

// SymbolError reports a function the engine could not resolve. It is
// distinct from ErrEngineClosed: the engine is still usable.
type SymbolError struct {
	Name string
}

// Error names the missing symbol.
func (e *SymbolError) Error() string {
	return fmt.Sprintf("jit: symbol %q not found", e.Name)
}

// Is reports true for ErrSymbolNotFound.
func (e *SymbolError) Is(target error) bool {
	return target == ErrSymbolNotFound
}

// SignatureError reports a signature or argument list rejected before the
// native call. Index is the offending parameter, or -1.
type SignatureError struct {
	Index  int
	Reason string
}

// Error describes the rejected signature or argument.
func (e *SignatureError) Error() string {
	if e.Index < 0 {
		return "jit: bad signature: " + e.Reason
	}
	return fmt.Sprintf("jit: bad signature: parameter %d: %s", e.Index, e.Reason)
}
