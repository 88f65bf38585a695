//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import (
	"fmt"
	"unsafe"
)

// unknownError is reported when LLVM signals failure without a diagnostic.
const unknownError = "failed with unknown error"

// MessageError is a failure LLVM reported together with a diagnostic string.
type MessageError struct {
	Op      string // LLVM-C function that failed
	Message string // diagnostic text supplied by LLVM
}

// Error implements the error interface.
func (e *MessageError) Error() string {
	return fmt.Sprintf("llvm %s: %s", e.Op, e.Message)
}

// newMessageError takes ownership of an LLVM-allocated message.
// A nil message is itself reported as an error.
func newMessageError(op string, msg unsafe.Pointer) *MessageError {
	text := takeMessage(msg)
	if text == "" {
		text = unknownError
	}
	return &MessageError{Op: op, Message: text}
}
