//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package llvmc

import (
	"errors"
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/UnionCompilerDesign/safe-llvm/internal/bindings"
)

// ErrBackendUnavailable is returned when libLLVM was built without a backend.
var ErrBackendUnavailable = errors.New("llvmc: backend not available in this LLVM build")

// The LLVMInitializeNative* helpers are static inline in the C headers, so
// the per-backend entry points are resolved directly by name instead.
var (
	requiredTargetParts = []string{"TargetInfo", "Target", "TargetMC", "AsmPrinter"}
	optionalTargetParts = []string{"AsmParser"}
)

// InitializeTarget runs the initializer sequence of one LLVM backend, named
// as in LLVM's source tree ("X86", "AArch64", "RISCV", ...). LLVM's own
// initializers are idempotent, so calling this repeatedly is safe.
func InitializeTarget(backend string) error {
	if err := Load(); err != nil {
		return err
	}
	if backend == "" || CheckName(backend) != nil {
		return fmt.Errorf("%w: %q", ErrBackendUnavailable, backend)
	}

	addrs := make([]uintptr, 0, len(requiredTargetParts)+len(optionalTargetParts))
	for _, part := range requiredTargetParts {
		addr, err := bindings.Symbol("LLVMInitialize" + backend + part)
		if err != nil {
			return fmt.Errorf("%w: %s (%v)", ErrBackendUnavailable, backend, err)
		}
		addrs = append(addrs, addr)
	}
	for _, part := range optionalTargetParts {
		if addr, err := bindings.Symbol("LLVMInitialize" + backend + part); err == nil {
			addrs = append(addrs, addr)
		}
	}

	for _, addr := range addrs {
		purego.SyscallN(addr)
	}
	return nil
}
