//go:build (darwin || freebsd || linux) && (amd64 || arm64)

// Package safellvm is a safe layer over LLVM's C API, loaded at runtime
// without cgo.
//
// LLVM objects never leave the library as raw pointers. They are held in a
// Registry behind opaque tags, each guarded by its own reader/writer lock;
// contexts and execution engines are destroyed exactly once, when the last
// reference is dropped. Package ir builds IR through those tags and package
// jit compiles a module and calls into it.
//
// A minimal session:
//
//	if err := safellvm.Init(); err != nil {
//		log.Fatal(err)
//	}
//	r := safellvm.NewRegistry()
//	defer r.Close()
//	ctx, _ := ir.CreateContext(r)
//	mod, _ := ir.CreateModule(r, ctx, "m")
package safellvm

import (
	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/internal/bindings"
	"github.com/UnionCompilerDesign/safe-llvm/jit"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// Init loads libLLVM, binds the C API and routes LLVM diagnostics to
// Logger() or the DiagnosticCallback. ir.CreateContext loads the library on
// demand; without Init, diagnostics are logged through llvmc.Logger(). It is
// safe to call multiple times.
func Init() error {
	if err := llvmc.Load(); err != nil {
		return err
	}
	installDiagnostics()
	return nil
}

// IsLoaded returns true if libLLVM has been successfully loaded.
func IsLoaded() bool {
	return bindings.IsLoaded()
}

// Version returns the version of the loaded libLLVM, or zeros if it does not
// report one.
func Version() (major, minor, patch uint32) {
	return bindings.Version()
}

// LibraryPath returns the path libLLVM was loaded from.
func LibraryPath() string {
	return bindings.Path()
}

// NewRegistry creates a registry that logs through Logger().
func NewRegistry(opts ...registry.Option) *Registry {
	return registry.New(append([]registry.Option{registry.WithLogger(Logger())}, opts...)...)
}

// Re-export common types for convenience
type (
	// Tag identifies one registered LLVM object.
	Tag = handle.Tag

	// Category is the kind of object a Tag refers to.
	Category = handle.Category

	// Registry holds every live LLVM object.
	Registry = registry.Registry

	// Engine is a module bound to an execution engine.
	Engine = jit.Engine

	// Target selects a code generator backend.
	Target = jit.Target

	// Signature declares the native signature of a JIT-compiled function.
	Signature = jit.Signature
)

// Re-export categories
const (
	CategoryContext         = handle.Context
	CategoryModule          = handle.Module
	CategoryValue           = handle.Value
	CategoryBasicBlock      = handle.BasicBlock
	CategoryBuilder         = handle.Builder
	CategoryType            = handle.Type
	CategoryExecutionEngine = handle.ExecutionEngine
)
