//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// CreateContext creates an LLVM context owned by r. Its diagnostics are
// routed to the handler installed with llvmc.SetDiagnosticHandler, or logged
// through llvmc.Logger() when there is none. The
// context is destroyed when its tag is disposed and every outstanding
// reference is released.
func CreateContext(r *registry.Registry) (Context, error) {
	l := begin(r, "CreateContext")
	defer l.release()

	if err := llvmc.Load(); err != nil {
		l.fail(handle.Tag{}, err)
		return Context{}, l.err
	}
	ctx := llvmc.ContextCreate()
	llvmc.InstallDiagnosticHandler(ctx)
	h, err := keep(l, ctx)
	if err != nil && ctx != nil {
		llvmc.ContextDispose(ctx)
	}
	return h, err
}

// CreateModule creates an empty module named name inside ctx.
func CreateModule(r *registry.Registry, ctx Context, name string) (Module, error) {
	l := begin(r, "CreateModule")
	defer l.release()

	l.checkName(name)
	c := pin(l, ctx)
	var m llvmc.Module
	if l.ok() {
		m = llvmc.ModuleCreateWithName(name, c)
	}
	return keep(l, m)
}

// CreateBuilder creates an instruction builder for ctx. It is not positioned
// until PositionBuilder is called.
func CreateBuilder(r *registry.Registry, ctx Context) (Builder, error) {
	l := begin(r, "CreateBuilder")
	defer l.release()

	c := pin(l, ctx)
	var b llvmc.Builder
	if l.ok() {
		b = llvmc.CreateBuilder(c)
	}
	return keep(l, b)
}

// SetTargetTriple sets the target triple of m. An empty triple selects the
// host's default triple.
func SetTargetTriple(r *registry.Registry, m Module, triple string) error {
	l := begin(r, "SetTargetTriple")
	defer l.release()

	l.checkName(triple)
	if triple == "" {
		triple = llvmc.DefaultTargetTriple()
	}
	exclusive(l, m, func(mod llvmc.Module) {
		llvmc.SetTarget(mod, triple)
	})
	return l.err
}

// TargetTriple returns the target triple of m.
func TargetTriple(r *registry.Registry, m Module) (string, error) {
	l := begin(r, "TargetTriple")
	defer l.release()

	mod := pin(l, m)
	if !l.ok() {
		return "", l.err
	}
	return llvmc.Target(mod), nil
}
