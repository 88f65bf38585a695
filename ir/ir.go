//go:build (darwin || freebsd || linux) && (amd64 || arm64)

// Package ir builds LLVM IR through handles held in a registry.Registry.
//
// Every operation takes the registry and typed handles, resolves them to
// LLVM pointers, calls LLVM and stores any new object back into the registry.
// A failure of any kind (stale handle, LLVM returning null, an unindexed
// block) produces no tag and an error matching ErrAbsent; the cause is also
// logged at debug level.
//
// Input cells are retained for the length of an operation so none of them can
// be disposed under it. Calls that change the state of an LLVM object (moving
// a builder, emitting through it, adding a function to a module) run under
// that object's write lock; no two cell locks are ever held at once.
//
// Objects created in a context live as long as the context. The layer does
// not check that a module or value handle is used only while its context
// handle is live; that ordering is the caller's.
package ir

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// Typed handles for each kind of LLVM object.
type (
	Context = registry.Handle[llvmc.Context]
	Module  = registry.Handle[llvmc.Module]
	Type    = registry.Handle[llvmc.Type]
	Value   = registry.Handle[llvmc.Value]
	Block   = registry.Handle[llvmc.BasicBlock]
	Builder = registry.Handle[llvmc.Builder]
)

// lease pins the cells an operation reads and collects its first failure.
type lease struct {
	r     *registry.Registry
	op    string
	cells []*handle.Cell
	err   error
}

func begin(r *registry.Registry, op string) *lease {
	return &lease{r: r, op: op}
}

// release drops every pinned cell. Deferred by each operation.
func (l *lease) release() {
	for _, c := range l.cells {
		c.Release()
	}
	l.cells = nil
}

func (l *lease) fail(tag handle.Tag, reason error) {
	if l.err != nil {
		return
	}
	l.err = &AbsentError{Op: l.op, Tag: tag, Reason: reason}
	Logger().Debug("construction failed",
		zap.String("op", l.op),
		zap.Stringer("tag", tag),
		zap.Error(reason),
	)
}

func (l *lease) ok() bool {
	return l.err == nil
}

func (l *lease) pinCell(tag handle.Tag) *handle.Cell {
	if l.err != nil {
		return nil
	}
	cell, ok := l.r.Get(tag)
	if !ok {
		l.fail(tag, ErrStale)
		return nil
	}
	l.cells = append(l.cells, cell)
	return cell
}

// pin resolves h under its read lock and keeps the cell retained until
// release.
func pin[P handle.Pointer](l *lease, h registry.Handle[P]) P {
	var p P
	if cell := l.pinCell(h.Tag()); cell != nil {
		handle.View(cell, h.Tag().Category, func(ptr P) { p = ptr })
	}
	return p
}

// exclusive runs f on h under its write lock.
func exclusive[P handle.Pointer](l *lease, h registry.Handle[P], f func(P)) {
	if cell := l.pinCell(h.Tag()); cell != nil {
		handle.Mutate(cell, h.Tag().Category, f)
	}
}

// keep stores a pointer LLVM just returned. Called after every lock has been
// released.
func keep[P handle.Pointer](l *lease, p P) (registry.Handle[P], error) {
	if l.err != nil {
		return registry.Handle[P]{}, l.err
	}
	if unsafe.Pointer(p) == nil {
		l.fail(handle.Tag{}, ErrNullResult)
		return registry.Handle[P]{}, l.err
	}
	h, ok := registry.Put(l.r, p)
	if !ok {
		l.fail(handle.Tag{}, registry.ErrClosed)
		return registry.Handle[P]{}, l.err
	}
	return h, nil
}

// checkName rejects names LLVM cannot take before any cell is touched.
func (l *lease) checkName(name string) {
	if err := llvmc.CheckName(name); err != nil {
		l.fail(handle.Tag{}, err)
	}
}
