//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package registry

import (
	"unsafe"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
)

// Handle is a tag whose category is fixed by the LLVM pointer type P, so
// passing a module where a value is expected does not compile.
type Handle[P handle.Pointer] struct {
	tag handle.Tag
}

// Tag returns the untyped tag, e.g. for handing to callers as an integer.
func (h Handle[P]) Tag() handle.Tag { return h.tag }

// IsZero reports whether h is the zero handle.
func (h Handle[P]) IsZero() bool { return h.tag.IsZero() }

// String formats the underlying tag.
func (h Handle[P]) String() string { return h.tag.String() }

// CategoryOf returns the category that stores pointers of type P.
func CategoryOf[P handle.Pointer]() handle.Category {
	var zero P
	switch any(zero).(type) {
	case llvmc.Context:
		return handle.Context
	case llvmc.Module:
		return handle.Module
	case llvmc.Value:
		return handle.Value
	case llvmc.BasicBlock:
		return handle.BasicBlock
	case llvmc.Builder:
		return handle.Builder
	case llvmc.Type:
		return handle.Type
	case llvmc.ExecutionEngine:
		return handle.ExecutionEngine
	default:
		return handle.Invalid
	}
}

// Put stores p under a new typed handle. Basic blocks are also entered in the
// reverse index. It reports false iff p is nil.
func Put[P handle.Pointer](r *Registry, p P) (Handle[P], bool) {
	var (
		tag handle.Tag
		ok  bool
	)
	if c := CategoryOf[P](); c == handle.BasicBlock {
		tag, ok = r.StoreBlock(unsafe.Pointer(p))
	} else {
		tag, ok = r.Store(c, unsafe.Pointer(p))
	}
	return Handle[P]{tag: tag}, ok
}

// Lookup validates an untrusted tag and converts it into a typed handle.
// It reports false if the category does not match P or the tag is not live.
func Lookup[P handle.Pointer](r *Registry, tag handle.Tag) (Handle[P], bool) {
	if tag.Category != CategoryOf[P]() || !r.Contains(tag) {
		return Handle[P]{}, false
	}
	return Handle[P]{tag: tag}, true
}

// With runs f on the typed pointer under the cell's read lock.
// It reports false if h is not live.
func With[P handle.Pointer](r *Registry, h Handle[P], f func(P)) bool {
	cell, ok := r.Get(h.tag)
	if !ok {
		return false
	}
	defer cell.Release()
	handle.View(cell, h.tag.Category, f)
	return true
}

// Drop disposes the tag behind h. See Registry.Dispose.
func Drop[P handle.Pointer](r *Registry, h Handle[P]) bool {
	return r.Dispose(h.tag)
}
