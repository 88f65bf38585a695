//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"unsafe"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// AddFunction declares a function of type fnType in m. Modules already bound
// to an execution engine are refused with ErrModuleSealed.
func AddFunction(r *registry.Registry, m Module, name string, fnType Type) (Value, error) {
	l := begin(r, "AddFunction")
	defer l.release()

	l.checkName(name)
	ty := pin(l, fnType)
	var fn llvmc.Value
	sealed := false
	// Binding seals under the same write lock, so the check cannot race it.
	exclusive(l, m, func(mod llvmc.Module) {
		if sealed = r.Sealed(m.Tag()); !sealed {
			fn = llvmc.AddFunction(mod, name, ty)
		}
	})
	if sealed {
		l.fail(m.Tag(), ErrModuleSealed)
	}
	return keep(l, fn)
}

// GetFunction looks up a function by name. Every call returns a new tag for
// the same LLVM function.
func GetFunction(r *registry.Registry, m Module, name string) (Value, error) {
	l := begin(r, "GetFunction")
	defer l.release()

	l.checkName(name)
	mod := pin(l, m)
	if !l.ok() {
		return Value{}, l.err
	}
	fn := llvmc.NamedFunction(mod, name)
	if fn == nil {
		l.fail(m.Tag(), ErrNoFunction)
	}
	return keep(l, fn)
}

// GetParam returns parameter i of fn.
func GetParam(r *registry.Registry, fn Value, i int) (Value, error) {
	l := begin(r, "GetParam")
	defer l.release()

	f := pin(l, fn)
	if !l.ok() {
		return Value{}, l.err
	}
	if i < 0 || i >= llvmc.CountParams(f) {
		l.fail(fn.Tag(), ErrParamIndex)
		return Value{}, l.err
	}
	return keep(l, llvmc.Param(f, i))
}

// ConstInt returns an integer constant of type ty. signExtend selects how n
// is widened when ty is wider than 64 bits.
func ConstInt(r *registry.Registry, ty Type, n uint64, signExtend bool) (Value, error) {
	l := begin(r, "ConstInt")
	defer l.release()

	t := pin(l, ty)
	var v llvmc.Value
	if l.ok() {
		v = llvmc.ConstInt(t, n, signExtend)
	}
	return keep(l, v)
}

// ConstReal returns a floating point constant of type ty.
func ConstReal(r *registry.Registry, ty Type, n float64) (Value, error) {
	l := begin(r, "ConstReal")
	defer l.release()

	t := pin(l, ty)
	var v llvmc.Value
	if l.ok() {
		v = llvmc.ConstReal(t, n)
	}
	return keep(l, v)
}

// SetName renames v.
func SetName(r *registry.Registry, v Value, name string) error {
	l := begin(r, "SetName")
	defer l.release()

	l.checkName(name)
	exclusive(l, v, func(val llvmc.Value) {
		llvmc.SetValueName(val, name)
	})
	return l.err
}

// Name returns the name of v, empty for unnamed values.
func Name(r *registry.Registry, v Value) (string, error) {
	l := begin(r, "Name")
	defer l.release()

	val := pin(l, v)
	if !l.ok() {
		return "", l.err
	}
	return llvmc.ValueName(val), nil
}

// sealedFunction reports whether fn belongs to a module bound to an
// execution engine.
func sealedFunction(r *registry.Registry, fn llvmc.Value) bool {
	m := llvmc.GlobalParent(fn)
	return m != nil && r.SealedAddr(unsafe.Pointer(m))
}

// guardFunction fails l when fn's module is sealed. Not to be called from
// inside a cell callback.
func guardFunction(l *lease, tag handle.Tag, fn llvmc.Value) {
	if l.ok() && fn != nil && sealedFunction(l.r, fn) {
		l.fail(tag, ErrModuleSealed)
	}
}
