//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// A variable is a stack slot: the Value returned by InitVar is the only
// identity it has.

// InitVar allocates a stack slot of type ty at the builder's position and,
// when initial is not nil, stores it there. It returns the slot.
func InitVar(r *registry.Registry, b Builder, ty Type, name string, initial *Value) (Value, error) {
	l := begin(r, "InitVar")
	defer l.release()

	l.checkName(name)
	t := pin(l, ty)
	var init llvmc.Value
	if initial != nil {
		init = pin(l, *initial)
	}
	var slot llvmc.Value
	exclusive(l, b, func(bp llvmc.Builder) {
		slot = llvmc.BuildAlloca(bp, t, name)
		if slot != nil && init != nil && llvmc.BuildStore(bp, init, slot) == nil {
			l.fail(initial.Tag(), ErrNullResult)
		}
	})
	return keep(l, slot)
}

// ReassignVar stores v into slot and returns the store instruction.
func ReassignVar(r *registry.Registry, b Builder, slot, v Value) (Value, error) {
	l := begin(r, "ReassignVar")
	defer l.release()

	s := pin(l, slot)
	val := pin(l, v)
	var store llvmc.Value
	exclusive(l, b, func(bp llvmc.Builder) {
		store = llvmc.BuildStore(bp, val, s)
	})
	return keep(l, store)
}

// GetVar loads the ty-typed contents of slot.
func GetVar(r *registry.Registry, b Builder, ty Type, slot Value, name string) (Value, error) {
	l := begin(r, "GetVar")
	defer l.release()

	l.checkName(name)
	t := pin(l, ty)
	s := pin(l, slot)
	var load llvmc.Value
	exclusive(l, b, func(bp llvmc.Builder) {
		load = llvmc.BuildLoad(bp, t, s, name)
	})
	return keep(l, load)
}
