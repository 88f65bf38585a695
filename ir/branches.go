//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// terminate emits a terminator through b. It fails with ErrBlockTerminated
// if the current block already ends in one, instead of leaving the error
// for VerifyModule to find.
func terminate(l *lease, b Builder, emit func(llvmc.Builder) llvmc.Value) (Value, error) {
	var inst llvmc.Value
	exclusive(l, b, func(bp llvmc.Builder) {
		bb := llvmc.InsertBlock(bp)
		switch {
		case bb == nil:
			l.fail(b.Tag(), ErrNoInsertBlock)
		case llvmc.BasicBlockTerminator(bb) != nil:
			l.fail(b.Tag(), ErrBlockTerminated)
		default:
			inst = emit(bp)
		}
	})
	return keep(l, inst)
}

// CreateBr emits an unconditional branch to dest.
func CreateBr(r *registry.Registry, b Builder, dest Block) (Value, error) {
	l := begin(r, "CreateBr")
	defer l.release()

	d := pin(l, dest)
	return terminate(l, b, func(bp llvmc.Builder) llvmc.Value {
		return llvmc.BuildBr(bp, d)
	})
}

// CreateCondBr emits a branch to then if cond (an i1) is true, else to els.
func CreateCondBr(r *registry.Registry, b Builder, cond Value, then, els Block) (Value, error) {
	l := begin(r, "CreateCondBr")
	defer l.release()

	c := pin(l, cond)
	t := pin(l, then)
	e := pin(l, els)
	return terminate(l, b, func(bp llvmc.Builder) llvmc.Value {
		return llvmc.BuildCondBr(bp, c, t, e)
	})
}

// CreateRet emits a return of v.
func CreateRet(r *registry.Registry, b Builder, v Value) (Value, error) {
	l := begin(r, "CreateRet")
	defer l.release()

	val := pin(l, v)
	return terminate(l, b, func(bp llvmc.Builder) llvmc.Value {
		return llvmc.BuildRet(bp, val)
	})
}

// CreateRetVoid emits a return from a void function.
func CreateRetVoid(r *registry.Registry, b Builder) (Value, error) {
	l := begin(r, "CreateRetVoid")
	defer l.release()

	return terminate(l, b, llvmc.BuildRetVoid)
}
