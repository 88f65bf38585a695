//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package jit

import (
	"reflect"

	"github.com/ebitengine/purego"
)

// invoke calls the native function at addr through sig. It is the only place
// the package turns an address into a callable function. sig must have been
// validated and args converted with sig.args.
func invoke(addr uintptr, sig Signature, args []reflect.Value) any {
	fn := reflect.New(sig.funcType())
	purego.RegisterFunc(fn.Interface(), addr)
	out := fn.Elem().Call(args)
	if len(out) == 0 {
		return nil
	}
	return out[0].Interface()
}
