//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package jit

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Kind is the native type of one parameter or result.
type Kind uint8

// Kinds accepted in a Signature.
const (
	Void Kind = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Pointer
	numKinds
)

// MaxParams is the most parameters a Signature may declare.
const MaxParams = 15

// convention is the table every signature is checked against: the Go type
// each kind crosses the native boundary as.
var convention = [numKinds]reflect.Type{
	Void:    nil,
	Bool:    reflect.TypeOf(false),
	Int8:    reflect.TypeOf(int8(0)),
	Int16:   reflect.TypeOf(int16(0)),
	Int32:   reflect.TypeOf(int32(0)),
	Int64:   reflect.TypeOf(int64(0)),
	Uint8:   reflect.TypeOf(uint8(0)),
	Uint16:  reflect.TypeOf(uint16(0)),
	Uint32:  reflect.TypeOf(uint32(0)),
	Uint64:  reflect.TypeOf(uint64(0)),
	Float32: reflect.TypeOf(float32(0)),
	Float64: reflect.TypeOf(float64(0)),
	Pointer: reflect.TypeOf(uintptr(0)),
}

var kindNames = [numKinds]string{
	"void", "bool", "int8", "int16", "int32", "int64",
	"uint8", "uint16", "uint32", "uint64", "float32", "float64", "pointer",
}

// String returns the name of k.
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Signature declares the native signature of a JIT-compiled function. The
// engine cannot check it against the compiled code: calling a function
// through the wrong signature is undefined behaviour.
type Signature struct {
	Params []Kind
	Result Kind
}

// String renders s like a C prototype, e.g. "int64(int64, pointer)".
func (s Signature) String() string {
	out := s.Result.String() + "("
	for i, p := range s.Params {
		if i > 0 {
			out += ", "
		}
		out += p.String()
	}
	return out + ")"
}

// Validate checks s against the convention table.
func (s Signature) Validate() error {
	if len(s.Params) > MaxParams {
		return &SignatureError{Index: -1, Reason: fmt.Sprintf("%d parameters, at most %d supported", len(s.Params), MaxParams)}
	}
	if s.Result >= numKinds {
		return &SignatureError{Index: -1, Reason: "unknown result " + s.Result.String()}
	}
	for i, p := range s.Params {
		switch {
		case p == Void:
			return &SignatureError{Index: i, Reason: "void is only valid as a result"}
		case p >= numKinds:
			return &SignatureError{Index: i, Reason: "unknown " + p.String()}
		}
	}
	return nil
}

// funcType returns the Go function type the native call is bound to.
func (s Signature) funcType() reflect.Type {
	in := make([]reflect.Type, len(s.Params))
	for i, p := range s.Params {
		in[i] = convention[p]
	}
	var out []reflect.Type
	if s.Result != Void {
		out = []reflect.Type{convention[s.Result]}
	}
	return reflect.FuncOf(in, out, false)
}

// args converts Go arguments to the parameter kinds of s. Integers convert
// between widths only if the value fits; floats and bools must match their
// family; Pointer accepts uintptr and unsafe.Pointer.
func (s Signature) args(values []any) ([]reflect.Value, error) {
	if len(values) != len(s.Params) {
		return nil, &SignatureError{Index: -1, Reason: fmt.Sprintf("got %d arguments, signature has %d", len(values), len(s.Params))}
	}
	out := make([]reflect.Value, len(values))
	for i, v := range values {
		rv, err := convertArg(s.Params[i], v)
		if err != nil {
			return nil, &SignatureError{Index: i, Reason: err.Error()}
		}
		out[i] = rv
	}
	return out, nil
}

func convertArg(k Kind, v any) (reflect.Value, error) {
	want := convention[k]
	if v == nil {
		return reflect.Value{}, fmt.Errorf("nil argument for %s", k)
	}
	if p, ok := v.(unsafe.Pointer); ok && k == Pointer {
		return reflect.ValueOf(uintptr(p)), nil
	}

	rv := reflect.ValueOf(v)
	switch k {
	case Bool:
		if rv.Kind() == reflect.Bool {
			return rv.Convert(want), nil
		}
	case Float32, Float64:
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return rv.Convert(want), nil
		}
	case Pointer:
		if rv.Kind() == reflect.Uintptr {
			return rv.Convert(want), nil
		}
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		if fitsInt(rv, want) {
			return rv.Convert(want), nil
		}
		if isInt(rv.Kind()) {
			return reflect.Value{}, fmt.Errorf("%v overflows %s", v, k)
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot pass %T as %s", v, k)
}

func isInt(k reflect.Kind) bool {
	return (k >= reflect.Int && k <= reflect.Int64) || (k >= reflect.Uint && k <= reflect.Uintptr)
}

func fitsInt(rv reflect.Value, want reflect.Type) bool {
	switch {
	case rv.Kind() >= reflect.Int && rv.Kind() <= reflect.Int64:
		n := rv.Int()
		if want.Kind() >= reflect.Uint && want.Kind() <= reflect.Uint64 {
			return n >= 0 && !reflect.Zero(want).OverflowUint(uint64(n))
		}
		return !reflect.Zero(want).OverflowInt(n)
	case rv.Kind() >= reflect.Uint && rv.Kind() <= reflect.Uintptr:
		n := rv.Uint()
		if want.Kind() >= reflect.Int && want.Kind() <= reflect.Int64 {
			return n <= 1<<63-1 && !reflect.Zero(want).OverflowInt(int64(n))
		}
		return !reflect.Zero(want).OverflowUint(n)
	}
	return false
}
