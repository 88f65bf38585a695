//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package ir

import (
	"github.com/UnionCompilerDesign/safe-llvm/llvmc"
	"github.com/UnionCompilerDesign/safe-llvm/registry"
)

// CreateEnum creates an enumerated type named name. LLVM sees a plain i32;
// the variant names live in the registry, numbered from zero in order.
func CreateEnum(r *registry.Registry, ctx Context, name string, variants []string) (Type, error) {
	l := begin(r, "CreateEnum")
	defer l.release()

	ty, err := Int32Type(r, ctx)
	if err != nil {
		return Type{}, err
	}
	if err := r.RegisterEnum(ty.Tag(), name, variants); err != nil {
		registry.Drop(r, ty)
		l.fail(ty.Tag(), err)
		return Type{}, l.err
	}
	return ty, nil
}

// GetVariant returns the integer value of a variant of an enum created with
// CreateEnum. It reports false for unknown variants and non-enum types.
func GetVariant(r *registry.Registry, enum Type, variant string) (int64, bool) {
	return r.EnumVariant(enum.Tag(), variant)
}

// VariantValue returns the i32 constant for a variant of enum.
func VariantValue(r *registry.Registry, enum Type, variant string) (Value, error) {
	l := begin(r, "VariantValue")
	defer l.release()

	if _, isEnum := r.Enum(enum.Tag()); !isEnum {
		l.fail(enum.Tag(), ErrNotEnum)
		return Value{}, l.err
	}
	n, ok := r.EnumVariant(enum.Tag(), variant)
	if !ok {
		l.fail(enum.Tag(), ErrUnknownVariant)
		return Value{}, l.err
	}
	ty := pin(l, enum)
	var v llvmc.Value
	if l.ok() {
		v = llvmc.ConstInt(ty, uint64(n), false)
	}
	return keep(l, v)
}
