//go:build (darwin || freebsd || linux) && (amd64 || arm64)

package registry

import (
	"errors"
	"fmt"

	"github.com/UnionCompilerDesign/safe-llvm/handle"
)

// ErrDuplicateVariant is returned when an enum lists the same variant twice.
var ErrDuplicateVariant = errors.New("registry: duplicate enum variant")

// EnumInfo is bookkeeping for an enumerated type. It lives beside the
// foreign type object and is never seen by LLVM.
type EnumInfo struct {
	Name     string
	Variants []string         // declaration order
	Values   map[string]int64 // variant name -> integer value
}

// RegisterEnum attaches enum metadata to a type tag. Variants are numbered
// from zero in declaration order.
func (r *Registry) RegisterEnum(tag handle.Tag, name string, variants []string) error {
	if tag.Category != handle.Type {
		return fmt.Errorf("%w: %s is not a type", ErrWrongCategory, tag)
	}
	if !r.Contains(tag) {
		return fmt.Errorf("%w: %s", ErrNotFound, tag)
	}

	info := &EnumInfo{
		Name:     name,
		Variants: append([]string(nil), variants...),
		Values:   make(map[string]int64, len(variants)),
	}
	for i, v := range variants {
		if _, dup := info.Values[v]; dup {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateVariant, name, v)
		}
		info.Values[v] = int64(i)
	}

	r.enumMu.Lock()
	defer r.enumMu.Unlock()
	r.enums[tag] = info
	return nil
}

// Enum returns a copy of the metadata registered for tag.
func (r *Registry) Enum(tag handle.Tag) (EnumInfo, bool) {
	r.enumMu.RLock()
	defer r.enumMu.RUnlock()
	info, ok := r.enums[tag]
	if !ok {
		return EnumInfo{}, false
	}
	out := EnumInfo{
		Name:     info.Name,
		Variants: append([]string(nil), info.Variants...),
		Values:   make(map[string]int64, len(info.Values)),
	}
	for k, v := range info.Values {
		out.Values[k] = v
	}
	return out, true
}

// EnumVariant returns the integer value of one variant of an enum.
func (r *Registry) EnumVariant(tag handle.Tag, variant string) (int64, bool) {
	r.enumMu.RLock()
	defer r.enumMu.RUnlock()
	info, ok := r.enums[tag]
	if !ok {
		return 0, false
	}
	v, ok := info.Values[variant]
	return v, ok
}
