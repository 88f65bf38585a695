// Package handle defines the opaque tags that stand in for foreign LLVM
// pointers and the synchronized cell that owns each pointer.
//
// A Tag is what callers hold. A Cell is what the registry stores under that
// tag: exactly one non-null foreign pointer, the Category it was declared
// with, and a reader/writer lock that every access goes through.
package handle

import "fmt"

// Category is the kind of foreign object a Tag or Cell represents.
type Category uint8

// Object categories. The zero value is not a valid category.
const (
	Invalid Category = iota
	Context
	Module
	Value
	BasicBlock
	Builder
	Type
	ExecutionEngine
)

// NumCategories is one past the largest valid Category.
const NumCategories = int(ExecutionEngine) + 1

// Categories lists every valid category in declaration order.
var Categories = []Category{Context, Module, Value, BasicBlock, Builder, Type, ExecutionEngine}

// Owning reports whether objects of this category own native resources that
// must be released exactly once. Every other category is an alias whose
// lifetime belongs to its Context inside LLVM and must never be released
// independently.
func (c Category) Owning() bool {
	return c == Context || c == ExecutionEngine
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c > Invalid && int(c) < NumCategories
}

// String returns the lower-case name of the category.
func (c Category) String() string {
	switch c {
	case Context:
		return "context"
	case Module:
		return "module"
	case Value:
		return "value"
	case BasicBlock:
		return "basic-block"
	case Builder:
		return "builder"
	case Type:
		return "type"
	case ExecutionEngine:
		return "execution-engine"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}
