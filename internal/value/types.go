// Package value implements the fixed-width scalar value type and its
// dispatch table of casts, assignment and arithmetic/bitwise/relational
// operators (spec §4.1). Ten scalar types plus a pointer variant per type
// form the whole lattice; every Value carries a Type and a bit pattern
// whose width always matches that type (the data-model invariant).
package value

import "fmt"

// Scalar names the ten base numeric types. There is no eleventh "pointer"
// scalar: a pointer is a Type{Scalar: <pointee>, Pointer: true}, represented
// as an address-sized unsigned integer (see Type.ByteWidth).
type Scalar uint8

const (
	S8 Scalar = iota
	U8
	S16
	U16
	S32
	U32
	S64
	U64
	F32
	F64
)

var scalarNames = [...]string{"s8", "u8", "s16", "u16", "s32", "u32", "s64", "u64", "f32", "f64"}

func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return "?"
}

// byteWidth is the natural storage width of the scalar, ignoring any
// pointer flag.
func (s Scalar) byteWidth() int {
	switch s {
	case S8, U8:
		return 1
	case S16, U16:
		return 2
	case S32, U32, F32:
		return 4
	case S64, U64, F64:
		return 8
	}
	return 0
}

func (s Scalar) IsFloat() bool    { return s == F32 || s == F64 }
func (s Scalar) IsInteger() bool  { return !s.IsFloat() }
func (s Scalar) IsSigned() bool   { return s == S8 || s == S16 || s == S32 || s == S64 }
func (s Scalar) IsUnsigned() bool { return s == U8 || s == U16 || s == U32 || s == U64 }

// Type is a scalar plus an optional pointer flag. A pointer Type's Scalar
// names the pointee type; the Type itself is never both a float and a
// pointer distinction issue because pointee may be any of the ten scalars,
// including floats (a "f64ptr" points at a double).
type Type struct {
	Scalar  Scalar
	Pointer bool
}

func (t Type) String() string {
	if t.Pointer {
		return t.Scalar.String() + "ptr"
	}
	return t.Scalar.String()
}

// ByteWidth is the width of a Value of this type as stored in the
// evaluator: the pointee width for a plain scalar, or addrWidth (4 or 8)
// when the type is a pointer — a pointer's storage is address-sized,
// independent of what it points to.
func (t Type) ByteWidth(addrWidth int) int {
	if t.Pointer {
		return addrWidth
	}
	return t.Scalar.byteWidth()
}

func (t Type) IsNumeric() bool { return !t.Pointer }
func (t Type) IsInteger() bool { return !t.Pointer && t.Scalar.IsInteger() }
func (t Type) IsFloat() bool   { return !t.Pointer && t.Scalar.IsFloat() }

// S32Type, the fixed result type of relational/equality/logical operators.
var S32Type = Type{Scalar: S32}

// ParseType recognizes a type name token: one of the ten scalar names, or
// a scalar name suffixed with "ptr" (e.g. "u32ptr", "f64ptr").
func ParseType(name string) (Type, bool) {
	pointer := false
	base := name
	if len(name) > 3 && name[len(name)-3:] == "ptr" {
		pointer = true
		base = name[:len(name)-3]
	}
	for i, n := range scalarNames {
		if n == base {
			return Type{Scalar: Scalar(i), Pointer: pointer}, true
		}
	}
	return Type{}, false
}

// Higher returns the dominant type of a and b under the promotion lattice
// (spec §4.4 / GLOSSARY "Higher type"): wider width wins; a float dominates
// an integer of equal or lesser width; at equal width, unsigned dominates
// signed. Both a and b must be non-pointer.
func Higher(a, b Type) Type {
	if a.Scalar == b.Scalar {
		return a
	}
	aw, bw := a.Scalar.byteWidth(), b.Scalar.byteWidth()
	af, bf := a.Scalar.IsFloat(), b.Scalar.IsFloat()
	switch {
	case af && !bf:
		if aw >= bw {
			return a
		}
		return promoteFloatOver(a, bw)
	case bf && !af:
		if bw >= aw {
			return b
		}
		return promoteFloatOver(b, aw)
	case af && bf:
		if aw >= bw {
			return a
		}
		return b
	default: // both integer
		if aw > bw {
			return a
		}
		if bw > aw {
			return b
		}
		// equal width, mixed signedness: unsigned dominates
		if a.Scalar.IsUnsigned() {
			return a
		}
		return b
	}
}

// promoteFloatOver widens a float type to cover an integer of byte width w
// (e.g. s32 vs f32 at equal width still yields f32 — float dominates int
// per spec — but f32 vs s64 must widen to f64 to not lose precision/range).
func promoteFloatOver(f Type, w int) Type {
	if f.Scalar.byteWidth() >= w {
		return f
	}
	return Type{Scalar: F64}
}

func (s Scalar) GoString() string { return fmt.Sprintf("Scalar(%s)", s.String()) }
