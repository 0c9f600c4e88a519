package value

import (
	"math"

	"ramfuck/internal/rferrors"
)

// Cast converts v to target, the "cast-to-each-of-the-ten-types" handler of
// spec §4.1 collapsed into one generic implementation (casts are always
// legal between numeric types, and to/from pointer types — only Deref
// reads through the target).
func Cast(target Type, v Value) Value {
	if target.Pointer {
		return NewPointer(target.Scalar, addressOf(v))
	}
	if target.Scalar.IsFloat() {
		return NewFloat(target, v.Float64())
	}
	if v.Typ.Scalar.IsFloat() {
		return castFloatToInt(v.f, target)
	}
	if target.Scalar.IsUnsigned() {
		return NewUint(target, v.Uint64())
	}
	return NewInt(target, v.Int64())
}

func addressOf(v Value) uint64 {
	if v.Typ.Scalar.IsFloat() {
		if v.f < 0 {
			return 0
		}
		return uint64(v.f)
	}
	return v.Uint64()
}

func castFloatToInt(f float64, t Type) Value {
	if math.IsNaN(f) {
		if t.Scalar.IsUnsigned() {
			return NewUint(t, 0)
		}
		return NewInt(t, 0)
	}
	switch t.Scalar {
	case S8:
		return NewInt(t, saturateSigned(f, -128, 127))
	case S16:
		return NewInt(t, saturateSigned(f, -32768, 32767))
	case S32:
		return NewInt(t, saturateSigned(f, math.MinInt32, math.MaxInt32))
	case S64:
		return NewInt(t, saturateSigned64(f))
	case U8:
		return NewUint(t, saturateUnsigned(f, 255))
	case U16:
		return NewUint(t, saturateUnsigned(f, 65535))
	case U32:
		return NewUint(t, saturateUnsigned(f, math.MaxUint32))
	case U64:
		return NewUint(t, saturateUnsigned64(f))
	}
	return Value{}
}

func saturateSigned(f float64, lo, hi int64) int64 {
	if f <= float64(lo) {
		return lo
	}
	if f >= float64(hi) {
		return hi
	}
	return int64(f)
}

func saturateSigned64(f float64) int64 {
	if f <= float64(math.MinInt64) {
		return math.MinInt64
	}
	if f >= float64(math.MaxInt64) {
		return math.MaxInt64
	}
	return int64(f)
}

func saturateUnsigned(f float64, hi uint64) uint64 {
	if f <= 0 {
		return 0
	}
	if f >= float64(hi) {
		return hi
	}
	return uint64(f)
}

func saturateUnsigned64(f float64) uint64 {
	if f <= 0 {
		return 0
	}
	if f >= float64(math.MaxUint64) {
		return math.MaxUint64
	}
	return uint64(f)
}

// Neg implements unary '-'.
func Neg(v Value) Value {
	if v.Typ.Scalar.IsFloat() {
		return NewFloat(v.Typ, -v.f)
	}
	return NewInt(v.Typ, -v.Int64())
}

// Not implements unary '!': numeric operand, s32 result.
func Not(v Value) Value {
	if v.IsZero() {
		return NewInt(S32Type, 1)
	}
	return NewInt(S32Type, 0)
}

// Complement implements unary '~': integer operand, operand's own result
// type (floats reject bitwise operators, spec §4.1).
func Complement(v Value) (Value, error) {
	if v.Typ.Scalar.IsFloat() {
		return Value{}, rferrors.NewEvalError("bitwise complement is not defined for floating types")
	}
	return NewUint(v.Typ, ^v.Uint64()), nil
}

// Binary dispatches one of the arithmetic/bitwise/relational/logical
// operators. l and r must already share a type — the evaluator casts both
// operands to the node's declared (or comparison) type before calling this;
// each handler is then O(1), no allocation beyond the returned Value.
func Binary(op string, l, r Value) (Value, error) {
	switch op {
	case "+", "-", "*", "/":
		return arith(op, l, r)
	case "%", "&", "|", "^", "<<", ">>":
		return integerOnly(op, l, r)
	case "<", ">", "<=", ">=", "==", "!=":
		return compare(op, l, r), nil
	case "&&", "||":
		return logical(op, l, r), nil
	}
	return Value{}, rferrors.NewEvalError("unknown operator " + op)
}

func arith(op string, l, r Value) (Value, error) {
	if l.Typ.Scalar.IsFloat() {
		lf, rf := l.f, r.f
		switch op {
		case "+":
			return NewFloat(l.Typ, lf+rf), nil
		case "-":
			return NewFloat(l.Typ, lf-rf), nil
		case "*":
			return NewFloat(l.Typ, lf*rf), nil
		case "/":
			if rf == 0 {
				return Value{}, rferrors.NewEvalError("division by zero")
			}
			return NewFloat(l.Typ, lf/rf), nil
		}
	}
	if l.Typ.Scalar.IsUnsigned() {
		lu, ru := l.Uint64(), r.Uint64()
		switch op {
		case "+":
			return NewUint(l.Typ, lu+ru), nil
		case "-":
			return NewUint(l.Typ, lu-ru), nil
		case "*":
			return NewUint(l.Typ, lu*ru), nil
		case "/":
			if ru == 0 {
				return Value{}, rferrors.NewEvalError("division by zero")
			}
			return NewUint(l.Typ, lu/ru), nil
		}
	}
	li, ri := l.Int64(), r.Int64()
	switch op {
	case "+":
		return NewInt(l.Typ, li+ri), nil
	case "-":
		return NewInt(l.Typ, li-ri), nil
	case "*":
		return NewInt(l.Typ, li*ri), nil
	case "/":
		if ri == 0 {
			return Value{}, rferrors.NewEvalError("division by zero")
		}
		return NewInt(l.Typ, li/ri), nil
	}
	return Value{}, rferrors.NewEvalError("unknown arithmetic operator " + op)
}

// integerOnly covers %, &, |, ^, <<, >>: integer operands only (spec §4.1:
// "Floats do not support bitwise operators or modulo").
func integerOnly(op string, l, r Value) (Value, error) {
	if l.Typ.Scalar.IsFloat() {
		return Value{}, rferrors.NewEvalError("operator " + op + " is not defined for floating types")
	}

	width := uint(l.Typ.Scalar.byteWidth() * 8)
	if l.Typ.Pointer {
		width = 64
	}

	if l.Typ.Scalar.IsUnsigned() || l.Typ.Pointer {
		lu, ru := l.Uint64(), r.Uint64()
		switch op {
		case "%":
			if ru == 0 {
				return Value{}, rferrors.NewEvalError("modulo by zero")
			}
			return NewUint(l.Typ, lu%ru), nil
		case "&":
			return NewUint(l.Typ, lu&ru), nil
		case "|":
			return NewUint(l.Typ, lu|ru), nil
		case "^":
			return NewUint(l.Typ, lu^ru), nil
		case "<<":
			return NewUint(l.Typ, lu<<(ru&uint64(width-1))), nil
		case ">>":
			return NewUint(l.Typ, lu>>(ru&uint64(width-1))), nil
		}
	}
	li, ri := l.Int64(), r.Int64()
	switch op {
	case "%":
		if ri == 0 {
			return Value{}, rferrors.NewEvalError("modulo by zero")
		}
		return NewInt(l.Typ, li%ri), nil
	case "&":
		return NewInt(l.Typ, li&ri), nil
	case "|":
		return NewInt(l.Typ, li|ri), nil
	case "^":
		return NewInt(l.Typ, li^ri), nil
	case "<<":
		return NewInt(l.Typ, li<<(ri&int64(width-1))), nil
	case ">>":
		return NewInt(l.Typ, li>>(ri&int64(width-1))), nil
	}
	return Value{}, rferrors.NewEvalError("unknown integer operator " + op)
}

func boolValue(b bool) Value {
	if b {
		return NewInt(S32Type, 1)
	}
	return NewInt(S32Type, 0)
}

// compare implements the six relational/equality operators. Float operands
// follow IEEE 754 unordered semantics for NaN (spec §4.1): == is 0, != is
// 1, every ordered comparison is 0.
func compare(op string, l, r Value) Value {
	if l.Typ.Scalar.IsFloat() {
		lf, rf := l.f, r.f
		if math.IsNaN(lf) || math.IsNaN(rf) {
			switch op {
			case "==":
				return boolValue(false)
			case "!=":
				return boolValue(true)
			default:
				return boolValue(false)
			}
		}
		switch op {
		case "<":
			return boolValue(lf < rf)
		case ">":
			return boolValue(lf > rf)
		case "<=":
			return boolValue(lf <= rf)
		case ">=":
			return boolValue(lf >= rf)
		case "==":
			return boolValue(lf == rf)
		case "!=":
			return boolValue(lf != rf)
		}
	}
	if l.Typ.Scalar.IsUnsigned() || l.Typ.Pointer {
		lu, ru := l.Uint64(), r.Uint64()
		switch op {
		case "<":
			return boolValue(lu < ru)
		case ">":
			return boolValue(lu > ru)
		case "<=":
			return boolValue(lu <= ru)
		case ">=":
			return boolValue(lu >= ru)
		case "==":
			return boolValue(lu == ru)
		case "!=":
			return boolValue(lu != ru)
		}
	}
	li, ri := l.Int64(), r.Int64()
	switch op {
	case "<":
		return boolValue(li < ri)
	case ">":
		return boolValue(li > ri)
	case "<=":
		return boolValue(li <= ri)
	case ">=":
		return boolValue(li >= ri)
	case "==":
		return boolValue(li == ri)
	case "!=":
		return boolValue(li != ri)
	}
	return boolValue(false)
}

func logical(op string, l, r Value) Value {
	switch op {
	case "&&":
		return boolValue(!l.IsZero() && !r.IsZero())
	case "||":
		return boolValue(!l.IsZero() || !r.IsZero())
	}
	return boolValue(false)
}
