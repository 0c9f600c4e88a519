package parser

import (
	"testing"

	"ramfuck/internal/lexer"
	"ramfuck/internal/symbol"
	"ramfuck/internal/value"
)

func parse(t *testing.T, src string, syms *symbol.Table) Expr {
	t.Helper()
	if syms == nil {
		syms = symbol.NewTable()
	}
	tokens := lexer.NewScanner(src).ScanTokens()
	expr, err := NewParser(tokens, syms).Parse()
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	return expr
}

func parseErr(t *testing.T, src string, syms *symbol.Table) error {
	t.Helper()
	if syms == nil {
		syms = symbol.NewTable()
	}
	tokens := lexer.NewScanner(src).ScanTokens()
	_, err := NewParser(tokens, syms).Parse()
	if err == nil {
		t.Fatalf("parse(%q): expected error, got none", src)
	}
	return err
}

func TestPrecedenceClimbing(t *testing.T) {
	expr := parse(t, "1 + 2 * 3", nil)
	got := Print(expr)
	want := "(1 + (2 * 3))"
	if got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestShiftBindsLooserThanAdditive(t *testing.T) {
	expr := parse(t, "1 << 2 + 3", nil)
	want := "(1 << (2 + 3))"
	if got := Print(expr); got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestLogicalOrLowestPrecedence(t *testing.T) {
	expr := parse(t, "1 && 2 || 3 == 4", nil)
	want := "((1 && 2) || (3 == 4))"
	if got := Print(expr); got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

// && and || share one left-to-right precedence level (spec §4.4's
// "conditional := or (('&&' | '||') or)*"), not two nested ones — so
// "a || b && c" groups left-to-right as "(a || b) && c", not "a || (b &&
// c)". With a=1, b=0, c=0 those two groupings disagree (1 vs 0).
func TestLogicalAndOrShareOnePrecedenceLevel(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("a", value.Type{Scalar: value.S32})
	syms.AddLocal("b", value.Type{Scalar: value.S32})
	syms.AddLocal("c", value.Type{Scalar: value.S32})

	expr := parse(t, "a || b && c", syms)
	want := "((a || b) && c)"
	if got := Print(expr); got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
}

func TestCastRecognizedOverGrouping(t *testing.T) {
	expr := parse(t, "(s32)1.7", nil)
	cast, ok := expr.(*Cast)
	if !ok {
		t.Fatalf("expected *Cast, got %T", expr)
	}
	if cast.Target.Scalar != value.S32 {
		t.Errorf("cast target = %v, want s32", cast.Target)
	}
}

func TestNestedCast(t *testing.T) {
	expr := parse(t, "(s32)(f64)1.7", nil)
	outer, ok := expr.(*Cast)
	if !ok {
		t.Fatalf("expected outer *Cast, got %T", expr)
	}
	if _, ok := outer.X.(*Cast); !ok {
		t.Fatalf("expected inner *Cast, got %T", outer.X)
	}
}

func TestParenIsGroupingWhenNotATypeName(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("x", value.Type{Scalar: value.S32})
	expr := parse(t, "(x)", syms)
	if _, ok := expr.(*Variable); !ok {
		t.Fatalf("expected (x) to parse as grouped *Variable, got %T", expr)
	}
}

func TestDerefRequiresPointerOperand(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("x", value.Type{Scalar: value.S32})
	parseErr(t, "*x", syms)
}

func TestDerefOfPointerProducesPointeeType(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("p", value.Type{Scalar: value.U32, Pointer: true})
	expr := parse(t, "*p", syms)
	deref, ok := expr.(*Deref)
	if !ok {
		t.Fatalf("expected *Deref, got %T", expr)
	}
	if deref.Typ.Pointer || deref.Typ.Scalar != value.U32 {
		t.Errorf("deref type = %v, want non-pointer u32", deref.Typ)
	}
}

func TestBitwiseRejectsFloatOperands(t *testing.T) {
	parseErr(t, "1.5 & 2.5", nil)
}

func TestShiftResultTypeIsLeftOperandType(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("x", value.Type{Scalar: value.U8})
	expr := parse(t, "x << 1", syms)
	if expr.Type().Scalar != value.U8 {
		t.Errorf("shift result type = %v, want u8", expr.Type())
	}
}

func TestRelationalResultIsAlwaysS32(t *testing.T) {
	expr := parse(t, "1.5 < 2.5", nil)
	if expr.Type().Scalar != value.S32 || expr.Type().Pointer {
		t.Errorf("relational result type = %v, want s32", expr.Type())
	}
}

func TestArithmeticResultIsHigherType(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("x", value.Type{Scalar: value.S64})
	expr := parse(t, "x + 1", syms)
	if expr.Type().Scalar != value.S64 {
		t.Errorf("additive result type = %v, want s64", expr.Type())
	}
}

func TestUndefinedSymbolFails(t *testing.T) {
	parseErr(t, "undefined_name + 1", nil)
}

func TestUnaryMinusPreservesOperandType(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("x", value.Type{Scalar: value.U16})
	expr := parse(t, "-x", syms)
	if expr.Type().Scalar != value.U16 {
		t.Errorf("unary minus result type = %v, want u16", expr.Type())
	}
}

func TestLogicalNotResultIsS32(t *testing.T) {
	expr := parse(t, "!0", nil)
	if expr.Type().Scalar != value.S32 {
		t.Errorf("logical not result type = %v, want s32", expr.Type())
	}
}

func TestUnaryAndCastCompose(t *testing.T) {
	expr := parse(t, "-(s32)1.7", nil)
	unary, ok := expr.(*Unary)
	if !ok {
		t.Fatalf("expected *Unary, got %T", expr)
	}
	if _, ok := unary.X.(*Cast); !ok {
		t.Fatalf("expected cast operand, got %T", unary.X)
	}
}
