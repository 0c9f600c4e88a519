package eval

import (
	"testing"

	"ramfuck/internal/lexer"
	"ramfuck/internal/parser"
	"ramfuck/internal/symbol"
	"ramfuck/internal/value"
)

func optimizeString(t *testing.T, src string) parser.Expr {
	t.Helper()
	syms := symbol.NewTable()
	syms.AddLocal("x", value.Type{Scalar: value.S32})
	tokens := lexer.NewScanner(src).ScanTokens()
	expr, err := parser.NewParser(tokens, syms).Parse()
	if err != nil {
		t.Fatalf("parse(%q): %v", src, err)
	}
	return Optimize(expr)
}

func TestOptimizeFoldsLiteralArithmetic(t *testing.T) {
	got := optimizeString(t, "2 + 3 * 4")
	lit, ok := got.(*parser.Literal)
	if !ok {
		t.Fatalf("expected fully folded *Literal, got %T", got)
	}
	if lit.Val.Int64() != 14 {
		t.Errorf("folded value = %v, want 14", lit.Val.Int64())
	}
}

func TestOptimizeFoldsThroughNestedCasts(t *testing.T) {
	got := optimizeString(t, "(s32)(f64)1.7")
	lit, ok := got.(*parser.Literal)
	if !ok {
		t.Fatalf("expected fully folded *Literal, got %T", got)
	}
	if lit.Val.Int64() != 1 {
		t.Errorf("folded value = %v, want 1", lit.Val.Int64())
	}
}

func TestOptimizeLeavesVariableSubtreeUnfolded(t *testing.T) {
	got := optimizeString(t, "x + 1")
	bin, ok := got.(*parser.Binary)
	if !ok {
		t.Fatalf("expected *Binary (unfolded), got %T", got)
	}
	if _, ok := bin.Left.(*parser.Variable); !ok {
		t.Errorf("left operand should remain a *Variable, got %T", bin.Left)
	}
}

func TestOptimizePartiallyFoldsMixedSubtree(t *testing.T) {
	// Only the "2 * 3" side is literal; the whole node stays a Binary, but
	// its right child should have collapsed to a Literal.
	got := optimizeString(t, "x + 2 * 3")
	bin, ok := got.(*parser.Binary)
	if !ok {
		t.Fatalf("expected *Binary, got %T", got)
	}
	rightLit, ok := bin.Right.(*parser.Literal)
	if !ok {
		t.Fatalf("expected folded right child *Literal, got %T", bin.Right)
	}
	if rightLit.Val.Int64() != 6 {
		t.Errorf("folded right child = %v, want 6", rightLit.Val.Int64())
	}
}

func TestOptimizeNeverFoldsDeref(t *testing.T) {
	syms := symbol.NewTable()
	syms.AddLocal("p", value.Type{Scalar: value.U32, Pointer: true})
	tokens := lexer.NewScanner("*p").ScanTokens()
	expr, err := parser.NewParser(tokens, syms).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := Optimize(expr)
	if _, ok := got.(*parser.Deref); !ok {
		t.Errorf("expected *Deref to survive folding, got %T", got)
	}
}

func TestOptimizeLeavesDivisionByZeroForRuntime(t *testing.T) {
	got := optimizeString(t, "1 / 0")
	if _, ok := got.(*parser.Literal); ok {
		t.Error("division by zero must not fold to a literal — it should surface at eval time")
	}
}
