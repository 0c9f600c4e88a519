package eval

import (
	"ramfuck/internal/parser"
	"ramfuck/internal/value"
)

// Optimize constant-folds expr bottom-up: any subtree whose leaves are all
// literals (no Variable, no Deref — both depend on state Optimize cannot
// see) collapses to a single Literal carrying the precomputed value. Casts
// fold like any other node rather than being skipped, so a literal chain
// like "(s32)(f64)1.7" still reduces to one Literal at its final,
// already-saturated value — the resolution to the "does folding erase
// casts" question is that folding must apply every Cast's semantics, not
// bypass them.
func Optimize(expr parser.Expr) parser.Expr {
	folded, _ := fold(expr)
	return folded
}

func fold(expr parser.Expr) (parser.Expr, bool) {
	switch n := expr.(type) {
	case *parser.Literal:
		return n, true

	case *parser.Variable:
		return n, false

	case *parser.Cast:
		x, ok := fold(n.X)
		if !ok {
			return &parser.Cast{Target: n.Target, X: x}, false
		}
		lit := x.(*parser.Literal)
		return &parser.Literal{Val: value.Cast(n.Target, lit.Val), Typ: n.Target}, true

	case *parser.Deref:
		// Even when the address expression is constant, the read depends
		// on live target state — never fold a Deref away.
		x, _ := fold(n.X)
		return &parser.Deref{X: x, Typ: n.Typ}, false

	case *parser.Unary:
		x, ok := fold(n.X)
		if !ok {
			return &parser.Unary{Op: n.Op, X: x, Typ: n.Typ}, false
		}
		lit := x.(*parser.Literal)
		v, err := foldUnary(n.Op, lit.Val)
		if err != nil {
			// Leave the node in place so the error surfaces at eval time
			// with its normal diagnostic, rather than swallowing it here.
			return &parser.Unary{Op: n.Op, X: x, Typ: n.Typ}, false
		}
		return &parser.Literal{Val: v, Typ: n.Typ}, true

	case *parser.Binary:
		left, lok := fold(n.Left)
		right, rok := fold(n.Right)
		if !lok || !rok {
			return &parser.Binary{Op: n.Op, Left: left, Right: right, Typ: n.Typ}, false
		}
		ll, rl := left.(*parser.Literal), right.(*parser.Literal)
		opType := n.Typ
		switch n.Op {
		case "&&", "||":
			// Truthiness is judged on each operand's own value, as the
			// Evaluator does; casting 0.5 to s32 first would make it false.
			v, _ := value.Binary(n.Op, ll.Val, rl.Val)
			return &parser.Literal{Val: v, Typ: n.Typ}, true
		case "<", ">", "<=", ">=", "==", "!=":
			opType = value.Higher(n.Left.Type(), n.Right.Type())
		case "<<", ">>":
			opType = n.Left.Type()
		}
		v, err := value.Binary(n.Op, value.Cast(opType, ll.Val), value.Cast(opType, rl.Val))
		if err != nil {
			return &parser.Binary{Op: n.Op, Left: left, Right: right, Typ: n.Typ}, false
		}
		return &parser.Literal{Val: v, Typ: n.Typ}, true
	}
	return expr, false
}

func foldUnary(op string, v value.Value) (value.Value, error) {
	switch op {
	case "-":
		return value.Neg(v), nil
	case "!":
		return value.Not(v), nil
	case "~":
		return value.Complement(v)
	}
	return value.Value{}, nil
}
