// Package eval walks a parsed expression tree (internal/parser) to a
// concrete value, threading an Environment that supplies live variable
// storage and target memory reads (spec §4.5).
package eval

import (
	"ramfuck/internal/parser"
	"ramfuck/internal/rferrors"
	"ramfuck/internal/value"
)

// Target is the narrow memory-read contract the evaluator needs for Deref
// nodes. internal/target's process backend implements this; tests use a
// byte-slice fake.
type Target interface {
	ReadMemory(addr uint64, size int) ([]byte, error)
}

// Environment carries everything Eval needs beyond the expression itself:
// the attached target (may be nil when evaluating over literals/locals
// only; a Deref or indirect symbol then fails) and the pointer/address width
// in effect for this session (spec §5's 32→64-bit auto-promotion).
type Environment struct {
	Target    Target
	AddrWidth int // 4 or 8
}

// Evaluator implements parser.ExprVisitor over one Environment. It is
// reused across many calls to Eval (once per scan candidate address) by
// rebinding the symbol table's local cells between calls rather than
// reconstructing the tree.
type Evaluator struct {
	env *Environment
}

func NewEvaluator(env *Environment) *Evaluator {
	return &Evaluator{env: env}
}

// Eval evaluates expr to completion. A non-nil error means the expression
// could not be evaluated (failed dereference, division by zero) — there is
// no partial value to recover in that case (spec §4.5's "no partial value
// on failure" invariant).
func (e *Evaluator) Eval(expr parser.Expr) (value.Value, error) {
	return expr.Accept(e)
}

func (e *Evaluator) VisitLiteral(n *parser.Literal) (value.Value, error) {
	return n.Val, nil
}

func (e *Evaluator) VisitVariable(n *parser.Variable) (value.Value, error) {
	sym := n.Sym
	if !sym.Indirect {
		return *sym.Cell, nil
	}
	if e.env.Target == nil {
		return value.Value{}, rferrors.NewEvalError("symbol '" + n.Name + "' requires an attached target")
	}
	width := sym.Typ.ByteWidth(e.env.AddrWidth)
	buf, err := e.env.Target.ReadMemory(sym.Address, width)
	if err != nil {
		return value.Value{}, rferrors.NewTargetError("reading symbol '"+n.Name+"'", err)
	}
	return value.FromBytes(sym.Typ, e.env.AddrWidth, buf), nil
}

func (e *Evaluator) VisitCast(n *parser.Cast) (value.Value, error) {
	x, err := e.Eval(n.X)
	if err != nil {
		return value.Value{}, err
	}
	return value.Cast(n.Target, x), nil
}

func (e *Evaluator) VisitDeref(n *parser.Deref) (value.Value, error) {
	addr, err := e.Eval(n.X)
	if err != nil {
		return value.Value{}, err
	}
	if e.env.Target == nil {
		return value.Value{}, rferrors.NewEvalError("dereference requires an attached target")
	}
	width := n.Typ.ByteWidth(e.env.AddrWidth)
	buf, err := e.env.Target.ReadMemory(addr.Addr(), width)
	if err != nil {
		return value.Value{}, rferrors.NewTargetError("dereferencing address", err)
	}
	return value.FromBytes(n.Typ, e.env.AddrWidth, buf), nil
}

func (e *Evaluator) VisitUnary(n *parser.Unary) (value.Value, error) {
	x, err := e.Eval(n.X)
	if err != nil {
		return value.Value{}, err
	}
	switch n.Op {
	case "-":
		return value.Neg(x), nil
	case "!":
		return value.Not(x), nil
	case "~":
		return value.Complement(x)
	}
	return value.Value{}, rferrors.NewEvalError("unknown unary operator " + n.Op)
}

// VisitBinary evaluates both operands (except && and ||, which
// short-circuit per spec §4.1: the right-hand side's side effects — a
// Deref that could fail — must never run once the left operand already
// settles the outcome) and casts each to the node's declared operand type
// before calling value.Binary, which requires same-typed inputs.
func (e *Evaluator) VisitBinary(n *parser.Binary) (value.Value, error) {
	left, err := e.Eval(n.Left)
	if err != nil {
		return value.Value{}, err
	}

	if n.Op == "&&" || n.Op == "||" {
		if n.Op == "&&" && left.IsZero() {
			return value.NewInt(value.S32Type, 0), nil
		}
		if n.Op == "||" && !left.IsZero() {
			return value.NewInt(value.S32Type, 1), nil
		}
		right, err := e.Eval(n.Right)
		if err != nil {
			return value.Value{}, err
		}
		if right.IsZero() {
			return value.NewInt(value.S32Type, 0), nil
		}
		return value.NewInt(value.S32Type, 1), nil
	}

	right, err := e.Eval(n.Right)
	if err != nil {
		return value.Value{}, err
	}

	opType := n.Typ
	switch n.Op {
	case "<", ">", "<=", ">=", "==", "!=":
		// Relational/equality nodes carry s32 (their result type), but the
		// comparison itself must happen at the operands' own common type.
		opType = value.Higher(n.Left.Type(), n.Right.Type())
	case "<<", ">>":
		opType = n.Left.Type()
	}
	return value.Binary(n.Op, value.Cast(opType, left), value.Cast(opType, right))
}
