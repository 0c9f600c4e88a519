package parser

import (
	"fmt"
	"strings"
)

// Print renders expr back to source text, fully parenthesized so that
// re-lexing and re-parsing the output reproduces the same tree regardless
// of the original precedence-driven spacing (spec §8's round-trip
// property only needs semantic, not textual, stability).
func Print(expr Expr) string {
	switch n := expr.(type) {
	case *Literal:
		// Keep the literal's kind visible to the lexer: an integral float
		// gets a ".0" and an unsigned value its 'u' suffix.
		s := n.Val.String()
		switch {
		case n.Typ.IsFloat() && !strings.ContainsAny(s, ".eEn"):
			s += ".0"
		case n.Typ.IsInteger() && n.Typ.Scalar.IsUnsigned():
			s += "u"
		}
		return s
	case *Variable:
		return n.Name
	case *Cast:
		return fmt.Sprintf("(%s)%s", n.Target, Print(n.X))
	case *Deref:
		return fmt.Sprintf("*%s", Print(n.X))
	case *Unary:
		return fmt.Sprintf("%s%s", n.Op, Print(n.X))
	case *Binary:
		return fmt.Sprintf("(%s %s %s)", Print(n.Left), n.Op, Print(n.Right))
	}
	return "?"
}
