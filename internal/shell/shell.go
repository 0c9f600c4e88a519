// Package shell is the interactive command loop: read a line, dispatch on
// its first word, print a result. Adapted from the teacher's REPL
// (internal/repl's Start loop) with the lex/compile/run pipeline replaced
// by session commands over the scan/filter engine.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"ramfuck/internal/eval"
	"ramfuck/internal/lexer"
	"ramfuck/internal/parser"
	"ramfuck/internal/session"
	"ramfuck/internal/symbol"
	"ramfuck/internal/value"
)

// Shell reads commands from in and writes results to out, against one
// session.
type Shell struct {
	sess *session.Session
	in   *bufio.Scanner
	out  io.Writer
	tty  bool

	// OnCommand, when set, is called with the raw line for every command
	// dispatched (not quit/exit, not blank lines) — the hook an attached
	// audit.Log uses to record command history without shell knowing SQL
	// exists.
	OnCommand func(line string)
}

func New(sess *session.Session, in io.Reader, out io.Writer) *Shell {
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd())
	}
	return &Shell{sess: sess, in: bufio.NewScanner(in), out: out, tty: tty}
}

// Run drives the loop until the input is exhausted or "quit"/"exit" is
// typed. Every command's outcome is printed, but a per-command error never
// ends the loop — only EOF or an explicit quit does.
func (s *Shell) Run() {
	for {
		s.prompt()
		if !s.in.Scan() {
			return
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if s.OnCommand != nil {
			s.OnCommand(line)
		}
		if err := s.dispatch(line); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *Shell) prompt() {
	if s.tty {
		fmt.Fprint(s.out, "ramfuck> ")
	}
}

// commandAliases lets a shell command be typed as its single-letter short
// form, the same convenience the top-level CLI gives its own verbs.
var commandAliases = map[string]string{
	"s": "search",
	"f": "filter",
	"p": "peek",
	"w": "poke",
	"u": "undo",
	"l": "list",
	"e": "eval",
}

func (s *Shell) dispatch(line string) error {
	fields := strings.SplitN(line, " ", 3)
	cmd := fields[0]
	if full, ok := commandAliases[cmd]; ok {
		cmd = full
	}
	switch cmd {
	case "search":
		if len(fields) < 3 {
			return fmt.Errorf("usage: search <type> <expr>")
		}
		return s.search(fields[1], fields[2])
	case "filter":
		if len(fields) < 3 {
			return fmt.Errorf("usage: filter <type> <expr>")
		}
		return s.filter(fields[1], fields[2])
	case "list":
		return s.list()
	case "peek":
		if len(fields) < 3 {
			return fmt.Errorf("usage: peek <addr> <type>")
		}
		return s.peek(fields[1], fields[2])
	case "poke":
		rest := strings.SplitN(strings.Join(fields[1:], " "), " ", 3)
		if len(rest) < 3 {
			return fmt.Errorf("usage: poke <addr> <type> <expr>")
		}
		return s.poke(rest[0], rest[1], rest[2])
	case "undo":
		return s.sess.Undo()
	case "eval":
		if len(fields) < 2 {
			return fmt.Errorf("usage: eval <expr>")
		}
		return s.eval(strings.Join(fields[1:], " "))
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (s *Shell) search(typeName, expr string) error {
	typ, ok := value.ParseType(typeName)
	if !ok {
		return fmt.Errorf("unknown type %q", typeName)
	}
	if err := s.sess.Search(context.Background(), typ, expr); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s hits\n", humanize.Comma(int64(len(s.sess.Hits))))
	return nil
}

func (s *Shell) filter(typeName, expr string) error {
	typ, ok := value.ParseType(typeName)
	if !ok {
		return fmt.Errorf("unknown type %q", typeName)
	}
	if err := s.sess.Filter(context.Background(), typ, expr); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s hits remaining\n", humanize.Comma(int64(len(s.sess.Hits))))
	return nil
}

// eval evaluates an arbitrary expression once against the session's own
// symbol table — unlike peek/poke, its address isn't fixed up front, so it
// can reference "last" directly (e.g. "*last", "*last + 1") or evaluate a
// plain constant expression with no memory access at all.
func (s *Shell) eval(exprSrc string) error {
	v, err := s.sess.Eval(exprSrc)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s\n", v.String())
	return nil
}

func (s *Shell) list() error {
	for _, h := range s.sess.Hits {
		fmt.Fprintf(s.out, "0x%x => %s\n", h.Address, h.Value.String())
	}
	fmt.Fprintf(s.out, "(%s total)\n", humanize.Comma(int64(len(s.sess.Hits))))
	return nil
}

func (s *Shell) peek(addrStr, typeName string) error {
	addr, err := parseAddr(addrStr)
	if err != nil {
		return err
	}
	typ, ok := value.ParseType(typeName)
	if !ok {
		return fmt.Errorf("unknown type %q", typeName)
	}
	v, err := s.sess.Peek(addr, typ)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s\n", v.String())
	return nil
}

func (s *Shell) poke(addrStr, typeName, exprSrc string) error {
	addr, err := parseAddr(addrStr)
	if err != nil {
		return err
	}
	typ, ok := value.ParseType(typeName)
	if !ok {
		return fmt.Errorf("unknown type %q", typeName)
	}

	v, err := evalLiteralExpr(typ, exprSrc)
	if err != nil {
		return err
	}
	return s.sess.Poke(addr, v)
}

// evalLiteralExpr parses exprSrc with no symbols available (poke's value
// argument is always a constant) and casts it to typ.
func evalLiteralExpr(typ value.Type, exprSrc string) (value.Value, error) {
	syms := symbol.NewTable()
	tokens := lexer.NewScanner(exprSrc).ScanTokens()
	expr, err := parser.NewParser(tokens, syms).Parse()
	if err != nil {
		return value.Value{}, err
	}
	lit, ok := eval.Optimize(expr).(*parser.Literal)
	if !ok {
		return value.Value{}, fmt.Errorf("poke value must be a constant expression")
	}
	return value.Cast(typ, lit.Val), nil
}

func parseAddr(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}
