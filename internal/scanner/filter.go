package scanner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ramfuck/internal/eval"
	"ramfuck/internal/lexer"
	"ramfuck/internal/parser"
	"ramfuck/internal/symbol"
	"ramfuck/internal/value"
)

// Filter re-evaluates predicateSrc over an existing hit list instead of
// re-sweeping the address space (spec §4.6's second phase). Hits whose
// address can no longer be read, or for which the predicate is false or
// fails, are dropped; the input order is preserved for everything that
// survives — callers rely on filtering being able to run repeatedly
// (narrowing a hit set across several "value changed" passes) without
// ever reordering surviving hits.
func (s *Scanner) Filter(ctx context.Context, hits []Hit, scanType value.Type, predicateSrc string) ([]Hit, error) {
	if s.Lease != nil {
		if err := s.Lease.Acquire(); err != nil {
			return nil, err
		}
		defer s.Lease.Release()
	}

	addrWidth := s.Target.AddressWidth()
	kept := make([]*Hit, len(hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Parallelism)
	for i, hit := range hits {
		i, hit := i, hit
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			syms := symbol.NewTable()
			valueSym := syms.AddLocal("value", scanType)
			addrSym := syms.AddLocal("addr", value.Type{Scalar: value.U64})

			tokens := lexer.NewScanner(predicateSrc).ScanTokens()
			expr, err := parser.NewParser(tokens, syms).Parse()
			if err != nil {
				return err
			}
			expr = eval.Optimize(expr)
			evaluator := eval.NewEvaluator(&eval.Environment{Target: s.Target, AddrWidth: addrWidth})

			width := scanType.ByteWidth(addrWidth)
			buf, err := s.Target.ReadMemory(hit.Address, width)
			if err != nil {
				return nil // dropped: address no longer readable
			}
			current := value.FromBytes(scanType, addrWidth, buf)
			*valueSym.Cell = current
			*addrSym.Cell = value.NewUint(value.Type{Scalar: value.U64}, hit.Address)

			result, err := evaluator.Eval(expr)
			if err != nil || result.IsZero() {
				return nil // dropped: predicate false or failed
			}
			kept[i] = &Hit{Address: hit.Address, Value: current}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	survivors := make([]Hit, 0, len(kept))
	for _, h := range kept {
		if h != nil {
			survivors = append(survivors, *h)
		}
	}
	return survivors, nil
}
