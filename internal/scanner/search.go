package scanner

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"ramfuck/internal/config"
	"ramfuck/internal/eval"
	"ramfuck/internal/lexer"
	"ramfuck/internal/parser"
	"ramfuck/internal/rferrors"
	"ramfuck/internal/symbol"
	"ramfuck/internal/target"
	"ramfuck/internal/value"
)

// Progress reports how far a Search has gotten, for a shell status line or
// an eventstream.Publisher to broadcast to watchers.
type Progress struct {
	RegionsDone, RegionsTotal int
	HitsFound                 int
}

// Scanner drives Search and Filter against one attached Target.
type Scanner struct {
	Target target.Target
	Cfg    config.Config

	// OnProgress, when set, is called after each region finishes (from
	// whichever goroutine finished it — callers needing serialized
	// delivery should hop to a channel inside their callback).
	OnProgress func(Progress)

	// Lease, when set, is acquired for the duration of Search/Filter (spec
	// §5: "Any scan, filter, peek, or poke acquires a break lease...
	// suspended at the start and resumed at the end"). Left nil, Search
	// and Filter run without suspending the target.
	Lease *target.Lease
}

func New(t target.Target, cfg config.Config) *Scanner {
	return &Scanner{Target: t, Cfg: cfg}
}

// Search sweeps every readable region for addresses where predicateSrc,
// evaluated with "value" bound to scanType-typed memory at that address and
// "addr" bound to the candidate address itself, is true. Regions are read
// and evaluated concurrently (bounded by Cfg.Parallelism via
// errgroup.SetLimit) but the result preserves the region order Target.Regions
// returned — and, within a region, ascending address order — so Search's
// output is deterministic regardless of how the workers interleave.
func (s *Scanner) Search(ctx context.Context, scanType value.Type, predicateSrc string) ([]Hit, error) {
	if s.Lease != nil {
		if err := s.Lease.Acquire(); err != nil {
			return nil, err
		}
		defer s.Lease.Release()
	}

	regions, err := s.Target.Regions()
	if err != nil {
		return nil, err
	}

	var readable []target.Region
	for _, r := range regions {
		if r.Readable && r.Size > 0 {
			readable = append(readable, r)
		}
	}

	results := make([][]Hit, len(readable))
	var regionsDone, hitsFound int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Cfg.Parallelism)
	for i, region := range readable {
		i, region := i, region
		g.Go(func() error {
			hits, err := s.scanRegion(gctx, region, scanType, predicateSrc)
			if err != nil {
				return err
			}
			results[i] = hits
			if s.OnProgress != nil {
				done := atomic.AddInt64(&regionsDone, 1)
				found := atomic.AddInt64(&hitsFound, int64(len(hits)))
				s.OnProgress(Progress{RegionsDone: int(done), RegionsTotal: len(readable), HitsFound: int(found)})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Hit
	for _, hits := range results {
		all = append(all, hits...)
	}
	return all, nil
}

// scanRegion builds its own symbol table, parses predicateSrc fresh, and
// evaluates it once per candidate address. Each worker gets its own parse
// tree because the "value"/"addr" symbols are rebound (their Cell mutated)
// on every candidate — sharing one tree across goroutines would race.
func (s *Scanner) scanRegion(ctx context.Context, region target.Region, scanType value.Type, predicateSrc string) ([]Hit, error) {
	addrWidth := s.Target.AddressWidth()

	syms := symbol.NewTable()
	valueSym := syms.AddLocal("value", scanType)
	addrSym := syms.AddLocal("addr", value.Type{Scalar: value.U64})

	tokens := lexer.NewScanner(predicateSrc).ScanTokens()
	expr, err := parser.NewParser(tokens, syms).Parse()
	if err != nil {
		return nil, err
	}
	expr = eval.Optimize(expr)
	evaluator := eval.NewEvaluator(&eval.Environment{Target: s.Target, AddrWidth: addrWidth})

	width := scanType.ByteWidth(addrWidth)
	if width <= 0 {
		return nil, rferrors.NewEvalError("scan type has zero width")
	}
	step := uint64(1)
	if s.Cfg.Align == config.AlignNatural {
		step = uint64(width)
	}

	blockSize := s.Cfg.BlockSize
	if blockSize < width {
		blockSize = width
	}

	var hits []Hit
	checked := 0
	for off := uint64(0); off+uint64(width) <= region.Size; {
		if checked%s.Cfg.PollInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		checked++

		readLen := blockSize
		if off+uint64(readLen) > region.Size {
			readLen = int(region.Size - off)
		}
		buf, err := s.Target.ReadMemory(region.Base+off, readLen)
		if err != nil {
			// A region that stops being readable mid-scan is skipped, not
			// fatal: process memory mappings can change under us.
			break
		}

		for bufOff := 0; bufOff+width <= len(buf); bufOff += int(step) {
			if checked%s.Cfg.PollInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			checked++

			addr := region.Base + off + uint64(bufOff)
			candidate := value.FromBytes(scanType, addrWidth, buf[bufOff:bufOff+width])
			*valueSym.Cell = candidate
			*addrSym.Cell = value.NewUint(value.Type{Scalar: value.U64}, addr)

			result, err := evaluator.Eval(expr)
			if err != nil {
				continue
			}
			if !result.IsZero() {
				hits = append(hits, Hit{Address: addr, Value: candidate})
			}
		}

		if len(buf) < width {
			break
		}
		// Resume at the first candidate this block could not hold whole
		// (at most width-1 bytes of overlap), so a candidate straddling
		// this block's tail is tried as the next block's head. Rounding
		// up to a multiple of step keeps the alignment the first block
		// started with and never re-tries a candidate already evaluated.
		usable := len(buf) - (width - 1)
		if rem := usable % int(step); rem != 0 {
			usable += int(step) - rem
		}
		off += uint64(usable)
	}
	return hits, nil
}
