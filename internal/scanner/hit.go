// Package scanner implements the two-phase memory inspection engine of
// spec §4.6: an initial region sweep (Search) that produces an ordered hit
// list, and a filter pass (Filter) that re-evaluates a predicate over an
// existing hit list without re-scanning the whole address space.
package scanner

import "ramfuck/internal/value"

// Hit is one surviving candidate address and the value read there at the
// time it was kept.
type Hit struct {
	Address uint64
	Value   value.Value
}
