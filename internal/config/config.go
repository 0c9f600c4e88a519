// Package config holds the tunables shared by the scanner and evaluator:
// block size, alignment mode, how often a long-running scan checks for
// cancellation, and how many regions are scanned in parallel.
package config

import "runtime"

// Align controls which byte offsets within a region the scanner tries as
// candidate addresses.
type Align int

const (
	// AlignNatural only tries offsets aligned to the scan type's own
	// width — the default, and the only mode that makes sense for most
	// real process memory.
	AlignNatural Align = iota
	// AlignByte tries every byte offset, for targets that store values
	// unaligned (packed structs, compressed formats).
	AlignByte
)

// Config is the scan/filter engine's tunable surface (spec §4.6 / §5).
type Config struct {
	// BlockSize is how many bytes the scanner reads from the target per
	// Target.ReadMemory call while sweeping a region.
	BlockSize int
	// Align selects AlignNatural or AlignByte.
	Align Align
	// PollInterval is how many candidate addresses the scanner evaluates
	// between checks of ctx.Err(), bounding cancellation latency without
	// making every single candidate pay a context-switch.
	PollInterval int
	// Parallelism bounds how many regions are read and evaluated
	// concurrently (wired through golang.org/x/sync/errgroup.SetLimit).
	Parallelism int
}

// Default returns the engine's out-of-the-box tuning: a 4 KiB block size
// (one typical page), natural alignment, cancellation checked every 4096
// candidates, and one worker per CPU.
func Default() Config {
	return Config{
		BlockSize:    4096,
		Align:        AlignNatural,
		PollInterval: 4096,
		Parallelism:  runtime.NumCPU(),
	}
}
