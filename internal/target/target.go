// Package target abstracts the live process being inspected (spec §6):
// attach/detach, region enumeration, memory read/write, and suspend/resume
// for the scan/filter engine. internal/target/linux.go grounds Target in
// ptrace and /proc; other backends can implement the same interface.
package target

import "context"

// Region is one mapped memory range as the scanner sees it — wide enough
// to drive block reads without caring about protection semantics beyond
// "is it readable".
type Region struct {
	Base       uint64
	Size       uint64
	Readable   bool
	Writable   bool
	Executable bool
	Pathname   string // backing file, or "" for anonymous/heap/stack
}

func (r Region) End() uint64 { return r.Base + r.Size }

// Target is the whole surface the evaluator, scanner and session need from
// an attached process.
type Target interface {
	// Attach binds to pid; Detach releases it. Re-attaching a detached
	// Target to a different pid is allowed.
	Attach(ctx context.Context, pid int) error
	Detach() error

	// Regions lists the current memory map, ordered by ascending base
	// address (the scanner relies on this order for its hit ordering
	// invariant, spec §4.6).
	Regions() ([]Region, error)

	ReadMemory(addr uint64, size int) ([]byte, error)
	WriteMemory(addr uint64, data []byte) error

	// Suspend stops the target's execution; Resume continues it. Callers
	// needing overlapping suspensions should go through a Lease instead of
	// calling these directly.
	Suspend() error
	Resume() error

	// AddressWidth reports 4 or 8: the pointer width scan/filter should use
	// for this process (spec §5's 32-bit vs 64-bit address-mode decision).
	AddressWidth() int
}
