package session

import (
	"context"
	"testing"

	"ramfuck/internal/config"
	"ramfuck/internal/target"
	"ramfuck/internal/value"
)

type fakeTarget struct {
	base    uint64
	mem     []byte
	suspend int
	resume  int
}

func (f *fakeTarget) Attach(ctx context.Context, pid int) error { return nil }
func (f *fakeTarget) Detach() error                             { return nil }
func (f *fakeTarget) Suspend() error                            { f.suspend++; return nil }
func (f *fakeTarget) Resume() error                             { f.resume++; return nil }
func (f *fakeTarget) AddressWidth() int                         { return 8 }

func (f *fakeTarget) Regions() ([]target.Region, error) {
	return []target.Region{{Base: f.base, Size: uint64(len(f.mem)), Readable: true, Writable: true}}, nil
}

func (f *fakeTarget) ReadMemory(addr uint64, size int) ([]byte, error) {
	off := int(addr - f.base)
	buf := make([]byte, size)
	copy(buf, f.mem[off:off+size])
	return buf, nil
}

func (f *fakeTarget) WriteMemory(addr uint64, data []byte) error {
	off := int(addr - f.base)
	copy(f.mem[off:], data)
	return nil
}

func TestPokeRecordsUndo(t *testing.T) {
	ft := &fakeTarget{base: 0x1000, mem: []byte{1, 2, 3, 4}}
	sess := New(ft, config.Default())

	if err := sess.Poke(0x1000, value.NewInt(value.Type{Scalar: value.S32}, 99)); err != nil {
		t.Fatalf("Poke: %v", err)
	}
	got, err := sess.Peek(0x1000, value.Type{Scalar: value.S32})
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if got.Int64() != 99 {
		t.Errorf("peeked value = %v, want 99", got.Int64())
	}

	if err := sess.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	got, err = sess.Peek(0x1000, value.Type{Scalar: value.S32})
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if b := got.Bytes(8); b[0] != 1 || b[1] != 2 || b[2] != 3 || b[3] != 4 {
		t.Errorf("after undo, bytes = %v, want [1 2 3 4]", b)
	}
}

func TestUndoWithEmptyHistoryFails(t *testing.T) {
	ft := &fakeTarget{base: 0, mem: make([]byte, 8)}
	sess := New(ft, config.Default())
	if err := sess.Undo(); err == nil {
		t.Error("expected Undo with no history to fail")
	}
}

func TestLastSymbolTracksMostRecentAddress(t *testing.T) {
	ft := &fakeTarget{base: 0x2000, mem: make([]byte, 16)}
	sess := New(ft, config.Default())

	if _, err := sess.Peek(0x2004, value.Type{Scalar: value.S32}); err != nil {
		t.Fatalf("Peek: %v", err)
	}
	sym, ok := sess.Syms.Lookup("last")
	if !ok {
		t.Fatal("expected 'last' symbol to be registered")
	}
	if sym.Cell.Addr() != 0x2004 {
		t.Errorf("last = %#x, want 0x2004", sym.Cell.Addr())
	}
}

func TestPeekPokeAcquireBalancedBreakLease(t *testing.T) {
	ft := &fakeTarget{base: 0x1000, mem: []byte{1, 2, 3, 4}}
	sess := New(ft, config.Default())

	if _, err := sess.Peek(0x1000, value.Type{Scalar: value.S32}); err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if err := sess.Poke(0x1000, value.NewInt(value.Type{Scalar: value.S32}, 7)); err != nil {
		t.Fatalf("Poke: %v", err)
	}
	if ft.suspend != 2 || ft.resume != 2 {
		t.Errorf("suspend=%d resume=%d, want 2/2 (one pair per Peek, one per Poke)", ft.suspend, ft.resume)
	}
	if sess.Lease.Held() != 0 {
		t.Errorf("lease held count = %d, want 0 after both calls returned", sess.Lease.Held())
	}
}

func TestEvalConstantExpression(t *testing.T) {
	ft := &fakeTarget{base: 0, mem: make([]byte, 8)}
	sess := New(ft, config.Default())

	got, err := sess.Eval("1 + 2 * 3")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Int64() != 7 {
		t.Errorf("Eval(\"1 + 2 * 3\") = %v, want 7", got.Int64())
	}
}

func TestEvalDerefsThroughLastSymbol(t *testing.T) {
	// "last" is a u64ptr, so "*last" reads 8 bytes as u64.
	ft := &fakeTarget{base: 0x4000, mem: []byte{9, 0, 0, 0, 0, 0, 0, 0}}
	sess := New(ft, config.Default())

	if _, err := sess.Peek(0x4000, value.Type{Scalar: value.S32}); err != nil {
		t.Fatalf("Peek: %v", err)
	}
	got, err := sess.Eval("*last")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got.Int64() != 9 {
		t.Errorf("Eval(\"*last\") = %v, want 9", got.Int64())
	}
}

func TestSearchUpdatesHitsAndLast(t *testing.T) {
	mem := make([]byte, 16)
	mem[0] = 7
	mem[8] = 7
	ft := &fakeTarget{base: 0x3000, mem: mem}
	sess := New(ft, config.Default())

	if err := sess.Search(context.Background(), value.Type{Scalar: value.S32}, "value == 7"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(sess.Hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(sess.Hits))
	}
	sym, _ := sess.Syms.Lookup("last")
	if sym.Cell.Addr() != sess.Hits[len(sess.Hits)-1].Address {
		t.Errorf("last = %#x, want last hit address %#x", sym.Cell.Addr(), sess.Hits[len(sess.Hits)-1].Address)
	}
}
