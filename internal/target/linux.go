package target

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// LinuxTarget attaches to a process via ptrace and reads/writes its memory
// through /proc/<pid>/mem, the same pair of primitives the original CLI's
// process backend used (adapted here from the forensics module's
// /proc/<pid>/maps line parser).
type LinuxTarget struct {
	mu      sync.Mutex
	pid     int
	mem     *os.File
	stopped bool
	addrW   int
}

func NewLinuxTarget() *LinuxTarget {
	return &LinuxTarget{}
}

func (t *LinuxTarget) Attach(ctx context.Context, pid int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := unix.PtraceAttach(pid); err != nil {
		return errors.Wrapf(err, "ptrace attach pid %d", pid)
	}
	var ws unix.WaitStatus
	if _, err := unix.Wait4(pid, &ws, 0, nil); err != nil {
		unix.PtraceDetach(pid)
		return errors.Wrapf(err, "waiting for pid %d to stop", pid)
	}

	mem, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDWR, 0)
	if err != nil {
		unix.PtraceDetach(pid)
		return errors.Wrapf(err, "opening /proc/%d/mem", pid)
	}

	t.pid = pid
	t.mem = mem
	t.stopped = true
	t.addrW = t.detectAddressWidth()
	return nil
}

func (t *LinuxTarget) Detach() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mem != nil {
		t.mem.Close()
		t.mem = nil
	}
	if t.pid == 0 {
		return nil
	}
	if !t.stopped {
		unix.Kill(t.pid, syscall.SIGSTOP)
		var ws unix.WaitStatus
		unix.Wait4(t.pid, &ws, 0, nil)
	}
	err := unix.PtraceDetach(t.pid)
	t.pid = 0
	if err != nil {
		return errors.Wrap(err, "ptrace detach")
	}
	return nil
}

func (t *LinuxTarget) Suspend() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	if err := unix.Kill(t.pid, syscall.SIGSTOP); err != nil {
		return errors.Wrap(err, "suspending target")
	}
	var ws unix.WaitStatus
	if _, err := unix.Wait4(t.pid, &ws, 0, nil); err != nil {
		return errors.Wrap(err, "waiting for target to stop")
	}
	t.stopped = true
	return nil
}

func (t *LinuxTarget) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		return nil
	}
	if err := unix.PtraceCont(t.pid, 0); err != nil {
		return errors.Wrap(err, "resuming target")
	}
	t.stopped = false
	return nil
}

func (t *LinuxTarget) ReadMemory(addr uint64, size int) ([]byte, error) {
	t.mu.Lock()
	mem := t.mem
	t.mu.Unlock()
	if mem == nil {
		return nil, errors.New("target not attached")
	}
	buf := make([]byte, size)
	n, err := mem.ReadAt(buf, int64(addr))
	if err != nil && n != size {
		return nil, errors.Wrapf(err, "reading %d bytes at %#x", size, addr)
	}
	return buf, nil
}

func (t *LinuxTarget) WriteMemory(addr uint64, data []byte) error {
	t.mu.Lock()
	mem := t.mem
	t.mu.Unlock()
	if mem == nil {
		return errors.New("target not attached")
	}
	if _, err := mem.WriteAt(data, int64(addr)); err != nil {
		return errors.Wrapf(err, "writing %d bytes at %#x", len(data), addr)
	}
	return nil
}

func (t *LinuxTarget) AddressWidth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addrW
}

// Regions reads /proc/<pid>/maps, ordered by the kernel in ascending base
// address — the order the scanner's hit-ordering invariant depends on.
func (t *LinuxTarget) Regions() ([]Region, error) {
	t.mu.Lock()
	pid := t.pid
	t.mu.Unlock()

	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, errors.Wrapf(err, "reading /proc/%d/maps", pid)
	}
	var regions []Region
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		if r, ok := parseMapsLine(line); ok {
			regions = append(regions, r)
		}
	}
	return regions, nil
}

// parseMapsLine parses one /proc/<pid>/maps line into a Region, adapted
// from the forensics module's address-range and permission-field parser.
func parseMapsLine(line string) (Region, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Region{}, false
	}
	addrs := strings.SplitN(fields[0], "-", 2)
	if len(addrs) != 2 {
		return Region{}, false
	}
	base, err := strconv.ParseUint(addrs[0], 16, 64)
	if err != nil {
		return Region{}, false
	}
	end, err := strconv.ParseUint(addrs[1], 16, 64)
	if err != nil || end < base {
		return Region{}, false
	}
	perm := fields[1]
	r := Region{
		Base:       base,
		Size:       end - base,
		Readable:   strings.Contains(perm, "r"),
		Writable:   strings.Contains(perm, "w"),
		Executable: strings.Contains(perm, "x"),
	}
	if len(fields) >= 6 {
		r.Pathname = fields[5]
	}
	return r, true
}

// detectAddressWidth implements spec §5's 32→64-bit auto-promotion: start
// at 4 bytes, promote to 8 the moment any region's end address no longer
// fits a 32-bit pointer.
func (t *LinuxTarget) detectAddressWidth() int {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/maps", t.pid))
	if err != nil {
		return 8 // fail safe to the wider mode
	}
	width := 4
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		r, ok := parseMapsLine(line)
		if !ok {
			continue
		}
		if r.End() > 0xFFFFFFFF {
			width = 8
			break
		}
	}
	return width
}
