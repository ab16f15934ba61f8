// Package procfs reads per-process kernel state from a mounted procfs.
//
// The filesystem is abstracted behind io/fs so that tests can substitute
// synthetic fixtures for /proc. Both the line-oriented address-space
// description (maps) and the seekable memory image (mem) of a process are
// exposed through the same view.
package procfs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/vdsotools/vdsodump/pkg/linux"
)

////////////////////////////////////////////////////////////////////////////////

// ProcFS is a view over a procfs mount.
type ProcFS struct {
	fsys fs.FS
}

// FS returns the view over the system /proc mount.
func FS() *ProcFS {
	return &ProcFS{fsys: os.DirFS("/proc")}
}

// NewFS returns a view over an arbitrary filesystem laid out like procfs.
func NewFS(fsys fs.FS) *ProcFS {
	return &ProcFS{fsys: fsys}
}

func (f *ProcFS) Process(pid linux.ProcessID) *process {
	return &process{fsys: f.fsys, pid: pid}
}

func (f *ProcFS) Self() *process {
	return &process{fsys: f.fsys, self: true}
}

// Process returns pid's view under the system /proc mount.
func Process(pid linux.ProcessID) *process {
	return FS().Process(pid)
}

// Self returns the calling process's view under the system /proc mount.
func Self() *process {
	return FS().Self()
}

////////////////////////////////////////////////////////////////////////////////

type process struct {
	fsys fs.FS
	pid  linux.ProcessID
	self bool
}

func (p *process) Name() string {
	if p.self {
		return "self"
	}
	return fmt.Sprint(p.pid)
}

func (p *process) child(name string) string {
	return p.Name() + "/" + name
}

// ListMappings streams the process's mappings in file order. The callback
// receives a mapping that is only valid for the duration of the call.
// Returning an error from the callback stops the scan and propagates it.
func (p *process) ListMappings(callback func(m *Mapping) error) error {
	path := p.child("maps")

	f, err := p.fsys.Open(path)
	if err != nil {
		return classify("open", path, err)
	}
	defer f.Close()

	s := bufio.NewScanner(bufio.NewReader(f))
	for s.Scan() {
		var mapping Mapping
		if err := ParseMapping(&mapping, s.Bytes()); err != nil {
			return err
		}
		if err := callback(&mapping); err != nil {
			return err
		}
	}
	return s.Err()
}

var errStopScan = errors.New("stop scan")

// FindMapping returns the first mapping whose label contains substr,
// scanning in file order and stopping at the first hit. The match is
// case-sensitive. Fails with ErrNoSuchMapping when nothing matches,
// e.g. when the kernel was built without the wanted virtual mapping.
func (p *process) FindMapping(substr string) (*Mapping, error) {
	if substr == "" {
		return nil, errors.New("empty mapping label substring")
	}

	var found *Mapping
	err := p.ListMappings(func(m *Mapping) error {
		if strings.Contains(m.Path, substr) {
			clone := *m
			found = &clone
			return errStopScan
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no label contains %q in /proc/%s/maps", ErrNoSuchMapping, substr, p.Name())
	}
	return found, nil
}

// ReadMemory returns exactly region.Length bytes of the process's memory
// image starting at the absolute address region.Begin. The image handle is
// closed on every exit path. A short read is never returned silently: it
// surfaces as ErrPartialRead.
//
// The target keeps running while it is inspected, so the bytes are not
// guaranteed to be consistent with an earlier FindMapping unless the caller
// pauses the process around the read.
func (p *process) ReadMemory(region Region) ([]byte, error) {
	path := p.child("mem")

	f, err := p.fsys.Open(path)
	if err != nil {
		return nil, classify("open", path, err)
	}
	defer f.Close()

	ra, ok := f.(io.ReaderAt)
	if !ok {
		return nil, fmt.Errorf("/proc/%s is not randomly accessible", path)
	}

	buf := make([]byte, region.Length)
	r := io.NewSectionReader(ra, int64(region.Begin), int64(region.Length))
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: less than %#x bytes readable at %#x of /proc/%s",
				ErrPartialRead, region.Length, region.Begin, path)
		}
		return nil, classify("read", path, err)
	}
	return buf, nil
}

////////////////////////////////////////////////////////////////////////////////

// classify maps raw procfs errors onto the package taxonomy. The pid
// directory vanishing means the process exited between lookup and read.
func classify(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %s /proc/%s: %v", ErrNoSuchProcess, op, path, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %s /proc/%s: %v", ErrPermissionDenied, op, path, err)
	case errors.Is(err, unix.EIO):
		// The kernel reports EIO for reads of unmapped pages of /proc/pid/mem.
		return fmt.Errorf("%w: %s /proc/%s: %v", ErrPartialRead, op, path, err)
	}
	return fmt.Errorf("failed to %s /proc/%s: %w", op, path, err)
}
