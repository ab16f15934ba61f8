// Package dumper extracts named memory regions from live processes.
//
// A dump is a three step pipeline: locate the mapping whose label matches a
// substring, read the covered bytes from the process's memory image, and
// write them atomically to a file. The steps are sequential and every
// handle is released before the dump returns.
//
// The target keeps running while it is inspected, so the located region and
// the bytes read later are not guaranteed to be temporally consistent. For
// the vDSO this does not matter in practice, the kernel never moves it, but
// callers who need a consistent snapshot of a volatile region should set
// Options.Pause.
package dumper

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vdsotools/vdsodump/pkg/atomicfs"
	"github.com/vdsotools/vdsodump/pkg/linux"
	"github.com/vdsotools/vdsodump/pkg/linux/pidfd"
	"github.com/vdsotools/vdsodump/pkg/linux/procfs"
)

// DefaultMatch selects the vDSO mapping. The kernel labels its virtual
// mappings with bracketed pseudo-names, see man 7 vdso.
const DefaultMatch = "[vdso]"

// PidPlaceholder in an output path is replaced with the target pid.
const PidPlaceholder = "{pid}"

// maxConcurrentDumps bounds a multi-process batch.
const maxConcurrentDumps = 4

type Options struct {
	// Match is the case-sensitive substring a mapping label must contain.
	// Empty means DefaultMatch.
	Match string
	// Output is the destination file path. Any PidPlaceholder occurrence
	// is replaced with the target pid.
	Output string
	// Pause stops the target with SIGSTOP for the duration of the memory
	// read and resumes it afterwards, so that the located region and the
	// bytes stay consistent.
	Pause bool
	// Sync makes the written dump durable, not just atomic.
	Sync bool
}

type Result struct {
	Pid    linux.ProcessID
	Label  string
	Region procfs.Region
	Path   string
}

type Dumper struct {
	log  *zap.Logger
	proc *procfs.ProcFS
}

func New(log *zap.Logger, proc *procfs.ProcFS) *Dumper {
	return &Dumper{log: log, proc: proc}
}

// Dump extracts pid's first mapping matching opts.Match into opts.Output.
// On any failure no output file is produced and the previous content of
// the destination, if any, is kept.
func (d *Dumper) Dump(ctx context.Context, pid linux.ProcessID, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	match := opts.Match
	if match == "" {
		match = DefaultMatch
	}
	output := renderOutput(opts.Output, pid)
	if output == "" {
		return nil, fmt.Errorf("no output path")
	}

	l := d.log.With(zap.Uint32("pid", uint32(pid)), zap.String("match", match))

	proc := d.proc.Process(pid)
	mapping, err := proc.FindMapping(match)
	if err != nil {
		return nil, err
	}
	region := mapping.Region()
	l.Info("Located mapping",
		zap.String("label", mapping.Path),
		zap.String("range", fmt.Sprintf("%#x-%#x", mapping.Begin, mapping.End)),
		zap.String("size", humanize.IBytes(region.Length)),
	)

	var buf []byte
	if opts.Pause {
		buf, err = d.readPaused(pid, region, l)
	} else {
		buf, err = proc.ReadMemory(region)
	}
	if err != nil {
		return nil, err
	}

	wopts := []atomicfs.FileOption{}
	if opts.Sync {
		wopts = append(wopts, atomicfs.WithSync())
	}
	if err := atomicfs.WriteFile(output, buf, wopts...); err != nil {
		return nil, fmt.Errorf("failed to write dump to %s: %w", output, err)
	}
	l.Info("Wrote dump",
		zap.String("output", output),
		zap.Int("bytes", len(buf)),
	)

	return &Result{Pid: pid, Label: mapping.Path, Region: region, Path: output}, nil
}

// DumpAll dumps every pid independently with bounded concurrency. The first
// failure cancels the remaining dumps and is reported; dumps that already
// completed keep their output files.
func (d *Dumper) DumpAll(ctx context.Context, pids []linux.ProcessID, opts Options) ([]*Result, error) {
	if len(pids) > 1 && !strings.Contains(opts.Output, PidPlaceholder) {
		return nil, fmt.Errorf("output path %q needs a %s placeholder to dump %d processes",
			opts.Output, PidPlaceholder, len(pids))
	}

	results := make([]*Result, len(pids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDumps)
	for i, pid := range pids {
		i, pid := i, pid
		g.Go(func() error {
			res, err := d.Dump(ctx, pid, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// readPaused wraps the memory read in a SIGSTOP/SIGCONT pair delivered via
// pidfd, so the signal cannot hit an unrelated process after pid reuse.
// The resume is attempted on every exit path, including failed reads.
func (d *Dumper) readPaused(pid linux.ProcessID, region procfs.Region, l *zap.Logger) ([]byte, error) {
	if int(pid) == os.Getpid() {
		return nil, fmt.Errorf("refusing to pause the calling process")
	}

	fd, err := pidfd.Open(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open pidfd for %d: %w", pid, err)
	}
	defer func() { _ = fd.Close() }()

	if err := fd.Pause(); err != nil {
		return nil, fmt.Errorf("failed to stop process %d: %w", pid, err)
	}
	defer func() {
		if err := fd.Resume(); err != nil {
			l.Error("Failed to resume process", zap.Error(err))
		}
	}()

	return d.proc.Process(pid).ReadMemory(region)
}

func renderOutput(path string, pid linux.ProcessID) string {
	return strings.ReplaceAll(path, PidPlaceholder, fmt.Sprint(pid))
}
