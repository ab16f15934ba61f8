// Package atomicfs writes files atomically: content goes to a temporary
// file in the destination directory which is renamed over the destination
// on Close. A failed or abandoned write never leaves a partial destination
// file behind.
package atomicfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

////////////////////////////////////////////////////////////////////////////////

type File struct {
	tmpfile *os.File
	dstpath string
	sync    bool
}

type FileOption func(f *File) error

// WithSync fsyncs the temporary file before the rename, making the write
// durable and not just atomic.
func WithSync() FileOption {
	return func(f *File) error {
		f.sync = true
		return nil
	}
}

func WithMode(mode os.FileMode) FileOption {
	return func(f *File) error {
		return f.tmpfile.Chmod(mode)
	}
}

////////////////////////////////////////////////////////////////////////////////

const tmpsuffix = ".tmp-"

func Create(path string, opts ...FileOption) (f *File, err error) {
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to make tmp file name: %w", err)
	}
	dir, base := filepath.Split(path)

	tmpf, err := os.CreateTemp(dir, base+tmpsuffix)
	if err != nil {
		return nil, err
	}

	f = &File{tmpfile: tmpf, dstpath: path}
	defer func() {
		if err != nil {
			_ = f.Discard()
		}
	}()

	// Reduces the number of lost tmp files: Discard removes an uncommitted
	// tmp file even when the caller forgets to.
	runtime.SetFinalizer(f, (*File).Discard)

	for _, opt := range opts {
		if err = opt(f); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func (f *File) Write(data []byte) (int, error) {
	return f.tmpfile.Write(data)
}

// Discard drops the pending write and removes the temporary file.
// The destination is left untouched. Safe to call after Close.
func (f *File) Discard() error {
	if f.tmpfile == nil {
		return nil
	}
	defer func() {
		f.tmpfile = nil
	}()

	if err := f.tmpfile.Close(); err != nil {
		return err
	}
	return os.Remove(f.tmpfile.Name())
}

// Close commits the write: the temporary file replaces the destination.
// On any failure the temporary file is discarded instead.
func (f *File) Close() (err error) {
	if f.tmpfile == nil {
		return fmt.Errorf("calling atomicfs.File.Close on already finished atomicfs.File")
	}
	defer func() {
		if err != nil {
			_ = f.Discard()
		} else {
			f.tmpfile = nil
		}
	}()

	if f.sync {
		if err = f.tmpfile.Sync(); err != nil {
			return err
		}
	}

	if err = f.tmpfile.Close(); err != nil {
		return err
	}

	return os.Rename(f.tmpfile.Name(), f.dstpath)
}

////////////////////////////////////////////////////////////////////////////////

// WriteFile is an atomic version of os.WriteFile.
func WriteFile(path string, data []byte, opts ...FileOption) error {
	f, err := Create(path, opts...)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Discard()
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}

	return f.Close()
}

////////////////////////////////////////////////////////////////////////////////

var _ io.Writer = (*File)(nil)
var _ io.WriteCloser = (*File)(nil)
