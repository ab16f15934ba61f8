package procfs

import "errors"

var (
	// ErrNoSuchMapping means no mapping label matched the requested substring.
	ErrNoSuchMapping = errors.New("no such mapping")
	// ErrNoSuchProcess means the target process is not alive. A process may
	// exit between pid lookup and any read under /proc/<pid>.
	ErrNoSuchProcess = errors.New("no such process")
	// ErrPermissionDenied means the kernel refused access to the process.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPartialRead means less memory was readable than the mapping
	// advertised, typically because the region was unmapped mid-operation.
	ErrPartialRead = errors.New("partial memory read")
)
