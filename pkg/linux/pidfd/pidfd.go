// Package pidfd delivers signals to a process through a pid file
// descriptor, which cannot be confused by pid reuse the way kill(2) can.
package pidfd

import (
	"golang.org/x/sys/unix"

	"github.com/vdsotools/vdsodump/pkg/linux"
)

type FD struct {
	fd int
}

func Open(pid linux.ProcessID) (*FD, error) {
	flags := 0
	fd, err := unix.PidfdOpen(int(pid), flags)
	if err != nil {
		return nil, err
	}
	return &FD{fd: fd}, nil
}

func (fd *FD) Close() error {
	return unix.Close(fd.fd)
}

func (fd *FD) SendSignal(sig unix.Signal) error {
	flags := 0
	var siginfo *unix.Siginfo
	return unix.PidfdSendSignal(fd.fd, sig, siginfo, flags)
}

// Pause stops the target process. The stop is not synchronous: the signal
// is queued and the target finishes its current kernel work first.
func (fd *FD) Pause() error {
	return fd.SendSignal(unix.SIGSTOP)
}

// Resume continues a previously paused process.
func (fd *FD) Resume() error {
	return fd.SendSignal(unix.SIGCONT)
}
