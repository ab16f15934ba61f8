package uname

import (
	"bytes"
	"syscall"
)

func stringFromBytes(ints []int8) string {
	b := make([]byte, len(ints))
	for i, value := range ints {
		b[i] = byte(value)
	}
	b = bytes.TrimRight(b, "\x00")
	return string(b)
}

type Uname struct {
	SystemName string
	NodeName   string
	Release    string
	Version    string
	Machine    string
}

func Load() (*Uname, error) {
	utsname := syscall.Utsname{}
	err := syscall.Uname(&utsname)
	if err != nil {
		return nil, err
	}

	return &Uname{
		SystemName: stringFromBytes(utsname.Sysname[:]),
		NodeName:   stringFromBytes(utsname.Nodename[:]),
		Release:    stringFromBytes(utsname.Release[:]),
		Version:    stringFromBytes(utsname.Version[:]),
		Machine:    stringFromBytes(utsname.Machine[:]),
	}, nil
}

// SystemRelease returns the running kernel release, e.g. "6.8.0-45-generic".
// The vDSO is built into the kernel, so a dump is only meaningful relative
// to this string.
func SystemRelease() (string, error) {
	uname, err := Load()
	if err != nil {
		return "", err
	}
	return uname.Release, nil
}
