package linux

// ProcessID identifies a process inside the current pid namespace.
type ProcessID uint32
