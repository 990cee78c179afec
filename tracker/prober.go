package tracker

import (
	"os"
	"syscall"
)

// Prober checks OS-level liveness of a pid. Swapped for a stub in tests.
type Prober interface {
	Alive(pid int) bool
}

// ProcessProber probes real processes with a zero signal.
type ProcessProber struct{}

// Alive reports whether pid refers to a live process. EPERM means the
// process exists but belongs to another user, so it still counts as alive.
func (ProcessProber) Alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
