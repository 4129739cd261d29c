//go:build linux

package rtprio

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// schedFIFO is SCHED_FIFO; golang.org/x/sys/unix does not export the
// scheduling-policy constants, only the syscall numbers.
const schedFIFO = 1

// schedParam mirrors struct sched_param's layout (a single int field) for
// the raw sched_setscheduler syscall.
type schedParam struct {
	priority int32
}

// Linux assigns SCHED_FIFO to the calling OS thread via sched_setscheduler.
// SetRTPriority must be called from the goroutine that is about to run the
// realtime work, with runtime.LockOSThread already in effect: the syscall
// applies to the calling thread, not the process.
type Linux struct{}

// New returns the platform-default Setter.
func New() Setter { return Linux{} }

func (Linux) SetRTPriority(priority int) error {
	param := schedParam{priority: int32(priority)}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER, 0, schedFIFO, uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return fmt.Errorf("sched_setscheduler: %w", errno)
	}
	return nil
}
