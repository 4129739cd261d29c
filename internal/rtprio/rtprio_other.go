//go:build !linux

package rtprio

// Other is a no-op Setter for platforms without a SCHED_FIFO binding. The
// engine still runs, at whatever priority its host process already has.
type Other struct{}

// New returns the platform-default Setter.
func New() Setter { return Other{} }

func (Other) SetRTPriority(priority int) error { return nil }
