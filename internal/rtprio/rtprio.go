// Package rtprio assigns realtime scheduling priority to the engine's two
// driver threads, per the host-provided set_rt_priority hook. A default
// implementation is provided for Linux; other platforms get a no-op so the
// engine still runs (at regular priority) rather than failing to start.
package rtprio

// Setter matches bridge.RTSetter: it assigns realtime priority to whatever
// OS thread calls SetRTPriority from.
type Setter interface {
	SetRTPriority(priority int) error
}

// DefaultPriority is used when the host context's priority is 0, whether
// or not it supplies its own Setter.
const DefaultPriority = 10
