package bridge

// Ring is a lock-free single-producer/single-consumer byte ring owned by the
// host. The engine is the producer of o2p rings and the consumer of p2o
// rings. All methods must be non-blocking: Read/Write return whatever they
// could move, ReadSpace/WriteSpace report what's currently available.
//
// The engine never assumes a particular implementation — see
// internal/spscring for a reference one used in tests and internal/hostref.
type Ring interface {
	ReadSpace() int
	WriteSpace() int
	Read(dst []byte) int
	Write(src []byte) int
}

// Clock reports host time, in seconds, for timestamping and DLL feedback.
type Clock interface {
	Now() float64
}

// DLL is the opaque delay-locked loop the host uses to align its audio
// callback clock with the device sample clock. The engine only drives it;
// it never inspects its internal state.
type DLL interface {
	Init(sampleRate float64, framesPerTransfer int, now float64)
	Increment(framesPerTransfer int, now float64)
}

// RTSetter assigns realtime scheduling priority to a driver thread. See
// internal/rtprio for the default (Linux SCHED_FIFO) implementation.
type RTSetter interface {
	SetRTPriority(priority int) error
}

// Options is the bitmask of engine features the host context enables.
type Options uint8

const (
	OptO2PAudio Options = 1 << iota
	OptP2OAudio
	OptO2PMIDI
	OptP2OMIDI
	OptDLL
)

func (o Options) has(f Options) bool { return o&f != 0 }

// HostContext is supplied to Activate. It is validated field-by-field
// against the enabled Options; see errors.go for the per-field error codes.
type HostContext struct {
	Options Options

	P2OAudio Ring
	O2PAudio Ring
	P2OMIDI  Ring
	O2PMIDI  Ring

	Clock Clock

	// RTSetter and Priority are optional: Activate uses rtprio.New() (SCHED_FIFO
	// on Linux, a no-op elsewhere) when RTSetter is nil, and
	// rtprio.DefaultPriority when Priority is 0.
	RTSetter RTSetter
	Priority int

	// DLL is required only when Options has OptDLL set.
	DLL DLL
}

// DescriptorTable looks up a device descriptor by USB vendor/product ID.
// Supplied by the caller; device enumeration beyond the two factories in
// construct.go is out of scope for the engine.
type DescriptorTable interface {
	Lookup(vendor, product uint16) (DeviceDescriptor, bool)
}
