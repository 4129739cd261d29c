package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"bridge/internal/resample"
	"bridge/internal/usbxfer"
)

// Status is the engine lifecycle value returned by Status and advanced by
// Start, Stop, fail and the audio thread's BOOT transition. Values are
// ordered: READY < BOOT < WAIT < RUN < STOP < ERROR, and callers only ever
// observe a non-decreasing sequence once RUN is reached.
type Status int32

const (
	StatusReady Status = iota
	StatusBoot
	StatusWait
	StatusRun
	StatusStop
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusBoot:
		return "boot"
	case StatusWait:
		return "wait"
	case StatusRun:
		return "run"
	case StatusStop:
		return "stop"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Engine is the transport engine. It is created by OpenByAddress/OpenByFD
// (construct.go), activated with a HostContext (Activate, below), and
// driven by the two worker goroutines in threads.go until Stop/Wait.
// Exported methods are safe for concurrent use; the USB event thread calls
// back into the unexported mover methods in audio.go/midi.go under the
// same lock.
type Engine struct {
	cfg  EngineConfig
	dev  *usbxfer.Device
	ring *usbxfer.Ring

	host      HostContext
	resampler resample.Resampler
	logger    *log.Logger

	// lock guards status and the fields spec §5 groups with it: the four
	// latency counters, the p2o_audio runtime toggle, and any DLL call. It
	// is never held across USB submission, ring I/O, or sleep.
	lock   sync.Mutex
	status Status

	p2oLatency, p2oMaxLatency int
	o2pLatency, o2pMaxLatency int
	p2oAudioEnabled           bool

	lastErr error

	// p2oMidiReady replaces the spec's p2o_midi_lock: a lock that protects
	// exactly one boolean is equivalent to an atomic flag (§9's "eliminate
	// the lock via an atomic-only representation of state"), and an atomic
	// is the idiomatic choice for the outbound-MIDI thread's spin-wait.
	p2oMidiReady atomic.Bool

	// readingAtP2OEnd is touched only from the audio-out completion
	// callback and the BOOT transition, both of which run on the single
	// USB event-pump goroutine; it needs no synchronization.
	readingAtP2OEnd bool

	o2pTransferBuf  []float32 // device -> host, decoded
	p2oTransferBuf  []float32 // host -> device, about to be encoded
	p2oResamplerBuf []float32 // scratch for the underflow resample path

	o2pAudioBytes []byte // scratch: o2pTransferBuf serialized to wire bytes
	p2oAudioBytes []byte // scratch: bytes read from the p2o ring

	p2oMidiData []byte // accumulates outbound-MIDI batches, USBBulkMIDISize

	// midiOutPending/midiOutHavePending/midiOutLastTime are the outbound-
	// MIDI thread's private scheduling state (see fillOutboundMIDIBatch in
	// midi.go); only that one goroutine ever touches them.
	midiOutPending     StampedMIDIEvent
	midiOutHavePending bool
	midiOutLastTime    float64

	frameOut uint16 // running outbound block frame counter

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Status returns the current lifecycle state.
func (e *Engine) Status() Status {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.status
}

// LastError returns the fatal error that drove the engine to ERROR, or nil
// if it has never entered that state.
func (e *Engine) LastError() error {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.lastErr
}

func (e *Engine) setStatus(s Status) {
	e.lock.Lock()
	e.status = s
	e.lock.Unlock()
}

// fail moves the engine to ERROR, recording the submission error that
// caused it. Per spec §7, submission failures are fatal: no automatic
// reconnection is attempted.
func (e *Engine) fail(op string, err error) {
	e.logger.Error("fatal transfer error, entering ERROR", "op", op, "err", err)
	e.lock.Lock()
	e.status = StatusError
	e.lastErr = err
	e.lock.Unlock()
}

// resubmit applies the transfer ring's fatal-submission policy (§4.2): a
// submit failure is fatal to the whole engine, not just this transfer.
func (e *Engine) resubmit(t *usbxfer.Transfer, op string) {
	if err := t.Submit(); err != nil {
		e.fail(op, err)
	}
}

// Stop requests termination. The audio/inbound-MIDI thread observes it on
// its next event-loop iteration; the outbound-MIDI thread observes it at
// the bottom of its loop. Safe to call from any state; a no-op once the
// engine has already reached STOP or ERROR.
func (e *Engine) Stop() {
	e.lock.Lock()
	if e.status < StatusStop {
		e.status = StatusStop
	}
	e.lock.Unlock()
}

// SetP2OAudioEnabled toggles the host->device audio path at runtime. When
// disabled, the outbound mover packs silence instead of draining the p2o
// ring (spec §4.3, testable property 5).
func (e *Engine) SetP2OAudioEnabled(enabled bool) {
	e.lock.Lock()
	e.p2oAudioEnabled = enabled
	e.lock.Unlock()
}

// Latency reports the most recently observed and maximum-ever ring
// occupancy for each direction, in bytes.
func (e *Engine) Latency() (p2oLatency, p2oMaxLatency, o2pLatency, o2pMaxLatency int) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.p2oLatency, e.p2oMaxLatency, e.o2pLatency, e.o2pMaxLatency
}

// Wait blocks until both driver threads have returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Start is the one externally-initiated READY->BOOT transition (spec §4.5
// / §4.6's "audio thread spins for an external trigger"). Call it once
// after Activate.
func (e *Engine) Start() {
	e.lock.Lock()
	if e.status == StatusReady {
		e.status = StatusBoot
	}
	e.lock.Unlock()
}
