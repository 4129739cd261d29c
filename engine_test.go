package bridge

import (
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"bridge/internal/resample"
)

// newTestEngine builds an Engine directly, bypassing construct.go's real
// libusb device attach: the mover methods in audio.go/midi.go never touch
// e.dev/e.ring, so a plain struct literal sized from a descriptor is enough
// to exercise them against fake Ring/Clock/DLL doubles.
func newTestEngine(t *testing.T, inputs, outputs, blocksPerTransfer int) *Engine {
	t.Helper()
	scales := make([]float32, outputs)
	for i := range scales {
		scales[i] = 1.0
	}
	desc := DeviceDescriptor{
		Name:              "test-device",
		Inputs:            inputs,
		Outputs:           outputs,
		OutputTrackScales: scales,
		SampleRate:        48000,
	}
	cfg := newEngineConfig(desc, blocksPerTransfer)
	return &Engine{
		cfg:             cfg,
		logger:          log.Default(),
		resampler:       resample.Linear{},
		o2pTransferBuf:  make([]float32, cfg.FramesPerTransfer*outputs),
		p2oTransferBuf:  make([]float32, cfg.FramesPerTransfer*inputs),
		p2oResamplerBuf: make([]float32, cfg.FramesPerTransfer*inputs),
		o2pAudioBytes:   make([]byte, cfg.O2PTransferSize),
		p2oAudioBytes:   make([]byte, cfg.P2OTransferSize),
		p2oMidiData:     make([]byte, USBBulkMIDISize),
	}
}

// Property 3: status is monotone non-decreasing, and Stop() never moves the
// engine backward out of ERROR.
func TestStatusMonotonic(t *testing.T) {
	e := newTestEngine(t, 2, 2, 8)

	e.status = StatusReady
	e.Stop()
	assert.Equal(t, StatusStop, e.Status(), "Stop from READY advances to STOP")

	e2 := newTestEngine(t, 2, 2, 8)
	e2.status = StatusRun
	e2.Stop()
	assert.Equal(t, StatusStop, e2.Status(), "Stop from RUN advances to STOP")

	e3 := newTestEngine(t, 2, 2, 8)
	e3.status = StatusError
	e3.Stop()
	assert.Equal(t, StatusError, e3.Status(), "Stop never pulls ERROR back down to STOP")
}

func TestStartOnlyAdvancesFromReady(t *testing.T) {
	e := newTestEngine(t, 2, 2, 8)
	e.status = StatusReady
	e.Start()
	assert.Equal(t, StatusBoot, e.Status())

	e.status = StatusRun
	e.Start()
	assert.Equal(t, StatusRun, e.Status(), "Start is a no-op once past READY")
}

// Property 4: the observed maximum latency never decreases across calls,
// even as the instantaneous ring occupancy goes up and down.
func TestLatencyMaxNeverDecreases(t *testing.T) {
	e := newTestEngine(t, 2, 2, 4)
	e.status = StatusRun

	ring := newFakeRing(e.cfg.O2PTransferSize * 4)
	e.host = HostContext{O2PAudio: ring, Clock: &fakeClock{}}

	wire := make([]byte, e.cfg.dataInLen())

	occupancies := []int{10, 400, 50, 9000, 1}
	prevMax := 0
	for _, occ := range occupancies {
		ring.overrideReadSpace = func() int { return occ }
		e.handleAudioIn(wire)
		_, _, _, maxLatency := e.Latency()
		assert.GreaterOrEqual(t, maxLatency, prevMax)
		prevMax = maxLatency
	}
	assert.Equal(t, 9000, prevMax)
}

// Property 5: with p2o audio disabled, the outbound transfer carries silence
// regardless of what's queued on the host ring.
func TestOutboundSilenceWhenP2ODisabled(t *testing.T) {
	e := newTestEngine(t, 2, 2, 4)
	e.p2oAudioEnabled = false
	e.readingAtP2OEnd = true // prove handleAudioOut resets it back to false

	ring := newFakeRing(e.cfg.P2OTransferSize)
	ring.Write(make([]byte, e.cfg.P2OTransferSize))
	for i := range ring.buf {
		ring.buf[i] = 0xff
	}
	e.host = HostContext{P2OAudio: ring, Clock: &fakeClock{}}

	wire := make([]byte, e.cfg.dataOutLen())
	e.handleAudioOut(wire)

	assert.False(t, e.readingAtP2OEnd)
	for _, v := range e.p2oTransferBuf {
		assert.Equal(t, float32(0), v)
	}
}

// Property 6: no lock is held while the engine is blocked on ring I/O, so a
// slow or blocking Ring implementation cannot stall Status()/Stop() callers.
func TestLockNotHeldAcrossRingIO(t *testing.T) {
	e := newTestEngine(t, 2, 2, 4)
	e.status = StatusRun

	slow := &slowWriteRing{fakeRing: newFakeRing(e.cfg.O2PTransferSize * 2), delay: 50 * time.Millisecond}
	e.host = HostContext{O2PAudio: slow, Clock: &fakeClock{}}

	wire := make([]byte, e.cfg.dataInLen())

	started := make(chan struct{})
	go func() {
		close(started)
		e.handleAudioIn(wire)
	}()
	<-started
	time.Sleep(5 * time.Millisecond) // let handleAudioIn reach the slow write

	acquired := make(chan struct{})
	go func() {
		e.lock.Lock()
		e.lock.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(40 * time.Millisecond):
		t.Fatal("lock appears to be held across the ring write")
	}
}
