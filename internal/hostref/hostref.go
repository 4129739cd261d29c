// Package hostref is a reference implementation of the "external host-side
// collaborator" the engine spec places out of scope: it owns the four ring
// buffers, a clock, and (for the audio rings) real PortAudio streams. It
// exists for the cmd/obridge-probe CLI; no test drives an Engine through
// it. The engine itself only ever depends on bridge.Ring/bridge.Clock.
package hostref

import (
	"encoding/binary"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"bridge/internal/spscring"
)

// Clock reports elapsed time since construction, standing in for the
// host's get_time().
type Clock struct {
	start time.Time
}

// NewClock returns a Clock zeroed at the current instant.
func NewClock() *Clock { return &Clock{start: time.Now()} }

// Now implements bridge.Clock.
func (c *Clock) Now() float64 { return time.Since(c.start).Seconds() }

// paStream abstracts a PortAudio stream for testing, mirroring the
// teacher's capture/playback stream abstraction.
type paStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
	Write() error
}

// Host drives real PortAudio input/output streams and bridges them to the
// byte rings the engine consumes.
type Host struct {
	mu sync.Mutex

	inputDeviceID  int
	outputDeviceID int
	inputs         int // host->device channels (p2o)
	outputs        int // device->host channels (o2p)

	sampleRate        float64
	framesPerTransfer int

	captureStream  paStream
	playbackStream paStream

	P2OAudio *spscring.Ring
	O2PAudio *spscring.Ring
	P2OMIDI  *spscring.Ring
	O2PMIDI  *spscring.Ring

	Clock *Clock

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// ringPeriods sizes the audio rings generously: a few transfer periods of audio,
// so a transient stall on either side doesn't immediately overflow/underflow.
const ringPeriods = 8

// New allocates a Host with rings sized for the given channel counts and
// transfer geometry. inputs/outputs must match the device descriptor's
// Inputs/Outputs exactly, since they set the p2o/o2p frame sizes.
func New(inputs, outputs, framesPerTransfer int, sampleRate float64) *Host {
	audioFrameBytes := func(channels int) int { return 4 * channels }
	p2oRingBytes := audioFrameBytes(inputs) * framesPerTransfer * ringPeriods
	o2pRingBytes := audioFrameBytes(outputs) * framesPerTransfer * ringPeriods

	return &Host{
		inputDeviceID:     -1,
		outputDeviceID:    -1,
		inputs:            inputs,
		outputs:           outputs,
		sampleRate:        sampleRate,
		framesPerTransfer: framesPerTransfer,
		P2OAudio:          spscring.New(p2oRingBytes),
		O2PAudio:          spscring.New(o2pRingBytes),
		P2OMIDI:           spscring.New(2048),
		O2PMIDI:           spscring.New(2048),
		Clock:             NewClock(),
		stopCh:            make(chan struct{}),
	}
}

// SetInputDevice sets the capture device by PortAudio index; -1 means the
// system default.
func (h *Host) SetInputDevice(id int) {
	h.mu.Lock()
	h.inputDeviceID = id
	h.mu.Unlock()
}

// SetOutputDevice sets the playback device by PortAudio index; -1 means the
// system default.
func (h *Host) SetOutputDevice(id int) {
	h.mu.Lock()
	h.outputDeviceID = id
	h.mu.Unlock()
}

func resolveDevice(devices []*portaudio.DeviceInfo, idx int, fallback func() (*portaudio.DeviceInfo, error)) (*portaudio.DeviceInfo, error) {
	if idx >= 0 && idx < len(devices) {
		return devices[idx], nil
	}
	return fallback()
}

// Start opens and starts the PortAudio capture/playback streams and begins
// pumping audio between them and the P2OAudio/O2PAudio rings.
func (h *Host) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running.Load() {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return err
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}

	inputDev, err := resolveDevice(devices, h.inputDeviceID, portaudio.DefaultInputDevice)
	if err != nil {
		return err
	}
	outputDev, err := resolveDevice(devices, h.outputDeviceID, portaudio.DefaultOutputDevice)
	if err != nil {
		return err
	}

	captureBuf := make([]float32, h.framesPerTransfer*h.inputs)
	captureParams := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inputDev,
			Channels: h.inputs,
			Latency:  inputDev.DefaultLowInputLatency,
		},
		SampleRate:      h.sampleRate,
		FramesPerBuffer: h.framesPerTransfer,
	}
	captureStream, err := portaudio.OpenStream(captureParams, captureBuf)
	if err != nil {
		return err
	}

	playbackBuf := make([]float32, h.framesPerTransfer*h.outputs)
	playbackParams := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outputDev,
			Channels: h.outputs,
			Latency:  outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      h.sampleRate,
		FramesPerBuffer: h.framesPerTransfer,
	}
	playbackStream, err := portaudio.OpenStream(playbackParams, playbackBuf)
	if err != nil {
		captureStream.Close()
		return err
	}

	if err := captureStream.Start(); err != nil {
		captureStream.Close()
		playbackStream.Close()
		return err
	}
	if err := playbackStream.Start(); err != nil {
		captureStream.Stop()
		captureStream.Close()
		playbackStream.Close()
		return err
	}

	h.captureStream = captureStream
	h.playbackStream = playbackStream
	h.stopCh = make(chan struct{})
	h.running.Store(true)

	h.wg.Add(2)
	go func() { defer h.wg.Done(); h.captureLoop(captureBuf) }()
	go func() { defer h.wg.Done(); h.playbackLoop(playbackBuf) }()

	log.Printf("[hostref] started capture=%s playback=%s", inputDev.Name, outputDev.Name)
	return nil
}

// Stop halts the capture/playback streams, per the same stop-before-close
// ordering the teacher's AudioEngine.Stop uses: Pa_StopStream unblocks any
// in-flight Read/Write before the goroutines are waited on and the streams
// are closed.
func (h *Host) Stop() {
	if !h.running.CompareAndSwap(true, false) {
		return
	}
	close(h.stopCh)

	h.mu.Lock()
	if h.captureStream != nil {
		h.captureStream.Stop()
	}
	if h.playbackStream != nil {
		h.playbackStream.Stop()
	}
	h.mu.Unlock()

	h.wg.Wait()

	h.mu.Lock()
	if h.captureStream != nil {
		h.captureStream.Close()
		h.captureStream = nil
	}
	if h.playbackStream != nil {
		h.playbackStream.Close()
		h.playbackStream = nil
	}
	h.mu.Unlock()

	portaudio.Terminate()
	log.Println("[hostref] stopped")
}

func (h *Host) captureLoop(buf []float32) {
	wireBuf := make([]byte, 4*len(buf))
	for h.running.Load() {
		if err := h.captureStream.Read(); err != nil {
			if h.running.Load() {
				log.Printf("[hostref] capture read: %v", err)
			}
			return
		}
		for i, s := range buf {
			binary.LittleEndian.PutUint32(wireBuf[4*i:4*i+4], math.Float32bits(s))
		}
		if h.P2OAudio.WriteSpace() >= len(wireBuf) {
			h.P2OAudio.Write(wireBuf)
		}
	}
}

func (h *Host) playbackLoop(buf []float32) {
	wireBuf := make([]byte, 4*len(buf))
	for {
		select {
		case <-h.stopCh:
			return
		default:
		}

		for i := range buf {
			buf[i] = 0
		}
		if h.O2PAudio.ReadSpace() >= len(wireBuf) {
			h.O2PAudio.Read(wireBuf)
			for i := range buf {
				buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(wireBuf[4*i : 4*i+4]))
			}
		}

		if err := h.playbackStream.Write(); err != nil {
			if h.running.Load() {
				log.Printf("[hostref] playback write: %v", err)
			}
			return
		}
	}
}
