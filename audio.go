package bridge

import (
	"encoding/binary"
	"math"

	"bridge/internal/codec"
	"bridge/internal/usbxfer"
)

// onAudioInComplete is the audio-in transfer's completion callback
// (device -> host, interrupt endpoint 0x83). Runs on the USB event thread.
func (e *Engine) onAudioInComplete(t *usbxfer.Transfer) {
	if t.Status != usbxfer.StatusCompleted {
		e.logger.Warn("audio-in transfer", "status", t.Status)
	} else {
		e.handleAudioIn(t.Buffer())
	}
	e.resubmit(t, "audio_in_submit")
}

// handleAudioIn implements the inbound half of spec §4.3.
func (e *Engine) handleAudioIn(wire []byte) {
	if e.host.Options.has(OptDLL) && e.host.DLL != nil {
		e.lock.Lock()
		e.host.DLL.Increment(e.cfg.FramesPerTransfer, e.host.Clock.Now())
		e.lock.Unlock()
	}

	e.lock.Lock()
	status := e.status
	e.lock.Unlock()

	// Decode unconditionally, even before RUN, to keep o2pTransferBuf's
	// layout consistent for whoever reads it next (spec §4.3 step 2).
	codec.Decode(wire, e.o2pTransferBuf, e.cfg.BlocksPerTransfer, codec.DecodeOptions{
		FramesPerBlock: FramesPerBlock,
		Channels:       e.cfg.Descriptor.Outputs,
		Scales:         e.cfg.Descriptor.OutputTrackScales,
	})

	if status < StatusRun || e.host.O2PAudio == nil {
		return
	}

	ring := e.host.O2PAudio
	readSpace := ring.ReadSpace()

	e.lock.Lock()
	e.o2pLatency = readSpace
	if e.o2pLatency > e.o2pMaxLatency {
		e.o2pMaxLatency = e.o2pLatency
	}
	e.lock.Unlock()

	if ring.WriteSpace() < e.cfg.O2PTransferSize {
		e.logger.Warn("o2p_audio ring overflow, dropping transfer", "size", e.cfg.O2PTransferSize)
		return
	}

	floatsToBytesLE(e.o2pTransferBuf, e.o2pAudioBytes)
	ring.Write(e.o2pAudioBytes)
}

// onAudioOutComplete is the audio-out transfer's completion callback
// (host -> device, interrupt endpoint 0x03). Per spec §4.2 this slot
// resubmits only after the codec has packed fresh data into its buffer.
func (e *Engine) onAudioOutComplete(t *usbxfer.Transfer) {
	if t.Status != usbxfer.StatusCompleted {
		e.logger.Warn("audio-out transfer", "status", t.Status)
	}
	e.handleAudioOut(t.Buffer())
	e.resubmit(t, "audio_out_submit")
}

// handleAudioOut implements the outbound half of spec §4.3: fill
// p2oTransferBuf (silence, a straight ring read, or the one-shot
// underflow resample), then pack it into wire.
func (e *Engine) handleAudioOut(wire []byte) {
	e.lock.Lock()
	p2oEnabled := e.p2oAudioEnabled
	e.lock.Unlock()

	if !p2oEnabled || e.host.P2OAudio == nil {
		e.readingAtP2OEnd = false
		zeroFloats(e.p2oTransferBuf)
	} else {
		e.fillP2OTransferBuf()
	}

	e.frameOut = codec.Encode(e.p2oTransferBuf, wire, e.cfg.BlocksPerTransfer, e.frameOut, codec.EncodeOptions{
		FramesPerBlock: FramesPerBlock,
		Channels:       e.cfg.Descriptor.Inputs,
	})
}

// fillP2OTransferBuf implements spec §4.3's p2o_audio-enabled branch:
// one-shot resync drain, steady-state whole-transfer read, or fallback
// sinc resample on underflow.
func (e *Engine) fillP2OTransferBuf() {
	ring := e.host.P2OAudio
	transferSize := e.cfg.P2OTransferSize
	frameSize := e.cfg.P2OFrameSize

	readSpace := ring.ReadSpace()

	e.lock.Lock()
	e.p2oLatency = readSpace
	if e.p2oLatency > e.p2oMaxLatency {
		e.p2oMaxLatency = e.p2oLatency
	}
	e.lock.Unlock()

	if !e.readingAtP2OEnd {
		if readSpace >= transferSize {
			e.drainP2OWholeFrames()
			e.readingAtP2OEnd = true
		}
		zeroFloats(e.p2oTransferBuf)
		return
	}

	if readSpace >= transferSize {
		ring.Read(e.p2oAudioBytes)
		bytesToFloatsLE(e.p2oAudioBytes, e.p2oTransferBuf)
		return
	}

	availableFrames := readSpace / frameSize
	if availableFrames <= 0 {
		zeroFloats(e.p2oTransferBuf)
		return
	}

	n := ring.Read(e.p2oAudioBytes[:availableFrames*frameSize])
	availableFrames = n / frameSize
	channels := e.cfg.Descriptor.Inputs
	bytesToFloatsLE(e.p2oAudioBytes[:availableFrames*frameSize], e.p2oResamplerBuf[:availableFrames*channels])

	if err := e.resampler.Resample(e.p2oResamplerBuf, availableFrames, e.p2oTransferBuf, e.cfg.FramesPerTransfer, channels); err != nil {
		e.logger.Error("fallback resample failed", "err", err)
		zeroFloats(e.p2oTransferBuf)
	}
}

// drainP2OWholeFrames discards every whole frame currently queued in the
// p2o ring, using the transfer-sized scratch buffer in bounded chunks
// regardless of how large the backlog is. It is the "one-shot silent
// resync" spec §4.3 describes: once the ring is observed to hold a full
// transfer's worth of data, everything queued is stale and is dropped so
// the next cycle starts fresh.
func (e *Engine) drainP2OWholeFrames() {
	ring := e.host.P2OAudio
	frameSize := e.cfg.P2OFrameSize
	scratch := e.p2oAudioBytes

	for {
		whole := (ring.ReadSpace() / frameSize) * frameSize
		if whole <= 0 {
			return
		}
		n := whole
		if n > len(scratch) {
			n = (len(scratch) / frameSize) * frameSize
		}
		if n <= 0 {
			return
		}
		ring.Read(scratch[:n])
	}
}

func zeroFloats(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func floatsToBytesLE(src []float32, dst []byte) {
	for i, f := range src {
		binary.LittleEndian.PutUint32(dst[4*i:4*i+4], math.Float32bits(f))
	}
}

func bytesToFloatsLE(src []byte, dst []float32) {
	n := len(src) / 4
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i : 4*i+4]))
	}
}
