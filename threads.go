package bridge

import (
	"runtime"
	"time"

	"bridge/internal/usbxfer"
)

// readyPollInterval is how often the driver threads poll status while
// waiting for an external trigger or for shutdown. The spec's "spins"
// language describes a busy loop; Go code sleeping a millisecond between
// checks gets the same externally-observed latency without pegging a
// core, which is the kind of substitution §9 invites for anything
// originally spelled out as a spin-wait.
const readyPollInterval = time.Millisecond

// audioThread is the audio + inbound-MIDI driver thread (spec §4.6): it
// owns the USB event pump and so is the only goroutine libusb ever calls
// the four transfer callbacks from. Started by Activate whenever any of
// O2PAudio, P2OAudio, or O2PMIDI is enabled.
func (e *Engine) audioThread() {
	// Pin to one OS thread so the realtime priority applies to it; the
	// thread is never unlocked, so it exits with the goroutine.
	runtime.LockOSThread()
	if e.host.RTSetter != nil {
		if err := e.host.RTSetter.SetRTPriority(e.host.Priority); err != nil {
			e.logger.Warn("set_rt_priority failed", "err", err)
		}
	}

	for e.Status() == StatusReady {
		time.Sleep(readyPollInterval)
	}
	if e.Status() >= StatusStop {
		return
	}

	e.lock.Lock()
	e.o2pLatency, e.o2pMaxLatency = 0, 0
	e.p2oLatency, e.p2oMaxLatency = 0, 0
	e.lock.Unlock()
	e.readingAtP2OEnd = false

	if err := e.ring.SubmitAll(); err != nil {
		e.fail("usb_submit_transfer", err)
		return
	}

	// DLL init and the BOOT->{WAIT,RUN} transition happen under one lock
	// acquisition, per spec §4.6.
	// A Stop that arrived during BOOT is kept, not overwritten.
	e.lock.Lock()
	if e.status == StatusBoot {
		if e.host.Options.has(OptDLL) && e.host.DLL != nil {
			e.host.DLL.Init(e.cfg.Descriptor.SampleRate, e.cfg.FramesPerTransfer, e.host.Clock.Now())
			e.status = StatusWait
		} else {
			e.status = StatusRun
		}
	}
	e.lock.Unlock()

	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		for e.Status() < StatusStop {
			time.Sleep(readyPollInterval)
		}
		close(stop)
	}()

	if err := usbxfer.HandleEvents(stop); err != nil {
		e.fail("libusb_handle_events", err)
	}
	<-watcherDone

	if e.Status() <= StatusStop && e.host.P2OAudio != nil {
		e.drainP2OWholeFrames()
		zeroFloats(e.p2oTransferBuf)
	}
}

// midiOutThread is the outbound-MIDI driver thread (spec §4.4/§4.6):
// batch, submit, sleep for the scheduled gap (or the minimum tick), then
// spin-wait for the previous submission's callback before the next batch.
// Started by Activate only when P2OMIDI is enabled.
func (e *Engine) midiOutThread() {
	runtime.LockOSThread()
	if e.host.RTSetter != nil {
		if err := e.host.RTSetter.SetRTPriority(e.host.Priority); err != nil {
			e.logger.Warn("set_rt_priority failed", "err", err)
		}
	}

	minTick := e.cfg.MIDIMinTick()

	for e.Status() < StatusStop {
		packed, diff := e.fillOutboundMIDIBatch()
		if packed == 0 {
			time.Sleep(minTick)
			continue
		}

		e.p2oMidiReady.Store(false)
		copy(e.ring.MIDIOut.Buffer(), e.p2oMidiData[:packed])
		if err := e.ring.MIDIOut.SubmitLength(packed); err != nil {
			e.fail("midi_out_submit", err)
			return
		}

		sleepFor := minTick
		if diff > 0 {
			sleepFor = time.Duration(diff * float64(time.Second))
		}
		time.Sleep(sleepFor)

		for !e.p2oMidiReady.Load() {
			if e.Status() >= StatusStop {
				return
			}
		}
	}
}
