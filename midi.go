package bridge

import (
	"encoding/binary"
	"math"

	"bridge/internal/usbxfer"
)

// stampedMIDIEventSize is the wire size of one event on a Ring: the raw
// 4-byte USB-MIDI packet plus an 8-byte little-endian float64 timestamp.
const stampedMIDIEventSize = 4 + 8

// StampedMIDIEvent is one MIDI event as carried on the p2o_midi/o2p_midi
// rings: the raw USB-MIDI event plus the host-clock timestamp used both to
// record when an inbound event arrived and to pace outbound batches.
type StampedMIDIEvent struct {
	Data [4]byte
	Time float64
}

func (ev StampedMIDIEvent) encode(dst []byte) {
	copy(dst[0:4], ev.Data[:])
	binary.LittleEndian.PutUint64(dst[4:12], math.Float64bits(ev.Time))
}

// decodeStampedMIDIEvent is the inverse of encode.
func decodeStampedMIDIEvent(src []byte) StampedMIDIEvent {
	var ev StampedMIDIEvent
	copy(ev.Data[:], src[0:4])
	ev.Time = math.Float64frombits(binary.LittleEndian.Uint64(src[4:12]))
	return ev
}

// onMIDIInComplete is the MIDI-in transfer's completion callback (device
// -> host, bulk endpoint 0x81). A timeout on this endpoint is routine, not
// an error (spec §4.2): the device simply had nothing to send.
func (e *Engine) onMIDIInComplete(t *usbxfer.Transfer) {
	switch t.Status {
	case usbxfer.StatusCompleted:
		e.handleMIDIIn(t.Buffer()[:t.ActualLength])
	case usbxfer.StatusTimedOut:
	default:
		e.logger.Warn("midi-in transfer", "status", t.Status)
	}
	e.resubmit(t, "midi_in_submit")
}

// handleMIDIIn implements spec §4.4's inbound filter: walk the transfer in
// 4-byte USB-MIDI events, keep only those whose first byte (cable number +
// code index number, cable assumed 0) falls in [0x08, 0x0f], and stamp
// every kept event with the single timestamp taken at callback entry.
func (e *Engine) handleMIDIIn(wire []byte) {
	e.lock.Lock()
	status := e.status
	e.lock.Unlock()
	if status < StatusRun || e.host.O2PMIDI == nil {
		return
	}

	now := e.host.Clock.Now()
	var wireEvent [stampedMIDIEventSize]byte

	for off := 0; off+4 <= len(wire); off += 4 {
		cin := wire[off]
		if cin < 0x08 || cin > 0x0f {
			continue
		}

		ev := StampedMIDIEvent{Time: now}
		copy(ev.Data[:], wire[off:off+4])
		ev.encode(wireEvent[:])

		if e.host.O2PMIDI.WriteSpace() >= len(wireEvent) {
			e.host.O2PMIDI.Write(wireEvent[:])
		} else {
			e.logger.Warn("o2p_midi ring overflow")
		}
	}
}

// onMIDIOutComplete is the MIDI-out transfer's completion callback (host
// -> device, bulk endpoint 0x01). Unlike the other three slots it does not
// resubmit itself: spec §4.4 has the outbound-MIDI thread submit each
// batch explicitly, so the callback's only job is to flip p2oMidiReady.
func (e *Engine) onMIDIOutComplete(t *usbxfer.Transfer) {
	if t.Status != usbxfer.StatusCompleted {
		e.logger.Warn("midi-out transfer", "status", t.Status)
	}
	e.p2oMidiReady.Store(true)
}

// fillOutboundMIDIBatch packs events from p2o_midi into e.p2oMidiData,
// implementing spec §4.4's per-event scheduling rule: events are taken one
// at a time; the first event of a fresh batch is always kept and seeds
// lastTime; each subsequent event is appended while its timestamp is not
// later than lastTime, otherwise it is held back as next batch's seed event
// and the current batch is flushed. Returns the number of bytes packed
// and the pacing delay before the batch after this one may be submitted
// (0 when consecutive events shared a timestamp, or when the ring ran dry
// before any gap was observed).
//
// Only the outbound-MIDI goroutine calls this; midiOutPending/
// midiOutHavePending/midiOutLastTime are its private state across calls.
func (e *Engine) fillOutboundMIDIBatch() (packed int, diff float64) {
	ring := e.host.P2OMIDI
	maxBytes := USBBulkMIDISize
	zeroBytes(e.p2oMidiData)

	var raw [stampedMIDIEventSize]byte
	next := func() (StampedMIDIEvent, bool) {
		if e.midiOutHavePending {
			e.midiOutHavePending = false
			return e.midiOutPending, true
		}
		if ring.ReadSpace() < stampedMIDIEventSize {
			return StampedMIDIEvent{}, false
		}
		ring.Read(raw[:])
		return decodeStampedMIDIEvent(raw[:]), true
	}

	first, ok := next()
	if !ok {
		return 0, 0
	}
	copy(e.p2oMidiData[0:4], first.Data[:])
	packed = 4
	e.midiOutLastTime = first.Time

	for packed < maxBytes {
		ev, ok := next()
		if !ok {
			break
		}
		if ev.Time > e.midiOutLastTime {
			diff = ev.Time - e.midiOutLastTime
			e.midiOutLastTime = ev.Time
			e.midiOutPending = ev
			e.midiOutHavePending = true
			return packed, diff
		}
		copy(e.p2oMidiData[packed:packed+4], ev.Data[:])
		packed += 4
	}
	return packed, 0
}

func zeroBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
