package usbxfer

// Hard-coded endpoint addresses, per the device's fixed wire format.
const (
	EPAudioIn  byte = 0x83 // interrupt
	EPAudioOut byte = 0x03 // interrupt
	EPMIDIIn   byte = 0x81 // bulk
	EPMIDIOut  byte = 0x01 // bulk
)

// Ring is the set of four transfer slots the engine drives: audio-in,
// audio-out, MIDI-in, MIDI-out. It holds no resubmission policy of its own;
// each slot's OnComplete (supplied via NewRing) decides whether and when to
// resubmit, and under what conditions to fail the engine.
type Ring struct {
	AudioIn  *Transfer
	AudioOut *Transfer
	MIDIIn   *Transfer
	MIDIOut  *Transfer
}

// Callbacks groups the four per-slot completion handlers NewRing wires up.
type Callbacks struct {
	OnAudioIn  func(t *Transfer)
	OnAudioOut func(t *Transfer)
	OnMIDIIn   func(t *Transfer)
	OnMIDIOut  func(t *Transfer)
}

// NewRing allocates all four transfer slots. midiInTimeoutMS should be
// nonzero so the MIDI-in slot periodically surfaces TIMED_OUT, giving the
// caller a chance to notice status changes even with no device traffic;
// audio and MIDI-out use timeout=0 (wait forever), matching the device's
// continuously-driven audio endpoints and the host-paced MIDI-out slot.
// Any failure frees whatever was already allocated and returns an error.
func NewRing(dev *Device, audioInSize, audioOutSize, midiSize int, midiInTimeoutMS uint, cb Callbacks) (*Ring, error) {
	r := &Ring{}

	var err error
	r.AudioIn, err = NewTransfer(dev, EPAudioIn, KindInterrupt, audioInSize, 0, cb.OnAudioIn)
	if err != nil {
		return nil, err
	}
	r.AudioOut, err = NewTransfer(dev, EPAudioOut, KindInterrupt, audioOutSize, 0, cb.OnAudioOut)
	if err != nil {
		r.AudioIn.Free()
		return nil, err
	}
	r.MIDIIn, err = NewTransfer(dev, EPMIDIIn, KindBulk, midiSize, midiInTimeoutMS, cb.OnMIDIIn)
	if err != nil {
		r.AudioIn.Free()
		r.AudioOut.Free()
		return nil, err
	}
	r.MIDIOut, err = NewTransfer(dev, EPMIDIOut, KindBulk, midiSize, 0, cb.OnMIDIOut)
	if err != nil {
		r.AudioIn.Free()
		r.AudioOut.Free()
		r.MIDIIn.Free()
		return nil, err
	}

	return r, nil
}

// SubmitAll arms all four slots. Called once by the engine's audio thread
// on the BOOT transition, after construction has cleared all four endpoints.
func (r *Ring) SubmitAll() error {
	for _, t := range []*Transfer{r.AudioIn, r.AudioOut, r.MIDIIn, r.MIDIOut} {
		if err := t.Submit(); err != nil {
			return err
		}
	}
	return nil
}

// Free releases all four slots. Must only be called after the event pump
// has stopped.
func (r *Ring) Free() {
	r.AudioIn.Free()
	r.AudioOut.Free()
	r.MIDIIn.Free()
	r.MIDIOut.Free()
}
