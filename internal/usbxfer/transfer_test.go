package usbxfer

import "testing"

// NewTransfer only allocates the libusb_transfer and its backing C buffer;
// it never dereferences the device handle (that happens in Submit, which
// this test does not call), so a zero-value Device is enough to exercise
// allocation, the Go-slice view, and teardown without real hardware.
func TestTransferBufferRoundTrip(t *testing.T) {
	var dev Device
	tr, err := NewTransfer(&dev, EPAudioIn, KindInterrupt, 16, 0, nil)
	if err != nil {
		t.Fatalf("NewTransfer: %v", err)
	}
	defer tr.Free()

	buf := tr.Buffer()
	if len(buf) != 16 {
		t.Fatalf("Buffer length = %d, want 16", len(buf))
	}
	for i := range buf {
		buf[i] = byte(i)
	}

	buf2 := tr.Buffer()
	for i := range buf2 {
		if buf2[i] != byte(i) {
			t.Fatalf("byte %d: got %d, want %d", i, buf2[i], i)
		}
	}
}

func TestNewRingAllocatesSlotBuffers(t *testing.T) {
	var dev Device
	r, err := NewRing(&dev, 64, 64, 512, 250, Callbacks{})
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	defer r.Free()

	if len(r.AudioIn.Buffer()) != 64 {
		t.Errorf("AudioIn buffer size = %d, want 64", len(r.AudioIn.Buffer()))
	}
	if len(r.MIDIOut.Buffer()) != 512 {
		t.Errorf("MIDIOut buffer size = %d, want 512", len(r.MIDIOut.Buffer()))
	}
}
