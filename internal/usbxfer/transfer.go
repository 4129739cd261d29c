package usbxfer

/*
#include <libusb.h>
#include <stdlib.h>
*/
import "C"

import (
	"sync"
	"unsafe"
)

// Kind distinguishes the two USB transfer types the device uses.
type Kind int

const (
	KindInterrupt Kind = iota
	KindBulk
)

// Status is a decoded libusb_transfer_status, normalized to the handful of
// outcomes callers need to branch on.
type Status int

const (
	StatusCompleted Status = iota
	StatusTimedOut
	StatusCancelled
	StatusStall
	StatusNoDevice
	StatusOverflow
	StatusError
)

func statusFromC(c C.int) Status {
	switch c {
	case C.LIBUSB_TRANSFER_COMPLETED:
		return StatusCompleted
	case C.LIBUSB_TRANSFER_TIMED_OUT:
		return StatusTimedOut
	case C.LIBUSB_TRANSFER_CANCELLED:
		return StatusCancelled
	case C.LIBUSB_TRANSFER_STALL:
		return StatusStall
	case C.LIBUSB_TRANSFER_NO_DEVICE:
		return StatusNoDevice
	case C.LIBUSB_TRANSFER_OVERFLOW:
		return StatusOverflow
	default:
		return StatusError
	}
}

var (
	liveMu sync.Mutex
	live   = make(map[*C.struct_libusb_transfer]*Transfer)
)

// Transfer is one asynchronous USB transfer slot: a pre-allocated
// libusb_transfer plus a pinned C buffer. The engine owns it exclusively;
// the completion callback receives only this handle, never the engine
// itself, per the ownership discipline in the design notes.
type Transfer struct {
	dev  *Device
	ep   byte
	kind Kind
	size int

	xfer *C.struct_libusb_transfer
	cBuf *C.uchar

	timeoutMS uint

	// OnComplete is invoked from the libusb event-pump goroutine
	// (HandleEvents) after Status/ActualLength have been updated. It must
	// not block and must not call back into libusb synchronously from
	// within the callback frame beyond Submit/Free.
	OnComplete func(t *Transfer)

	Status       Status
	ActualLength int
}

// NewTransfer allocates a libusb_transfer and its backing buffer. timeoutMS
// of 0 means wait forever, matching the engine's default (cancellation
// happens by closing the device handle during teardown).
func NewTransfer(dev *Device, ep byte, kind Kind, size int, timeoutMS uint, onComplete func(t *Transfer)) (*Transfer, error) {
	xfer := C.libusb_alloc_transfer(0)
	if xfer == nil {
		return nil, newErr("libusb_alloc_transfer", C.LIBUSB_ERROR_NO_MEM)
	}
	cBuf := (*C.uchar)(C.malloc(C.size_t(size)))
	if cBuf == nil {
		C.libusb_free_transfer(xfer)
		return nil, newErr("malloc", C.LIBUSB_ERROR_NO_MEM)
	}

	t := &Transfer{
		dev:        dev,
		ep:         ep,
		kind:       kind,
		size:       size,
		xfer:       xfer,
		cBuf:       cBuf,
		timeoutMS:  timeoutMS,
		OnComplete: onComplete,
	}

	liveMu.Lock()
	live[xfer] = t
	liveMu.Unlock()

	return t, nil
}

// Buffer returns the transfer's backing buffer as a Go slice. Valid until
// Free is called. The caller must not retain it past Free.
func (t *Transfer) Buffer() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(t.cBuf)), t.size)
}

// Submit arms (or re-arms) the transfer at its full allocated size. Per
// the transfer ring's submission rules, a failure here is fatal to the
// transfer: the caller should not retry and should move the engine to
// ERROR.
func (t *Transfer) Submit() error {
	return t.SubmitLength(t.size)
}

// SubmitLength arms the transfer with an explicit payload length, for
// slots like MIDI-out whose batches rarely fill the full allocated
// buffer. length must not exceed the size NewTransfer was given.
func (t *Transfer) SubmitLength(length int) error {
	cb := C.libusb_transfer_cb_fn(unsafe.Pointer(C.usbxferTransferCallback))
	switch t.kind {
	case KindInterrupt:
		C.libusb_fill_interrupt_transfer(t.xfer, t.dev.handle, C.uchar(t.ep),
			t.cBuf, C.int(length), cb, nil, C.uint(t.timeoutMS))
	case KindBulk:
		C.libusb_fill_bulk_transfer(t.xfer, t.dev.handle, C.uchar(t.ep),
			t.cBuf, C.int(length), cb, nil, C.uint(t.timeoutMS))
	}
	rc := C.libusb_submit_transfer(t.xfer)
	if rc < 0 {
		return newErr("libusb_submit_transfer", rc)
	}
	return nil
}

// Cancel requests cancellation of an in-flight transfer. Used during
// teardown before the device handle is closed.
func (t *Transfer) Cancel() {
	C.libusb_cancel_transfer(t.xfer)
}

// Free releases the transfer and its buffer. Must only be called once the
// event loop can no longer invoke its callback (i.e. after HandleEvents has
// returned), per the callback-ownership discipline.
func (t *Transfer) Free() {
	liveMu.Lock()
	delete(live, t.xfer)
	liveMu.Unlock()

	C.libusb_free_transfer(t.xfer)
	C.free(unsafe.Pointer(t.cBuf))
}

//export usbxferTransferCallback
func usbxferTransferCallback(cxfer *C.struct_libusb_transfer) {
	liveMu.Lock()
	t := live[cxfer]
	liveMu.Unlock()

	if t == nil {
		return
	}

	t.Status = statusFromC(cxfer.status)
	t.ActualLength = int(cxfer.actual_length)

	if t.OnComplete != nil {
		t.OnComplete(t)
	}
}
