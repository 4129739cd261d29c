// Package usbxfer is a cgo binding to libusb-1.0 providing the four
// asynchronous transfer handles the engine drives: audio-in (interrupt),
// audio-out (interrupt), MIDI-in (bulk), MIDI-out (bulk). It owns no engine
// semantics; callers supply an OnComplete closure per transfer and decide
// whether/when to resubmit.
package usbxfer

/*
#cgo pkg-config: libusb-1.0
#include <libusb.h>
#include <stdlib.h>

void usbxferTransferCallback(struct libusb_transfer *transfer);

// libusb_strerror's argument type differs across libusb versions depending
// on the target OS and compiler; wrap it so cgo sees one stable signature.
static inline const char *usbxfer_strerror(int code) {
    return libusb_strerror(code);
}
*/
import "C"

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

var (
	ctxPtr unsafe.Pointer // *C.libusb_context, set once
	ctxOK  int32
	ctxMu  sync.Mutex
)

// Error wraps a libusb return code with the call that produced it.
type Error struct {
	Func string
	Code int
}

func (e *Error) Error() string {
	return e.Func + ": " + C.GoString(C.usbxfer_strerror(C.int(e.Code)))
}

func newErr(fn string, rc C.int) error {
	return &Error{Func: fn, Code: int(rc)}
}

// context lazily initializes the shared libusb context and starts the
// handle_events pump is NOT started here; callers run HandleEvents
// themselves on the USB event thread (see threads.go in the root package).
func context() (*C.libusb_context, error) {
	if atomic.LoadInt32(&ctxOK) != 0 {
		return (*C.libusb_context)(ctxPtr), nil
	}

	ctxMu.Lock()
	defer ctxMu.Unlock()

	if atomic.LoadInt32(&ctxOK) != 0 {
		return (*C.libusb_context)(ctxPtr), nil
	}

	var p *C.libusb_context
	rc := C.libusb_init(&p)
	if rc != 0 {
		return nil, newErr("libusb_init", rc)
	}
	ctxPtr = unsafe.Pointer(p)
	atomic.StoreInt32(&ctxOK, 1)
	return p, nil
}

// HandleEvents drives the libusb event loop until stop is closed. It must
// run on a dedicated OS thread (see internal/rtprio for realtime priority);
// it is the only place transfer callbacks are invoked from.
func HandleEvents(stop <-chan struct{}) error {
	ctx, err := context()
	if err != nil {
		return err
	}
	tv := C.struct_timeval{tv_sec: 0, tv_usec: 100000} // 100ms poll granularity
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		C.libusb_handle_events_timeout_completed(ctx, &tv, nil)
	}
}

// Device wraps an open libusb device handle.
type Device struct {
	handle *C.libusb_device_handle
}

// OpenByAddress enumerates devices and opens the one matching bus/address.
func OpenByAddress(bus, address int) (*Device, error) {
	ctx, err := context()
	if err != nil {
		return nil, err
	}

	var list **C.libusb_device
	rcnt := C.libusb_get_device_list(ctx, &list)
	if rcnt < 0 {
		return nil, newErr("libusb_get_device_list", C.int(rcnt))
	}
	defer C.libusb_free_device_list(list, 1)

	devs := unsafe.Slice(list, int(rcnt))
	for _, dev := range devs {
		if int(C.libusb_get_bus_number(dev)) != bus || int(C.libusb_get_device_address(dev)) != address {
			continue
		}
		var h *C.libusb_device_handle
		rc := C.libusb_open(dev, &h)
		if rc < 0 {
			return nil, newErr("libusb_open", rc)
		}
		return &Device{handle: h}, nil
	}
	return nil, newErr("libusb_get_device_list", C.LIBUSB_ERROR_NOT_FOUND)
}

// OpenByFD wraps an already-open device file descriptor, for sandboxed
// hosts that perform the open() themselves and hand the engine a fd.
func OpenByFD(fd int) (*Device, error) {
	ctx, err := context()
	if err != nil {
		return nil, err
	}
	var h *C.libusb_device_handle
	rc := C.libusb_wrap_sys_device(ctx, C.intptr_t(fd), &h)
	if rc < 0 {
		return nil, newErr("libusb_wrap_sys_device", rc)
	}
	return &Device{handle: h}, nil
}

// VendorProduct reads the device's idVendor/idProduct.
func (d *Device) VendorProduct() (vendor, product uint16, err error) {
	dev := C.libusb_get_device(d.handle)
	var desc C.struct_libusb_device_descriptor
	rc := C.libusb_get_device_descriptor(dev, &desc)
	if rc < 0 {
		return 0, 0, newErr("libusb_get_device_descriptor", rc)
	}
	return uint16(desc.idVendor), uint16(desc.idProduct), nil
}

// SetConfiguration selects the USB configuration.
func (d *Device) SetConfiguration(cfg int) error {
	rc := C.libusb_set_configuration(d.handle, C.int(cfg))
	if rc < 0 {
		return newErr("libusb_set_configuration", rc)
	}
	return nil
}

// ClaimInterface claims an interface by number.
func (d *Device) ClaimInterface(num int) error {
	rc := C.libusb_claim_interface(d.handle, C.int(num))
	if rc < 0 {
		return newErr("libusb_claim_interface", rc)
	}
	return nil
}

// ReleaseInterface releases a previously claimed interface.
func (d *Device) ReleaseInterface(num int) {
	C.libusb_release_interface(d.handle, C.int(num))
}

// SetAltSetting activates an alternate setting on an already-claimed
// interface.
func (d *Device) SetAltSetting(num, alt int) error {
	rc := C.libusb_set_interface_alt_setting(d.handle, C.int(num), C.int(alt))
	if rc < 0 {
		return newErr("libusb_set_interface_alt_setting", rc)
	}
	return nil
}

// ClearHalt clears the halted condition on an endpoint (full address,
// including the direction bit, e.g. 0x83).
func (d *Device) ClearHalt(ep byte) error {
	rc := C.libusb_clear_halt(d.handle, C.uchar(ep))
	if rc < 0 {
		return newErr("libusb_clear_halt", rc)
	}
	return nil
}

// Close closes the device handle. Safe to call once all transfers
// referencing it have been freed.
func (d *Device) Close() {
	C.libusb_close(d.handle)
}
