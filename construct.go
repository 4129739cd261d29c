package bridge

import (
	"github.com/charmbracelet/log"

	"bridge/internal/resample"
	"bridge/internal/rtprio"
	"bridge/internal/usbxfer"
)

// usbConfiguration is the one USB configuration this device class exposes.
const usbConfiguration = 1

// midiInPollMS gives the MIDI-in transfer a timeout so its callback
// periodically surfaces TIMED_OUT even with no device traffic, which the
// submission policy treats as a no-op resubmit (spec §4.2).
const midiInPollMS = 250

type ifaceAlt struct {
	iface, alt int
}

// claimedInterfaces is the fixed claim/alt-setting sequence spec §4.7 and
// §6 require: interface 1 alt 3 (audio), interface 2 alt 2 (MIDI),
// interface 3 alt 0 (claimed defensively; its function is unspecified).
var claimedInterfaces = []ifaceAlt{
	{iface: 1, alt: 3},
	{iface: 2, alt: 2},
	{iface: 3, alt: 0},
}

// OpenByAddress enumerates USB devices, opens the one at bus/address, and
// fully initializes the transport engine against it: vendor/product
// lookup, configuration, interface claims, endpoint clears, and transfer
// ring/buffer allocation. The returned engine is in READY; call Activate
// to supply a host context and start the driver threads.
func OpenByAddress(bus, address, blocksPerTransfer int, table DescriptorTable) (*Engine, error) {
	dev, err := usbxfer.OpenByAddress(bus, address)
	if err != nil {
		return nil, newErr("libusb_open", ErrCantOpenDev)
	}
	return construct(dev, blocksPerTransfer, table)
}

// OpenByFD wraps an already-open device file descriptor (for sandboxed
// hosts that perform the open() themselves) and initializes the engine.
func OpenByFD(fd, blocksPerTransfer int, table DescriptorTable) (*Engine, error) {
	dev, err := usbxfer.OpenByFD(fd)
	if err != nil {
		return nil, newErr("libusb_wrap_sys_device", ErrCantOpenDev)
	}
	return construct(dev, blocksPerTransfer, table)
}

func construct(dev *usbxfer.Device, blocksPerTransfer int, table DescriptorTable) (*Engine, error) {
	vendor, product, err := dev.VendorProduct()
	if err != nil {
		dev.Close()
		return nil, newErr("libusb_get_device_descriptor", ErrCantFindDev)
	}

	desc, ok := table.Lookup(vendor, product)
	if !ok {
		dev.Close()
		return nil, newErr("descriptor_lookup", ErrCantFindDev)
	}

	if err := dev.SetConfiguration(usbConfiguration); err != nil {
		dev.Close()
		return nil, newErr("libusb_set_configuration", ErrCantSetUSBConfig)
	}

	claimed := make([]int, 0, len(claimedInterfaces))
	for _, ia := range claimedInterfaces {
		if err := dev.ClaimInterface(ia.iface); err != nil {
			releaseClaimed(dev, claimed)
			dev.Close()
			return nil, newErr("libusb_claim_interface", ErrCantClaimIF)
		}
		claimed = append(claimed, ia.iface)

		if err := dev.SetAltSetting(ia.iface, ia.alt); err != nil {
			releaseClaimed(dev, claimed)
			dev.Close()
			return nil, newErr("libusb_set_interface_alt_setting", ErrCantSetAltSetting)
		}
	}

	for _, ep := range []byte{usbxfer.EPAudioIn, usbxfer.EPAudioOut, usbxfer.EPMIDIIn, usbxfer.EPMIDIOut} {
		if err := dev.ClearHalt(ep); err != nil {
			releaseClaimed(dev, claimed)
			dev.Close()
			return nil, newErr("libusb_clear_halt", ErrCantClearEP)
		}
	}

	cfg := newEngineConfig(desc, blocksPerTransfer)

	e := &Engine{
		cfg:             cfg,
		dev:             dev,
		status:          StatusReady,
		logger:          log.Default().With("component", "engine"),
		resampler:       resample.Sinc{},
		o2pTransferBuf:  make([]float32, cfg.FramesPerTransfer*desc.Outputs),
		p2oTransferBuf:  make([]float32, cfg.FramesPerTransfer*desc.Inputs),
		p2oResamplerBuf: make([]float32, cfg.FramesPerTransfer*desc.Inputs),
		o2pAudioBytes:   make([]byte, cfg.O2PTransferSize),
		p2oAudioBytes:   make([]byte, cfg.P2OTransferSize),
		p2oMidiData:     make([]byte, USBBulkMIDISize),
		stopCh:          make(chan struct{}),
	}

	ring, err := usbxfer.NewRing(dev, cfg.dataInLen(), cfg.dataOutLen(), USBBulkMIDISize, midiInPollMS, usbxfer.Callbacks{
		OnAudioIn:  e.onAudioInComplete,
		OnAudioOut: e.onAudioOutComplete,
		OnMIDIIn:   e.onMIDIInComplete,
		OnMIDIOut:  e.onMIDIOutComplete,
	})
	if err != nil {
		releaseClaimed(dev, claimed)
		dev.Close()
		return nil, newErr("libusb_alloc_transfer", ErrCantPrepareTransfer)
	}
	e.ring = ring

	return e, nil
}

func releaseClaimed(dev *usbxfer.Device, ifaces []int) {
	for _, n := range ifaces {
		dev.ReleaseInterface(n)
	}
}

// Activate supplies the host context, validates it against the enabled
// Options (spec §6: "each required field is present for each enabled
// option, else a specific error"), and starts the driver threads
// appropriate to those options. The engine must be freshly constructed
// (status READY); Activate does not re-validate that here since
// construct's factories are the only way to obtain an *Engine.
func (e *Engine) Activate(host HostContext) error {
	if host.Clock == nil {
		return newErr("activate", ErrNoGetTime)
	}
	if host.Options.has(OptP2OAudio) && host.P2OAudio == nil {
		return newErr("activate", ErrNoP2OAudioBuf)
	}
	if host.Options.has(OptO2PAudio) && host.O2PAudio == nil {
		return newErr("activate", ErrNoO2PAudioBuf)
	}
	if host.Options.has(OptP2OMIDI) && host.P2OMIDI == nil {
		return newErr("activate", ErrNoP2OMIDIBuf)
	}
	if host.Options.has(OptO2PMIDI) && host.O2PMIDI == nil {
		return newErr("activate", ErrNoO2PMIDIBuf)
	}
	if host.Options.has(OptDLL) && host.DLL == nil {
		return newErr("activate", ErrNoDLL)
	}

	if host.RTSetter == nil {
		host.RTSetter = rtprio.New()
	}
	if host.Priority == 0 {
		host.Priority = rtprio.DefaultPriority
	}

	e.host = host
	e.lock.Lock()
	e.p2oAudioEnabled = host.Options.has(OptP2OAudio)
	e.lock.Unlock()

	if host.Options.has(OptO2PAudio) || host.Options.has(OptP2OAudio) || host.Options.has(OptO2PMIDI) {
		e.wg.Add(1)
		go func() { defer e.wg.Done(); e.audioThread() }()
	}
	if host.Options.has(OptP2OMIDI) {
		e.wg.Add(1)
		go func() { defer e.wg.Done(); e.midiOutThread() }()
	}

	return nil
}

// Destroy tears the engine down: closes the USB device and frees the
// transfer ring. Call only after Wait has returned, per the callback-
// ownership discipline in internal/usbxfer (a transfer must not be freed
// while the event pump could still invoke its callback).
func (e *Engine) Destroy() {
	if e.ring != nil {
		e.ring.Free()
	}
	if e.dev != nil {
		e.dev.Close()
	}
}
