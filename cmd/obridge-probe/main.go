// Command obridge-probe is a thin attach/status/smoke-test harness for the
// transport engine. It is not a product front end (those are out of scope
// for this repo) — it exists to exercise a real Engine end to end against
// internal/hostref's PortAudio-backed rings from the command line.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"bridge"
	"bridge/internal/hostref"
)

var logger = log.Default().With("component", "probe")

// staticTable is the one-entry DescriptorTable a probe run needs: there is
// no vendor/product database in scope (spec §1), so the caller supplies
// the device's shape directly on the command line.
type staticTable struct {
	vendor, product uint16
	desc            bridge.DeviceDescriptor
}

func (t staticTable) Lookup(vendor, product uint16) (bridge.DeviceDescriptor, bool) {
	if vendor != t.vendor || product != t.product {
		return bridge.DeviceDescriptor{}, false
	}
	return t.desc, true
}

func main() {
	bus := flag.Int("bus", -1, "USB bus number")
	address := flag.Int("address", -1, "USB device address")
	fd := flag.Int("fd", -1, "pre-opened device file descriptor (alternative to --bus/--address)")
	vendor := flag.Uint16("vendor", 0, "expected idVendor")
	product := flag.Uint16("product", 0, "expected idProduct")
	inputs := flag.Int("inputs", 2, "host -> device channel count")
	outputs := flag.Int("outputs", 2, "device -> host channel count")
	sampleRate := flag.Float64("sample-rate", 48000, "device sample rate in Hz")
	blocksPerTransfer := flag.Int("blocks-per-transfer", 8, "blocks per USB audio transfer")
	duration := flag.Duration("duration", 5*time.Second, "how long to run before stopping")
	rtPriority := flag.Int("rt-priority", 0, "realtime priority for the driver threads (0 = default)")
	flag.Parse()

	if *bus < 0 && *fd < 0 {
		logger.Error("either --bus/--address or --fd must be given")
		os.Exit(2)
	}

	table := staticTable{
		vendor:  *vendor,
		product: *product,
		desc: bridge.DeviceDescriptor{
			Name:              fmt.Sprintf("probe-device-%04x:%04x", *vendor, *product),
			Inputs:            *inputs,
			Outputs:           *outputs,
			OutputTrackScales: unityScales(*outputs),
			SampleRate:        *sampleRate,
		},
	}

	var engine *bridge.Engine
	var err error
	if *fd >= 0 {
		engine, err = bridge.OpenByFD(*fd, *blocksPerTransfer, table)
	} else {
		engine, err = bridge.OpenByAddress(*bus, *address, *blocksPerTransfer, table)
	}
	if err != nil {
		logger.Error("open failed", "err", err)
		os.Exit(1)
	}
	defer engine.Destroy()

	host := hostref.New(*inputs, *outputs, *blocksPerTransfer*bridge.FramesPerBlock, *sampleRate)
	if err := host.Start(); err != nil {
		logger.Error("host audio start failed", "err", err)
		os.Exit(1)
	}
	defer host.Stop()

	hostCtx := bridge.HostContext{
		Options:  bridge.OptO2PAudio | bridge.OptP2OAudio | bridge.OptO2PMIDI | bridge.OptP2OMIDI,
		P2OAudio: host.P2OAudio,
		O2PAudio: host.O2PAudio,
		P2OMIDI:  host.P2OMIDI,
		O2PMIDI:  host.O2PMIDI,
		Clock:    host.Clock,
		Priority: *rtPriority,
	}
	if err := engine.Activate(hostCtx); err != nil {
		logger.Error("activate failed", "err", err)
		os.Exit(1)
	}

	engine.Start()
	logger.Info("engine started", "device", table.desc.Name, "duration", duration)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(*duration)

loop:
	for {
		select {
		case <-ticker.C:
			p2o, p2oMax, o2p, o2pMax := engine.Latency()
			logger.Info("status", "state", engine.Status(), "p2o_latency", p2o, "p2o_max", p2oMax, "o2p_latency", o2p, "o2p_max", o2pMax)
		case <-deadline:
			break loop
		}
	}

	engine.Stop()
	engine.Wait()

	if err := engine.LastError(); err != nil {
		logger.Error("engine exited with error", "err", err)
		os.Exit(1)
	}
	logger.Info("engine stopped cleanly")
}

func unityScales(channels int) []float32 {
	scales := make([]float32, channels)
	for i := range scales {
		scales[i] = 1.0
	}
	return scales
}
