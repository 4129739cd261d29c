package bridge

import "time"

// FramesPerBlock is the fixed number of sample frames in one on-wire audio
// block, per the device's framed alternate setting.
const FramesPerBlock = 7

// blockMagic is the fixed big-endian header value written into every
// outbound block and expected on every inbound block.
const blockMagic = 0x07ff

// USBBulkMIDISize is the fixed size, in bytes, of a MIDI bulk transfer.
const USBBulkMIDISize = 512

// DeviceDescriptor is the external, read-only per-model description the
// caller's DescriptorTable resolves from a USB vendor/product pair.
type DeviceDescriptor struct {
	Name    string
	Inputs  int // host -> device channel count
	Outputs int // device -> host channel count

	// OutputTrackScales holds one gain per output (device->host) channel,
	// applied during inbound decode. Length must equal Outputs.
	OutputTrackScales []float32

	// SampleRate is the device's fixed sample rate in Hz. It sizes the
	// outbound-MIDI thread's minimum tick (see EngineConfig.MIDIMinTick).
	SampleRate float64
}

// EngineConfig holds the constants captured at construction time, derived
// from the device descriptor and the caller's transfer-size choice.
type EngineConfig struct {
	Descriptor DeviceDescriptor

	BlocksPerTransfer int
	FramesPerTransfer int

	P2OFrameSize int // bytes per host->device frame (4 * inputs)
	O2PFrameSize int // bytes per device->host frame (4 * outputs)

	P2OTransferSize int // bytes
	O2PTransferSize int // bytes

	// Per-block wire sizes are not stored here: blockSize(channels) computes
	// sizeof(header) + 4*FramesPerBlock*channels (inputs for p2o blocks,
	// outputs for o2p blocks).
}

// blockHeaderSize is 2 bytes magic + 2 bytes frame counter.
const blockHeaderSize = 4

func blockSize(channels int) int {
	return blockHeaderSize + 4*FramesPerBlock*channels
}

// newEngineConfig derives the full set of size constants from a descriptor
// and the caller-chosen blocksPerTransfer.
func newEngineConfig(desc DeviceDescriptor, blocksPerTransfer int) EngineConfig {
	framesPerTransfer := FramesPerBlock * blocksPerTransfer
	cfg := EngineConfig{
		Descriptor:        desc,
		BlocksPerTransfer: blocksPerTransfer,
		FramesPerTransfer: framesPerTransfer,
		P2OFrameSize:      4 * desc.Inputs,
		O2PFrameSize:      4 * desc.Outputs,
	}
	cfg.P2OTransferSize = framesPerTransfer * cfg.P2OFrameSize
	cfg.O2PTransferSize = framesPerTransfer * cfg.O2PFrameSize
	return cfg
}

// dataOutLen is the byte length of the host->device wire buffer: blocksPerTransfer
// contiguous blocks, each sized for the input channel count.
func (c EngineConfig) dataOutLen() int {
	return c.BlocksPerTransfer * blockSize(c.Descriptor.Inputs)
}

// dataInLen is the byte length of the device->host wire buffer: blocksPerTransfer
// contiguous blocks, each sized for the output channel count.
func (c EngineConfig) dataInLen() int {
	return c.BlocksPerTransfer * blockSize(c.Descriptor.Outputs)
}

// MIDIMinTick is the outbound-MIDI thread's floor sleep duration, used
// when a packed batch's events share one timestamp (diff==0): roughly the
// average wait for a 32-sample buffer to fill at the device sample rate
// (spec §4.4: SAMPLE_TIME_NS * 32 / 2).
func (c EngineConfig) MIDIMinTick() time.Duration {
	sampleTimeNS := 1e9 / c.Descriptor.SampleRate
	return time.Duration(sampleTimeNS*32/2) * time.Nanosecond
}
