// Package codec packs and unpacks the device's on-wire audio block format.
//
// A block is a big-endian uint16 magic, a big-endian uint16 running frame
// counter, then FramesPerBlock frames of big-endian int32 samples,
// interleaved across channels. Encode/Decode are pure functions: no
// allocation beyond the returned/filled slices, no I/O.
package codec

import "encoding/binary"

// Magic is the fixed header value every outbound block carries and every
// inbound block is expected to carry.
const Magic = 0x07ff

// HeaderSize is sizeof(magic) + sizeof(frames).
const HeaderSize = 4

// BlockSize returns the wire size, in bytes, of one block carrying
// framesPerBlock frames of channels samples each.
func BlockSize(framesPerBlock, channels int) int {
	return HeaderSize + 4*framesPerBlock*channels
}

// DecodeOptions configures Decode. A nil/empty Scales means unity gain on
// every channel.
type DecodeOptions struct {
	FramesPerBlock int
	Channels       int
	Scales         []float32 // per-channel gain, length Channels or 0
}

// Decode unpacks blocksPerTransfer contiguous blocks from wire into dst
// (interleaved float32, frame-major). wire must hold exactly
// blocksPerTransfer * BlockSize(opts.FramesPerBlock, opts.Channels) bytes;
// dst must hold exactly blocksPerTransfer*opts.FramesPerBlock*opts.Channels
// floats. Returns the frame-counter value read from the first block's
// header, and false if any block's magic did not match Magic.
func Decode(wire []byte, dst []float32, blocksPerTransfer int, opts DecodeOptions) (firstFrameCounter uint16, ok bool) {
	ok = true
	blockSize := BlockSize(opts.FramesPerBlock, opts.Channels)
	samplesPerBlock := opts.FramesPerBlock * opts.Channels

	for b := 0; b < blocksPerTransfer; b++ {
		off := b * blockSize
		header := wire[off : off+HeaderSize]
		magic := binary.BigEndian.Uint16(header[0:2])
		frames := binary.BigEndian.Uint16(header[2:4])
		if b == 0 {
			firstFrameCounter = frames
		}
		if magic != Magic {
			ok = false
		}

		sampleOff := off + HeaderSize
		dstOff := b * samplesPerBlock
		for i := 0; i < samplesPerBlock; i++ {
			raw := int32(binary.BigEndian.Uint32(wire[sampleOff+4*i : sampleOff+4*i+4]))
			v := float32(raw) / float32(1<<31-1)
			if len(opts.Scales) > 0 {
				v *= opts.Scales[i%opts.Channels]
			}
			dst[dstOff+i] = v
		}
	}
	return firstFrameCounter, ok
}

// EncodeOptions configures Encode.
type EncodeOptions struct {
	FramesPerBlock int
	Channels       int

	// Clamp saturates samples to [-1, 1] before conversion when true. The
	// source implementation this engine is modeled on does not clamp;
	// Clamp defaults to false to preserve that behavior (see DESIGN.md).
	Clamp bool
}

// Encode packs blocksPerTransfer contiguous blocks from src (interleaved
// float32, frame-major) into wire, starting the running frame counter at
// startFrames and advancing it by FramesPerBlock after each block (wrapping
// modulo 2^16). Returns the frame counter value after the last block, i.e.
// the value to pass as startFrames next call.
func Encode(src []float32, wire []byte, blocksPerTransfer int, startFrames uint16, opts EncodeOptions) uint16 {
	blockSize := BlockSize(opts.FramesPerBlock, opts.Channels)
	samplesPerBlock := opts.FramesPerBlock * opts.Channels
	frames := startFrames

	for b := 0; b < blocksPerTransfer; b++ {
		off := b * blockSize
		binary.BigEndian.PutUint16(wire[off:off+2], Magic)
		binary.BigEndian.PutUint16(wire[off+2:off+4], frames)

		srcOff := b * samplesPerBlock
		sampleOff := off + HeaderSize
		for i := 0; i < samplesPerBlock; i++ {
			f := src[srcOff+i]
			if opts.Clamp {
				if f > 1.0 {
					f = 1.0
				} else if f < -1.0 {
					f = -1.0
				}
			}
			s := int32(float64(f) * (1<<31 - 1))
			binary.BigEndian.PutUint32(wire[sampleOff+4*i:sampleOff+4*i+4], uint32(s))
		}

		frames += uint16(opts.FramesPerBlock)
	}
	return frames
}
