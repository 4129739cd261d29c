package codec

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

// Property 1 (spec.md §8): encoding with all-ones scales then decoding with
// the same scales reproduces the original buffer to within 2^-31.
func TestRoundTripWithinTolerance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		channels := rapid.IntRange(1, 8).Draw(t, "channels")
		blocksPerTransfer := rapid.IntRange(1, 6).Draw(t, "blocksPerTransfer")
		framesPerBlock := rapid.IntRange(1, 16).Draw(t, "framesPerBlock")

		total := blocksPerTransfer * framesPerBlock * channels
		src := make([]float32, total)
		for i := range src {
			src[i] = float32(rapid.Float64Range(-1.0, 1.0).Draw(t, "sample"))
		}

		wire := make([]byte, blocksPerTransfer*BlockSize(framesPerBlock, channels))
		Encode(src, wire, blocksPerTransfer, 0, EncodeOptions{FramesPerBlock: framesPerBlock, Channels: channels})

		scales := make([]float32, channels)
		for i := range scales {
			scales[i] = 1.0
		}

		dst := make([]float32, total)
		_, ok := Decode(wire, dst, blocksPerTransfer, DecodeOptions{FramesPerBlock: framesPerBlock, Channels: channels, Scales: scales})
		if !ok {
			t.Fatalf("decode reported bad magic")
		}

		const tol = 1.0 / float64(1<<31)
		for i := range src {
			if math.Abs(float64(src[i])-float64(dst[i])) > tol*2 {
				t.Fatalf("sample %d: got %v want %v (diff %v)", i, dst[i], src[i], math.Abs(float64(src[i])-float64(dst[i])))
			}
		}
	})
}

// Property 2: outbound block headers are always Magic, and the frames field
// increases by FramesPerBlock per block, wrapping modulo 2^16.
func TestHeaderAndFrameCounter(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		channels := rapid.IntRange(1, 4).Draw(t, "channels")
		framesPerBlock := rapid.IntRange(1, 16).Draw(t, "framesPerBlock")
		blocksPerTransfer := rapid.IntRange(1, 8).Draw(t, "blocksPerTransfer")
		start := uint16(rapid.IntRange(0, 65535).Draw(t, "start"))

		total := blocksPerTransfer * framesPerBlock * channels
		src := make([]float32, total)
		wire := make([]byte, blocksPerTransfer*BlockSize(framesPerBlock, channels))

		end := Encode(src, wire, blocksPerTransfer, start, EncodeOptions{FramesPerBlock: framesPerBlock, Channels: channels})

		blockSize := BlockSize(framesPerBlock, channels)
		want := start
		for b := 0; b < blocksPerTransfer; b++ {
			off := b * blockSize
			magic := uint16(wire[off])<<8 | uint16(wire[off+1])
			frames := uint16(wire[off+2])<<8 | uint16(wire[off+3])
			if magic != Magic {
				t.Fatalf("block %d: magic = %#x, want %#x", b, magic, Magic)
			}
			if frames != want {
				t.Fatalf("block %d: frames = %d, want %d", b, frames, want)
			}
			want += uint16(framesPerBlock)
		}
		if end != want {
			t.Fatalf("returned end counter %d, want %d", end, want)
		}
	})
}

func TestBlockSize(t *testing.T) {
	if got := BlockSize(7, 2); got != 4+4*7*2 {
		t.Fatalf("BlockSize(7,2) = %d, want %d", got, 4+4*7*2)
	}
}

// S2 (spec.md §8): encoded full-scale samples hit the documented saturation
// boundary values for +1.0 and -1.0.
func TestEncodeFullScale(t *testing.T) {
	src := []float32{1.0, -1.0}
	wire := make([]byte, BlockSize(1, 2))
	Encode(src, wire, 1, 0, EncodeOptions{FramesPerBlock: 1, Channels: 2})

	pos := uint32(wire[4])<<24 | uint32(wire[5])<<16 | uint32(wire[6])<<8 | uint32(wire[7])
	neg := uint32(wire[8])<<24 | uint32(wire[9])<<16 | uint32(wire[10])<<8 | uint32(wire[11])

	if pos != 0x7FFFFFFF {
		t.Fatalf("+1.0 encoded as %#x, want 0x7FFFFFFF", pos)
	}
	if neg != 0x80000001 {
		t.Fatalf("-1.0 encoded as %#x, want 0x80000001", neg)
	}
}
