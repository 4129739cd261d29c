package resample

/*
#cgo pkg-config: samplerate
#include <samplerate.h>
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Sinc is the reference outbound-underflow resampler: libsamplerate's
// fastest sinc converter, run as a single one-shot job per the design
// notes' "fallback resampler coupling" (no streaming state is kept between
// calls; each underflow cycle gets its own job).
type Sinc struct{}

func (Sinc) Resample(src []float32, availableFrames int, dst []float32, wantFrames int, channels int) error {
	if availableFrames <= 0 || wantFrames <= 0 {
		return fmt.Errorf("resample: non-positive frame count (available=%d want=%d)", availableFrames, wantFrames)
	}

	var data C.SRC_DATA
	data.data_in = (*C.float)(unsafe.Pointer(&src[0]))
	data.input_frames = C.long(availableFrames)
	data.data_out = (*C.float)(unsafe.Pointer(&dst[0]))
	data.output_frames = C.long(wantFrames)
	data.src_ratio = C.double(Ratio(wantFrames, availableFrames))
	data.end_of_input = 1

	rc := C.src_simple(&data, C.SRC_SINC_FASTEST, C.int(channels))
	if rc != 0 {
		return fmt.Errorf("resample: src_simple: %s", C.GoString(C.src_strerror(rc)))
	}
	if int(data.output_frames_gen) < wantFrames {
		// libsamplerate under-delivered frames; pad with silence rather
		// than leave stale data in dst past what it wrote.
		got := int(data.output_frames_gen)
		for i := got * channels; i < wantFrames*channels; i++ {
			dst[i] = 0
		}
	}
	return nil
}
