package resample

import "testing"

// Sinc's frame-count guard runs before any call into libsamplerate, so it's
// testable without a real audio path.
func TestSincRejectsNonPositiveFrameCounts(t *testing.T) {
	var s Sinc
	dst := make([]float32, 4)

	if err := s.Resample([]float32{1, 2}, 0, dst, 4, 1); err == nil {
		t.Error("expected error for availableFrames=0")
	}
	if err := s.Resample([]float32{1, 2}, 2, dst, 0, 1); err == nil {
		t.Error("expected error for wantFrames=0")
	}
}
