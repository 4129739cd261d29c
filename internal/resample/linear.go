package resample

// Linear is a pure-Go fallback resampler for builds that can't link
// libsamplerate. It trades sinc quality for zero cgo dependency; per the
// design notes this is acceptable because the underflow path is rare and
// already a documented quality compromise.
type Linear struct{}

func (Linear) Resample(src []float32, availableFrames int, dst []float32, wantFrames int, channels int) error {
	if availableFrames <= 0 || wantFrames <= 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}

	ratio := Ratio(wantFrames, availableFrames)
	for outFrame := 0; outFrame < wantFrames; outFrame++ {
		pos := float64(outFrame) / ratio
		i0 := int(pos)
		if i0 >= availableFrames-1 {
			i0 = availableFrames - 2
			if i0 < 0 {
				i0 = 0
			}
		}
		frac := float32(pos - float64(i0))
		i1 := i0 + 1
		if i1 >= availableFrames {
			i1 = availableFrames - 1
		}
		for c := 0; c < channels; c++ {
			a := src[i0*channels+c]
			b := src[i1*channels+c]
			dst[outFrame*channels+c] = a + (b-a)*frac
		}
	}
	return nil
}
