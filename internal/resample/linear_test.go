package resample

import "testing"

func TestLinearIdentity(t *testing.T) {
	var lin Linear
	src := []float32{0, 1, 2, 3}
	dst := make([]float32, 4)
	if err := lin.Resample(src, 4, dst, 4, 1); err != nil {
		t.Fatalf("Resample: %v", err)
	}
	want := []float32{0, 1, 2, 3}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
}

func TestLinearDownsample(t *testing.T) {
	var lin Linear
	src := []float32{0, 2, 4, 6}
	dst := make([]float32, 2)
	if err := lin.Resample(src, 4, dst, 2, 1); err != nil {
		t.Fatalf("Resample: %v", err)
	}
	want := []float32{0, 4}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
}

func TestLinearZeroAvailableFillsSilence(t *testing.T) {
	var lin Linear
	dst := make([]float32, 4)
	for i := range dst {
		dst[i] = 1
	}
	if err := lin.Resample(nil, 0, dst, 4, 1); err != nil {
		t.Fatalf("Resample: %v", err)
	}
	for i, v := range dst {
		if v != 0 {
			t.Errorf("dst[%d] = %v, want 0", i, v)
		}
	}
}

func TestLinearMultiChannel(t *testing.T) {
	var lin Linear
	// 2 channels, 2 frames: frame0=(0,10), frame1=(2,20)
	src := []float32{0, 10, 2, 20}
	dst := make([]float32, 4) // 2 frames out, 2 channels
	if err := lin.Resample(src, 2, dst, 2, 2); err != nil {
		t.Fatalf("Resample: %v", err)
	}
	want := []float32{0, 10, 2, 20}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio(100, 50); got != 2.0 {
		t.Errorf("Ratio(100,50) = %v, want 2.0", got)
	}
	if got := Ratio(100, 0); got != 0 {
		t.Errorf("Ratio(100,0) = %v, want 0", got)
	}
}
