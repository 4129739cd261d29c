package bridge

import "time"

// fakeRing is a hand-rolled Ring test double, in the teacher's
// mockPAStream/Transporter style: a plain byte slice with head/tail
// cursors, plus optional overrides so a test can drive the overflow
// (S3) and underflow (S4) scenarios without a real ring implementation.
type fakeRing struct {
	buf        []byte
	head, tail int

	overrideWriteSpace func() int
	overrideReadSpace  func() int
}

func newFakeRing(capacity int) *fakeRing {
	return &fakeRing{buf: make([]byte, capacity)}
}

func (r *fakeRing) ReadSpace() int {
	if r.overrideReadSpace != nil {
		return r.overrideReadSpace()
	}
	return r.head - r.tail
}

func (r *fakeRing) WriteSpace() int {
	if r.overrideWriteSpace != nil {
		return r.overrideWriteSpace()
	}
	return len(r.buf) - (r.head - r.tail)
}

func (r *fakeRing) Read(dst []byte) int {
	avail := r.head - r.tail
	n := len(dst)
	if n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(r.tail+i)%len(r.buf)]
	}
	r.tail += n
	return n
}

func (r *fakeRing) Write(src []byte) int {
	space := len(r.buf) - (r.head - r.tail)
	n := len(src)
	if n > space {
		n = space
	}
	for i := 0; i < n; i++ {
		r.buf[(r.head+i)%len(r.buf)] = src[i]
	}
	r.head += n
	return n
}

// slowWriteRing wraps a fakeRing and delays Write, so tests can observe
// whether a lock is held while a ring write is in flight (property 6).
type slowWriteRing struct {
	*fakeRing
	delay time.Duration
}

func (r *slowWriteRing) Write(src []byte) int {
	time.Sleep(r.delay)
	return r.fakeRing.Write(src)
}

// fakeClock returns a fixed instant, standing in for the host's get_time().
type fakeClock struct {
	t float64
}

func (c *fakeClock) Now() float64 { return c.t }

// fakeDLL records its calls without driving any real clock-recovery logic.
type fakeDLL struct {
	initCalls      int
	incrementCalls int
}

func (d *fakeDLL) Init(sampleRate float64, framesPerTransfer int, now float64) { d.initCalls++ }
func (d *fakeDLL) Increment(framesPerTransfer int, now float64)                { d.incrementCalls++ }

// fakeResampler records the arguments it was called with and fills dst
// with a distinguishable constant, so tests can assert both what the
// outbound mover asked for and that the result actually lands in the
// transfer buffer.
type fakeResampler struct {
	calledAvailable int
	calledWant      int
	calledChannels  int
}

func (r *fakeResampler) Resample(src []float32, availableFrames int, dst []float32, wantFrames int, channels int) error {
	r.calledAvailable = availableFrames
	r.calledWant = wantFrames
	r.calledChannels = channels
	for i := range dst {
		dst[i] = 0.5
	}
	return nil
}
