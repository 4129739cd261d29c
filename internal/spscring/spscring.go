// Package spscring is a reference lock-free single-producer/single-consumer
// byte ring, implementing bridge.Ring. The engine never assumes this
// particular implementation — see bridge.Ring's doc comment — but it's what
// internal/hostref and the test suite use to stand in for the real
// host-owned ring.
package spscring

import "sync/atomic"

// Ring is a power-of-two-sized byte ring. One goroutine must call Write,
// another Read; ReadSpace/WriteSpace may be called from either side.
type Ring struct {
	buf  []byte
	mask uint64

	// head/tail count total bytes written/read; indexing into buf uses
	// (count & mask), the same wraparound idiom the jitter buffer uses for
	// sequence numbers.
	head atomic.Uint64 // bytes written
	tail atomic.Uint64 // bytes read
}

// New creates a ring of the given capacity, rounded up to the next power of
// two.
func New(capacity int) *Ring {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &Ring{
		buf:  make([]byte, size),
		mask: uint64(size - 1),
	}
}

// ReadSpace reports how many bytes are available to Read.
func (r *Ring) ReadSpace() int {
	return int(r.head.Load() - r.tail.Load())
}

// WriteSpace reports how many bytes are available to Write.
func (r *Ring) WriteSpace() int {
	return len(r.buf) - r.ReadSpace()
}

// Read copies up to len(dst) available bytes into dst, returning the count
// actually copied.
func (r *Ring) Read(dst []byte) int {
	avail := r.ReadSpace()
	n := len(dst)
	if n > avail {
		n = avail
	}
	tail := r.tail.Load()
	for i := 0; i < n; i++ {
		dst[i] = r.buf[(tail+uint64(i))&r.mask]
	}
	r.tail.Store(tail + uint64(n))
	return n
}

// Write copies up to WriteSpace() bytes of src into the ring, returning the
// count actually copied.
func (r *Ring) Write(src []byte) int {
	space := r.WriteSpace()
	n := len(src)
	if n > space {
		n = space
	}
	head := r.head.Load()
	for i := 0; i < n; i++ {
		r.buf[(head+uint64(i))&r.mask] = src[i]
	}
	r.head.Store(head + uint64(n))
	return n
}
