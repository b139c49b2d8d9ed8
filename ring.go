package capture

import "sync"

// AudioRing is a fixed-capacity circular store of float32 samples bridging
// the capture delivery thread (producer) to a playback or analysis thread
// (consumer). Exactly one goroutine writes and exactly one reads; no third
// party may touch it. The critical sections are tiny and never block the
// producer for unbounded time.
//
// Overflow and underflow are expected steady-state conditions, signalled
// only through the return counts of Write and Read, never as errors.
type AudioRing struct {
	mu        sync.Mutex
	samples   []float32
	available int
	writePos  int
}

// NewAudioRing creates a ring holding up to capacity samples. Returns nil
// for a non-positive capacity.
func NewAudioRing(capacity int) *AudioRing {
	if capacity <= 0 {
		return nil
	}
	return &AudioRing{samples: make([]float32, capacity)}
}

// Capacity returns the immutable sample capacity.
func (r *AudioRing) Capacity() int {
	return len(r.samples)
}

// Available returns the number of unread samples currently stored.
func (r *AudioRing) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available
}

// Write copies as many input samples as fit into the free space and returns
// the count written. Samples beyond the free space are dropped: the producer
// runs on the real-time delivery thread and must never block or overwrite
// data the consumer has not yet read.
func (r *AudioRing) Write(input []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	free := len(r.samples) - r.available
	n := len(input)
	if n > free {
		n = free
	}

	for i := 0; i < n; i++ {
		r.samples[r.writePos] = input[i]
		r.writePos++
		if r.writePos == len(r.samples) {
			r.writePos = 0
		}
	}
	r.available += n
	return n
}

// Read copies up to len(output) of the oldest unread samples into output and
// zero-fills the remainder, so the consumer always receives a full block of
// silence-padded audio. The return count indicates how much was genuine data.
func (r *AudioRing) Read(output []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(output)
	if n > r.available {
		n = r.available
	}

	readPos := r.writePos - r.available
	if readPos < 0 {
		readPos += len(r.samples)
	}
	for i := 0; i < n; i++ {
		output[i] = r.samples[readPos]
		readPos++
		if readPos == len(r.samples) {
			readPos = 0
		}
	}
	for i := n; i < len(output); i++ {
		output[i] = 0
	}
	r.available -= n
	return n
}
