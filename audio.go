package capture

// AudioChunk is a zero-copy view over one delivery of captured audio. The
// channel planes alias foreign memory owned by the native framework: they
// are valid only for the duration of the audio callback and must not be
// retained past its return. Consumers that need the data afterwards must
// Clone it or push it through an AudioRing.
type AudioChunk struct {
	planes     [][]float32 // one plane per channel, non-interleaved
	sampleRate int
	timestamp  int64
}

// SampleRate returns the delivery sample rate.
func (c *AudioChunk) SampleRate() int { return c.sampleRate }

// Channels returns the number of channel planes.
func (c *AudioChunk) Channels() int { return len(c.planes) }

// Frames returns the number of samples per channel in this delivery.
func (c *AudioChunk) Frames() int {
	if len(c.planes) == 0 {
		return 0
	}
	return len(c.planes[0])
}

// Timestamp returns the presentation timestamp in nanoseconds.
func (c *AudioChunk) Timestamp() int64 { return c.timestamp }

// Channel returns the plane for channel i. The slice aliases foreign
// memory; see the type comment.
func (c *AudioChunk) Channel(i int) []float32 {
	if i < 0 || i >= len(c.planes) {
		return nil
	}
	return c.planes[i]
}

// Clone copies the chunk into Go-owned interleaved samples that survive the
// callback.
func (c *AudioChunk) Clone() *AudioSamples {
	return &AudioSamples{
		Data:       c.appendInterleaved(make([]float32, 0, c.Frames()*c.Channels())),
		SampleRate: c.sampleRate,
		Channels:   c.Channels(),
		Timestamp:  c.timestamp,
	}
}

// appendInterleaved appends the chunk's samples to dst in interleaved
// order. Used on the delivery path to fill a stream-owned scratch buffer
// without allocating per callback.
func (c *AudioChunk) appendInterleaved(dst []float32) []float32 {
	frames := c.Frames()
	for f := 0; f < frames; f++ {
		for _, plane := range c.planes {
			dst = append(dst, plane[f])
		}
	}
	return dst
}
