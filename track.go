package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Re-export pion's RTPCodecType for convenience
type RTPCodecType = webrtc.RTPCodecType

const (
	RTPCodecTypeUnknown = webrtc.RTPCodecTypeUnknown
	RTPCodecTypeAudio   = webrtc.RTPCodecTypeAudio
	RTPCodecTypeVideo   = webrtc.RTPCodecTypeVideo
)

// TrackState represents the state of a track.
type TrackState int

const (
	TrackStateLive  TrackState = iota // Track is active and producing media
	TrackStateEnded                   // Track has ended
)

func (s TrackState) String() string {
	switch s {
	case TrackStateLive:
		return "live"
	case TrackStateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// VideoFrameCallback is called when a frame is available (push mode).
type VideoFrameCallback func(frame *VideoFrame)

// AudioSamplesCallback is called when samples are available (push mode).
type AudioSamplesCallback func(samples *AudioSamples)

// MediaStreamTrack represents a single audio or video track, shaped after
// the browser interface so tracks slot into pion-based pipelines.
type MediaStreamTrack interface {
	io.Closer

	// ID returns the unique identifier for this track.
	ID() string

	// Kind returns the track kind (audio or video) - compatible with pion.
	Kind() RTPCodecType

	// Label returns a human-readable label for the track source.
	Label() string

	// State returns the current track state.
	State() TrackState

	// Muted returns whether the track is muted.
	Muted() bool

	// SetMuted sets the muted state.
	SetMuted(muted bool)

	// OnEnded sets a callback for when the track ends.
	OnEnded(callback func())
}

// VideoTrack is a MediaStreamTrack that produces video frames.
type VideoTrack interface {
	MediaStreamTrack

	// ReadFrame reads the next video frame.
	ReadFrame(ctx context.Context) (*VideoFrame, error)

	// OnFrame sets a callback for when a frame is available.
	OnFrame(callback VideoFrameCallback)
}

// AudioTrack is a MediaStreamTrack that produces audio samples.
type AudioTrack interface {
	MediaStreamTrack

	// ReadSamples reads the next audio samples.
	ReadSamples(ctx context.Context) (*AudioSamples, error)
}

var trackCounter atomic.Uint64

// ScreenTrack adapts a capture Stream's video output into a VideoTrack.
// Each delivered sample buffer is locked, copied out stride-aware, and
// released before the delivery callback returns.
type ScreenTrack struct {
	id      string
	stream  *Stream
	state   atomic.Int32
	muted   atomic.Bool
	mu      sync.RWMutex
	cb      VideoFrameCallback
	endedCb func()
	frameCh chan *VideoFrame
	done    chan struct{}
	closed  atomic.Bool
}

// NewScreenTrack wires a track to the stream's frame delivery. The track
// takes over the stream's frame handler.
func NewScreenTrack(stream *Stream) *ScreenTrack {
	t := &ScreenTrack{
		id:      fmt.Sprintf("screen-%d", trackCounter.Add(1)),
		stream:  stream,
		frameCh: make(chan *VideoFrame, 3), // Buffer a few frames
		done:    make(chan struct{}),
	}
	t.state.Store(int32(TrackStateLive))
	stream.SetFrameHandler(t.handleSample)
	return t
}

// handleSample runs on the native delivery thread. The sample buffer is
// owned here and always released, whatever path exits.
func (t *ScreenTrack) handleSample(sb *SampleBuffer) {
	defer sb.Close()
	if t.muted.Load() || t.closed.Load() {
		return
	}

	img := sb.ImageBuffer()
	if img == nil {
		return
	}
	defer img.Close()

	format := img.PixelFormat()
	if format.BytesPerPixel() == 0 {
		// Planar deliveries have no packed-copy representation; they are
		// read through a lock guard on the stream, not as track frames.
		return
	}

	guard, err := img.Lock(LockReadOnly)
	if err != nil {
		// A refused lock means no data this cycle; the next delivery
		// stands alone.
		return
	}
	defer guard.Unlock()

	frame := CopyFrame(guard, format, int64(sb.PresentationTime()))

	t.mu.RLock()
	cb := t.cb
	t.mu.RUnlock()

	if cb != nil {
		cb(frame)
	}

	// frameCh is never closed, so this send cannot panic even when Close
	// runs concurrently on another thread; a racing Close just leaves the
	// frame unread.
	select {
	case t.frameCh <- frame:
	default:
		// Drop frame if the reader is behind
	}
}

func (t *ScreenTrack) ID() string         { return t.id }
func (t *ScreenTrack) Kind() RTPCodecType { return RTPCodecTypeVideo }
func (t *ScreenTrack) Label() string      { return "Screen Capture" }

func (t *ScreenTrack) State() TrackState {
	return TrackState(t.state.Load())
}

func (t *ScreenTrack) Muted() bool { return t.muted.Load() }

func (t *ScreenTrack) SetMuted(muted bool) { t.muted.Store(muted) }

func (t *ScreenTrack) OnEnded(callback func()) {
	t.mu.Lock()
	t.endedCb = callback
	t.mu.Unlock()
}

// OnFrame sets the push-mode frame callback.
func (t *ScreenTrack) OnFrame(callback VideoFrameCallback) {
	t.mu.Lock()
	t.cb = callback
	t.mu.Unlock()
}

// ReadFrame returns the next captured frame, blocking until one arrives
// or the track is closed.
func (t *ScreenTrack) ReadFrame(ctx context.Context) (*VideoFrame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, errors.New("track closed")
	case frame := <-t.frameCh:
		return frame, nil
	}
}

// WriteRTP is not supported for capture tracks
func (t *ScreenTrack) WriteRTP(p *rtp.Packet) error {
	return errors.New("WriteRTP not supported on capture track")
}

// Close detaches the track from the stream. The stream itself keeps
// running; close it separately.
func (t *ScreenTrack) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.stream.SetFrameHandler(nil)
	t.state.Store(int32(TrackStateEnded))

	t.mu.RLock()
	endedCb := t.endedCb
	t.mu.RUnlock()

	close(t.done)
	if endedCb != nil {
		endedCb()
	}
	return nil
}

// Polling interval for ring drains; short enough to stay under one audio
// block at 48kHz.
const audioPollInterval = 5 * time.Millisecond

// AudioCaptureTrack adapts a capture Stream's audio output into an
// AudioTrack, buffering the delivery thread's samples through an AudioRing.
type AudioCaptureTrack struct {
	id      string
	stream  *Stream
	ring    *AudioRing
	state   atomic.Int32
	muted   atomic.Bool
	mu      sync.RWMutex
	endedCb func()
	closed  atomic.Bool
}

// NewAudioCaptureTrack wires a track to the stream's audio delivery,
// buffering up to bufferSeconds of audio between delivery and reads.
func NewAudioCaptureTrack(stream *Stream, bufferSeconds float64) *AudioCaptureTrack {
	cfg := stream.Config()
	if bufferSeconds <= 0 {
		bufferSeconds = 1
	}
	capacity := int(bufferSeconds * float64(cfg.SampleRate) * float64(cfg.ChannelCount))
	t := &AudioCaptureTrack{
		id:     fmt.Sprintf("audio-%d", trackCounter.Add(1)),
		stream: stream,
		ring:   NewAudioRing(capacity),
	}
	t.state.Store(int32(TrackStateLive))
	stream.SetAudioRing(t.ring)
	return t
}

func (t *AudioCaptureTrack) ID() string         { return t.id }
func (t *AudioCaptureTrack) Kind() RTPCodecType { return RTPCodecTypeAudio }
func (t *AudioCaptureTrack) Label() string      { return "System Audio" }

func (t *AudioCaptureTrack) State() TrackState {
	return TrackState(t.state.Load())
}

func (t *AudioCaptureTrack) Muted() bool { return t.muted.Load() }

func (t *AudioCaptureTrack) SetMuted(muted bool) { t.muted.Store(muted) }

func (t *AudioCaptureTrack) OnEnded(callback func()) {
	t.mu.Lock()
	t.endedCb = callback
	t.mu.Unlock()
}

// Ring exposes the underlying ring for consumers that drain it directly
// (e.g. a playback device callback). Reads through the ring and through
// ReadSamples must not be mixed: one consumer only.
func (t *AudioCaptureTrack) Ring() *AudioRing { return t.ring }

// ReadSamples drains the next block of buffered audio, waiting until at
// least one sample is available. The returned block holds up to 10ms of
// interleaved audio.
func (t *AudioCaptureTrack) ReadSamples(ctx context.Context) (*AudioSamples, error) {
	if t.closed.Load() {
		return nil, errors.New("track closed")
	}
	cfg := t.stream.Config()
	block := make([]float32, cfg.SampleRate/100*cfg.ChannelCount)

	ticker := time.NewTicker(audioPollInterval)
	defer ticker.Stop()
	for {
		if n := t.ring.Read(block); n > 0 {
			return &AudioSamples{
				Data:       block[:n],
				SampleRate: cfg.SampleRate,
				Channels:   cfg.ChannelCount,
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close detaches the track from the stream's audio delivery.
func (t *AudioCaptureTrack) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.stream.SetAudioRing(nil)
	t.state.Store(int32(TrackStateEnded))

	t.mu.RLock()
	endedCb := t.endedCb
	t.mu.RUnlock()

	if endedCb != nil {
		endedCb()
	}
	return nil
}
