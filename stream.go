package capture

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// OutputKind identifies the delivery channel a sample arrived on.
type OutputKind int32

const (
	OutputScreen     OutputKind = 0
	OutputAudio      OutputKind = 1
	OutputMicrophone OutputKind = 2
)

// StreamState represents the state of a capture stream.
type StreamState int32

const (
	StreamStateIdle    StreamState = iota // Created, not yet started
	StreamStateRunning                    // Delivering samples
	StreamStateStopped                    // Stopped or closed
)

func (s StreamState) String() string {
	switch s {
	case StreamStateIdle:
		return "idle"
	case StreamStateRunning:
		return "running"
	case StreamStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FrameHandler receives one video sample per delivery. The handler takes
// ownership of the buffer and must Close it; it runs on the native delivery
// thread and should return quickly.
type FrameHandler func(*SampleBuffer)

// AudioHandler receives one zero-copy audio chunk per delivery. The chunk
// is valid only until the handler returns.
type AudioHandler func(*AudioChunk)

// Global callback state: the native side identifies a stream by the opaque
// userData it was created with, routed through this map.
var (
	streamsMu     sync.RWMutex
	streams       = make(map[uintptr]*Stream)
	streamCounter uintptr
)

func registerStream(s *Stream) uintptr {
	streamsMu.Lock()
	streamCounter++
	id := streamCounter
	streams[id] = s
	streamsMu.Unlock()
	return id
}

func lookupStream(id uintptr) *Stream {
	streamsMu.RLock()
	s := streams[id]
	streamsMu.RUnlock()
	return s
}

// Stream is one capture session against the native framework. Samples are
// delivered on the framework's own thread; request/response operations
// (Start, Stop) go through the one-shot completion protocol.
type Stream struct {
	handle uint64
	id     uintptr
	filter ContentFilter
	cfg    StreamConfig
	state  atomic.Int32

	mu      sync.RWMutex
	onFrame FrameHandler
	onAudio AudioHandler
	ring    *AudioRing

	// Delivery-thread scratch for interleaving into the ring; touched only
	// by the audio callback.
	scratch []float32
}

// NewStream creates a capture stream for the filtered content. The stream
// does not deliver samples until Start resolves.
func NewStream(filter ContentFilter, cfg StreamConfig) (*Stream, error) {
	if streamSCKStreamCreate == nil {
		return nil, wrapErr("stream create", ErrNotAvailable)
	}
	cfg = cfg.withDefaults()
	s := &Stream{filter: filter, cfg: cfg}
	s.id = registerStream(s)

	capturesAudio := int32(0)
	if cfg.CapturesAudio {
		capturesAudio = 1
	}
	showsCursor := int32(0)
	if cfg.ShowsCursor {
		showsCursor = 1
	}
	pidPtr, pidCount := excludedPIDArgs(filter)
	handle := streamSCKStreamCreate(
		int32(filter.Kind), filter.DisplayID, filter.WindowID,
		pidPtr, pidCount,
		int32(cfg.Width), int32(cfg.Height), int32(cfg.FPS),
		cfg.PixelFormat.fourCC(),
		showsCursor, capturesAudio,
		int32(cfg.SampleRate), int32(cfg.ChannelCount),
		int32(cfg.QueueDepth),
		s.id,
	)
	runtime.KeepAlive(filter.ExcludedPIDs)
	if handle == 0 {
		dropStream(s.id)
		return nil, wrapErr("stream create", shimError())
	}
	s.handle = handle
	return s, nil
}

// Config returns the stream's effective configuration.
func (s *Stream) Config() StreamConfig { return s.cfg }

// Filter returns the stream's capture target.
func (s *Stream) Filter() ContentFilter { return s.filter }

// State returns the stream state.
func (s *Stream) State() StreamState {
	return StreamState(s.state.Load())
}

// SetFrameHandler sets the video delivery callback.
func (s *Stream) SetFrameHandler(h FrameHandler) {
	s.mu.Lock()
	s.onFrame = h
	s.mu.Unlock()
}

// SetAudioHandler sets the inline zero-copy audio callback.
func (s *Stream) SetAudioHandler(h AudioHandler) {
	s.mu.Lock()
	s.onAudio = h
	s.mu.Unlock()
}

// SetAudioRing attaches a ring that the delivery callback fills with
// interleaved samples for a consumer on another thread. The ring must not
// be written by anyone else.
func (s *Stream) SetAudioRing(r *AudioRing) {
	s.mu.Lock()
	s.ring = r
	s.mu.Unlock()
}

// Start asks the framework to begin delivery and returns a waiter that
// resolves once the framework confirms (or refuses) the start. The stream
// reports StreamStateRunning only after the confirmation arrives.
func (s *Stream) Start() *Waiter[struct{}] {
	w := newWaiter[struct{}]()
	token := registerCompletion(&completionHook[struct{}]{next: w, onOK: s.markRunning})
	s.startWith(token)
	return w
}

// StartAsync is Start for poll-based callers.
func (s *Stream) StartAsync() *AsyncWaiter[struct{}] {
	w := &AsyncWaiter[struct{}]{}
	token := registerCompletion(&completionHook[struct{}]{next: w, onOK: s.markRunning})
	s.startWith(token)
	return w
}

func (s *Stream) markRunning() { s.state.Store(int32(StreamStateRunning)) }
func (s *Stream) markStopped() { s.state.Store(int32(StreamStateStopped)) }

func (s *Stream) startWith(token CompletionToken) {
	if s.handle == 0 || streamSCKStreamStart == nil {
		ResolveErr[struct{}](token, wrapErr("stream start", ErrNotAvailable))
		return
	}
	if streamSCKStreamStart(s.handle, uint64(token)) != 0 {
		ResolveErr[struct{}](token, wrapErr("stream start", shimError()))
	}
}

// Stop asks the framework to end delivery and returns a waiter that
// resolves once the framework confirms.
func (s *Stream) Stop() *Waiter[struct{}] {
	w := newWaiter[struct{}]()
	token := registerCompletion(&completionHook[struct{}]{next: w, onOK: s.markStopped})
	s.stopWith(token)
	return w
}

// StopAsync is Stop for poll-based callers.
func (s *Stream) StopAsync() *AsyncWaiter[struct{}] {
	w := &AsyncWaiter[struct{}]{}
	token := registerCompletion(&completionHook[struct{}]{next: w, onOK: s.markStopped})
	s.stopWith(token)
	return w
}

func (s *Stream) stopWith(token CompletionToken) {
	if s.handle == 0 || streamSCKStreamStop == nil {
		ResolveErr[struct{}](token, wrapErr("stream stop", ErrNotAvailable))
		return
	}
	if streamSCKStreamStop(s.handle, uint64(token)) != 0 {
		ResolveErr[struct{}](token, wrapErr("stream stop", shimError()))
	}
}

// Close destroys the native stream and removes it from callback routing.
// Pending deliveries racing Close are dropped by the routing map.
func (s *Stream) Close() error {
	if s.handle != 0 && streamSCKStreamDestroy != nil {
		streamSCKStreamDestroy(s.handle)
	}
	s.handle = 0
	dropStream(s.id)
	s.state.Store(int32(StreamStateStopped))
	return nil
}

func dropStream(id uintptr) {
	streamsMu.Lock()
	delete(streams, id)
	streamsMu.Unlock()
}

// deliverVideo dispatches one wrapped sample buffer to the frame handler.
// Without a handler the buffer is released immediately so the native
// reference cannot leak.
func (s *Stream) deliverVideo(sb *SampleBuffer) {
	if sb == nil {
		return
	}
	s.mu.RLock()
	handler := s.onFrame
	s.mu.RUnlock()

	if handler == nil {
		sb.Close()
		return
	}
	handler(sb)
}

// deliverAudio runs the inline zero-copy handler and feeds the attached
// ring, all on the delivery thread. Ring overflow drops the newest samples
// by contract; nothing here may block.
func (s *Stream) deliverAudio(chunk *AudioChunk) {
	if chunk == nil || chunk.Frames() == 0 {
		return
	}
	s.mu.RLock()
	handler := s.onAudio
	ring := s.ring
	s.mu.RUnlock()

	if handler != nil {
		handler(chunk)
	}
	if ring != nil {
		s.scratch = chunk.appendInterleaved(s.scratch[:0])
		ring.Write(s.scratch)
	}
}

// CaptureImage grabs a single frame of the filtered content without a
// running stream, resolving with an owned sample buffer the caller must
// Close. Always consume the waiter: one abandoned before resolution keeps
// the delivered buffer, and its native reference, buffered until collected.
func CaptureImage(filter ContentFilter, cfg StreamConfig) *Waiter[*SampleBuffer] {
	w, token := Begin[*SampleBuffer]()
	captureImageWith(filter, cfg, token)
	return w
}

// CaptureImageAsync is CaptureImage for poll-based callers.
func CaptureImageAsync(filter ContentFilter, cfg StreamConfig) *AsyncWaiter[*SampleBuffer] {
	w, token := BeginAsync[*SampleBuffer]()
	captureImageWith(filter, cfg, token)
	return w
}

func captureImageWith(filter ContentFilter, cfg StreamConfig, token CompletionToken) {
	if streamSCKCaptureImage == nil {
		ResolveErr[*SampleBuffer](token, wrapErr("capture image", ErrNotAvailable))
		return
	}
	cfg = cfg.withDefaults()
	pidPtr, pidCount := excludedPIDArgs(filter)
	rc := streamSCKCaptureImage(
		int32(filter.Kind), filter.DisplayID, filter.WindowID,
		pidPtr, pidCount,
		int32(cfg.Width), int32(cfg.Height), cfg.PixelFormat.fourCC(),
		uint64(token),
	)
	runtime.KeepAlive(filter.ExcludedPIDs)
	if rc != 0 {
		ResolveErr[*SampleBuffer](token, wrapErr("capture image", shimError()))
	}
}

// resolveCapturedImage delivers a screenshot result through the completion
// registry. The sample handle arrives already retained; when no waiter
// consumes it (the token was already resolved, or never issued) the handle
// is released here so the foreign reference cannot leak.
func resolveCapturedImage(token CompletionToken, sample uintptr, errMsg string) {
	if sample == 0 {
		ResolveErr[*SampleBuffer](token, foreignFailure(errMsg))
		return
	}
	sb := wrapSampleBuffer(sample)
	if !ResolveOK(token, sb) {
		sb.Close()
	}
}

// excludedPIDArgs marshals a filter's exclusion list for the shim. The
// caller must keep filter.ExcludedPIDs alive across the shim call.
func excludedPIDArgs(filter ContentFilter) (uintptr, int32) {
	if len(filter.ExcludedPIDs) == 0 {
		return 0, 0
	}
	return uintptr(unsafe.Pointer(&filter.ExcludedPIDs[0])), int32(len(filter.ExcludedPIDs))
}

// ShareableContent queries the displays, windows and applications available
// for capture.
func ShareableContent() *Waiter[*SharedContent] {
	w, token := Begin[*SharedContent]()
	if streamSCKShareableContent == nil {
		ResolveErr[*SharedContent](token, wrapErr("shareable content", ErrNotAvailable))
		return w
	}
	if streamSCKShareableContent(uint64(token)) != 0 {
		ResolveErr[*SharedContent](token, wrapErr("shareable content", shimError()))
	}
	return w
}

// PresentPicker shows the system content picker and resolves with the
// user's selection.
func PresentPicker() *Waiter[ContentFilter] {
	w, token := Begin[ContentFilter]()
	if streamSCKPickerPresent == nil {
		ResolveErr[ContentFilter](token, wrapErr("picker", ErrNotAvailable))
		return w
	}
	if streamSCKPickerPresent(uint64(token)) != 0 {
		ResolveErr[ContentFilter](token, wrapErr("picker", shimError()))
	}
	return w
}
