// Package capture bridges the native screen/audio capture framework
// (loaded as libstream_sck) into synchronous and asynchronous Go APIs.
//
// Key pieces include:
//   - Stream: a capture session delivering video sample buffers and
//     audio sample batches from the native delivery thread
//   - SampleBuffer/ImageBuffer/Surface/BlockBuffer: owned wrappers around
//     foreign reference-counted handles with scoped, stride-aware locking
//   - Waiter/AsyncWaiter: one-shot completion bridging for request/response
//     operations (start, stop, screenshot, content queries, picker)
//   - AudioRing: a bounded SPSC float32 ring moving audio from the capture
//     callback thread to a consumer thread without blocking the producer
//   - ScreenTrack/AudioCaptureTrack: pion-compatible track adapters
//
// # Architecture
//
//	native delivery thread -> SampleBuffer wrap -> frame/audio handler
//	request (Start/Stop/CaptureImage) -> CompletionToken -> Waiter.Wait / AsyncWaiter.Poll
//	audio callback -> AudioChunk (zero-copy, one callback only) -> AudioRing -> consumer
//
// # Native Libraries
//
// Bindings load libstream_sck at runtime. Set STREAM_SCK_LIB_PATH (or
// STREAM_SDK_LIB_PATH) to the directory containing the library; the
// executable's own directory and common build paths are searched as well. The package uses purego (CGO_ENABLED=0); the shim exposes a
// primitive-only C API over the OS capture framework.
//
// # Build Tags
//
//   - nodevices: disable native capture support (portable core only)
//
// Capture is platform-specific; on platforms without a shim the core types
// (completion bridge, ring buffer, guards) still work and operations that
// need the native side return ErrNotAvailable.
package capture
