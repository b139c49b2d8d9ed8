package capture

import (
	"time"
	"unsafe"
)

// SampleBuffer owns one retained native sample-buffer handle delivered by
// the capture stream. It is move-only: the holder that receives it must
// Close it exactly once; sharing goes through the explicit, reference-
// incrementing Retain. Never copy the struct.
type SampleBuffer struct {
	handle uintptr
}

// wrapSampleBuffer takes ownership of an already-retained handle. A zero
// handle yields nil (absence, not an error).
func wrapSampleBuffer(h uintptr) *SampleBuffer {
	if h == 0 {
		return nil
	}
	return &SampleBuffer{handle: h}
}

// Retain increments the native reference count and returns a new owned
// wrapper with a lifetime independent of the receiver's.
func (b *SampleBuffer) Retain() *SampleBuffer {
	if b == nil || b.handle == 0 || streamSCKSampleRetain == nil {
		return nil
	}
	return wrapSampleBuffer(streamSCKSampleRetain(b.handle))
}

// Close releases the native reference. Safe to call more than once; only
// the first call releases.
func (b *SampleBuffer) Close() error {
	h := b.handle
	b.handle = 0
	if h != 0 && streamSCKSampleRelease != nil {
		streamSCKSampleRelease(h)
	}
	return nil
}

// PresentationTime returns the buffer's presentation timestamp.
func (b *SampleBuffer) PresentationTime() time.Duration {
	if b.handle == 0 || streamSCKSamplePTS == nil {
		return 0
	}
	return time.Duration(streamSCKSamplePTS(b.handle))
}

// ImageBuffer returns the pixel buffer carried by this sample, or nil for
// samples without one (e.g. audio-only). The returned buffer is a new owned
// reference and must be Closed independently.
func (b *SampleBuffer) ImageBuffer() *ImageBuffer {
	if b.handle == 0 || streamSCKSampleImageBuffer == nil {
		return nil
	}
	return wrapImageBuffer(streamSCKSampleImageBuffer(b.handle))
}

// BlockBuffer returns the contiguous data buffer carried by this sample, or
// nil if none. The returned buffer is a new owned reference.
func (b *SampleBuffer) BlockBuffer() *BlockBuffer {
	if b.handle == 0 || streamSCKSampleBlockBuffer == nil {
		return nil
	}
	return wrapBlockBuffer(streamSCKSampleBlockBuffer(b.handle))
}

// ImageBuffer owns one retained native pixel-buffer handle. Pixel memory is
// reached through Lock; geometry getters are valid without a lock.
type ImageBuffer struct {
	handle uintptr
}

func wrapImageBuffer(h uintptr) *ImageBuffer {
	if h == 0 {
		return nil
	}
	return &ImageBuffer{handle: h}
}

// Close releases the native reference. Safe to call more than once.
func (b *ImageBuffer) Close() error {
	h := b.handle
	b.handle = 0
	if h != 0 && streamSCKImageRelease != nil {
		streamSCKImageRelease(h)
	}
	return nil
}

// Width returns the buffer width in pixels.
func (b *ImageBuffer) Width() int {
	if b.handle == 0 || streamSCKImageWidth == nil {
		return 0
	}
	return int(streamSCKImageWidth(b.handle))
}

// Height returns the buffer height in pixels.
func (b *ImageBuffer) Height() int {
	if b.handle == 0 || streamSCKImageHeight == nil {
		return 0
	}
	return int(streamSCKImageHeight(b.handle))
}

// PixelFormat returns the buffer's pixel format.
func (b *ImageBuffer) PixelFormat() PixelFormat {
	if b.handle == 0 || streamSCKImagePixelFormat == nil {
		return PixelFormatUnknown
	}
	return pixelFormatFromFourCC(streamSCKImagePixelFormat(b.handle))
}

// Lock locks the pixel memory for scoped access and returns a guard over
// it. The guard must be Unlocked (typically deferred) before the buffer is
// Closed. Fails with ErrLockFailed when the native side refuses the lock.
func (b *ImageBuffer) Lock(flags LockFlags) (*LockGuard, error) {
	if b.handle == 0 {
		return nil, wrapErr("image lock", ErrNotAvailable)
	}
	if streamSCKImageLock == nil || streamSCKImageUnlock == nil || streamSCKImageBaseAddress == nil {
		return nil, wrapErr("image lock", ErrNotAvailable)
	}
	if streamSCKImageLock(b.handle, uint32(flags)) != 0 {
		return nil, wrapErr("image lock", ErrLockFailed)
	}
	h := b.handle
	g := newLockGuard(
		streamSCKImageBaseAddress(h),
		int(streamSCKImageWidth(h)),
		int(streamSCKImageHeight(h)),
		int(streamSCKImageBytesPerRow(h)),
		b.PixelFormat().BytesPerPixel(),
		func() { streamSCKImageUnlock(h, uint32(flags)) },
	)
	return g, nil
}

// Surface returns the hardware surface backing this buffer, or nil when the
// buffer is not hardware-backed. The surface is a new owned reference whose
// lifetime is independent of the image buffer's.
func (b *ImageBuffer) Surface() *Surface {
	if b.handle == 0 || streamSCKImageSurface == nil {
		return nil
	}
	return wrapSurface(streamSCKImageSurface(b.handle))
}

// Surface owns one retained native hardware-surface handle, giving direct
// memory access to a frame without going through a pixel-buffer copy.
type Surface struct {
	handle uintptr
}

func wrapSurface(h uintptr) *Surface {
	if h == 0 {
		return nil
	}
	return &Surface{handle: h}
}

// Close releases the native reference. Safe to call more than once.
func (s *Surface) Close() error {
	h := s.handle
	s.handle = 0
	if h != 0 && streamSCKSurfaceRelease != nil {
		streamSCKSurfaceRelease(h)
	}
	return nil
}

// InUse reports the native side's own lock accounting for the surface.
func (s *Surface) InUse() bool {
	if s.handle == 0 || streamSCKSurfaceInUse == nil {
		return false
	}
	return streamSCKSurfaceInUse(s.handle) != 0
}

// Lock locks the surface memory and returns a guard over it, with the same
// discipline as ImageBuffer.Lock.
func (s *Surface) Lock(flags LockFlags) (*LockGuard, error) {
	if s.handle == 0 {
		return nil, wrapErr("surface lock", ErrNotAvailable)
	}
	if streamSCKSurfaceLock == nil || streamSCKSurfaceUnlock == nil || streamSCKSurfaceBaseAddress == nil {
		return nil, wrapErr("surface lock", ErrNotAvailable)
	}
	if streamSCKSurfaceLock(s.handle, uint32(flags)) != 0 {
		return nil, wrapErr("surface lock", ErrLockFailed)
	}
	h := s.handle
	g := newLockGuard(
		streamSCKSurfaceBaseAddress(h),
		int(streamSCKSurfaceWidth(h)),
		int(streamSCKSurfaceHeight(h)),
		int(streamSCKSurfaceBytesPerRow(h)),
		4, // surfaces are delivered as packed 32-bit pixels
		func() { streamSCKSurfaceUnlock(h, uint32(flags)) },
	)
	return g, nil
}

// BlockBuffer owns one retained native block-buffer handle holding a flat,
// possibly non-contiguous byte range.
type BlockBuffer struct {
	handle uintptr
}

func wrapBlockBuffer(h uintptr) *BlockBuffer {
	if h == 0 {
		return nil
	}
	return &BlockBuffer{handle: h}
}

// Close releases the native reference. Safe to call more than once.
func (b *BlockBuffer) Close() error {
	h := b.handle
	b.handle = 0
	if h != 0 && streamSCKBlockRelease != nil {
		streamSCKBlockRelease(h)
	}
	return nil
}

// DataLength returns the byte length of the buffer's data.
func (b *BlockBuffer) DataLength() int {
	if b.handle == 0 || streamSCKBlockDataLength == nil {
		return 0
	}
	return int(streamSCKBlockDataLength(b.handle))
}

// CopyBytes copies the buffer's full byte range into freshly allocated Go
// memory.
func (b *BlockBuffer) CopyBytes() ([]byte, error) {
	if b.handle == 0 || streamSCKBlockCopyBytes == nil {
		return nil, wrapErr("block copy", ErrNotAvailable)
	}
	n := b.DataLength()
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	if streamSCKBlockCopyBytes(b.handle, uintptr(unsafe.Pointer(&out[0])), int32(n)) != 0 {
		return nil, wrapErr("block copy", shimError())
	}
	return out, nil
}
