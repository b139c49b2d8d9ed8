package capture

// libstream_sck function pointers. The platform loader (sck_darwin.go)
// registers these against the shim library; tests stub individual entries.
// A nil entry means the native backend is not loaded.
//
// Handle convention: every shim getter that returns another object handle
// retains it before returning, so the Go wrapper always takes ownership of
// an already-retained reference and releases it exactly once on Close.
var (
	// Sample buffers
	streamSCKSampleRetain      func(h uintptr) uintptr
	streamSCKSampleRelease     func(h uintptr)
	streamSCKSampleImageBuffer func(h uintptr) uintptr // retained image buffer, 0 if none
	streamSCKSampleBlockBuffer func(h uintptr) uintptr // retained block buffer, 0 if none
	streamSCKSamplePTS         func(h uintptr) int64   // presentation time, nanoseconds

	// Image (pixel) buffers
	streamSCKImageRelease     func(h uintptr)
	streamSCKImageLock        func(h uintptr, flags uint32) int32
	streamSCKImageUnlock      func(h uintptr, flags uint32) int32
	streamSCKImageBaseAddress func(h uintptr) uintptr
	streamSCKImageWidth       func(h uintptr) int32
	streamSCKImageHeight      func(h uintptr) int32
	streamSCKImageBytesPerRow func(h uintptr) int32
	streamSCKImagePixelFormat func(h uintptr) uint32
	streamSCKImageSurface     func(h uintptr) uintptr // retained surface, 0 if not hardware-backed

	// Hardware surfaces
	streamSCKSurfaceRelease     func(h uintptr)
	streamSCKSurfaceLock        func(h uintptr, flags uint32) int32
	streamSCKSurfaceUnlock      func(h uintptr, flags uint32) int32
	streamSCKSurfaceBaseAddress func(h uintptr) uintptr
	streamSCKSurfaceWidth       func(h uintptr) int32
	streamSCKSurfaceHeight      func(h uintptr) int32
	streamSCKSurfaceBytesPerRow func(h uintptr) int32
	streamSCKSurfaceInUse       func(h uintptr) int32

	// Block buffers
	streamSCKBlockRelease    func(h uintptr)
	streamSCKBlockDataLength func(h uintptr) int32
	streamSCKBlockCopyBytes  func(h uintptr, dst uintptr, length int32) int32

	// Streams
	streamSCKStreamCreate  func(filterKind int32, displayID, windowID uint64, excludedPIDs uintptr, excludedCount int32, width, height, fps int32, pixelFormat uint32, showsCursor, capturesAudio, sampleRate, channelCount, queueDepth int32, userData uintptr) uint64
	streamSCKStreamStart   func(handle uint64, token uint64) int32
	streamSCKStreamStop    func(handle uint64, token uint64) int32
	streamSCKStreamDestroy func(handle uint64)

	// One-shot operations
	streamSCKCaptureImage     func(filterKind int32, displayID, windowID uint64, excludedPIDs uintptr, excludedCount int32, width, height int32, pixelFormat uint32, token uint64) int32
	streamSCKPickerPresent    func(token uint64) int32
	streamSCKShareableContent func(token uint64) int32

	// Shareable-content handle getters (used while resolving a content query)
	streamSCKContentRelease       func(h uintptr)
	streamSCKContentDisplayCount  func(h uintptr) int32
	streamSCKContentDisplayID     func(h uintptr, i int32) uint64
	streamSCKContentDisplayWidth  func(h uintptr, i int32) int32
	streamSCKContentDisplayHeight func(h uintptr, i int32) int32
	streamSCKContentWindowCount   func(h uintptr) int32
	streamSCKContentWindowID      func(h uintptr, i int32) uint64
	streamSCKContentWindowTitle   func(h uintptr, i int32) uintptr
	streamSCKContentWindowPID     func(h uintptr, i int32) int32
	streamSCKContentAppCount      func(h uintptr) int32
	streamSCKContentAppPID        func(h uintptr, i int32) int32
	streamSCKContentAppBundleID   func(h uintptr, i int32) uintptr
	streamSCKContentAppName       func(h uintptr, i int32) uintptr

	streamSCKFreeString func(ptr uintptr)
	streamSCKGetError   func() uintptr
)

// shimError extracts the shim's last error message as a ForeignError.
func shimError() error {
	msg := ""
	if streamSCKGetError != nil {
		if ptr := streamSCKGetError(); ptr != 0 {
			msg = goStringFromPtr(ptr)
		}
	}
	return foreignFailure(msg)
}
