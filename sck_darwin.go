//go:build darwin && !nodevices && !cgo

// libstream_sck bindings: a primitive-only C shim over the OS screen
// capture framework, loaded at runtime via purego.

package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	sckOnce    sync.Once
	sckHandle  uintptr
	sckInitErr error
	sckLoaded  bool
)

// Callback registration entry points exposed by the shim.
var (
	streamSCKSetSampleCallback     func(cb uintptr)
	streamSCKSetAudioCallback      func(cb uintptr)
	streamSCKSetCompletionCallback func(cb uintptr)
	streamSCKSetImageCallback      func(cb uintptr)
	streamSCKSetContentCallback    func(cb uintptr)
	streamSCKSetPickerCallback     func(cb uintptr)
)

func initSCK() {
	sckOnce.Do(func() {
		// Try to find the library
		libName := "libstream_sck.dylib"
		searchPaths := []string{
			os.Getenv("STREAM_SCK_LIB_PATH"),
			os.Getenv("STREAM_SDK_LIB_PATH"),
		}

		if exe, err := os.Executable(); err == nil {
			searchPaths = append(searchPaths, filepath.Dir(exe))
		}
		searchPaths = append(searchPaths,
			"build",
			"build/ffi",
			"../build",
			"../build/ffi",
			"../../build",
			"../../build/ffi",
			"/usr/local/lib",
		)

		var libPath string
		for _, p := range searchPaths {
			if p == "" {
				continue
			}
			candidate := filepath.Join(p, libName)
			if _, err := os.Stat(candidate); err == nil {
				libPath = candidate
				break
			}
		}

		if libPath == "" {
			sckInitErr = fmt.Errorf("libstream_sck.dylib not found")
			return
		}

		var err error
		sckHandle, err = purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			sckInitErr = fmt.Errorf("failed to load %s: %w", libPath, err)
			return
		}

		// Load function pointers
		purego.RegisterLibFunc(&streamSCKSampleRetain, sckHandle, "stream_sck_sample_retain")
		purego.RegisterLibFunc(&streamSCKSampleRelease, sckHandle, "stream_sck_sample_release")
		purego.RegisterLibFunc(&streamSCKSampleImageBuffer, sckHandle, "stream_sck_sample_image_buffer")
		purego.RegisterLibFunc(&streamSCKSampleBlockBuffer, sckHandle, "stream_sck_sample_block_buffer")
		purego.RegisterLibFunc(&streamSCKSamplePTS, sckHandle, "stream_sck_sample_pts")

		purego.RegisterLibFunc(&streamSCKImageRelease, sckHandle, "stream_sck_image_release")
		purego.RegisterLibFunc(&streamSCKImageLock, sckHandle, "stream_sck_image_lock")
		purego.RegisterLibFunc(&streamSCKImageUnlock, sckHandle, "stream_sck_image_unlock")
		purego.RegisterLibFunc(&streamSCKImageBaseAddress, sckHandle, "stream_sck_image_base_address")
		purego.RegisterLibFunc(&streamSCKImageWidth, sckHandle, "stream_sck_image_width")
		purego.RegisterLibFunc(&streamSCKImageHeight, sckHandle, "stream_sck_image_height")
		purego.RegisterLibFunc(&streamSCKImageBytesPerRow, sckHandle, "stream_sck_image_bytes_per_row")
		purego.RegisterLibFunc(&streamSCKImagePixelFormat, sckHandle, "stream_sck_image_pixel_format")
		purego.RegisterLibFunc(&streamSCKImageSurface, sckHandle, "stream_sck_image_surface")

		purego.RegisterLibFunc(&streamSCKSurfaceRelease, sckHandle, "stream_sck_surface_release")
		purego.RegisterLibFunc(&streamSCKSurfaceLock, sckHandle, "stream_sck_surface_lock")
		purego.RegisterLibFunc(&streamSCKSurfaceUnlock, sckHandle, "stream_sck_surface_unlock")
		purego.RegisterLibFunc(&streamSCKSurfaceBaseAddress, sckHandle, "stream_sck_surface_base_address")
		purego.RegisterLibFunc(&streamSCKSurfaceWidth, sckHandle, "stream_sck_surface_width")
		purego.RegisterLibFunc(&streamSCKSurfaceHeight, sckHandle, "stream_sck_surface_height")
		purego.RegisterLibFunc(&streamSCKSurfaceBytesPerRow, sckHandle, "stream_sck_surface_bytes_per_row")
		purego.RegisterLibFunc(&streamSCKSurfaceInUse, sckHandle, "stream_sck_surface_in_use")

		purego.RegisterLibFunc(&streamSCKBlockRelease, sckHandle, "stream_sck_block_release")
		purego.RegisterLibFunc(&streamSCKBlockDataLength, sckHandle, "stream_sck_block_data_length")
		purego.RegisterLibFunc(&streamSCKBlockCopyBytes, sckHandle, "stream_sck_block_copy_bytes")

		purego.RegisterLibFunc(&streamSCKStreamCreate, sckHandle, "stream_sck_stream_create")
		purego.RegisterLibFunc(&streamSCKStreamStart, sckHandle, "stream_sck_stream_start")
		purego.RegisterLibFunc(&streamSCKStreamStop, sckHandle, "stream_sck_stream_stop")
		purego.RegisterLibFunc(&streamSCKStreamDestroy, sckHandle, "stream_sck_stream_destroy")

		purego.RegisterLibFunc(&streamSCKCaptureImage, sckHandle, "stream_sck_capture_image")
		purego.RegisterLibFunc(&streamSCKPickerPresent, sckHandle, "stream_sck_picker_present")
		purego.RegisterLibFunc(&streamSCKShareableContent, sckHandle, "stream_sck_shareable_content")

		purego.RegisterLibFunc(&streamSCKContentRelease, sckHandle, "stream_sck_content_release")
		purego.RegisterLibFunc(&streamSCKContentDisplayCount, sckHandle, "stream_sck_content_display_count")
		purego.RegisterLibFunc(&streamSCKContentDisplayID, sckHandle, "stream_sck_content_display_id")
		purego.RegisterLibFunc(&streamSCKContentDisplayWidth, sckHandle, "stream_sck_content_display_width")
		purego.RegisterLibFunc(&streamSCKContentDisplayHeight, sckHandle, "stream_sck_content_display_height")
		purego.RegisterLibFunc(&streamSCKContentWindowCount, sckHandle, "stream_sck_content_window_count")
		purego.RegisterLibFunc(&streamSCKContentWindowID, sckHandle, "stream_sck_content_window_id")
		purego.RegisterLibFunc(&streamSCKContentWindowTitle, sckHandle, "stream_sck_content_window_title")
		purego.RegisterLibFunc(&streamSCKContentWindowPID, sckHandle, "stream_sck_content_window_pid")
		purego.RegisterLibFunc(&streamSCKContentAppCount, sckHandle, "stream_sck_content_app_count")
		purego.RegisterLibFunc(&streamSCKContentAppPID, sckHandle, "stream_sck_content_app_pid")
		purego.RegisterLibFunc(&streamSCKContentAppBundleID, sckHandle, "stream_sck_content_app_bundle_id")
		purego.RegisterLibFunc(&streamSCKContentAppName, sckHandle, "stream_sck_content_app_name")

		purego.RegisterLibFunc(&streamSCKFreeString, sckHandle, "stream_sck_free_string")
		purego.RegisterLibFunc(&streamSCKGetError, sckHandle, "stream_sck_get_error")

		purego.RegisterLibFunc(&streamSCKSetSampleCallback, sckHandle, "stream_sck_set_sample_callback")
		purego.RegisterLibFunc(&streamSCKSetAudioCallback, sckHandle, "stream_sck_set_audio_callback")
		purego.RegisterLibFunc(&streamSCKSetCompletionCallback, sckHandle, "stream_sck_set_completion_callback")
		purego.RegisterLibFunc(&streamSCKSetImageCallback, sckHandle, "stream_sck_set_image_callback")
		purego.RegisterLibFunc(&streamSCKSetContentCallback, sckHandle, "stream_sck_set_content_callback")
		purego.RegisterLibFunc(&streamSCKSetPickerCallback, sckHandle, "stream_sck_set_picker_callback")

		streamSCKSetSampleCallback(purego.NewCallback(sckSampleHandler))
		streamSCKSetAudioCallback(purego.NewCallback(sckAudioHandler))
		streamSCKSetCompletionCallback(purego.NewCallback(sckCompletionHandler))
		streamSCKSetImageCallback(purego.NewCallback(sckImageHandler))
		streamSCKSetContentCallback(purego.NewCallback(sckContentHandler))
		streamSCKSetPickerCallback(purego.NewCallback(sckPickerHandler))

		sckLoaded = true
	})
}

// IsCaptureAvailable returns true if the native capture library is loaded.
func IsCaptureAvailable() bool {
	initSCK()
	return sckLoaded
}

// sckSampleHandler is invoked by the shim once per delivered video sample.
// The sample handle arrives already retained for us.
func sckSampleHandler(userData uintptr, kind int32, sample uintptr) {
	s := lookupStream(userData)
	if s == nil {
		// Stream closed while a delivery was in flight: release the
		// reference the shim retained on our behalf.
		if sample != 0 && streamSCKSampleRelease != nil {
			streamSCKSampleRelease(sample)
		}
		return
	}
	s.deliverVideo(wrapSampleBuffer(sample))
}

// sckAudioHandler is invoked by the shim once per audio delivery with
// direct pointers into the foreign sample memory. The views built here are
// valid only for the duration of this call.
func sckAudioHandler(userData uintptr, planes uintptr, planeCount, frames, sampleRate int32, ptsNs int64) {
	s := lookupStream(userData)
	if s == nil || planes == 0 || planeCount <= 0 || frames <= 0 {
		return
	}
	ptrs := unsafe.Slice((*uintptr)(unsafe.Pointer(planes)), int(planeCount))
	chunk := AudioChunk{
		planes:     make([][]float32, 0, planeCount),
		sampleRate: int(sampleRate),
		timestamp:  ptsNs,
	}
	for _, p := range ptrs {
		if p == 0 {
			continue
		}
		chunk.planes = append(chunk.planes, unsafe.Slice((*float32)(unsafe.Pointer(p)), int(frames)))
	}
	s.deliverAudio(&chunk)
}

// sckCompletionHandler resolves start/stop requests.
func sckCompletionHandler(token uint64, status int32, errMsg uintptr) {
	if status == 0 && errMsg == 0 {
		ResolveOK(CompletionToken(token), struct{}{})
		return
	}
	ResolveErr[struct{}](CompletionToken(token), foreignFailure(goStringFromPtr(errMsg)))
}

// sckImageHandler resolves single-frame capture requests with an owned
// sample buffer.
func sckImageHandler(token uint64, sample uintptr, errMsg uintptr) {
	resolveCapturedImage(CompletionToken(token), sample, goStringFromPtr(errMsg))
}

// sckContentHandler resolves shareable-content queries. The content handle
// is only valid inside this callback; everything is copied out.
func sckContentHandler(token uint64, content uintptr, errMsg uintptr) {
	if content == 0 {
		ResolveErr[*SharedContent](CompletionToken(token), foreignFailure(goStringFromPtr(errMsg)))
		return
	}
	defer streamSCKContentRelease(content)

	sc := &SharedContent{}
	for i := int32(0); i < streamSCKContentDisplayCount(content); i++ {
		sc.Displays = append(sc.Displays, DisplayInfo{
			DisplayID: streamSCKContentDisplayID(content, i),
			Width:     int(streamSCKContentDisplayWidth(content, i)),
			Height:    int(streamSCKContentDisplayHeight(content, i)),
		})
	}
	for i := int32(0); i < streamSCKContentWindowCount(content); i++ {
		sc.Windows = append(sc.Windows, WindowInfo{
			WindowID: streamSCKContentWindowID(content, i),
			Title:    takeShimString(streamSCKContentWindowTitle(content, i)),
			PID:      int(streamSCKContentWindowPID(content, i)),
		})
	}
	for i := int32(0); i < streamSCKContentAppCount(content); i++ {
		sc.Apps = append(sc.Apps, AppInfo{
			PID:      int(streamSCKContentAppPID(content, i)),
			BundleID: takeShimString(streamSCKContentAppBundleID(content, i)),
			Name:     takeShimString(streamSCKContentAppName(content, i)),
		})
	}
	ResolveOK(CompletionToken(token), sc)
}

// sckPickerHandler resolves picker requests with the user's selection.
func sckPickerHandler(token uint64, kind int32, displayID, windowID uint64, errMsg uintptr) {
	if errMsg != 0 {
		ResolveErr[ContentFilter](CompletionToken(token), foreignFailure(goStringFromPtr(errMsg)))
		return
	}
	ResolveOK(CompletionToken(token), ContentFilter{
		Kind:      FilterKind(kind),
		DisplayID: displayID,
		WindowID:  windowID,
	})
}

func init() {
	initSCK()
}
