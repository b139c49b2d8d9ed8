// Shared utilities for the purego-based shim bindings.

package capture

import "unsafe"

// goStringFromPtr converts a C string pointer to a Go string.
func goStringFromPtr(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	// Find string length
	p := unsafe.Pointer(ptr)
	var length int
	for {
		if *(*byte)(unsafe.Pointer(uintptr(p) + uintptr(length))) == 0 {
			break
		}
		length++
		if length > 1024 { // Safety limit
			break
		}
	}
	if length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), length))
}

// takeShimString reads a shim-owned C string and frees it.
func takeShimString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	s := goStringFromPtr(ptr)
	if streamSCKFreeString != nil {
		streamSCKFreeString(ptr)
	}
	return s
}
