package capture

// DisplayInfo describes a capturable display.
type DisplayInfo struct {
	DisplayID uint64 // Native display identifier
	Width     int    // Display width in pixels
	Height    int    // Display height in pixels
}

// WindowInfo describes a capturable window.
type WindowInfo struct {
	WindowID uint64 // Native window identifier
	Title    string // Window title (may be empty)
	PID      int    // Owning process
}

// AppInfo describes a running application visible to the capture framework.
type AppInfo struct {
	PID      int
	BundleID string
	Name     string
}

// SharedContent is the result of a shareable-content query.
type SharedContent struct {
	Displays []DisplayInfo
	Windows  []WindowInfo
	Apps     []AppInfo
}

// FilterKind selects what a ContentFilter targets.
type FilterKind int

const (
	FilterDisplay              FilterKind = iota // A whole display
	FilterWindow                                 // A single window
	FilterDisplayExcludingApps                   // A display minus selected applications
)

// ContentFilter describes the capture target. It is plain data handed
// through to the native framework; the core attaches no behavior to it.
type ContentFilter struct {
	Kind      FilterKind
	DisplayID uint64 // For FilterDisplay and FilterDisplayExcludingApps
	WindowID  uint64 // For FilterWindow

	// ExcludedPIDs lists applications whose windows are removed from the
	// capture for FilterDisplayExcludingApps.
	ExcludedPIDs []int32
}

// DisplayFilter targets a whole display.
func DisplayFilter(displayID uint64) ContentFilter {
	return ContentFilter{Kind: FilterDisplay, DisplayID: displayID}
}

// WindowFilter targets a single window.
func WindowFilter(windowID uint64) ContentFilter {
	return ContentFilter{Kind: FilterWindow, WindowID: windowID}
}

// DisplayFilterExcludingApps targets a whole display with the given
// applications' windows removed.
func DisplayFilterExcludingApps(displayID uint64, excludedPIDs []int32) ContentFilter {
	return ContentFilter{
		Kind:         FilterDisplayExcludingApps,
		DisplayID:    displayID,
		ExcludedPIDs: excludedPIDs,
	}
}

// StreamConfig describes the desired capture output. Zero fields take the
// framework's defaults at stream creation.
type StreamConfig struct {
	Width       int         // Output width (0 = source size)
	Height      int         // Output height (0 = source size)
	FPS         int         // Maximum frame rate (0 = framework default)
	PixelFormat PixelFormat // Delivery format (0 = BGRA32)
	QueueDepth  int         // Buffered frames in flight (0 = framework default)
	ShowsCursor bool        // Include the cursor in captured frames

	// Audio capture
	CapturesAudio bool
	SampleRate    int // 0 = 48000
	ChannelCount  int // 0 = 2
}

// withDefaults fills zero fields with the delivery defaults.
func (c StreamConfig) withDefaults() StreamConfig {
	if c.PixelFormat == PixelFormatUnknown {
		c.PixelFormat = PixelFormatBGRA32
	}
	if c.SampleRate == 0 {
		c.SampleRate = 48000
	}
	if c.ChannelCount == 0 {
		c.ChannelCount = 2
	}
	return c
}
