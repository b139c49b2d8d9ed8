// Core frame and sample value types used across the capture package.
package capture

// PixelFormat represents the pixel formats the capture framework delivers.
type PixelFormat int

const (
	PixelFormatUnknown PixelFormat = iota
	PixelFormatBGRA32              // Packed BGRA, 4 bytes per pixel (default delivery format)
	PixelFormatRGBA32              // Packed RGBA, 4 bytes per pixel
	PixelFormatNV12                // YUV 4:2:0 semi-planar (Y + interleaved UV)
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatBGRA32:
		return "BGRA32"
	case PixelFormatRGBA32:
		return "RGBA32"
	case PixelFormatNV12:
		return "NV12"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the packed pixel size, or 0 for planar formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatBGRA32, PixelFormatRGBA32:
		return 4
	default:
		return 0
	}
}

// FourCC codes used on the wire with the shim.
const (
	fourCCBGRA uint32 = 'B'<<24 | 'G'<<16 | 'R'<<8 | 'A'
	fourCCRGBA uint32 = 'R'<<24 | 'G'<<16 | 'B'<<8 | 'A'
	fourCC420V uint32 = '4'<<24 | '2'<<16 | '0'<<8 | 'v'
)

func pixelFormatFromFourCC(cc uint32) PixelFormat {
	switch cc {
	case fourCCBGRA:
		return PixelFormatBGRA32
	case fourCCRGBA:
		return PixelFormatRGBA32
	case fourCC420V:
		return PixelFormatNV12
	default:
		return PixelFormatUnknown
	}
}

func (p PixelFormat) fourCC() uint32 {
	switch p {
	case PixelFormatBGRA32:
		return fourCCBGRA
	case PixelFormatRGBA32:
		return fourCCRGBA
	case PixelFormatNV12:
		return fourCC420V
	default:
		return 0
	}
}

// VideoFrame is a CPU-side copy of one delivered frame. Unlike a LockGuard
// view, the Data slice is Go memory owned by the frame and remains valid
// after the originating sample buffer is Closed.
type VideoFrame struct {
	Data      []byte      // Packed pixel data, tightly rowed (stride == width*bpp)
	Width     int         // Frame width in pixels
	Height    int         // Frame height in pixels
	Format    PixelFormat // Pixel format
	Timestamp int64       // Presentation timestamp in nanoseconds
}

// CopyFrame copies the pixels under a locked guard into a VideoFrame,
// row by row using the guard's stride, dropping any row padding.
func CopyFrame(g *LockGuard, format PixelFormat, timestamp int64) *VideoFrame {
	bpp := g.BytesPerPixel()
	if bpp == 0 {
		bpp = format.BytesPerPixel()
	}
	rowBytes := g.Width() * bpp
	frame := &VideoFrame{
		Data:      make([]byte, rowBytes*g.Height()),
		Width:     g.Width(),
		Height:    g.Height(),
		Format:    format,
		Timestamp: timestamp,
	}
	src := g.Bytes()
	for y := 0; y < g.Height(); y++ {
		copy(frame.Data[y*rowBytes:(y+1)*rowBytes], src[y*g.BytesPerRow():y*g.BytesPerRow()+rowBytes])
	}
	return frame
}

// Clone creates a deep copy of the video frame.
func (f *VideoFrame) Clone() *VideoFrame {
	clone := *f
	if f.Data != nil {
		clone.Data = make([]byte, len(f.Data))
		copy(clone.Data, f.Data)
	}
	return &clone
}

// AudioSamples is a CPU-side copy of captured audio, interleaved float32.
type AudioSamples struct {
	Data       []float32 // Interleaved samples
	SampleRate int       // Sample rate (e.g., 48000)
	Channels   int       // Number of channels (1 = mono, 2 = stereo)
	Timestamp  int64     // Presentation timestamp in nanoseconds
}

// SampleCount returns the number of samples per channel.
func (s *AudioSamples) SampleCount() int {
	if s.Channels == 0 {
		return 0
	}
	return len(s.Data) / s.Channels
}

// Clone creates a deep copy of the audio samples.
func (s *AudioSamples) Clone() *AudioSamples {
	clone := *s
	if s.Data != nil {
		clone.Data = make([]float32, len(s.Data))
		copy(clone.Data, s.Data)
	}
	return &clone
}
