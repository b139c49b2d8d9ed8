package capture

import "unsafe"

// LockFlags select the access mode for a buffer lock.
type LockFlags uint32

const (
	LockReadWrite LockFlags = 0 // native default is writable
	LockReadOnly  LockFlags = 1
)

// LockGuard is scoped access to a locked buffer's pixel memory. The guard
// must be released with Unlock exactly once, normally via defer, so the
// matching native unlock is issued on every exit path. The byte view is
// valid only until Unlock.
//
// bytesPerRow (stride) may exceed width*bytesPerPixel; row-major addressing
// must always use the stride, never the width.
type LockGuard struct {
	data          []byte
	width         int
	height        int
	bytesPerRow   int
	bytesPerPixel int
	unlock        func()
	released      bool
}

// newLockGuard builds a guard over base, a native pointer to
// bytesPerRow*height bytes that stays valid until unlock is called.
func newLockGuard(base uintptr, width, height, bytesPerRow, bytesPerPixel int, unlock func()) *LockGuard {
	var data []byte
	if base != 0 && bytesPerRow > 0 && height > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(base)), bytesPerRow*height)
	}
	return &LockGuard{
		data:          data,
		width:         width,
		height:        height,
		bytesPerRow:   bytesPerRow,
		bytesPerPixel: bytesPerPixel,
		unlock:        unlock,
	}
}

// Unlock issues the matching native unlock. Safe to call more than once;
// only the first call unlocks.
func (g *LockGuard) Unlock() {
	if g.released {
		return
	}
	g.released = true
	if g.unlock != nil {
		g.unlock()
	}
}

// Width returns the locked buffer's width in pixels.
func (g *LockGuard) Width() int { return g.width }

// Height returns the locked buffer's height in pixels.
func (g *LockGuard) Height() int { return g.height }

// BytesPerRow returns the row stride in bytes.
func (g *LockGuard) BytesPerRow() int { return g.bytesPerRow }

// BytesPerPixel returns the size of one packed pixel in bytes.
func (g *LockGuard) BytesPerPixel() int { return g.bytesPerPixel }

// Bytes returns the flat byte view of bytesPerRow*height bytes. The slice
// aliases native memory and must not be retained past Unlock.
func (g *LockGuard) Bytes() []byte { return g.data }

// ReadAt returns n bytes starting at offset, bounds-checked against the
// guard's own reported extent.
func (g *LockGuard) ReadAt(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(g.data) {
		return nil, wrapErr("guard read", ErrOutOfBounds)
	}
	return g.data[offset : offset+n], nil
}

// PixelCursor walks a locked buffer pixel by pixel. Offsets are computed
// from the guard's stride, and every access is checked against the guard's
// reported dimensions rather than caller-supplied ones.
type PixelCursor struct {
	guard  *LockGuard
	offset int
}

// Pixels returns a cursor positioned at the guard's first pixel.
func (g *LockGuard) Pixels() *PixelCursor {
	return &PixelCursor{guard: g}
}

// Seek positions the cursor at pixel (x, y).
func (c *PixelCursor) Seek(x, y int) error {
	g := c.guard
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return wrapErr("cursor seek", ErrOutOfBounds)
	}
	c.offset = y*g.bytesPerRow + x*g.bytesPerPixel
	return nil
}

// Next returns the bytes of the pixel under the cursor and advances by one
// pixel. Fails with ErrOutOfBounds once the cursor passes the guard's
// extent.
func (c *PixelCursor) Next() ([]byte, error) {
	g := c.guard
	px, err := g.ReadAt(c.offset, g.bytesPerPixel)
	if err != nil {
		return nil, err
	}
	c.offset += g.bytesPerPixel
	return px, nil
}
