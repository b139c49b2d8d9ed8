package capture

import (
	"errors"
	"testing"
	"unsafe"
)

// testGuard builds a guard over Go-owned memory with the given geometry.
// The backing slice must outlive the guard.
func testGuard(backing []byte, width, height, stride, bpp int, unlock func()) *LockGuard {
	return newLockGuard(uintptr(unsafe.Pointer(&backing[0])), width, height, stride, bpp, unlock)
}

func TestLockGuardGeometry(t *testing.T) {
	// Stride wider than width*bpp, as the native side commonly reports.
	const width, height, stride, bpp = 3, 2, 16, 4
	backing := make([]byte, stride*height)
	g := testGuard(backing, width, height, stride, bpp, nil)

	if g.Width() != width || g.Height() != height {
		t.Errorf("geometry = %dx%d", g.Width(), g.Height())
	}
	if g.BytesPerRow() != stride {
		t.Errorf("stride = %d, want %d", g.BytesPerRow(), stride)
	}
	if len(g.Bytes()) != stride*height {
		t.Errorf("len(Bytes()) = %d, want %d", len(g.Bytes()), stride*height)
	}
}

func TestLockGuardReadAtBounds(t *testing.T) {
	const width, height, stride, bpp = 4, 3, 20, 4
	backing := make([]byte, stride*height)
	for i := range backing {
		backing[i] = byte(i)
	}
	g := testGuard(backing, width, height, stride, bpp, nil)

	b, err := g.ReadAt(0, 4)
	if err != nil {
		t.Fatalf("ReadAt(0, 4): %v", err)
	}
	if b[0] != 0 || b[3] != 3 {
		t.Errorf("unexpected bytes %v", b)
	}

	// The last valid byte.
	if _, err := g.ReadAt(stride*height-1, 1); err != nil {
		t.Errorf("read of last byte failed: %v", err)
	}
	// Reading at the reported extent or beyond is out of bounds.
	if _, err := g.ReadAt(stride*height, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("read at extent = %v, want ErrOutOfBounds", err)
	}
	if _, err := g.ReadAt(-1, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("negative offset = %v, want ErrOutOfBounds", err)
	}
	if _, err := g.ReadAt(0, stride*height+1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("oversized read = %v, want ErrOutOfBounds", err)
	}
}

func TestLockGuardUnlockOnce(t *testing.T) {
	backing := make([]byte, 16)
	unlocks := 0
	g := testGuard(backing, 2, 2, 8, 4, func() { unlocks++ })

	g.Unlock()
	g.Unlock()
	if unlocks != 1 {
		t.Errorf("unlock ran %d times, want 1", unlocks)
	}
}

func TestLockGuardUnlockOnEveryExit(t *testing.T) {
	backing := make([]byte, 16)
	unlocks := 0

	// Early error return still unlocks via defer.
	err := func() error {
		g := testGuard(backing, 2, 2, 8, 4, func() { unlocks++ })
		defer g.Unlock()
		if _, err := g.ReadAt(100, 1); err != nil {
			return err
		}
		return nil
	}()
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("err = %v", err)
	}
	if unlocks != 1 {
		t.Errorf("unlock ran %d times, want 1", unlocks)
	}
}

func TestPixelCursor(t *testing.T) {
	const width, height, stride, bpp = 3, 3, 14, 4
	backing := make([]byte, stride*height)
	// Tag each pixel with its coordinates.
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := y*stride + x*bpp
			backing[off] = byte(x)
			backing[off+1] = byte(y)
		}
	}
	g := testGuard(backing, width, height, stride, bpp, nil)
	c := g.Pixels()

	if err := c.Seek(2, 1); err != nil {
		t.Fatalf("seek: %v", err)
	}
	px, err := c.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if px[0] != 2 || px[1] != 1 {
		t.Errorf("pixel = (%d, %d), want (2, 1)", px[0], px[1])
	}

	// Sequential read continues into the row padding region, still within
	// the guard's extent; bounds failures only past the full extent.
	if err := c.Seek(0, height-1); err != nil {
		t.Fatalf("seek last row: %v", err)
	}
	for x := 0; x < width; x++ {
		if _, err := c.Next(); err != nil {
			t.Fatalf("next at x=%d: %v", x, err)
		}
	}

	if err := c.Seek(width, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("seek past width = %v, want ErrOutOfBounds", err)
	}
	if err := c.Seek(0, height); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("seek past height = %v, want ErrOutOfBounds", err)
	}
	if err := c.Seek(-1, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("negative seek = %v, want ErrOutOfBounds", err)
	}
}
