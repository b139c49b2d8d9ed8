package capture

import (
	"errors"
	"testing"
	"unsafe"
)

func TestDeliverVideoWithoutHandlerReleases(t *testing.T) {
	releases := 0
	swapFn(t, &streamSCKSampleRelease, func(uintptr) { releases++ })

	s := &Stream{}
	s.deliverVideo(wrapSampleBuffer(0x100))
	if releases != 1 {
		t.Errorf("released %d times, want 1", releases)
	}
}

func TestDeliverVideoHandlerOwnsBuffer(t *testing.T) {
	releases := 0
	swapFn(t, &streamSCKSampleRelease, func(uintptr) { releases++ })

	s := &Stream{}
	var got *SampleBuffer
	s.SetFrameHandler(func(sb *SampleBuffer) { got = sb })

	s.deliverVideo(wrapSampleBuffer(0x101))
	if got == nil {
		t.Fatal("handler not invoked")
	}
	if releases != 0 {
		t.Fatal("buffer released while the handler still owns it")
	}
	got.Close()
	if releases != 1 {
		t.Errorf("released %d times after handler close, want 1", releases)
	}
}

func TestDeliverAudioInlineAndRing(t *testing.T) {
	s := &Stream{}
	ring := NewAudioRing(64)
	s.SetAudioRing(ring)

	var inlineFrames int
	s.SetAudioHandler(func(c *AudioChunk) {
		inlineFrames = c.Frames()
		if c.Channels() != 2 {
			t.Errorf("channels = %d", c.Channels())
		}
		if c.SampleRate() != 48000 {
			t.Errorf("sample rate = %d", c.SampleRate())
		}
	})

	chunk := &AudioChunk{
		planes:     [][]float32{{1, 3, 5}, {2, 4, 6}},
		sampleRate: 48000,
	}
	s.deliverAudio(chunk)

	if inlineFrames != 3 {
		t.Errorf("inline frames = %d, want 3", inlineFrames)
	}

	out := make([]float32, 6)
	if n := ring.Read(out); n != 6 {
		t.Fatalf("ring read = %d, want 6", n)
	}
	want := []float32{1, 2, 3, 4, 5, 6} // interleaved L R L R L R
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestDeliverAudioEmptyChunk(t *testing.T) {
	s := &Stream{}
	s.SetAudioHandler(func(*AudioChunk) { t.Error("handler must not run for empty deliveries") })
	s.deliverAudio(nil)
	s.deliverAudio(&AudioChunk{})
}

func TestNewStreamNotAvailable(t *testing.T) {
	swapFn(t, &streamSCKStreamCreate, nil)
	if _, err := NewStream(DisplayFilter(1), StreamConfig{}); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("err = %v, want ErrNotAvailable", err)
	}
}

func TestStreamStartStopResolved(t *testing.T) {
	var startToken, stopToken uint64
	swapFn(t, &streamSCKStreamCreate, func(filterKind int32, displayID, windowID uint64, excludedPIDs uintptr, excludedCount int32, width, height, fps int32, pixelFormat uint32, showsCursor, capturesAudio, sampleRate, channelCount, queueDepth int32, userData uintptr) uint64 {
		if filterKind != int32(FilterDisplay) || displayID != 7 {
			t.Errorf("filter (%d, %d)", filterKind, displayID)
		}
		if pixelFormat != fourCCBGRA {
			t.Errorf("pixel format %#x", pixelFormat)
		}
		if sampleRate != 48000 || channelCount != 2 {
			t.Errorf("audio defaults (%d, %d)", sampleRate, channelCount)
		}
		return 42
	})
	swapFn(t, &streamSCKStreamStart, func(handle, token uint64) int32 {
		if handle != 42 {
			t.Errorf("start handle = %d", handle)
		}
		startToken = token
		return 0
	})
	swapFn(t, &streamSCKStreamStop, func(handle, token uint64) int32 {
		stopToken = token
		return 0
	})
	swapFn(t, &streamSCKStreamDestroy, func(uint64) {})

	s, err := NewStream(DisplayFilter(7), StreamConfig{})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer s.Close()

	w := s.Start()
	if s.State() != StreamStateIdle {
		t.Errorf("state before confirmation = %v", s.State())
	}
	// The native completion callback fires on its own thread.
	go ResolveOK(CompletionToken(startToken), struct{}{})
	if _, err := w.Wait(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StreamStateRunning {
		t.Errorf("state after confirmation = %v", s.State())
	}

	sw := s.Stop()
	go ResolveOK(CompletionToken(stopToken), struct{}{})
	if _, err := sw.Wait(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.State() != StreamStateStopped {
		t.Errorf("state = %v", s.State())
	}
}

func TestStreamStartRefused(t *testing.T) {
	swapFn(t, &streamSCKStreamCreate, func(int32, uint64, uint64, uintptr, int32, int32, int32, int32, uint32, int32, int32, int32, int32, int32, uintptr) uint64 {
		return 9
	})
	swapFn(t, &streamSCKStreamStart, func(uint64, uint64) int32 { return -1 })
	swapFn(t, &streamSCKStreamDestroy, func(uint64) {})

	s, err := NewStream(WindowFilter(3), StreamConfig{})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer s.Close()

	before := pendingCompletions()
	_, err = s.Start().Wait()
	var fe *ForeignError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want ForeignError", err)
	}
	if pendingCompletions() != before {
		t.Error("refused start leaked its completion token")
	}
	if s.State() == StreamStateRunning {
		t.Error("refused start must not report a running stream")
	}
}

func TestStreamStartRejectedByFramework(t *testing.T) {
	swapFn(t, &streamSCKStreamCreate, func(int32, uint64, uint64, uintptr, int32, int32, int32, int32, uint32, int32, int32, int32, int32, int32, uintptr) uint64 {
		return 15
	})
	var token uint64
	swapFn(t, &streamSCKStreamStart, func(_, tok uint64) int32 {
		token = tok
		return 0
	})
	swapFn(t, &streamSCKStreamDestroy, func(uint64) {})

	s, err := NewStream(DisplayFilter(1), StreamConfig{})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer s.Close()

	// The framework accepts the request, then refuses it asynchronously.
	w := s.Start()
	go ResolveErr[struct{}](CompletionToken(token), foreignFailure("capture denied"))
	if _, err := w.Wait(); err == nil {
		t.Fatal("expected the refusal to surface")
	}
	if s.State() != StreamStateIdle {
		t.Errorf("state = %v, want idle after a refused start", s.State())
	}
}

func TestStreamStartAsync(t *testing.T) {
	swapFn(t, &streamSCKStreamCreate, func(int32, uint64, uint64, uintptr, int32, int32, int32, int32, uint32, int32, int32, int32, int32, int32, uintptr) uint64 {
		return 11
	})
	var token uint64
	swapFn(t, &streamSCKStreamStart, func(_, tok uint64) int32 {
		token = tok
		return 0
	})
	swapFn(t, &streamSCKStreamDestroy, func(uint64) {})

	s, err := NewStream(DisplayFilter(1), StreamConfig{})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer s.Close()

	w := s.StartAsync()
	woken := make(chan struct{})
	if _, ready, _ := w.Poll(func() { close(woken) }); ready {
		t.Fatal("resolved before the native side confirmed")
	}
	ResolveOK(CompletionToken(token), struct{}{})
	<-woken
	if _, ready, err := w.Poll(nil); !ready || err != nil {
		t.Fatalf("poll after wake: ready=%v err=%v", ready, err)
	}
}

func TestStreamCloseDropsRouting(t *testing.T) {
	swapFn(t, &streamSCKStreamCreate, func(int32, uint64, uint64, uintptr, int32, int32, int32, int32, uint32, int32, int32, int32, int32, int32, uintptr) uint64 {
		return 13
	})
	destroyed := 0
	swapFn(t, &streamSCKStreamDestroy, func(uint64) { destroyed++ })

	s, err := NewStream(DisplayFilter(1), StreamConfig{})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if lookupStream(s.id) != s {
		t.Fatal("stream not routed")
	}
	s.Close()
	if destroyed != 1 {
		t.Errorf("destroyed %d times, want 1", destroyed)
	}
	if lookupStream(s.id) != nil {
		t.Error("closed stream still routed")
	}
}

func TestNewStreamExcludedApps(t *testing.T) {
	var gotKind, gotCount int32
	var gotPtr uintptr
	swapFn(t, &streamSCKStreamCreate, func(filterKind int32, displayID, windowID uint64, excludedPIDs uintptr, excludedCount int32, width, height, fps int32, pixelFormat uint32, showsCursor, capturesAudio, sampleRate, channelCount, queueDepth int32, userData uintptr) uint64 {
		gotKind = filterKind
		gotPtr = excludedPIDs
		gotCount = excludedCount
		if queueDepth != 5 {
			t.Errorf("queue depth = %d, want 5", queueDepth)
		}
		return 21
	})
	swapFn(t, &streamSCKStreamDestroy, func(uint64) {})

	pids := []int32{100, 200, 300}
	s, err := NewStream(DisplayFilterExcludingApps(1, pids), StreamConfig{QueueDepth: 5})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	defer s.Close()

	if gotKind != int32(FilterDisplayExcludingApps) {
		t.Errorf("filter kind = %d", gotKind)
	}
	if gotCount != 3 {
		t.Fatalf("excluded count = %d, want 3", gotCount)
	}
	seen := unsafe.Slice((*int32)(unsafe.Pointer(gotPtr)), int(gotCount))
	for i, pid := range pids {
		if seen[i] != pid {
			t.Errorf("excluded[%d] = %d, want %d", i, seen[i], pid)
		}
	}
}

func TestCaptureImageResolved(t *testing.T) {
	var token uint64
	swapFn(t, &streamSCKCaptureImage, func(filterKind int32, displayID, windowID uint64, excludedPIDs uintptr, excludedCount int32, width, height int32, pixelFormat uint32, tok uint64) int32 {
		token = tok
		return 0
	})
	releases := 0
	swapFn(t, &streamSCKSampleRelease, func(uintptr) { releases++ })

	w := CaptureImage(DisplayFilter(1), StreamConfig{})
	go resolveCapturedImage(CompletionToken(token), 0x200, "")
	sb, err := w.Wait()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if sb == nil {
		t.Fatal("expected sample buffer")
	}
	sb.Close()
	if releases != 1 {
		t.Errorf("released %d times, want 1", releases)
	}
}

func TestCaptureImageUnclaimedBufferReleased(t *testing.T) {
	releases := 0
	swapFn(t, &streamSCKSampleRelease, func(uintptr) { releases++ })

	// No waiter is registered under this token (already consumed, or never
	// issued): the retained screenshot handle must still be released.
	resolveCapturedImage(CompletionToken(0xdead), 0x400, "")
	if releases != 1 {
		t.Errorf("released %d times, want 1", releases)
	}
}

func TestCaptureImageNotAvailable(t *testing.T) {
	swapFn(t, &streamSCKCaptureImage, nil)
	if _, err := CaptureImage(DisplayFilter(1), StreamConfig{}).Wait(); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("err = %v, want ErrNotAvailable", err)
	}
}

func TestShareableContentNotAvailable(t *testing.T) {
	swapFn(t, &streamSCKShareableContent, nil)
	if _, err := ShareableContent().Wait(); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("err = %v, want ErrNotAvailable", err)
	}
}

func TestPresentPickerNotAvailable(t *testing.T) {
	swapFn(t, &streamSCKPickerPresent, nil)
	if _, err := PresentPicker().Wait(); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("err = %v, want ErrNotAvailable", err)
	}
}
