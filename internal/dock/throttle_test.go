package dock

import (
	"testing"
	"time"

	"github.com/1broseidon/mirrordock/internal/platform"
)

func newTestThrottler(f *fakeNative, skipUnchanged bool) (*Throttler, *fakeClock) {
	clock := newFakeClock()
	th := NewThrottler(f, DefaultSyncInterval, skipUnchanged, discardLogger())
	th.now = clock.Now
	return th, clock
}

func testHandles(f *fakeNative) Handles {
	container := f.addWindow("container")
	f.mu.Lock()
	f.windows[container].rect = platform.Rect{X: 100, Y: 50, Width: 800, Height: 900}
	f.mu.Unlock()
	return Handles{
		Primary:   f.addWindow("top"),
		Secondary: f.addWindow("bottom"),
		Container: container,
	}
}

var testLayout = Layout{
	Primary:   platform.Rect{X: 0, Y: 0, Width: 640, Height: 360},
	Secondary: platform.Rect{X: 100, Y: 360, Width: 440, Height: 330},
}

func TestSync_ThrottlesCallsWithinInterval(t *testing.T) {
	f := newFakeNative()
	th, clock := newTestThrottler(f, false)
	h := testHandles(f)

	th.Sync(h, testLayout, Docked)
	clock.Advance(5 * time.Millisecond)
	th.Sync(h, testLayout, Docked)

	if got := f.moveCount(); got != 2 {
		t.Fatalf("expected one move per surface, got %d moves", got)
	}

	clock.Advance(DefaultSyncInterval)
	th.Sync(h, testLayout, Docked)
	if got := f.moveCount(); got != 4 {
		t.Fatalf("expected sync after interval to move again, got %d moves", got)
	}
}

func TestSync_DockedNeverQueriesContainer(t *testing.T) {
	f := newFakeNative()
	th, clock := newTestThrottler(f, false)
	h := testHandles(f)

	for i := 0; i < 5; i++ {
		th.Sync(h, testLayout, Docked)
		clock.Advance(DefaultSyncInterval)
	}

	if got := f.rectCount(); got != 0 {
		t.Fatalf("expected no container rect queries while docked, got %d", got)
	}
	top, _ := f.window(h.Primary)
	if top.rect != testLayout.Primary {
		t.Fatalf("expected child-relative placement %+v, got %+v", testLayout.Primary, top.rect)
	}
}

func TestSync_UndockedAlwaysQueriesContainerAndOffsets(t *testing.T) {
	f := newFakeNative()
	th, clock := newTestThrottler(f, false)
	h := testHandles(f)

	for i := 1; i <= 3; i++ {
		th.Sync(h, testLayout, Undocked)
		clock.Advance(DefaultSyncInterval)
		if got := f.rectCount(); got != i {
			t.Fatalf("sync %d: expected %d container rect queries, got %d", i, i, got)
		}
	}

	top, _ := f.window(h.Primary)
	bottom, _ := f.window(h.Secondary)
	if want := testLayout.Primary.Offset(100, 50); top.rect != want {
		t.Fatalf("primary: expected %+v, got %+v", want, top.rect)
	}
	if want := testLayout.Secondary.Offset(100, 50); bottom.rect != want {
		t.Fatalf("secondary: expected %+v, got %+v", want, bottom.rect)
	}
}

func TestSync_UndockedSkipsWhenContainerRectUnavailable(t *testing.T) {
	f := newFakeNative()
	th, _ := newTestThrottler(f, false)
	h := testHandles(f)
	f.failRect = true

	th.Sync(h, testLayout, Undocked)

	if got := f.moveCount(); got != 0 {
		t.Fatalf("expected no moves without a container rect, got %d", got)
	}
}

func TestSync_MissingSurfaceIsNoop(t *testing.T) {
	tests := []struct {
		name  string
		clear func(*Handles)
	}{
		{"no primary", func(h *Handles) { h.Primary = 0 }},
		{"no secondary", func(h *Handles) { h.Secondary = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeNative()
			th, _ := newTestThrottler(f, false)
			h := testHandles(f)
			tt.clear(&h)

			th.Sync(h, testLayout, Docked)
			th.Sync(h, testLayout, Undocked)

			if got := f.moveCount(); got != 0 {
				t.Fatalf("expected no moves, got %d", got)
			}
		})
	}
}

func TestSync_ForceBypassAlwaysMoves(t *testing.T) {
	f := newFakeNative()
	th, _ := newTestThrottler(f, false)
	h := testHandles(f)

	th.Sync(h, testLayout, Docked)
	for i := 0; i < 3; i++ {
		before := f.moveCount()
		th.ForceBypass()
		th.Sync(h, testLayout, Docked)
		if got := f.moveCount() - before; got != 2 {
			t.Fatalf("bypass %d: expected 2 moves, got %d", i, got)
		}
	}

	// The bypass is one-shot.
	before := f.moveCount()
	th.Sync(h, testLayout, Docked)
	if got := f.moveCount() - before; got != 0 {
		t.Fatalf("expected throttled sync after bypass was used, got %d moves", got)
	}
}

func TestSync_BypassSurvivesSkippedSync(t *testing.T) {
	tests := []struct {
		name    string
		skip    func(f *fakeNative, h *Handles)
		restore func(f *fakeNative, h *Handles, orig Handles)
	}{
		{
			"container rect unavailable",
			func(f *fakeNative, h *Handles) { f.failRect = true },
			func(f *fakeNative, h *Handles, orig Handles) { f.failRect = false },
		},
		{
			"no container",
			func(f *fakeNative, h *Handles) { h.Container = 0 },
			func(f *fakeNative, h *Handles, orig Handles) { h.Container = orig.Container },
		},
		{
			"surface missing",
			func(f *fakeNative, h *Handles) { h.Secondary = 0 },
			func(f *fakeNative, h *Handles, orig Handles) { h.Secondary = orig.Secondary },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeNative()
			th, clock := newTestThrottler(f, false)
			h := testHandles(f)
			orig := h

			th.Sync(h, testLayout, Undocked)
			before := f.moveCount()

			th.ForceBypass()
			tt.skip(f, &h)
			th.Sync(h, testLayout, Undocked)
			if got := f.moveCount() - before; got != 0 {
				t.Fatalf("expected skipped sync to move nothing, got %d", got)
			}

			tt.restore(f, &h, orig)
			clock.Advance(2 * time.Millisecond)
			th.Sync(h, testLayout, Undocked)
			if got := f.moveCount() - before; got != 2 {
				t.Fatalf("expected the pending bypass to move both surfaces, got %d", got)
			}
		})
	}
}

func TestSync_MoveFailureDoesNotAbortFrame(t *testing.T) {
	f := newFakeNative()
	th, _ := newTestThrottler(f, false)
	h := testHandles(f)
	f.failMove[h.Primary] = true

	th.Sync(h, testLayout, Docked)

	bottom, _ := f.window(h.Secondary)
	if bottom.rect != testLayout.Secondary {
		t.Fatalf("expected secondary placed despite primary failure, got %+v", bottom.rect)
	}
}

func TestSync_SkipUnchanged(t *testing.T) {
	f := newFakeNative()
	th, clock := newTestThrottler(f, true)
	h := testHandles(f)

	th.Sync(h, testLayout, Docked)
	clock.Advance(DefaultSyncInterval)
	th.Sync(h, testLayout, Docked)
	if got := f.moveCount(); got != 2 {
		t.Fatalf("expected unchanged layout to be skipped, got %d moves", got)
	}

	clock.Advance(DefaultSyncInterval)
	th.ForceBypass()
	th.Sync(h, testLayout, Docked)
	if got := f.moveCount(); got != 4 {
		t.Fatalf("expected bypass to move even when unchanged, got %d moves", got)
	}

	clock.Advance(DefaultSyncInterval)
	moved := testLayout
	moved.Primary.X += 10
	th.Sync(h, moved, Docked)
	if got := f.moveCount(); got != 6 {
		t.Fatalf("expected changed layout to move, got %d moves", got)
	}
}
