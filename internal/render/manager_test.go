package render

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scribe/internal/pdfdoc"
)

// fakeSource serves fixed geometry and can hold PageText calls open
// until released, to exercise cancellation.
type fakeSource struct {
	mu      sync.Mutex
	block   map[int]chan struct{} // page -> gate for the next PageText call
	sizeErr map[int]error
	textErr map[int]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		block:   make(map[int]chan struct{}),
		sizeErr: make(map[int]error),
		textErr: make(map[int]error),
	}
}

func (f *fakeSource) PageSize(page int) (float64, float64, error) {
	f.mu.Lock()
	err := f.sizeErr[page]
	f.mu.Unlock()
	if err != nil {
		return 0, 0, err
	}
	return 612, 792, nil
}

func (f *fakeSource) PageText(ctx context.Context, page int) ([]pdfdoc.TextFragment, error) {
	f.mu.Lock()
	gate := f.block[page]
	delete(f.block, page)
	err := f.textErr[page]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-gate:
		}
	}
	if err != nil {
		return nil, err
	}
	return []pdfdoc.TextFragment{{Text: "hello", X: 10, Y: 20, Width: 50, Height: 12}}, nil
}

func (f *fakeSource) holdNext(page int) chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.block[page] = gate
	f.mu.Unlock()
	return gate
}

func waitFor(t *testing.T, ch <-chan Page) Page {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for render")
		return Page{}
	}
}

func TestRenderDeliversScaledPage(t *testing.T) {
	src := newFakeSource()
	done := make(chan Page, 4)
	m := NewManager(src, func(p Page) { done <- p })
	defer m.Shutdown()

	m.Request(1, 1.5)
	p := waitFor(t, done)
	require.NoError(t, p.Err)
	require.Equal(t, 1, p.Surface.PageNumber)
	require.Equal(t, 918, p.Surface.WidthPx)
	require.Equal(t, 1188, p.Surface.HeightPx)
	require.Len(t, p.Spans, 1)
	require.InDelta(t, 15.0, p.Spans[0].X, 0.01)
	require.InDelta(t, 75.0, p.Spans[0].Width, 0.01)

	got, ok := m.Rendered(1)
	require.True(t, ok)
	require.Equal(t, 1.5, got.Surface.Scale)
}

func TestNewRequestSupersedesInFlightRender(t *testing.T) {
	src := newFakeSource()
	done := make(chan Page, 4)
	m := NewManager(src, func(p Page) { done <- p })
	defer m.Shutdown()

	gate := src.holdNext(1)
	m.Request(1, 1.0)
	m.Request(1, 2.0)
	close(gate)

	p := waitFor(t, done)
	require.Equal(t, 2.0, p.Surface.Scale)

	// the superseded render must never arrive
	select {
	case extra := <-done:
		t.Fatalf("unexpected second delivery at scale %v", extra.Surface.Scale)
	case <-time.After(100 * time.Millisecond):
	}

	got, ok := m.Rendered(1)
	require.True(t, ok)
	require.Equal(t, 2.0, got.Surface.Scale)
}

func TestRepeatedZoomLandsOnFinalScale(t *testing.T) {
	src := newFakeSource()
	done := make(chan Page, 16)
	m := NewManager(src, func(p Page) { done <- p })
	defer m.Shutdown()

	for _, scale := range []float64{1.0, 1.25, 1.5, 1.75, 2.0} {
		m.Request(3, scale)
	}

	deadline := time.After(2 * time.Second)
	for {
		got, ok := m.Rendered(3)
		if ok && got.Surface.Scale == 2.0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("final scale never rendered")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFailureIsolatedToPage(t *testing.T) {
	src := newFakeSource()
	src.sizeErr[13] = errors.New("decode failed")
	done := make(chan Page, 4)
	m := NewManager(src, func(p Page) { done <- p })
	defer m.Shutdown()

	m.Request(13, 1.0)
	p := waitFor(t, done)
	require.Error(t, p.Err)

	m.Request(14, 1.0)
	p = waitFor(t, done)
	require.NoError(t, p.Err)
	require.Equal(t, 14, p.Surface.PageNumber)
}

func TestUnmountDropsResultAndCancelsWork(t *testing.T) {
	src := newFakeSource()
	done := make(chan Page, 4)
	m := NewManager(src, func(p Page) { done <- p })
	defer m.Shutdown()

	m.Request(2, 1.0)
	waitFor(t, done)
	m.Unmount(2)
	_, ok := m.Rendered(2)
	require.False(t, ok)

	gate := src.holdNext(5)
	m.Request(5, 1.0)
	m.Unmount(5)
	close(gate)
	select {
	case p := <-done:
		t.Fatalf("unexpected delivery for unmounted page %d", p.Surface.PageNumber)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestShutdownStopsNewRequests(t *testing.T) {
	src := newFakeSource()
	done := make(chan Page, 4)
	m := NewManager(src, func(p Page) { done <- p })

	m.Shutdown()
	m.Request(1, 1.0)
	select {
	case <-done:
		t.Fatal("render delivered after shutdown")
	case <-time.After(100 * time.Millisecond):
	}
}
