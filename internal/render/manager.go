// Package render produces page surfaces and selectable text layers at a
// requested zoom scale. Render work is asynchronous and strictly
// serialized per page: a new request for a page cancels and supersedes
// any in-flight work for that page, so a stale render can never clobber
// a newer one. Cross-page work interleaves freely.
package render

import (
	"context"
	"math"
	"sync"

	"scribe/internal/pdfdoc"
)

// PageSource supplies page geometry and positioned text at unit scale.
// *pdfdoc.Document implements it.
type PageSource interface {
	PageSize(page int) (w, h float64, err error)
	PageText(ctx context.Context, page int) ([]pdfdoc.TextFragment, error)
}

// Surface is the pixel box a rendered page occupies at its scale.
type Surface struct {
	PageNumber int     `json:"page_number"`
	Scale      float64 `json:"scale"`
	WidthPx    int     `json:"width_px"`
	HeightPx   int     `json:"height_px"`
}

// TextSpan is one run of the selectable text layer, positioned in pixels
// over the surface.
type TextSpan struct {
	Text   string  `json:"text"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Page is the outcome of a render. Err is set only for a genuine decode
// failure, which is isolated to that page; the surface then stays blank.
type Page struct {
	Surface Surface    `json:"surface"`
	Spans   []TextSpan `json:"spans,omitempty"`
	Err     error      `json:"-"`
}

type task struct {
	cancel context.CancelFunc
	gen    uint64
}

// Manager owns the render tasks for one open document.
type Manager struct {
	src     PageSource
	deliver func(Page)

	mu      sync.Mutex
	tasks   map[int]*task
	results map[int]*Page
	gen     uint64
	root    context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a render manager. deliver, if non-nil, is invoked
// once per completed render with the winning result; superseded and
// cancelled renders are never delivered.
func NewManager(src PageSource, deliver func(Page)) *Manager {
	root, stop := context.WithCancel(context.Background())
	return &Manager{
		src:     src,
		deliver: deliver,
		tasks:   make(map[int]*task),
		results: make(map[int]*Page),
		root:    root,
		stop:    stop,
	}
}

// Request schedules a render of page at scale, cancelling any in-flight
// render for the same page.
func (m *Manager) Request(page int, scale float64) {
	m.mu.Lock()
	if m.root.Err() != nil {
		m.mu.Unlock()
		return
	}
	if t, ok := m.tasks[page]; ok {
		t.cancel()
	}
	m.gen++
	ctx, cancel := context.WithCancel(m.root)
	t := &task{cancel: cancel, gen: m.gen}
	m.tasks[page] = t
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(ctx, page, scale, t.gen)
}

func (m *Manager) run(ctx context.Context, page int, scale float64, gen uint64) {
	defer m.wg.Done()

	result := m.renderPage(ctx, page, scale)
	if result == nil {
		// Cancelled: expected, silent, no side effects.
		return
	}

	m.mu.Lock()
	t, ok := m.tasks[page]
	if !ok || t.gen != gen {
		// Superseded while finishing; the newer task owns the page now.
		m.mu.Unlock()
		return
	}
	delete(m.tasks, page)
	m.results[page] = result
	deliver := m.deliver
	m.mu.Unlock()

	if deliver != nil {
		deliver(*result)
	}
}

func (m *Manager) renderPage(ctx context.Context, page int, scale float64) *Page {
	w, h, err := m.src.PageSize(page)
	if err != nil {
		return &Page{Surface: Surface{PageNumber: page, Scale: scale}, Err: err}
	}
	if ctx.Err() != nil {
		return nil
	}

	surface := Surface{
		PageNumber: page,
		Scale:      scale,
		WidthPx:    int(math.Floor(w * scale)),
		HeightPx:   int(math.Floor(h * scale)),
	}

	frags, err := m.src.PageText(ctx, page)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return &Page{Surface: surface, Err: err}
	}

	spans := make([]TextSpan, 0, len(frags))
	for _, f := range frags {
		spans = append(spans, TextSpan{
			Text:   f.Text,
			X:      f.X * scale,
			Y:      f.Y * scale,
			Width:  f.Width * scale,
			Height: f.Height * scale,
		})
	}
	return &Page{Surface: surface, Spans: spans}
}

// Rendered returns the latest completed render for page, if any.
func (m *Manager) Rendered(page int) (Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.results[page]
	if !ok {
		return Page{}, false
	}
	return *p, true
}

// Unmount cancels outstanding work for page and drops its result. Called
// when the page leaves the viewport buffer.
func (m *Manager) Unmount(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tasks[page]; ok {
		t.cancel()
		delete(m.tasks, page)
	}
	delete(m.results, page)
}

// Shutdown cancels all render work and waits for the workers to exit.
func (m *Manager) Shutdown() {
	m.stop()
	m.wg.Wait()
	m.mu.Lock()
	m.tasks = make(map[int]*task)
	m.results = make(map[int]*Page)
	m.mu.Unlock()
}
