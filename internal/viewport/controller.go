// Package viewport decides which pages of a document are mounted
// (rendered) versus placeholders, tracks the current page, and keeps the
// scroll position continuous across zoom and layout changes.
package viewport

import (
	"math"
	"sync"

	"scribe/internal/models"
)

// Behavior is a presentation hint for a programmatic scroll.
type Behavior string

const (
	BehaviorSmooth  Behavior = "smooth"
	BehaviorInstant Behavior = "instant"
)

// Layout carries the widths the side surfaces take away from the
// document area when open, used for the fit-width computation.
type Layout struct {
	TocWidth    float64
	PanelWidth  float64
	EditorWidth float64
	Margin      float64
}

// AvailableWidth is the horizontal space left for pages once the open
// side surfaces and margin are subtracted.
func AvailableWidth(containerWidth float64, lay Layout, tocOpen, panelOpen, editorOpen bool) float64 {
	w := containerWidth - lay.Margin
	if tocOpen {
		w -= lay.TocWidth
	}
	if panelOpen {
		w -= lay.PanelWidth
	}
	if editorOpen {
		w -= lay.EditorWidth
	}
	return w
}

// FitScale derives the zoom scale that makes a page span the available
// width, bounded below by minScale.
func FitScale(availableWidth, pageWidth, minScale float64) float64 {
	if pageWidth <= 0 || availableWidth <= 0 {
		return minScale
	}
	return math.Max(minScale, availableWidth/pageWidth)
}

// Options configures a Controller.
type Options struct {
	Gap    float64 // vertical space between page wrappers, in pixels
	Buffer int     // pages kept mounted beyond the visible range

	OnPageChange func(page int)
	OnMount      func(page int, mounted bool)
	OnScroll     func(top float64, behavior Behavior)
}

// Controller virtualizes page mounting for one open document. All
// geometry derives from the document's unit-scale page size and the
// current scale, so placeholders and mounted pages occupy identical
// space and toggling a page never shifts its siblings.
type Controller struct {
	mu        sync.Mutex
	pageCount int
	pageW     float64
	pageH     float64
	scale     float64
	gap       float64
	buffer    int

	viewportH float64
	scrollTop float64
	laidOut   bool

	mounted     map[int]bool
	currentPage int

	snapshot        *models.ScrollPosition
	initialJumpDone bool

	onPageChange func(int)
	onMount      func(int, bool)
	onScroll     func(float64, Behavior)
}

func New(pageCount int, pageWidth, pageHeight float64, opts Options) *Controller {
	if opts.Buffer <= 0 {
		opts.Buffer = 2
	}
	return &Controller{
		pageCount:    pageCount,
		pageW:        pageWidth,
		pageH:        pageHeight,
		scale:        1.0,
		gap:          opts.Gap,
		buffer:       opts.Buffer,
		mounted:      make(map[int]bool),
		currentPage:  1,
		onPageChange: opts.OnPageChange,
		onMount:      opts.OnMount,
		onScroll:     opts.OnScroll,
	}
}

// geometry, lock held

func (c *Controller) pageWidthPx() float64 { return math.Floor(c.pageW * c.scale) }
func (c *Controller) pageHeightPx() float64 { return math.Floor(c.pageH * c.scale) }

func (c *Controller) pageTop(page int) float64 {
	return float64(page-1) * (c.pageHeightPx() + c.gap)
}

func (c *Controller) contentHeight() float64 {
	if c.pageCount == 0 {
		return 0
	}
	return float64(c.pageCount)*(c.pageHeightPx()+c.gap) - c.gap
}

// PlaceholderSize reports the pixel box a non-mounted page reserves,
// identical to the box a mounted page occupies.
func (c *Controller) PlaceholderSize() (w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.pageWidthPx()), int(c.pageHeightPx())
}

// PageRegion reports the container-relative top offset and height of one
// page wrapper at the current scale.
func (c *Controller) PageRegion(page int) (top, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageTop(page), c.pageHeightPx()
}

// SetViewport records the scroll container's height and performs the
// first layout pass.
func (c *Controller) SetViewport(height float64) {
	c.mu.Lock()
	c.viewportH = height
	c.laidOut = c.pageCount > 0 && c.viewportH > 0
	events := c.refresh()
	c.mu.Unlock()
	events.fire()
}

// UpdateScroll moves the container scroll offset and recomputes the
// intersecting set, the mounted range, and the current page.
func (c *Controller) UpdateScroll(top float64) {
	c.mu.Lock()
	c.scrollTop = c.clampScroll(top)
	events := c.refresh()
	c.mu.Unlock()
	events.fire()
}

// ScrollToPage aligns the container with a page. offsetTop, when given,
// is in unit-scale units measured from the page's top edge; nil aligns
// the page's top with the container's top. Used both for plain page
// navigation and for outline anchors, which land on the exact target
// regardless of the current zoom.
func (c *Controller) ScrollToPage(page int, offsetTop *float64, behavior Behavior) {
	c.mu.Lock()
	if page < 1 {
		page = 1
	}
	if page > c.pageCount {
		page = c.pageCount
	}
	target := c.pageTop(page)
	if offsetTop != nil {
		target += *offsetTop * c.scale
	}
	c.scrollTop = c.clampScroll(target)
	top := c.scrollTop
	events := c.refresh()
	scroll := c.onScroll
	c.mu.Unlock()

	if scroll != nil {
		scroll(top, behavior)
	}
	events.fire()
}

// GetScrollPosition reports the page currently spanning the container's
// top edge and how far the container has scrolled into it, in unit-scale
// units. Returns nil before the first layout pass.
func (c *Controller) GetScrollPosition() *models.ScrollPosition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrollPositionLocked()
}

func (c *Controller) scrollPositionLocked() *models.ScrollPosition {
	if !c.laidOut || c.scale <= 0 {
		return nil
	}
	for page := 1; page <= c.pageCount; page++ {
		bottom := c.pageTop(page) + c.pageHeightPx()
		if bottom >= c.scrollTop {
			offset := (c.scrollTop - c.pageTop(page)) / c.scale
			if offset < 0 {
				offset = 0
			}
			return &models.ScrollPosition{Page: page, OffsetTop: offset}
		}
	}
	return nil
}

// SnapshotScroll captures the current position. Call it before any
// operation that changes the effective scale: explicit zoom, fit-width
// toggle, or a panel open/close that changes the available width.
func (c *Controller) SnapshotScroll() {
	c.mu.Lock()
	c.snapshot = c.scrollPositionLocked()
	c.mu.Unlock()
}

// SetScale applies a new effective scale and re-lays-out the pages. The
// caller is expected to follow with RestoreScroll before the next frame
// is observed.
func (c *Controller) SetScale(scale float64) {
	c.mu.Lock()
	if scale <= 0 || scale == c.scale {
		c.mu.Unlock()
		return
	}
	c.scale = scale
	c.scrollTop = c.clampScroll(c.scrollTop)
	events := c.refresh()
	c.mu.Unlock()
	events.fire()
}

// RestoreScroll reapplies the position captured by SnapshotScroll after
// a re-layout, instantly. The one-time jump to the last-read page on
// initial load is exempt: until InitialJump has run, a spurious restore
// triggered by the first layout pass is discarded.
func (c *Controller) RestoreScroll() {
	c.mu.Lock()
	pos := c.snapshot
	c.snapshot = nil
	if !c.initialJumpDone {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	if pos != nil {
		c.ScrollToPage(pos.Page, &pos.OffsetTop, BehaviorInstant)
	}
}

// InitialJump performs the one-time jump to the reader's saved page and
// arms the restore path.
func (c *Controller) InitialJump(page int) {
	if page > 1 {
		c.ScrollToPage(page, nil, BehaviorSmooth)
	}
	c.mu.Lock()
	c.initialJumpDone = true
	c.mu.Unlock()
}

// CurrentPage is the lowest page number among the currently intersecting
// pages.
func (c *Controller) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage
}

func (c *Controller) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

func (c *Controller) IsMounted(page int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted[page]
}

// MountedPages returns the mounted page numbers in ascending order.
func (c *Controller) MountedPages() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.mounted))
	for page := 1; page <= c.pageCount; page++ {
		if c.mounted[page] {
			out = append(out, page)
		}
	}
	return out
}

func (c *Controller) clampScroll(top float64) float64 {
	max := c.contentHeight() - c.viewportH
	if max < 0 {
		max = 0
	}
	if top > max {
		top = max
	}
	if top < 0 {
		top = 0
	}
	return top
}

// pendingEvents collects observer notifications computed under the lock
// so they can fire outside it.
type pendingEvents struct {
	pageChange   func(int)
	newPage      int
	mountChanges []mountChange
	mount        func(int, bool)
}

type mountChange struct {
	page    int
	mounted bool
}

func (e pendingEvents) fire() {
	for _, mc := range e.mountChanges {
		if e.mount != nil {
			e.mount(mc.page, mc.mounted)
		}
	}
	if e.pageChange != nil {
		e.pageChange(e.newPage)
	}
}

// refresh recomputes the intersecting set and the mounted range from the
// current geometry. Lock held; returns the notifications to fire.
func (c *Controller) refresh() pendingEvents {
	var events pendingEvents
	events.mount = c.onMount
	if !c.laidOut {
		return events
	}

	lowest, highest := 0, 0
	viewTop := c.scrollTop
	viewBottom := c.scrollTop + c.viewportH
	for page := 1; page <= c.pageCount; page++ {
		top := c.pageTop(page)
		bottom := top + c.pageHeightPx()
		if bottom <= viewTop || top >= viewBottom {
			continue
		}
		if lowest == 0 {
			lowest = page
		}
		highest = page
	}
	if lowest == 0 {
		return events
	}

	start := lowest - c.buffer
	if start < 1 {
		start = 1
	}
	end := highest + c.buffer
	if end > c.pageCount {
		end = c.pageCount
	}

	for page := range c.mounted {
		if page < start || page > end {
			delete(c.mounted, page)
			events.mountChanges = append(events.mountChanges, mountChange{page, false})
		}
	}
	for page := start; page <= end; page++ {
		if !c.mounted[page] {
			c.mounted[page] = true
			events.mountChanges = append(events.mountChanges, mountChange{page, true})
		}
	}

	if lowest != c.currentPage {
		c.currentPage = lowest
		events.pageChange = c.onPageChange
		events.newPage = lowest
	}
	return events
}
