// Package viewer ties one open document to its viewport controller,
// render manager, annotation service and preference persistence. A
// session exclusively owns its document handle; closing the session
// releases the decoder resources on every exit path.
package viewer

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"scribe/internal/annotations"
	"scribe/internal/models"
	"scribe/internal/render"
	"scribe/internal/viewport"
)

// Document is the loader handle surface a session needs. Implemented by
// *pdfdoc.Document.
type Document interface {
	render.PageSource
	PageCount() int
	PageWidth() float64
	PageHeight() float64
	Outline() []models.OutlineEntry
	Close() error
}

// PrefsStore persists per-document viewer preferences. Implemented by
// *storage.PrefsRepo.
type PrefsStore interface {
	Get(ctx context.Context, documentID string) (*models.ViewerPrefs, error)
	Save(ctx context.Context, documentID string, p models.ViewerPrefs) error
}

// Settings carries the layout constants, zoom bounds and annotation
// defaults for sessions.
type Settings struct {
	Layout       viewport.Layout
	MinZoom      float64
	MaxZoom      float64
	PageGap      float64
	MountBuffer  int
	SaveDebounce time.Duration
	DefaultColor string
}

type Session struct {
	ID         string
	DocumentID string

	doc     Document
	vp      *viewport.Controller
	renders *render.Manager
	ann     *annotations.Service
	prefs   PrefsStore
	set     Settings

	mu             sync.Mutex
	zoom           float64
	fitWidth       bool
	tocOpen        bool
	panelOpen      bool
	editorOpen     bool
	containerWidth float64
	currentPage    int
	savedPage      int
	viewportReady  bool
	saveTimer      *time.Timer
	closed         bool
}

// State is a snapshot of the session for the API layer.
type State struct {
	SessionID      string  `json:"session_id"`
	DocumentID     string  `json:"document_id"`
	PageCount      int     `json:"page_count"`
	CurrentPage    int     `json:"current_page"`
	Zoom           float64 `json:"zoom"`
	FitWidth       bool    `json:"fit_width"`
	EffectiveScale float64 `json:"effective_scale"`
	TocOpen        bool    `json:"toc_open"`
	PanelOpen      bool    `json:"panel_open"`
	EditorOpen     bool    `json:"editor_open"`
	MountedPages   []int   `json:"mounted_pages"`
}

func newSession(id, documentID string, doc Document, ann *annotations.Service, prefs PrefsStore, set Settings) *Session {
	s := &Session{
		ID:          id,
		DocumentID:  documentID,
		doc:         doc,
		ann:         ann,
		prefs:       prefs,
		set:         set,
		zoom:        1.0,
		currentPage: 1,
		savedPage:   1,
	}
	s.renders = render.NewManager(doc, nil)
	s.vp = viewport.New(doc.PageCount(), doc.PageWidth(), doc.PageHeight(), viewport.Options{
		Gap:          set.PageGap,
		Buffer:       set.MountBuffer,
		OnPageChange: s.handlePageChange,
		OnMount:      s.handleMount,
	})
	return s
}

func (s *Session) applyPrefs(p *models.ViewerPrefs) {
	if p == nil {
		return
	}
	s.mu.Lock()
	if p.Zoom > 0 {
		s.zoom = clamp(p.Zoom, s.set.MinZoom, s.set.MaxZoom)
	}
	s.fitWidth = p.FitWidth
	if p.CurrentPage >= 1 {
		s.savedPage = p.CurrentPage
		s.currentPage = p.CurrentPage
	}
	s.mu.Unlock()
}

func (s *Session) Document() Document { return s.doc }
func (s *Session) Annotations() *annotations.Service { return s.ann }
func (s *Session) Viewport() *viewport.Controller { return s.vp }
func (s *Session) Renderer() *render.Manager { return s.renders }
func (s *Session) Outline() []models.OutlineEntry { return s.doc.Outline() }

// UpdateViewport reports the scroll container's size. The first call
// completes layout and performs the one-time jump to the saved page,
// which must not be overwritten by a restore fired from this same
// layout pass.
func (s *Session) UpdateViewport(width, height float64) {
	s.mu.Lock()
	s.containerWidth = width
	first := !s.viewportReady
	s.viewportReady = true
	scale := s.effectiveScaleLocked()
	saved := s.savedPage
	s.mu.Unlock()

	s.vp.SetScale(scale)
	s.vp.SetViewport(height)
	if first {
		s.vp.InitialJump(saved)
	}
}

// Resize is a container-width change with the document already laid
// out (window resize, panel drag): scroll continuity applies.
func (s *Session) Resize(width, height float64) {
	s.applyLayoutChange(func() {
		s.containerWidth = width
	})
	s.vp.SetViewport(height)
}

func (s *Session) UpdateScroll(top float64) {
	s.vp.UpdateScroll(top)
}

func (s *Session) ScrollPosition() *models.ScrollPosition {
	return s.vp.GetScrollPosition()
}

// ScrollToPage serves outline navigation: offsetTop is the entry's
// sub-page anchor in unit-scale units, nil for top of page.
func (s *Session) ScrollToPage(page int, offsetTop *float64) {
	s.vp.ScrollToPage(page, offsetTop, viewport.BehaviorSmooth)
}

// SetZoom applies an explicit zoom, leaving fit-width mode.
func (s *Session) SetZoom(zoom float64) {
	s.applyLayoutChange(func() {
		s.zoom = clamp(zoom, s.set.MinZoom, s.set.MaxZoom)
		s.fitWidth = false
	})
}

func (s *Session) ToggleFitWidth() {
	s.applyLayoutChange(func() { s.fitWidth = !s.fitWidth })
}

func (s *Session) ToggleToc() {
	s.applyLayoutChange(func() { s.tocOpen = !s.tocOpen })
}

func (s *Session) TogglePanel() {
	s.applyLayoutChange(func() { s.panelOpen = !s.panelOpen })
}

func (s *Session) ToggleEditor() {
	s.applyLayoutChange(func() { s.editorOpen = !s.editorOpen })
}

// applyLayoutChange runs the snapshot/restore protocol around any
// mutation that may change the effective scale: snapshot the scroll
// position first, apply the change and re-layout, then restore the
// position before the new frame is observed.
func (s *Session) applyLayoutChange(mutate func()) {
	s.vp.SnapshotScroll()

	s.mu.Lock()
	mutate()
	scale := s.effectiveScaleLocked()
	s.mu.Unlock()

	s.vp.SetScale(scale)
	s.vp.RestoreScroll()

	for _, page := range s.vp.MountedPages() {
		s.renders.Request(page, scale)
	}
	s.schedulePrefsSave()
}

// effectiveScaleLocked derives the scale in effect: the fit-width scale
// when fit mode is on and the container has been measured, otherwise
// the explicit zoom.
func (s *Session) effectiveScaleLocked() float64 {
	if s.fitWidth && s.containerWidth > 0 {
		avail := viewport.AvailableWidth(s.containerWidth, s.set.Layout, s.tocOpen, s.panelOpen, s.editorOpen)
		if avail > 0 {
			return viewport.FitScale(avail, s.doc.PageWidth(), s.set.MinZoom)
		}
	}
	return s.zoom
}

func (s *Session) handlePageChange(page int) {
	s.mu.Lock()
	s.currentPage = page
	s.mu.Unlock()
	s.schedulePrefsSave()
}

func (s *Session) handleMount(page int, mounted bool) {
	if mounted {
		s.renders.Request(page, s.vp.Scale())
	} else {
		s.renders.Unmount(page)
	}
}

func (s *Session) schedulePrefsSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.set.SaveDebounce, s.flushPrefs)
}

func (s *Session) flushPrefs() {
	s.mu.Lock()
	p := models.ViewerPrefs{Zoom: s.zoom, FitWidth: s.fitWidth, CurrentPage: s.currentPage}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.prefs.Save(ctx, s.DocumentID, p); err != nil {
		log.WithError(err).WithField("document_id", s.DocumentID).Warn("save viewer prefs")
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	st := State{
		SessionID:      s.ID,
		DocumentID:     s.DocumentID,
		PageCount:      s.doc.PageCount(),
		CurrentPage:    s.currentPage,
		Zoom:           s.zoom,
		FitWidth:       s.fitWidth,
		EffectiveScale: s.effectiveScaleLocked(),
		TocOpen:        s.tocOpen,
		PanelOpen:      s.panelOpen,
		EditorOpen:     s.editorOpen,
	}
	s.mu.Unlock()
	st.MountedPages = s.vp.MountedPages()
	return st
}

// Close flushes preferences immediately, cancels all render work, and
// releases the document handle. Safe to call once per session.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.mu.Unlock()

	s.flushPrefs()
	s.renders.Shutdown()
	return s.doc.Close()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
