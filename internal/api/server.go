package api

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scribe/internal/annotations"
	"scribe/internal/config"
	"scribe/internal/models"
	"scribe/internal/overlay"
	"scribe/internal/pdfdoc"
	"scribe/internal/selection"
	"scribe/internal/storage"
	"scribe/internal/util"
	"scribe/internal/viewer"
	"scribe/internal/viewport"
	"scribe/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg       config.Config
	db        *storage.DB
	docRepo   *storage.DocumentRepo
	prefsRepo *storage.PrefsRepo
	noteRepo  *storage.NoteRepo
	annStore  annotations.Store
	sessions  *viewer.Manager
	temporal  tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}

	s := &Server{
		cfg:       cfg,
		db:        db,
		docRepo:   storage.NewDocumentRepo(db),
		prefsRepo: storage.NewPrefsRepo(db),
		noteRepo:  storage.NewNoteRepo(db),
		annStore:  annotations.NewPGStore(db),
		temporal:  tc,
	}
	s.sessions = viewer.NewManager(s.openDocument, s.annStore, s.prefsRepo, viewer.Settings{
		Layout: viewport.Layout{
			TocWidth:    cfg.TocWidth,
			PanelWidth:  cfg.PanelWidth,
			EditorWidth: cfg.EditorWidth,
			Margin:      cfg.PageMargin,
		},
		MinZoom:      cfg.MinZoom,
		MaxZoom:      cfg.MaxZoom,
		PageGap:      cfg.PageGap,
		MountBuffer:  cfg.MountBuffer,
		SaveDebounce: time.Duration(cfg.PrefsSaveDebounce) * time.Millisecond,
		DefaultColor: cfg.DefaultColor,
	})
	return s
}

// openDocument resolves a document id to its PDF on disk and opens it.
func (s *Server) openDocument(ctx context.Context, documentID string) (viewer.Document, error) {
	d, err := s.docRepo.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	path := util.SafeJoin(s.cfg.DataRoot, d.Filename)
	return pdfdoc.Open(path)
}

func (s *Server) Shutdown() {
	s.sessions.Shutdown()
	s.temporal.Close()
	s.db.Close()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/documents", s.handleDocuments)
	mux.HandleFunc("/documents/", s.handleDocumentsScoped)
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/sessions/", s.handleSessionsScoped)
	mux.HandleFunc("/notes", s.handleNotes)
	mux.HandleFunc("/notes/", s.handleNotesScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		docs, err := s.docRepo.ListDocuments(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	fh, ok := firstSingleFile(r.MultipartForm.File)
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("only pdf files are accepted"))
		return
	}
	if err := util.EnsureDir(s.cfg.DataRoot); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	documentID, path, err := saveUploadedFile(s.cfg.DataRoot, fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	subject := strings.TrimSpace(r.FormValue("subject"))
	doc := models.Document{
		DocumentID: documentID,
		Filename:   filepath.Base(path),
		Title:      title,
		Subject:    subject,
		Status:     "uploaded",
	}
	if err := s.docRepo.UpsertDocument(r.Context(), doc); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"document_id": documentID,
		"filename":    doc.Filename,
	})
}

func (s *Server) handleDocumentsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/documents/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	documentID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		d, err := s.docRepo.GetDocument(r.Context(), documentID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, d)
		return
	}

	if len(parts) == 2 && parts[1] == "file" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		d, err := s.docRepo.GetDocument(r.Context(), documentID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		http.ServeFile(w, r, util.SafeJoin(s.cfg.DataRoot, d.Filename))
		return
	}

	if len(parts) == 2 && parts[1] == "outline" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		outline, err := s.docRepo.GetOutline(r.Context(), documentID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"outline": outline})
		return
	}

	if len(parts) == 2 && parts[1] == "ingest" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		d, err := s.docRepo.GetDocument(r.Context(), documentID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		wfID := "ingest-" + documentID
		we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
			ID:                                       wfID,
			TaskQueue:                                s.cfg.TemporalTaskQueue,
			WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
			WorkflowExecutionErrorWhenAlreadyStarted: true,
		}, workflows.DocumentIngestWorkflow, workflows.DocumentIngestInput{
			DocumentPath: util.SafeJoin(s.cfg.DataRoot, d.Filename),
			Filename:     d.Filename,
			Title:        d.Title,
			Subject:      d.Subject,
		})
		if err != nil {
			writeErr(w, http.StatusConflict, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
		return
	}

	if len(parts) == 2 && parts[1] == "progress" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var prog workflows.DocumentIngestProgress
		resp, err := s.temporal.QueryWorkflow(r.Context(), "ingest-"+documentID, "", workflows.QueryGetProgress)
		if err != nil {
			// No live workflow to query; report what the DB has.
			d, dErr := s.docRepo.GetDocument(r.Context(), documentID)
			if dErr != nil {
				writeErr(w, statusFor(dErr), dErr)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"document_id": d.DocumentID,
				"status":      d.Status,
				"fail_reason": d.FailReason,
			})
			return
		}
		if err := resp.Get(&prog); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, prog)
		return
	}

	if len(parts) == 2 && parts[1] == "highlights" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		highlights, err := s.annStore.ListHighlights(r.Context(), documentID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"highlights": highlights})
		return
	}

	if len(parts) == 4 && parts[1] == "highlights" && parts[3] == "comments" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		comments, err := s.annStore.ListCommentsByHighlight(r.Context(), parts[2])
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
		return
	}

	if len(parts) == 2 && parts[1] == "comments" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		comments, err := s.annStore.ListComments(r.Context(), documentID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
		return
	}

	if len(parts) == 2 && parts[1] == "prefs" {
		switch r.Method {
		case http.MethodGet:
			p, err := s.prefsRepo.Get(r.Context(), documentID)
			if err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
			if p == nil {
				p = &models.ViewerPrefs{Zoom: 1.0, CurrentPage: 1}
			}
			writeJSON(w, http.StatusOK, p)
		case http.MethodPut:
			var p models.ViewerPrefs
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
				return
			}
			if err := s.prefsRepo.Save(r.Context(), documentID, p); err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}
		return
	}

	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("document_id is required"))
		return
	}
	sess, err := s.sessions.Open(r.Context(), req.DocumentID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) handleSessionsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	sess, err := s.sessions.Get(parts[0])
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, sess.State())
		case http.MethodDelete:
			if err := s.sessions.Close(sess.ID); err != nil {
				writeErr(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "outline":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"outline": sess.Outline()})

	case len(parts) == 2 && parts[1] == "viewport":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var req struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
			Resize bool    `json:"resize"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		if req.Resize {
			sess.Resize(req.Width, req.Height)
		} else {
			sess.UpdateViewport(req.Width, req.Height)
		}
		writeJSON(w, http.StatusOK, sess.State())

	case len(parts) == 2 && parts[1] == "scroll":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"position": sess.ScrollPosition()})
		case http.MethodPost:
			var req struct {
				Top float64 `json:"top"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
				return
			}
			sess.UpdateScroll(req.Top)
			writeJSON(w, http.StatusOK, sess.State())
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}

	case len(parts) == 2 && parts[1] == "zoom":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var req struct {
			Zoom     *float64 `json:"zoom"`
			FitWidth *bool    `json:"fit_width"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		switch {
		case req.Zoom != nil:
			sess.SetZoom(*req.Zoom)
		case req.FitWidth != nil:
			sess.ToggleFitWidth()
		default:
			writeErr(w, http.StatusBadRequest, fmt.Errorf("zoom or fit_width is required"))
			return
		}
		writeJSON(w, http.StatusOK, sess.State())

	case len(parts) == 2 && parts[1] == "panels":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var req struct {
			Panel string `json:"panel"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		switch req.Panel {
		case "toc":
			sess.ToggleToc()
		case "annotations":
			sess.TogglePanel()
		case "editor":
			sess.ToggleEditor()
		default:
			writeErr(w, http.StatusBadRequest, fmt.Errorf("unknown panel %q", req.Panel))
			return
		}
		writeJSON(w, http.StatusOK, sess.State())

	case len(parts) == 2 && parts[1] == "navigate":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var req struct {
			Page      int      `json:"page"`
			OffsetTop *float64 `json:"offset_top"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		sess.ScrollToPage(req.Page, req.OffsetTop)
		writeJSON(w, http.StatusOK, sess.State())

	case len(parts) == 3 && parts[1] == "pages":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		page, err := strconv.Atoi(parts[2])
		if err != nil || page < 1 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid page number"))
			return
		}
		rendered, ok := sess.Renderer().Rendered(page)
		if !ok {
			top, height := sess.Viewport().PageRegion(page)
			wpx, hpx := sess.Viewport().PlaceholderSize()
			writeJSON(w, http.StatusOK, map[string]any{
				"ready":  false,
				"top":    top,
				"height": height,
				"placeholder": map[string]any{
					"width":  wpx,
					"height": hpx,
				},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ready": true, "page": rendered})

	case len(parts) == 2 && parts[1] == "selection":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		var raw selection.RawSelection
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		sel, err := selection.Extract(raw)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, sel)

	case len(parts) == 2 && parts[1] == "highlights":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"highlights": sess.Annotations().Highlights()})
		case http.MethodPost:
			var req struct {
				Page         int           `json:"page"`
				Rects        []models.Rect `json:"rects"`
				SelectedText string        `json:"selected_text"`
				Color        string        `json:"color"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
				return
			}
			h, err := sess.Annotations().AddHighlight(r.Context(), req.Page, req.Rects, req.SelectedText, req.Color)
			if err != nil {
				writeErr(w, http.StatusBadRequest, err)
				return
			}
			writeJSON(w, http.StatusCreated, h)
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}

	case len(parts) == 3 && parts[1] == "highlights":
		if r.Method != http.MethodDelete {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		if err := sess.Annotations().DeleteHighlight(r.Context(), parts[2]); err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(parts) == 2 && parts[1] == "comments":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"comments": sess.Annotations().Comments()})
		case http.MethodPost:
			var req struct {
				HighlightID string `json:"highlight_id"`
				Text        string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
				return
			}
			if strings.TrimSpace(req.HighlightID) == "" {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("highlight_id is required"))
				return
			}
			c, err := sess.Annotations().AddComment(r.Context(), req.HighlightID, req.Text)
			if err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusCreated, c)
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}

	case len(parts) == 3 && parts[1] == "comments":
		switch r.Method {
		case http.MethodPatch, http.MethodPut:
			var req struct {
				Text string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
				return
			}
			if err := sess.Annotations().UpdateComment(r.Context(), parts[2], req.Text); err != nil {
				writeErr(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		case http.MethodDelete:
			if err := sess.Annotations().DeleteComment(r.Context(), parts[2]); err != nil {
				writeErr(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		}

	case len(parts) == 3 && parts[1] == "overlay":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		page, err := strconv.Atoi(parts[2])
		if err != nil || page < 1 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid page number"))
			return
		}
		widthPx := queryFloat(r, "width")
		heightPx := queryFloat(r, "height")
		if widthPx <= 0 || heightPx <= 0 {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("width and height are required"))
			return
		}
		boxes := overlay.Layout(sess.Annotations().Highlights(), page, widthPx, heightPx)
		writeJSON(w, http.StatusOK, map[string]any{"boxes": boxes})

	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		subject := strings.TrimSpace(r.URL.Query().Get("subject"))
		if subject == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("subject is required"))
			return
		}
		notes, err := s.noteRepo.ListBySubject(r.Context(), subject)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
	case http.MethodPost:
		var n models.Note
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		if strings.TrimSpace(n.Title) == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("title is required"))
			return
		}
		if n.NoteID == "" {
			n.NoteID = uuid.NewString()
		}
		if n.Status == "" {
			n.Status = "draft"
		}
		if err := s.noteRepo.UpsertNote(r.Context(), n); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"note_id": n.NoteID})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleNotesScoped(w http.ResponseWriter, r *http.Request) {
	noteID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/notes/"), "/")
	if noteID == "" || strings.Contains(noteID, "/") {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		n, err := s.noteRepo.GetNote(r.Context(), noteID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	case http.MethodDelete:
		if err := s.noteRepo.DeleteNote(r.Context(), noteID); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrNotFound), errors.Is(err, util.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrEmptySelection),
		errors.Is(err, util.ErrOutsidePage),
		errors.Is(err, util.ErrPageNotLaidOut):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrDocumentCorrupt):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func queryFloat(r *http.Request, key string) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil {
		return 0
	}
	return v
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (documentID, path string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*.pdf")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), src); err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	documentID = fmt.Sprintf("%x", h.Sum(nil))
	safeName := filepath.Base(fh.Filename)
	finalPath := filepath.Join(dstDir, safeName)
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", "", fmt.Errorf("seek temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}

	return documentID, finalPath, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "SC-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "SC-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "SC-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "SC-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "SC-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "SC-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "SC-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "SC-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusUnprocessableEntity:
		code = "SC-API-4022"
		msg = "The document cannot be parsed."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "document_id is required"):
			msg = "A document is required to open a session."
		case strings.Contains(raw, "no files provided"):
			msg = "No PDF files were provided."
		case strings.Contains(raw, "only pdf files"):
			msg = "Only PDF files are accepted."
		case strings.Contains(raw, "selection is empty"):
			msg = "The selection is empty or collapsed."
		case strings.Contains(raw, "outside the page"):
			msg = "The selection extends outside the page."
		case strings.Contains(raw, "not known yet"):
			msg = "The page has not been laid out yet."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
