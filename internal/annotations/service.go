package annotations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/models"
	"scribe/internal/overlay"
)

// Service owns the grouped annotation view for one open document. Every
// mutation is confirmed against the store before it is applied to the
// in-memory lists, so the panels never show data that failed to persist.
type Service struct {
	store        Store
	documentID   string
	defaultColor string

	mu         sync.Mutex
	highlights []models.Highlight
	comments   map[string][]models.Comment
}

func NewService(store Store, documentID, defaultColor string) *Service {
	if defaultColor == "" {
		defaultColor = overlay.DefaultColor
	}
	return &Service{
		store:        store,
		documentID:   documentID,
		defaultColor: defaultColor,
		comments:     make(map[string][]models.Comment),
	}
}

// Load fetches the document's highlights and comments and groups the
// comments by highlight, preserving insertion order.
func (s *Service) Load(ctx context.Context) error {
	highlights, err := s.store.ListHighlights(ctx, s.documentID)
	if err != nil {
		return fmt.Errorf("load highlights: %w", err)
	}
	comments, err := s.store.ListComments(ctx, s.documentID)
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	grouped := make(map[string][]models.Comment)
	for _, c := range comments {
		grouped[c.HighlightID] = append(grouped[c.HighlightID], c)
	}

	s.mu.Lock()
	s.highlights = highlights
	s.comments = grouped
	s.mu.Unlock()
	return nil
}

// Highlights returns a copy of the current highlight list.
func (s *Service) Highlights() []models.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Highlight, len(s.highlights))
	copy(out, s.highlights)
	return out
}

// Comments returns a copy of the grouped comment view.
func (s *Service) Comments() map[string][]models.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]models.Comment, len(s.comments))
	for id, list := range s.comments {
		cp := make([]models.Comment, len(list))
		copy(cp, list)
		out[id] = cp
	}
	return out
}

// AddHighlight persists a new highlight and, on success, appends it to
// the in-memory list.
func (s *Service) AddHighlight(ctx context.Context, page int, rects []models.Rect, selectedText, color string) (models.Highlight, error) {
	if page < 1 {
		return models.Highlight{}, fmt.Errorf("invalid page number %d", page)
	}
	if len(rects) == 0 {
		return models.Highlight{}, fmt.Errorf("highlight has no rects")
	}
	for _, r := range rects {
		if r.X < 0 || r.Y < 0 || r.X+r.Width > 1 || r.Y+r.Height > 1 {
			return models.Highlight{}, fmt.Errorf("highlight rect out of page bounds")
		}
	}
	if color == "" {
		color = s.defaultColor
	}

	h := models.Highlight{
		HighlightID:  uuid.NewString(),
		DocumentID:   s.documentID,
		PageNumber:   page,
		Rects:        rects,
		SelectedText: selectedText,
		Color:        color,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.AddHighlight(ctx, h); err != nil {
		return models.Highlight{}, err
	}

	s.mu.Lock()
	s.highlights = append(s.highlights, h)
	s.mu.Unlock()
	return h, nil
}

// DeleteHighlight cascades: comments first, then the highlight, as two
// ordered operations. If the second step fails, the store is left with
// an orphaned highlight, never with orphaned comments.
func (s *Service) DeleteHighlight(ctx context.Context, highlightID string) error {
	if err := s.store.DeleteCommentsByHighlight(ctx, highlightID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.comments, highlightID)
	s.mu.Unlock()

	if err := s.store.DeleteHighlight(ctx, highlightID); err != nil {
		return err
	}
	s.mu.Lock()
	for i, h := range s.highlights {
		if h.HighlightID == highlightID {
			s.highlights = append(s.highlights[:i], s.highlights[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) AddComment(ctx context.Context, highlightID, text string) (models.Comment, error) {
	now := time.Now().UTC()
	c := models.Comment{
		CommentID:   uuid.NewString(),
		HighlightID: highlightID,
		DocumentID:  s.documentID,
		Text:        text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.AddComment(ctx, c); err != nil {
		return models.Comment{}, err
	}

	s.mu.Lock()
	s.comments[highlightID] = append(s.comments[highlightID], c)
	s.mu.Unlock()
	return c, nil
}

func (s *Service) UpdateComment(ctx context.Context, commentID, text string) error {
	if err := s.store.UpdateComment(ctx, commentID, text); err != nil {
		return err
	}
	now := time.Now().UTC()

	s.mu.Lock()
	for id, list := range s.comments {
		for i := range list {
			if list[i].CommentID == commentID {
				list[i].Text = text
				list[i].UpdatedAt = now
				s.comments[id] = list
			}
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Service) DeleteComment(ctx context.Context, commentID string) error {
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	s.mu.Lock()
	for id, list := range s.comments {
		for i := range list {
			if list[i].CommentID == commentID {
				s.comments[id] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
	s.mu.Unlock()
	return nil
}
